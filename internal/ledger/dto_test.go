package ledger

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterValueJSONForms(t *testing.T) {
	var v filterValueJSON
	require.NoError(t, json.Unmarshal([]byte(`42`), &v))
	require.NotNil(t, v.Eq)
	require.Equal(t, 42.0, *v.Eq)
	require.Nil(t, v.Min)

	v = filterValueJSON{}
	require.NoError(t, json.Unmarshal([]byte(`"7.5"`), &v))
	require.Equal(t, 7.5, *v.Eq)

	v = filterValueJSON{}
	require.NoError(t, json.Unmarshal([]byte(`{"min":1,"max":10}`), &v))
	require.Nil(t, v.Eq)
	require.Equal(t, 1.0, *v.Min)
	require.Equal(t, 10.0, *v.Max)

	v = filterValueJSON{}
	require.NoError(t, json.Unmarshal([]byte(`{"min":3}`), &v))
	require.Equal(t, 3.0, *v.Min)
	require.Nil(t, v.Max)

	require.Error(t, json.Unmarshal([]byte(`"ten"`), &v))
}

func TestBoolishNormalization(t *testing.T) {
	cases := []struct {
		raw  string
		want bool
	}{
		{`true`, true},
		{`false`, false},
		{`1`, true},
		{`0`, false},
		{`"1"`, true},
		{`"0"`, false},
		{`"yes"`, true},
		{`"no"`, false},
		{`"TRUE"`, true},
		{`""`, false},
		{`"anything"`, true},
	}
	for _, tc := range cases {
		var b boolish
		require.NoError(t, json.Unmarshal([]byte(tc.raw), &b), tc.raw)
		require.Equal(t, tc.want, bool(b), tc.raw)
	}
}

func TestFlexStringAcceptsNumbers(t *testing.T) {
	var s flexString
	require.NoError(t, json.Unmarshal([]byte(`"daily_roi"`), &s))
	require.Equal(t, "daily_roi", string(s))

	require.NoError(t, json.Unmarshal([]byte(`5`), &s))
	require.Equal(t, "5", string(s))
}

func TestParseReportQuery(t *testing.T) {
	values := url.Values{}
	values.Set("user_id", "2b1e0b1e-8f0f-4d66-9f5e-0a8f0b1e2c3d")
	values.Set("type", "5")
	values.Set("exact_type_match", "1")
	values.Set("status", "true")
	values.Set("date_from", "2026-01-01")
	values.Set("date_to", "2026-02-01T12:00:00Z")
	values.Set("amount_min", "10")
	values.Set("amount_max", "50")
	values.Set("level", "2")
	values.Set("sort_by", "amount:desc")
	values.Set("page", "2")
	values.Set("limit", "25")

	req, err := parseReportQuery(values)
	require.NoError(t, err)
	require.Equal(t, "2b1e0b1e-8f0f-4d66-9f5e-0a8f0b1e2c3d", req.OwnerID)
	require.Equal(t, "5", req.Kind)
	require.True(t, req.ExactKindMatch)
	require.NotNil(t, req.Status)
	require.True(t, *req.Status)
	require.NotNil(t, req.DateFrom)
	require.NotNil(t, req.DateTo)
	require.Equal(t, 2, req.Page)
	require.Equal(t, 25, req.Limit)
	require.Equal(t, FilterValue{Min: f64(10), Max: f64(50)}, req.Filters["amount"])
	require.Equal(t, FilterValue{Eq: f64(2)}, req.Filters["level"])
}

func TestParseReportQueryRejectsBadValues(t *testing.T) {
	values := url.Values{}
	values.Set("date_from", "yesterday")
	_, err := parseReportQuery(values)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, "date_from", vErr.Field)

	values = url.Values{}
	values.Set("page", "two")
	_, err = parseReportQuery(values)
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, "page", vErr.Field)

	values = url.Values{}
	values.Set("amount_min", "lots")
	_, err = parseReportQuery(values)
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, "amount_min", vErr.Field)
}

func TestReportPayloadToRequest(t *testing.T) {
	raw := []byte(`{
		"user_id": "2b1e0b1e-8f0f-4d66-9f5e-0a8f0b1e2c3d",
		"type": 3,
		"status": "1",
		"date_from": "2026-01-01",
		"filters": {"amount": {"min": 5}, "level": 2},
		"sort_by": "amount:asc",
		"page": 1,
		"limit": 10
	}`)
	var payload reportPayload
	require.NoError(t, json.Unmarshal(raw, &payload))

	req, err := payload.toRequest()
	require.NoError(t, err)
	require.Equal(t, "3", req.Kind)
	require.NotNil(t, req.Status)
	require.True(t, *req.Status)
	require.NotNil(t, req.DateFrom)
	require.Equal(t, FilterValue{Min: f64(5)}, req.Filters["amount"])
	require.Equal(t, FilterValue{Eq: f64(2)}, req.Filters["level"])
}

func TestToResponseWireNames(t *testing.T) {
	store, owner, _ := seedStore(t)
	svc := NewService(store, testLogger(), 0)
	rep, err := svc.Report(context.Background(), ReportRequest{OwnerID: owner.String(), Limit: 1})
	require.NoError(t, err)

	raw, err := json.Marshal(toResponse(rep))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"list", "page", "limit", "total", "totalPages"} {
		require.Contains(t, decoded, key)
	}
	require.NotContains(t, decoded, "degraded")

	row := decoded["list"].([]any)[0].(map[string]any)
	for _, key := range []string{
		"id", "user_id", "username", "user", "user_email",
		"username_from", "user_from_name", "user_from_email",
		"type", "status", "amount", "wallet_amount", "topup_amount",
		"commission_amount", "investment_amount", "level", "pool_index",
		"days_elapsed", "created_at",
	} {
		require.Contains(t, row, key)
	}
}
