package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// reportPayload is the JSON body form of a report request. Field names are
// fixed by the existing consumers of the platform and must not change.
type reportPayload struct {
	UserID         string                     `json:"user_id" validate:"omitempty,uuid"`
	Type           flexString                 `json:"type" validate:"max=64"`
	ExactTypeMatch bool                       `json:"exact_type_match"`
	Status         *boolish                   `json:"status"`
	DateFrom       string                     `json:"date_from"`
	DateTo         string                     `json:"date_to"`
	Filters        map[string]filterValueJSON `json:"filters"`
	Search         string                     `json:"search" validate:"max=200"`
	SortBy         string                     `json:"sort_by" validate:"max=64"`
	Page           int                        `json:"page" validate:"gte=0"`
	Limit          int                        `json:"limit" validate:"gte=0"`
}

func (p reportPayload) toRequest() (ReportRequest, error) {
	req := ReportRequest{
		OwnerID:        p.UserID,
		Kind:           string(p.Type),
		ExactKindMatch: p.ExactTypeMatch,
		Search:         p.Search,
		SortBy:         p.SortBy,
		Page:           p.Page,
		Limit:          p.Limit,
	}
	if p.Status != nil {
		value := bool(*p.Status)
		req.Status = &value
	}
	var err error
	if req.DateFrom, err = parseDate("date_from", p.DateFrom); err != nil {
		return ReportRequest{}, err
	}
	if req.DateTo, err = parseDate("date_to", p.DateTo); err != nil {
		return ReportRequest{}, err
	}
	if len(p.Filters) > 0 {
		req.Filters = make(map[string]FilterValue, len(p.Filters))
		for field, value := range p.Filters {
			req.Filters[field] = FilterValue(value)
		}
	}
	return req, nil
}

// flexString accepts a JSON string or number; the ledger historically mixed
// both for the type tag.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = flexString(str)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return err
	}
	*s = flexString(num.String())
	return nil
}

// boolish normalizes truthy/falsy JSON input (bool, number, string) to a
// strict boolean, mirroring the loosely typed status values older clients
// still send.
type boolish bool

func (b *boolish) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*b = false
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*b = boolish(truthyString(str))
		return nil
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	switch v := value.(type) {
	case bool:
		*b = boolish(v)
	case float64:
		*b = v != 0
	default:
		return fmt.Errorf("cannot interpret %s as boolean", data)
	}
	return nil
}

func truthyString(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "false", "no", "off":
		return false
	}
	return true
}

// filterValueJSON accepts a bare scalar (equality) or a {min,max} object
// (range) for a numeric filter.
type filterValueJSON FilterValue

func (v *filterValueJSON) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '{' {
		var bounds struct {
			Min *float64 `json:"min"`
			Max *float64 `json:"max"`
		}
		if err := json.Unmarshal(data, &bounds); err != nil {
			return err
		}
		v.Min = bounds.Min
		v.Max = bounds.Max
		return nil
	}
	var scalar float64
	if err := json.Unmarshal(data, &scalar); err != nil {
		// Numeric strings are accepted for the same legacy reasons as type.
		var str string
		if strErr := json.Unmarshal(data, &str); strErr != nil {
			return err
		}
		parsed, parseErr := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if parseErr != nil {
			return fmt.Errorf("cannot interpret %s as number", data)
		}
		scalar = parsed
	}
	v.Eq = &scalar
	return nil
}

// parseReportQuery maps GET query parameters onto a report request. Numeric
// filters use field, field_min and field_max parameters.
func parseReportQuery(values url.Values) (ReportRequest, error) {
	req := ReportRequest{
		OwnerID:        values.Get("user_id"),
		Kind:           values.Get("type"),
		ExactKindMatch: truthyString(values.Get("exact_type_match")),
		Search:         values.Get("search"),
		SortBy:         values.Get("sort_by"),
	}

	if raw := strings.TrimSpace(values.Get("status")); raw != "" {
		status := truthyString(raw)
		req.Status = &status
	}

	var err error
	if req.DateFrom, err = parseDate("date_from", values.Get("date_from")); err != nil {
		return ReportRequest{}, err
	}
	if req.DateTo, err = parseDate("date_to", values.Get("date_to")); err != nil {
		return ReportRequest{}, err
	}
	if req.Page, err = parseIntParam("page", values.Get("page")); err != nil {
		return ReportRequest{}, err
	}
	if req.Limit, err = parseIntParam("limit", values.Get("limit")); err != nil {
		return ReportRequest{}, err
	}

	for field := range filterColumns {
		value := FilterValue{}
		present := false
		if raw := strings.TrimSpace(values.Get(field)); raw != "" {
			eq, err := parseFloatParam(field, raw)
			if err != nil {
				return ReportRequest{}, err
			}
			value.Eq = eq
			present = true
		}
		if raw := strings.TrimSpace(values.Get(field + "_min")); raw != "" {
			min, err := parseFloatParam(field+"_min", raw)
			if err != nil {
				return ReportRequest{}, err
			}
			value.Min = min
			present = true
		}
		if raw := strings.TrimSpace(values.Get(field + "_max")); raw != "" {
			max, err := parseFloatParam(field+"_max", raw)
			if err != nil {
				return ReportRequest{}, err
			}
			value.Max = max
			present = true
		}
		if present {
			if req.Filters == nil {
				req.Filters = make(map[string]FilterValue)
			}
			req.Filters[field] = value
		}
	}
	return req, nil
}

func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, &ValidationError{Field: field, Reason: "unparseable date"}
}

func parseIntParam(field, raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{Field: field, Reason: "not an integer"}
	}
	return value, nil
}

func parseFloatParam(field, raw string) (*float64, error) {
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &ValidationError{Field: field, Reason: "not a number"}
	}
	return &value, nil
}

// entryJSON is the wire shape of one report row. The enrichment fields keep
// the raw ids alongside the resolved display attributes.
type entryJSON struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	Username  string `json:"username"`
	User      string `json:"user"`
	UserEmail string `json:"user_email"`

	UserIDFrom    string `json:"user_id_from,omitempty"`
	UsernameFrom  string `json:"username_from"`
	UserFromName  string `json:"user_from_name"`
	UserFromEmail string `json:"user_from_email"`

	Type   string `json:"type"`
	Status bool   `json:"status"`

	Amount           float64 `json:"amount"`
	WalletAmount     float64 `json:"wallet_amount"`
	TopupAmount      float64 `json:"topup_amount"`
	CommissionAmount float64 `json:"commission_amount"`
	InvestmentAmount float64 `json:"investment_amount"`
	Level            int     `json:"level"`
	PoolIndex        int     `json:"pool_index"`
	DaysElapsed      int     `json:"days_elapsed"`

	Extra     json.RawMessage `json:"extra,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type reportResponse struct {
	List       []entryJSON `json:"list"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int         `json:"total"`
	TotalPages int         `json:"totalPages"`
	Degraded   bool        `json:"degraded,omitempty"`
}

// CacheableResponse converts a report into the wire shape the HTTP layer
// serves, for callers that pre-populate the cache.
func CacheableResponse(rep Report) any {
	return toResponse(rep)
}

func toResponse(rep Report) reportResponse {
	list := make([]entryJSON, 0, len(rep.Rows))
	for _, row := range rep.Rows {
		entry := entryJSON{
			ID:               row.ID.String(),
			UserID:           row.OwnerID.String(),
			Username:         row.Owner.Username,
			User:             row.Owner.Name,
			UserEmail:        row.Owner.Email,
			UsernameFrom:     row.Originator.Username,
			UserFromName:     row.Originator.Name,
			UserFromEmail:    row.Originator.Email,
			Type:             row.Kind,
			Status:           row.Status,
			Amount:           row.Amount,
			WalletAmount:     row.WalletAmount,
			TopupAmount:      row.TopupAmount,
			CommissionAmount: row.CommissionAmount,
			InvestmentAmount: row.InvestmentAmount,
			Level:            row.Level,
			PoolIndex:        row.PoolIndex,
			DaysElapsed:      row.DaysElapsed,
			Extra:            row.Extra,
			CreatedAt:        row.CreatedAt,
		}
		if row.OriginatorID != nil && *row.OriginatorID != uuid.Nil {
			entry.UserIDFrom = row.OriginatorID.String()
		}
		list = append(list, entry)
	}
	return reportResponse{
		List:       list,
		Page:       rep.Page,
		Limit:      rep.Limit,
		Total:      rep.Total,
		TotalPages: rep.TotalPages,
		Degraded:   rep.Degraded,
	}
}
