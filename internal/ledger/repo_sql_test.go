package ledger

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBuildSelectRendersStagesInOrder(t *testing.T) {
	owner := uuid.New()
	p := Predicate{Owner: &owner, KindMode: KindModeExact, Kind: "daily_roi"}
	pipe := Compose(p, PlanEnrichment(p), Sort{Field: "amount", Desc: true}, Page{Number: 2, Size: 25})

	query, args := buildSelect(pipe)

	require.Contains(t, query, `LEFT JOIN users owner ON owner.id = e.user_id`)
	require.Contains(t, query, `LEFT JOIN users origin ON origin.id = e.user_id_from`)
	require.Contains(t, query, `e.user_id = $1`)
	require.Contains(t, query, `e.kind = $2`)
	require.Contains(t, query, `COALESCE(owner.username, '')`)
	require.Contains(t, query, `ORDER BY e.amount DESC, e.id`)
	require.Contains(t, query, `LIMIT $3 OFFSET $4`)
	require.Equal(t, []any{owner, "daily_roi", 25, 25}, args)

	joins := strings.Index(query, "LEFT JOIN")
	where := strings.Index(query, "WHERE 1=1")
	order := strings.Index(query, "ORDER BY")
	limit := strings.Index(query, "LIMIT")
	require.True(t, joins < where && where < order && order < limit)
}

func TestBuildSelectSubstringAndRanges(t *testing.T) {
	p := Predicate{
		KindMode: KindModeSubstring,
		Kind:     "roi",
		Ranges: []FieldRange{
			{Field: "amount", Min: f64(10), Max: f64(99)},
			{Field: "level", Eq: f64(2)},
		},
	}
	pipe := Compose(p, PlanEnrichment(p), Sort{Field: "created_at", Desc: true}, Page{Number: 1, Size: 20})

	query, args := buildSelect(pipe)

	require.Contains(t, query, `e.kind ILIKE $1`)
	require.Contains(t, query, `e.amount >= $2`)
	require.Contains(t, query, `e.amount <= $3`)
	require.Contains(t, query, `e.level = $4`)
	require.Equal(t, "%roi%", args[0])
}

func TestBuildSelectSearchMode(t *testing.T) {
	id := uuid.New()
	p := Predicate{Search: "alice", SearchID: &id, SearchMode: true}
	pipe := Compose(p, PlanEnrichment(p), Sort{Field: "created_at", Desc: true}, Page{Number: 1, Size: 20})

	query, args := buildSelect(pipe)

	require.Contains(t, query, `origin.username ILIKE $1`)
	require.Contains(t, query, `origin.email ILIKE $1`)
	require.Contains(t, query, `origin.name ILIKE $1`)
	require.Contains(t, query, `e.user_id_from = $2`)
	require.Equal(t, "%alice%", args[0])
	require.Equal(t, id, args[1])
}

func TestBuildCountJoinsOnlyInSearchMode(t *testing.T) {
	status := true
	from := time.Now()
	p := Predicate{Status: &status, DateFrom: &from}
	query, args := buildCount(p, PlanEnrichment(p))
	require.NotContains(t, query, "JOIN")
	require.Contains(t, query, `SELECT COUNT(*) FROM ledger_entries e`)
	require.Contains(t, query, `e.status = $1`)
	require.Contains(t, query, `e.created_at >= $2`)
	require.Len(t, args, 2)

	search := Predicate{Search: "bob", SearchMode: true}
	query, _ = buildCount(search, PlanEnrichment(search))
	require.Contains(t, query, `LEFT JOIN users origin`)
}
