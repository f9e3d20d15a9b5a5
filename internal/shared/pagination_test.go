package shared

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPagination(t *testing.T) {
	cases := []struct {
		name       string
		page       int
		limit      int
		total      int
		wantPages  int
		wantPage   int
		wantOffset int
	}{
		{name: "exact division", page: 1, limit: 10, total: 30, wantPages: 3, wantPage: 1, wantOffset: 0},
		{name: "partial last page", page: 2, limit: 10, total: 31, wantPages: 4, wantPage: 2, wantOffset: 10},
		{name: "empty result", page: 1, limit: 10, total: 0, wantPages: 0, wantPage: 1, wantOffset: 0},
		{name: "defaults applied", page: 0, limit: 0, total: 5, wantPages: 1, wantPage: 1, wantOffset: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewPagination(tc.page, tc.limit, tc.total)
			require.Equal(t, tc.wantPages, p.TotalPages)
			require.Equal(t, tc.wantPage, p.Page)
			require.Equal(t, tc.total, p.Total)
			require.Equal(t, tc.wantOffset, p.Offset())
		})
	}
}
