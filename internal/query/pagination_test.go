package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageFor(t *testing.T) {
	tests := []struct {
		name      string
		requested int
		pageSize  int
		total     int
		want      Page
	}{
		{
			name: "first page of several", requested: 0, pageSize: 25, total: 60,
			want: Page{Index: 0, Offset: 0, Total: 60, TotalPages: 3, HasNext: true},
		},
		{
			name: "middle page", requested: 1, pageSize: 25, total: 60,
			want: Page{Index: 1, Offset: 25, Total: 60, TotalPages: 3, HasPrevious: true, HasNext: true},
		},
		{
			name: "last partial page", requested: 2, pageSize: 25, total: 60,
			want: Page{Index: 2, Offset: 50, Total: 60, TotalPages: 3, HasPrevious: true},
		},
		{
			name: "past the end clamps to last page", requested: 99, pageSize: 25, total: 60,
			want: Page{Index: 2, Offset: 50, Total: 60, TotalPages: 3, HasPrevious: true},
		},
		{
			name: "negative index treated as first", requested: -3, pageSize: 25, total: 10,
			want: Page{Index: 0, Offset: 0, Total: 10, TotalPages: 1},
		},
		{
			name: "exact multiple of page size", requested: 1, pageSize: 10, total: 20,
			want: Page{Index: 1, Offset: 10, Total: 20, TotalPages: 2, HasPrevious: true},
		},
		{
			name: "empty result set", requested: 4, pageSize: 25, total: 0,
			want: Page{},
		},
		{
			name: "zero page size falls back to one row per page", requested: 1, pageSize: 0, total: 3,
			want: Page{Index: 1, Offset: 1, Total: 3, TotalPages: 3, HasPrevious: true, HasNext: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PageFor(tt.requested, tt.pageSize, tt.total))
		})
	}
}
