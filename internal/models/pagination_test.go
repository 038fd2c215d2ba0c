package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		pageSize   int
		total      int
		wantPages  int
		wantPage   int
		wantedSize int
	}{
		{"exact division", 1, 10, 30, 3, 1, 10},
		{"partial last page", 1, 10, 25, 3, 1, 10},
		{"empty result", 1, 10, 0, 0, 1, 10},
		{"single row", 1, 10, 1, 1, 1, 10},
		{"zero page defaults to first", 0, 10, 5, 1, 1, 10},
		{"zero size defaults to one", 1, 0, 5, 5, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(tt.page, tt.pageSize, tt.total)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantedSize, p.PageSize)
			assert.Equal(t, tt.total, p.TotalCount)
		})
	}
}
