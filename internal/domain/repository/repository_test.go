package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPagination(t *testing.T) {
	tests := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, 20},
		{3, 10, 3, 10},
		{2, 500, 2, 100},
	}
	for _, tt := range tests {
		p := NewPagination(tt.page, tt.size)
		assert.Equal(t, tt.wantPage, p.Page)
		assert.Equal(t, tt.wantSize, p.Limit())
	}
	assert.Equal(t, 20, NewPagination(3, 10).Offset())
}

func TestNewPagedResult(t *testing.T) {
	r := NewPagedResult([]string{"a", "b"}, 21, NewPagination(1, 10))
	assert.Equal(t, 3, r.TotalPages)
	assert.Equal(t, int64(21), r.Total)
}
