package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPageResult(t *testing.T) {
	tests := []struct {
		name              string
		page, size, total int
		wantPage, pages   int
		eop               bool
	}{
		{"empty store", 1, 10, 0, 0, 0, true},
		{"single partial page", 1, 10, 3, 1, 1, true},
		{"exact fit", 2, 5, 10, 2, 2, true},
		{"first of many", 1, 5, 11, 1, 3, false},
		{"past the end", 4, 5, 11, 4, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewPageResult[int](tt.page, tt.size, tt.total, nil)
			assert.Equal(t, tt.wantPage, r.Page)
			assert.Equal(t, tt.pages, r.Pages)
			assert.Equal(t, tt.eop, r.EOP)
			assert.NotNil(t, r.Data)
		})
	}
}

func TestMemoryPaging(t *testing.T) {
	ctx := context.Background()
	m := NewMemory[int]()

	empty, err := m.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Page)
	assert.True(t, empty.EOP)

	for i := 1; i <= 5; i++ {
		require.NoError(t, m.Save(ctx, i))
	}

	p1, err := m.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, p1.Data)
	assert.Equal(t, 3, p1.Pages)
	assert.False(t, p1.EOP)

	p3, err := m.List(ctx, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{5}, p3.Data)
	assert.True(t, p3.EOP)

	def, err := m.List(ctx, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, def.PageSize)
	assert.Len(t, def.Data, 5)

	_, err = m.List(ctx, 0, 2)
	assert.True(t, errors.Is(err, ErrInvalidPage))
	assert.Equal(t, 5, m.Len())
	assert.Equal(t, []int{4, 5}, m.Since(3))
	assert.Nil(t, m.Since(5))
}
