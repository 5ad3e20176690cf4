// Package storage holds the append-only record repositories behind the
// engine's trade and telemetry sink.
package storage

import (
	"context"
	"errors"
	"fmt"
)

const DefaultPageSize = 10

// ErrInvalidPage is returned for page numbers below 1.
var ErrInvalidPage = errors.New("page must be >= 1")

// Repository is an append-only store of records listed in insertion order.
type Repository[T any] interface {
	Save(ctx context.Context, record T) error
	List(ctx context.Context, page, pageSize int) (PageResult[T], error)
}

// PageResult is one page of a listing. Pages are 1-based; an empty store
// reports page 0 of 0 with EOP set.
type PageResult[T any] struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	Records  int  `json:"records"`
	Pages    int  `json:"pages"`
	EOP      bool `json:"eop"`
	Data     []T  `json:"data"`
}

// NewPageResult derives the page count and end-of-pages flag from the total
// record count.
func NewPageResult[T any](page, pageSize, records int, data []T) PageResult[T] {
	pages := 0
	if records > 0 {
		pages = (records-1)/pageSize + 1
	} else {
		page = 0
	}
	if data == nil {
		data = []T{}
	}
	return PageResult[T]{
		Page:     page,
		PageSize: pageSize,
		Records:  records,
		Pages:    pages,
		EOP:      page >= pages,
		Data:     data,
	}
}

// normalizePage validates page and defaults a non-positive page size.
func normalizePage(page, pageSize int) (int, int, error) {
	if page < 1 {
		return 0, 0, fmt.Errorf("%w: got %d", ErrInvalidPage, page)
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return page, pageSize, nil
}

// Offset returns the zero-based index of the first record on page.
func Offset(page, pageSize int) int {
	return (page - 1) * pageSize
}
