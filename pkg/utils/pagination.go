package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type PaginationParams struct {
	Page     int
	PageSize int
	Offset   int
}

// GetPaginationParams reads ?page= and ?limit=. Missing or out of range
// values fall back to the first page of DefaultPageSize.
func GetPaginationParams(c echo.Context) PaginationParams {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("limit"))
	return NewPaginationParams(page, pageSize)
}

func NewPaginationParams(page, pageSize int) PaginationParams {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	return PaginationParams{
		Page:     page,
		PageSize: pageSize,
		Offset:   (page - 1) * pageSize,
	}
}

// Paginate returns the window of items selected by p. A page past the end
// is empty, never nil.
func Paginate[T any](items []T, p PaginationParams) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	end := p.Offset + p.PageSize
	if end > len(items) {
		end = len(items)
	}
	return items[p.Offset:end]
}
