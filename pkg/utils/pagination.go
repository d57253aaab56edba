package utils

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type PaginationParams struct {
	Page     int
	PageSize int
	Offset   int
}

// GetPaginationParams reads ?page and ?limit, falling back to the first page of 20.
func GetPaginationParams(c echo.Context) PaginationParams {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("limit"))

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	return PaginationParams{
		Page:     page,
		PageSize: pageSize,
		Offset:   (page - 1) * pageSize,
	}
}

// Paginate returns the window of items the params select. A page past the end is empty.
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
