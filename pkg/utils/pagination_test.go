package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestGetPaginationParams(t *testing.T) {
	e := echo.New()

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?page=3&limit=5", nil), httptest.NewRecorder())
	assert.Equal(t, PaginationParams{Page: 3, PageSize: 5, Offset: 10}, GetPaginationParams(c))

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/?page=-1&limit=500", nil), httptest.NewRecorder())
	assert.Equal(t, PaginationParams{Page: 1, PageSize: 20, Offset: 0}, GetPaginationParams(c))
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{3, 4}, Paginate(items, PaginationParams{Page: 2, PageSize: 2, Offset: 2}))
	assert.Equal(t, []int{5}, Paginate(items, PaginationParams{Page: 3, PageSize: 2, Offset: 4}))
	assert.Empty(t, Paginate(items, PaginationParams{Page: 4, PageSize: 2, Offset: 6}))
}
