package pagination

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	DefaultSize = 10
	MaxSize     = 100
)

const (
	Asc  = "asc"
	Desc = "desc"
)

// Params holds zero-indexed page parameters and the requested ordering.
type Params struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
}

// FromContext reads page, size, sortBy and sortDir from the query string.
// Missing or malformed values fall back to the given defaults.
func FromContext(c echo.Context, defaultSortBy, defaultSortDir string) Params {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 0 {
		page = 0
	}

	size, err := strconv.Atoi(c.QueryParam("size"))
	if err != nil || size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}

	sortBy := strings.TrimSpace(c.QueryParam("sortBy"))
	if sortBy == "" {
		sortBy = defaultSortBy
	}

	sortDir := strings.ToLower(strings.TrimSpace(c.QueryParam("sortDir")))
	if sortDir != Asc && sortDir != Desc {
		sortDir = strings.ToLower(defaultSortDir)
	}

	return Params{Page: page, Size: size, SortBy: sortBy, SortDir: sortDir}
}

// Limit returns the SQL LIMIT for the page.
func (p Params) Limit() int {
	if p.Size <= 0 {
		return DefaultSize
	}
	return p.Size
}

// Offset returns the SQL OFFSET for the page.
func (p Params) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return p.Page * p.Limit()
}

// ErrUnknownSortField is returned by Validate for a sortBy outside the
// whitelist.
var ErrUnknownSortField = errors.New("unknown sort field")

// Validate reports an error when SortBy is not a key of columns.
func (p Params) Validate(columns map[string]string) error {
	if p.SortBy == "" {
		return nil
	}
	if _, ok := columns[p.SortBy]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSortField, p.SortBy)
	}
	return nil
}

// OrderBy renders an ORDER BY clause from a whitelist mapping API field
// names to columns. Unknown fields order by "id". The id column is always
// appended as a tie-breaker so pages are stable.
func (p Params) OrderBy(columns map[string]string) string {
	col, ok := columns[p.SortBy]
	if !ok {
		col = "id"
	}
	dir := "ASC"
	if p.SortDir == Desc {
		dir = "DESC"
	}
	clause := "ORDER BY " + col + " " + dir
	if col != "id" {
		clause += ", id " + dir
	}
	return clause
}

// SQL returns the LIMIT and OFFSET clause for SQL queries.
func (p Params) SQL() string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", p.Limit(), p.Offset())
}

// Page is the JSON envelope of a paged result.
type Page[T any] struct {
	Content          []T   `json:"content"`
	TotalElements    int64 `json:"totalElements"`
	TotalPages       int   `json:"totalPages"`
	CurrentPage      int   `json:"currentPage"`
	Size             int   `json:"size"`
	NumberOfElements int   `json:"numberOfElements"`
	First            bool  `json:"first"`
	Last             bool  `json:"last"`
}

func NewPage[T any](content []T, total int64, p Params) *Page[T] {
	if content == nil {
		content = []T{}
	}
	size := p.Limit()
	totalPages := int((total + int64(size) - 1) / int64(size))
	return &Page[T]{
		Content:          content,
		TotalElements:    total,
		TotalPages:       totalPages,
		CurrentPage:      p.Page,
		Size:             size,
		NumberOfElements: len(content),
		First:            p.Page == 0,
		Last:             p.Page+1 >= totalPages,
	}
}
