// internal/core/domain/query.go
package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DefaultPageSize is the page window used by every list screen.
const DefaultPageSize = 20

// Operator is a backend filter operator.
type Operator string

// Operator constants
const (
	OpEquals      Operator = "="
	OpNotEquals   Operator = "!="
	OpLike        Operator = "like"
	OpGreaterOrEq Operator = ">="
	OpLessOrEq    Operator = "<="
	OpIn          Operator = "in"
)

// Filter is a single (field, operator, value) predicate.
type Filter struct {
	Field    string
	Operator Operator
	Value    any
}

// Eq builds an equality filter.
func Eq(field string, value any) Filter {
	return Filter{Field: field, Operator: OpEquals, Value: value}
}

// Like builds a substring match filter.
func Like(field, term string) Filter {
	return Filter{Field: field, Operator: OpLike, Value: "%" + term + "%"}
}

// MarshalJSON encodes the filter as the backend's [field, op, value] triple.
func (f Filter) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{f.Field, string(f.Operator), f.Value})
}

// UnmarshalJSON decodes a [field, op, value] triple.
func (f *Filter) UnmarshalJSON(data []byte) error {
	var triple []any
	if err := json.Unmarshal(data, &triple); err != nil {
		return err
	}
	if len(triple) != 3 {
		return fmt.Errorf("filter must have 3 elements, got %d", len(triple))
	}
	field, ok := triple[0].(string)
	if !ok {
		return fmt.Errorf("filter field must be a string")
	}
	op, ok := triple[1].(string)
	if !ok {
		return fmt.Errorf("filter operator must be a string")
	}
	f.Field = field
	f.Operator = Operator(op)
	f.Value = triple[2]
	return nil
}

// SortOrder is a sort direction.
type SortOrder string

// Sort order constants
const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// Sort is a sort key.
type Sort struct {
	Field string    `json:"field"`
	Order SortOrder `json:"order"`
}

// String renders the sort in order_by form, e.g. "modified desc".
func (s Sort) String() string {
	if s.Field == "" {
		return ""
	}
	order := s.Order
	if order == "" {
		order = SortAsc
	}
	return s.Field + " " + string(order)
}

// Query describes one list call. Filters are ANDed; OrFilters are
// ORed together and then ANDed with Filters.
type Query struct {
	Fields    []string `json:"fields,omitempty"`
	Filters   []Filter `json:"filters,omitempty"`
	OrFilters []Filter `json:"or_filters,omitempty"`
	Sort      Sort     `json:"sort"`
	Offset    int      `json:"offset"`
	Limit     int      `json:"limit"`
}

// Validate checks the paging window.
func (q Query) Validate() error {
	if q.Offset < 0 {
		return fmt.Errorf("offset must be >= 0, got %d", q.Offset)
	}
	if q.Limit <= 0 {
		return fmt.Errorf("limit must be > 0, got %d", q.Limit)
	}
	return nil
}

// ListPage is one page of records.
type ListPage struct {
	Records []Record `json:"records"`
	HasMore bool     `json:"has_more"`
}

// NewListPage derives HasMore from the page length: a full page means
// more records might follow.
func NewListPage(records []Record, limit int) ListPage {
	return ListPage{
		Records: records,
		HasMore: limit > 0 && len(records) == limit,
	}
}

// ListSpec parametrizes a list over one doctype.
type ListSpec struct {
	DocType      string
	Fields       []string
	DefaultSort  Sort
	PageSize     int
	SearchFields []string
}

// SearchFilters returns the predicates for a search term. A single search
// field yields an AND filter; several fields are matched with OR.
func (s ListSpec) SearchFilters(term string) (and []Filter, or []Filter) {
	term = strings.TrimSpace(term)
	if term == "" || len(s.SearchFields) == 0 {
		return nil, nil
	}
	if len(s.SearchFields) == 1 {
		return []Filter{Like(s.SearchFields[0], term)}, nil
	}
	or = make([]Filter, 0, len(s.SearchFields))
	for _, f := range s.SearchFields {
		or = append(or, Like(f, term))
	}
	return nil, or
}

// Query builds the query for the given page.
func (s ListSpec) Query(page int, filters []Filter, search string) Query {
	size := s.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	and, or := s.SearchFilters(search)
	all := make([]Filter, 0, len(filters)+len(and))
	all = append(all, filters...)
	all = append(all, and...)
	return Query{
		Fields:    s.Fields,
		Filters:   all,
		OrFilters: or,
		Sort:      s.DefaultSort,
		Offset:    page * size,
		Limit:     size,
	}
}
