package models

import (
	"iter"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Default paging for a UserQuery built without explicit values.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 1000
)

// Sort orders accepted by UserQuery.Sort.
const (
	SortRelevance    = "relevance"
	SortModified     = "modified"
	SortModifiedDesc = "-modified"
	SortName         = "name"
	SortSize         = "size"
	SortSizeDesc     = "-size"
)

type filter struct {
	key   string
	value string
}

// Filters is an ordered, case-insensitive field -> value mapping.
// The zero value is empty. Filters is never mutated in place: With returns a copy.
type Filters struct {
	items []filter
}

// NewFilters builds Filters from alternating key, value arguments.
// A trailing key without a value is ignored.
func NewFilters(kv ...string) Filters {
	var f Filters
	for i := 0; i+1 < len(kv); i += 2 {
		f = f.With(kv[i], kv[i+1])
	}
	return f
}

// With returns a copy of f with key set to value. A repeated key keeps its
// original position and takes the new value.
func (f Filters) With(key, value string) Filters {
	key = strings.ToLower(strings.TrimSpace(key))
	items := make([]filter, len(f.items), len(f.items)+1)
	copy(items, f.items)
	for i := range items {
		if items[i].key == key {
			items[i].value = value
			return Filters{items: items}
		}
	}
	return Filters{items: append(items, filter{key: key, value: value})}
}

// Get returns the value stored for key.
func (f Filters) Get(key string) (string, bool) {
	key = strings.ToLower(key)
	for _, it := range f.items {
		if it.key == key {
			return it.value, true
		}
	}
	return "", false
}

// Len returns the number of filters.
func (f Filters) Len() int { return len(f.items) }

// All iterates filters in insertion order.
func (f Filters) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, it := range f.items {
			if !yield(it.key, it.value) {
				return
			}
		}
	}
}

// Map returns the filters as a plain map.
func (f Filters) Map() map[string]string {
	out := make(map[string]string, len(f.items))
	for k, v := range f.All() {
		out[k] = v
	}
	return out
}

// UserQuery is a structured search request. Values are copied on every With* call.
type UserQuery struct {
	FreeText string
	UseFuzzy bool
	Filters  Filters
	FromUTC  *time.Time
	ToUTC    *time.Time
	Page     int
	PageSize int
	Sort     string
}

// NewUserQuery returns a query for text with default paging.
func NewUserQuery(text string) UserQuery {
	return UserQuery{
		FreeText: strings.TrimSpace(text),
		Page:     DefaultPage,
		PageSize: DefaultPageSize,
		Sort:     SortRelevance,
	}
}

// WithPage returns a copy of q requesting the given page.
func (q UserQuery) WithPage(page, size int) UserQuery {
	q.Page = page
	q.PageSize = size
	return q
}

// WithFuzzy returns a copy of q with fuzzy matching toggled.
func (q UserQuery) WithFuzzy(fuzzy bool) UserQuery {
	q.UseFuzzy = fuzzy
	return q
}

// WithFilter returns a copy of q with one more exact-match filter.
func (q UserQuery) WithFilter(key, value string) UserQuery {
	q.Filters = q.Filters.With(key, value)
	return q
}

// WithRange returns a copy of q restricted to files modified within [from, to].
func (q UserQuery) WithRange(from, to *time.Time) UserQuery {
	q.FromUTC = utcPtr(from)
	q.ToUTC = utcPtr(to)
	return q
}

// WithSort returns a copy of q with the given sort order.
func (q UserQuery) WithSort(sort string) UserQuery {
	q.Sort = sort
	return q
}

// Offset returns the zero-based index of the first hit on the requested page.
func (q UserQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

// Validate checks paging, sort and date bounds.
func (q UserQuery) Validate() error {
	if err := validation.ValidateStruct(&q,
		validation.Field(&q.Page, validation.Required, validation.Min(1)),
		validation.Field(&q.PageSize, validation.Required, validation.Min(1), validation.Max(MaxPageSize)),
		validation.Field(&q.Sort, validation.In("", SortRelevance, SortModified, SortModifiedDesc,
			SortName, SortSize, SortSizeDesc)),
	); err != nil {
		return err
	}
	if q.FromUTC != nil && q.ToUTC != nil && q.ToUTC.Before(*q.FromUTC) {
		return validation.NewError("validation_range", "to must not be before from")
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
