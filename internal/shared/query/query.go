// Package query translates pagination, filter and order parameters from
// the query string into gorm scopes, applying status visibility rules.
package query

import (
	"strings"

	"gorm.io/gorm"

	"keel/internal/shared/errors"
	"keel/internal/shared/status"
)

// obsoleteSentinel is an impossible status value. A non-privileged
// caller asking for obsolete rows gets this instead, so the query runs
// and matches nothing.
const obsoleteSentinel = "obsolete#hidden"

// Pagination is a validated page request.
type Pagination struct {
	Index  int
	Limit  int
	Offset int
}

// NewPagination validates a page request. index is 1-based; limit must
// be positive and at most maxLimit when maxLimit > 0.
func NewPagination(index, limit, maxLimit int) (Pagination, error) {
	if index < 1 {
		return Pagination{}, errors.Newf(errors.DataValidationFailed, "index must be >= 1, got %d", index)
	}
	if limit <= 0 {
		return Pagination{}, errors.Newf(errors.DataValidationFailed, "limit must be > 0, got %d", limit)
	}
	if maxLimit > 0 && limit > maxLimit {
		return Pagination{}, errors.Newf(errors.DataValidationFailed, "limit must be <= %d, got %d", maxLimit, limit)
	}
	return Pagination{Index: index, Limit: limit, Offset: (index - 1) * limit}, nil
}

// Scope applies LIMIT/OFFSET.
func (p Pagination) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset).Limit(p.Limit)
	}
}

// Filters maps a field name to the requested values. One value means
// equality, several mean an IN predicate.
type Filters map[string][]string

// ParseFilters parses "field=value" tokens. Tokens without exactly one
// "=" separating a non-empty field are dropped. Repeated fields
// accumulate into a value list.
func ParseFilters(tokens []string) Filters {
	filters := make(Filters)
	for _, token := range tokens {
		parts := strings.Split(token, "=")
		if len(parts) != 2 || parts[0] == "" {
			continue
		}
		filters[parts[0]] = append(filters[parts[0]], parts[1])
	}
	return filters
}

// ApplyStatusVisibility injects the soft-delete visibility rule. With
// no explicit status filter, only live states are visible. A
// non-privileged explicit request has obsolete stripped, or rewritten
// to a value that matches nothing when obsolete was the only request.
// Privileged callers pass through untouched.
func (f Filters) ApplyStatusVisibility(superuser bool) {
	requested, explicit := f["status"]
	if !explicit {
		f["status"] = status.LiveStrings()
		return
	}
	if superuser {
		return
	}
	kept := make([]string, 0, len(requested))
	for _, s := range requested {
		if s != string(status.Obsolete) {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		kept = []string{obsoleteSentinel}
	}
	f["status"] = kept
}

// Scope turns the filters into WHERE predicates. Field names are
// checked against the entity's declared columns before interpolation;
// unknown fields are dropped.
func (f Filters) Scope(valid func(string) bool) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for field, values := range f {
			if !valid(field) {
				continue
			}
			if len(values) == 1 {
				db = db.Where(field+" = ?", values[0])
			} else {
				db = db.Where(field+" IN ?", values)
			}
		}
		return db
	}
}

// Order is one ordering term.
type Order struct {
	Field string
	Desc  bool
}

// ParseOrders parses order tokens: "field" ascends, "-field" descends.
// Tokens naming a column the entity does not have are skipped.
func ParseOrders(tokens []string, valid func(string) bool) []Order {
	orders := make([]Order, 0, len(tokens))
	for _, token := range tokens {
		desc := false
		field := token
		if strings.HasPrefix(token, "-") {
			desc = true
			field = token[1:]
		}
		if field == "" || !valid(field) {
			continue
		}
		orders = append(orders, Order{Field: field, Desc: desc})
	}
	return orders
}

// OrderScope applies the ordering terms, defaulting to ascending
// primary key when none survived parsing.
func OrderScope(orders []Order, primaryKey string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if len(orders) == 0 {
			return db.Order(primaryKey + " ASC")
		}
		for _, o := range orders {
			clause := o.Field + " ASC"
			if o.Desc {
				clause = o.Field + " DESC"
			}
			db = db.Order(clause)
		}
		return db
	}
}
