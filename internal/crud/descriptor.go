// Package crud synthesizes the standard list/get/create/update/delete
// HTTP operations for a registered entity.
package crud

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// baseColumns exist on every entity and are always filterable and
// orderable.
var baseColumns = map[string]struct{}{
	"id":          {},
	"status":      {},
	"level":       {},
	"create_time": {},
	"update_time": {},
}

// Descriptor declares an entity's API surface once, at registration
// time. Field names are the wire names, which match the storage column
// names for scalars.
type Descriptor struct {
	// Name is the route path segment, e.g. "user".
	Name string
	// DisplayField is the column renamed on soft delete and guarded by
	// the reserved-suffix check. Empty when the entity has no display
	// name; Config.DeleteUpdateField is the fallback.
	DisplayField string
	// ScalarFields lists the entity's own columns beyond the base set.
	ScalarFields []string
	// CreateFields and UpdateFields bound which body fields each
	// operation accepts.
	CreateFields []string
	UpdateFields []string
}

// Validate checks the descriptor at registration time.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("descriptor requires a name")
	}
	scalars := make(map[string]struct{}, len(d.ScalarFields))
	for _, f := range d.ScalarFields {
		scalars[f] = struct{}{}
	}
	if d.DisplayField != "" {
		if _, ok := scalars[d.DisplayField]; !ok {
			return fmt.Errorf("display field %q is not a declared scalar field", d.DisplayField)
		}
	}
	return nil
}

// HasColumn reports whether name is a filterable/orderable column.
func (d Descriptor) HasColumn(name string) bool {
	if _, ok := baseColumns[name]; ok {
		return true
	}
	for _, f := range d.ScalarFields {
		if f == name {
			return true
		}
	}
	return false
}

// Title returns the capitalized verbose name used in documentation.
func (d Descriptor) Title() string {
	return cases.Title(language.English).String(d.Name)
}

// RelationField projects a loaded association to the list of related
// ids. Association is the model's field name used for preloading.
type RelationField[M any] struct {
	Name        string
	Association string
	IDs         func(m *M) []uint64
}
