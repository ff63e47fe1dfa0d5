package crud

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// project walks the entity into its wire map: scalar columns copy via
// the model's json tags, relation fields become lists of related ids.
func (r *Resource[M]) project(m *M) (map[string]any, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to project %s: %w", r.desc.Name, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to project %s: %w", r.desc.Name, err)
	}

	// Only declared fields reach the wire; storage-only columns such as
	// password hashes are dropped here.
	out := make(map[string]any, len(raw))
	for col := range baseColumns {
		if value, ok := raw[col]; ok {
			out[col] = value
		}
	}
	for _, field := range r.desc.ScalarFields {
		if value, ok := raw[field]; ok {
			out[field] = value
		}
	}
	for _, rel := range r.relations {
		ids := rel.IDs(m)
		if ids == nil {
			ids = []uint64{}
		}
		out[rel.Name] = ids
	}
	return out, nil
}

func (r *Resource[M]) projectAll(rows []*M) ([]map[string]any, error) {
	items := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		item, err := r.project(row)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
