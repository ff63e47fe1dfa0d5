// Package status defines the row lifecycle states shared by every
// persisted entity.
package status

// Status is the lifecycle state of a row.
type Status string

const (
	Active   Status = "active"
	Inactive Status = "inactive"
	Frozen   Status = "frozen"
	// Obsolete marks a soft-deleted row. Visible to superusers only.
	Obsolete Status = "obsolete"
)

// Live returns the states visible to non-privileged callers.
func Live() []Status {
	return []Status{Active, Inactive, Frozen}
}

// LiveStrings returns Live as plain strings for query building.
func LiveStrings() []string {
	return []string{string(Active), string(Inactive), string(Frozen)}
}

// Valid reports whether s is a known state.
func Valid(s string) bool {
	switch Status(s) {
	case Active, Inactive, Frozen, Obsolete:
		return true
	}
	return false
}

// IsLive reports whether s is visible to non-privileged callers.
func IsLive(s Status) bool {
	return s == Active || s == Inactive || s == Frozen
}
