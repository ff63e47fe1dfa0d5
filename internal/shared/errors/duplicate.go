package errors

import (
	"regexp"
	"strings"
)

// mysqlDuplicateRe matches the MySQL duplicate-key message shape:
// Error 1062: Duplicate entry 'value' for key 'table.uq_table_column'
var mysqlDuplicateRe = regexp.MustCompile(`Duplicate entry '(.*)' for key '(.*)'`)

// sqliteDuplicateRe matches the sqlite shape used by tests:
// UNIQUE constraint failed: table.column
var sqliteDuplicateRe = regexp.MustCompile(`UNIQUE constraint failed: (?:[^.\s]+)\.([^,\s]+)`)

// IsDuplicateError reports whether err looks like a unique-constraint
// violation from the backing store.
func IsDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "Duplicate entry") ||
		strings.Contains(s, "UNIQUE constraint failed") ||
		strings.Contains(s, "duplicate key value violates unique constraint")
}

// ParseDuplicateEntry extracts the offending field and value from a
// duplicate-key error message, best effort. The MySQL key name has the
// shape "table.uq_table_column" (or "uq_@_table_@_column" under the
// legacy naming convention), so everything after the last separator is
// taken as the column name.
func ParseDuplicateEntry(err error) (field, value string, ok bool) {
	if err == nil {
		return "", "", false
	}
	s := err.Error()

	if m := mysqlDuplicateRe.FindStringSubmatch(s); m != nil {
		key := m[2]
		if i := strings.LastIndexAny(key, "._"); i >= 0 {
			key = key[i+1:]
		}
		return key, m[1], true
	}
	if m := sqliteDuplicateRe.FindStringSubmatch(s); m != nil {
		return m[1], "", true
	}
	return "", "", false
}
