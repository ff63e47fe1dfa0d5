package crud

import (
	"fmt"
	"regexp"
	"time"

	"keel/internal/shared/errors"
)

// deletedMarker terminates the suffix appended to a display field on
// soft delete. The full suffix is "_<hhmmss>_deleted" so a tombstoned
// row stops colliding with future rows reusing the same display value.
const deletedMarker = "deleted"

var reservedSuffixRe = regexp.MustCompile(`_\d{6}_` + deletedMarker + `$`)

// deletedSuffix builds the rename suffix for a soft delete happening
// now.
func deletedSuffix(now time.Time) string {
	return fmt.Sprintf("_%s_%s", now.Format("150405"), deletedMarker)
}

// checkReservedSuffix rejects display values that already carry the
// soft-delete marker, so a live row can never be mistaken for a
// tombstone.
func checkReservedSuffix(item map[string]any, field string) error {
	if field == "" {
		return nil
	}
	value, ok := item[field].(string)
	if !ok {
		return nil
	}
	if reservedSuffixRe.MatchString(value) {
		return errors.Newf(errors.DataValidationFailed, "%s must not end with the reserved suffix _hhmmss_%s", field, deletedMarker)
	}
	return nil
}
