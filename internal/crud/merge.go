package crud

import (
	"gorm.io/gorm"

	"keel/internal/shared/setutil"
)

// MergeAssociation reconciles a many-to-many association against a
// target id set: additions are target ids not yet linked, removals are
// linked ids absent from the target,
// applied inside one transaction. Applying the same target twice is a
// no-op. related builds placeholder models carrying only the given
// ids, which is all the join table needs.
func MergeAssociation(db *gorm.DB, model any, association string, current, target []uint64, related func(ids []uint64) any) error {
	currentSet := setutil.NewIDSet(current...)
	targetSet := setutil.NewIDSet(target...)

	toAdd := targetSet.Diff(currentSet)
	toRemove := currentSet.Diff(targetSet)
	if len(toAdd) == 0 && len(toRemove) == 0 {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if len(toAdd) > 0 {
			if err := tx.Model(model).Association(association).Append(related(toAdd)); err != nil {
				return err
			}
		}
		if len(toRemove) > 0 {
			if err := tx.Model(model).Association(association).Delete(related(toRemove)); err != nil {
				return err
			}
		}
		return nil
	})
}
