package setutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDSetDiff(t *testing.T) {
	current := NewIDSet(1, 2, 3)
	target := NewIDSet(2, 3, 4)

	toAdd := target.Diff(current)
	toRemove := current.Diff(target)

	assert.ElementsMatch(t, []uint64{4}, toAdd)
	assert.ElementsMatch(t, []uint64{1}, toRemove)
}

func TestIDSetDiffDisjointAndEqual(t *testing.T) {
	a := NewIDSet(1, 2)
	b := NewIDSet(3, 4)
	assert.ElementsMatch(t, []uint64{1, 2}, a.Diff(b))

	c := NewIDSet(5, 6)
	d := NewIDSet(6, 5)
	assert.Empty(t, c.Diff(d))
}

func TestIDSetAddHas(t *testing.T) {
	s := NewIDSet()
	assert.Equal(t, 0, s.Len())

	s.Add(7)
	s.Add(7)
	s.AddAll([]uint64{8, 9})

	assert.True(t, s.Has(7))
	assert.False(t, s.Has(10))
	assert.Equal(t, 3, s.Len())
	assert.ElementsMatch(t, []uint64{7, 8, 9}, s.ToSlice())
}
