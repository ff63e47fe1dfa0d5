package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keel/internal/shared/errors"
)

func TestNewPaginationOffset(t *testing.T) {
	cases := []struct {
		index, limit int
		offset       int
	}{
		{1, 10, 0},
		{2, 10, 10},
		{3, 7, 14},
		{100, 1, 99},
	}
	for _, tc := range cases {
		p, err := NewPagination(tc.index, tc.limit, 100)
		require.NoError(t, err)
		assert.Equal(t, tc.offset, p.Offset)
		assert.Equal(t, (tc.index-1)*tc.limit, p.Offset)
	}
}

func TestNewPaginationRejectsBadInput(t *testing.T) {
	cases := []struct {
		name         string
		index, limit int
	}{
		{"zero index", 0, 10},
		{"negative index", -1, 10},
		{"zero limit", 1, 0},
		{"negative limit", 1, -5},
		{"limit above max", 1, 51},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewPagination(tc.index, tc.limit, 50)
			require.Error(t, err)
			assert.True(t, errors.HasStatus(err, errors.DataValidationFailed))
		})
	}
}

func TestNewPaginationUnlimitedWhenMaxZero(t *testing.T) {
	p, err := NewPagination(1, 5000, 0)
	require.NoError(t, err)
	assert.Equal(t, 5000, p.Limit)
}

func TestParseFiltersDropsMalformed(t *testing.T) {
	filters := ParseFilters([]string{
		"name=alice",
		"status=active",
		"status=frozen",
		"broken",
		"a=b=c",
		"=orphan",
	})

	assert.Equal(t, Filters{
		"name":   {"alice"},
		"status": {"active", "frozen"},
	}, filters)
}

func TestStatusVisibilityDefaultsToLiveStates(t *testing.T) {
	filters := ParseFilters(nil)
	filters.ApplyStatusVisibility(false)
	assert.Equal(t, []string{"active", "inactive", "frozen"}, filters["status"])

	filters = ParseFilters(nil)
	filters.ApplyStatusVisibility(true)
	assert.Equal(t, []string{"active", "inactive", "frozen"}, filters["status"])
}

func TestStatusVisibilityStripsObsoleteForNonSuperuser(t *testing.T) {
	filters := ParseFilters([]string{"status=active", "status=obsolete"})
	filters.ApplyStatusVisibility(false)
	assert.Equal(t, []string{"active"}, filters["status"])
}

func TestStatusVisibilityObsoleteOnlyBecomesSentinel(t *testing.T) {
	filters := ParseFilters([]string{"status=obsolete"})
	filters.ApplyStatusVisibility(false)

	require.Len(t, filters["status"], 1)
	assert.NotEqual(t, "obsolete", filters["status"][0])
	assert.Equal(t, obsoleteSentinel, filters["status"][0])
}

func TestStatusVisibilitySuperuserPassthrough(t *testing.T) {
	filters := ParseFilters([]string{"status=obsolete"})
	filters.ApplyStatusVisibility(true)
	assert.Equal(t, []string{"obsolete"}, filters["status"])
}

func TestParseOrdersSkipsUnknownFields(t *testing.T) {
	valid := func(f string) bool { return f == "id" || f == "level" }

	orders := ParseOrders([]string{"-id", "level", "nope", "-", "-ghost"}, valid)
	assert.Equal(t, []Order{
		{Field: "id", Desc: true},
		{Field: "level", Desc: false},
	}, orders)
}
