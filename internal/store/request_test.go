package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSort(t *testing.T) {
	cases := []struct {
		sortBy, sortOrder string
		want              string
	}{
		{"createdAt", "desc", "created_at DESC"},
		{"patientName", "asc", "patient_name ASC"},
		{"status", "", "status DESC"},
		{"patientAge", "asc", "patient_age ASC"},

		// Unknown fields fall back to created_at.
		{"id", "asc", "created_at ASC"},
		{"'; DROP TABLE requests; --", "desc", "created_at DESC"},
		{"", "", "created_at DESC"},

		// Anything other than "asc" is descending.
		{"createdAt", "ASC", "created_at DESC"},
		{"createdAt", "sideways", "created_at DESC"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, normalizeSort(tc.sortBy, tc.sortOrder), "sortBy=%q sortOrder=%q", tc.sortBy, tc.sortOrder)
	}
}

func TestRequestFilterApply(t *testing.T) {
	filter := RequestFilter{
		PatientName: "doe",
		Status:      "in_progress",
		UserID:      "u-1",
		SortBy:      "patientAge",
		SortOrder:   "asc",
	}

	query, args, err := filter.apply(psql().Select(requestColumns...).From(requestTableName), "").ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "patient_name ILIKE $")
	assert.Contains(t, query, "status = $")
	assert.Contains(t, query, "user_id = $")
	assert.Contains(t, query, "ORDER BY patient_age ASC")
	assert.Contains(t, args, "%doe%")
	assert.Contains(t, args, "in_progress")
	assert.Contains(t, args, "u-1")
}

func TestRequestFilterApplyEmpty(t *testing.T) {
	query, args, err := RequestFilter{}.apply(psql().Select(requestColumns...).From(requestTableName), "").ToSql()
	require.NoError(t, err)

	assert.NotContains(t, query, "WHERE")
	assert.Contains(t, query, "ORDER BY created_at DESC")
	assert.Empty(t, args)
}
