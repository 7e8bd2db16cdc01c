package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	tracker := &fakeTracker{}
	cfg := Config{}

	t.Run("builds revision status report", func(t *testing.T) {
		rep, err := New("RevisionStatus", tracker, cfg)
		require.NoError(t, err)
		assert.IsType(t, &RevisionStatusReport{}, rep)
	})

	t.Run("builds upcoming tasks report", func(t *testing.T) {
		rep, err := New("UpcomingProjectTasksDue", tracker, cfg)
		require.NoError(t, err)
		assert.IsType(t, &UpcomingProjectTasksDueReport{}, rep)
	})

	t.Run("unknown type is an explicit error", func(t *testing.T) {
		rep, err := New("Bogus", tracker, cfg)
		require.ErrorIs(t, err, ErrUnknownReportType)
		assert.Nil(t, rep)
	})

	t.Run("type names are sorted and closed", func(t *testing.T) {
		assert.Equal(t, []string{"RevisionStatus", "UpcomingProjectTasksDue"}, TypeNames())
	})
}
