package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
	appErrors "github.com/gaurav5327/Edu-Sync-sub000/pkg/errors"
)

func TestParseScope(t *testing.T) {
	req, err := parseScope("generate", []string{"-year", "2", "-branch", "CSE", "-division", "A"})
	require.NoError(t, err)
	assert.Equal(t, models.Scope{Year: 2, Branch: "CSE", Division: "A"}, req.Scope())

	_, err = parseScope("generate", []string{"-year", "two"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestReadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changes.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"scheduleId":"tt-1","baseVersion":3,"changes":[{"day":"Monday","timeSlot":"09:00","courseId":"c1","roomId":"R1"}]}`), 0o644))

	var pending models.PendingChanges
	require.NoError(t, readJSON(path, &pending))
	assert.Equal(t, "tt-1", pending.ScheduleID)
	assert.Equal(t, 3, pending.BaseVersion)
	require.Len(t, pending.Changes, 1)
	assert.Equal(t, "09:00", pending.Changes[0].StartTime)

	err := readJSON("", &pending)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o644))
	err = readJSON(path, &pending)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestSignedFormatting(t *testing.T) {
	assert.Equal(t, "+2.50", signedFloat(2.5))
	assert.Equal(t, "-2.85", signedFloat(-2.85))
	assert.Equal(t, "0.00", signedFloat(0))
	assert.Equal(t, "+3", signedInt(3))
	assert.Equal(t, "-1", signedInt(-1))
}

func TestMetricRows(t *testing.T) {
	rows := metricRows(models.ScenarioMetrics{ConflictCount: 1, RoomUtilization: 42.857, UnscheduledCount: 2})
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"Room utilization %", "42.86"}, rows[1])
	assert.Equal(t, []string{"Unscheduled", "2"}, rows[4])
}
