package scheduler

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
	appErrors "github.com/gaurav5327/Edu-Sync-sub000/pkg/errors"
)

func scenarioBase() Snapshot {
	other := theoryCourse("mech", "prof-9", 9)
	other.Branch = "MECH"
	return Snapshot{
		Courses: []models.Course{
			theoryCourse("c1", "prof-1", 1, "09:00"),
			theoryCourse("c2", "prof-2", 2, "09:00"),
			theoryCourse("c3", "prof-3", 3, "16:00"),
			other,
		},
		Rooms: []models.Room{testRoom("R1", models.RoomClassroom, 40)},
	}
}

func scenarioFixture() models.Scenario {
	return models.Scenario{
		ID:   "sc-1",
		Name: "two-hour days",
		Parameters: models.ScenarioParameters{
			Semester:     "odd",
			AcademicYear: "2024-25",
			Programs:     []models.Program{{Year: 2, Branch: "CSE", Division: "A"}},
			Constraints:  models.ScenarioConstraints{MaxDailyHours: 2, FacultyMaxLoad: 2, LunchBreakDuration: 60},
		},
		Status: models.ScenarioDraft,
	}
}

func TestGenerateScenarioComputesMetrics(t *testing.T) {
	out, err := GenerateScenario(scenarioFixture(), scenarioBase())
	require.NoError(t, err)

	assert.Equal(t, models.ScenarioGenerated, out.Status)
	require.NotNil(t, out.GeneratedTimetable)
	require.NotNil(t, out.Metrics)
	assert.Empty(t, entriesFor(*out.GeneratedTimetable, "mech"), "courses outside the programs are not scheduled")
	assert.Equal(t, 2, out.GeneratedTimetable.Year)
	assert.Equal(t, "CSE", out.GeneratedTimetable.Branch)

	assert.Equal(t, 0, out.Metrics.ConflictCount)
	assert.Equal(t, 0, out.Metrics.UnscheduledCount)
	// 3 bookings over 1 room x 5 days x 2 slots.
	assert.InDelta(t, 30.0, out.Metrics.RoomUtilization, 0.001)
	// Each instructor teaches 1 of 2 allowed hours.
	assert.InDelta(t, 50.0, out.Metrics.FacultyWorkload, 0.001)
	// c3 prefers 16:00 which the two-hour day cannot offer.
	assert.InDelta(t, 66.67, out.Metrics.StudentSatisfaction, 0.001)
}

func TestGenerateScenarioIsDeterministic(t *testing.T) {
	scenario := scenarioFixture()
	scenario.Modifications = []models.Modification{
		{Type: models.ModAddCourse, Target: "c4", Changes: map[string]any{
			"name": "Compilers", "instructorId": "prof-4", "capacity": float64(25),
			"year": float64(2), "branch": "CSE", "division": "A",
		}},
	}

	first, err := GenerateScenario(scenario, scenarioBase())
	require.NoError(t, err)
	second, err := GenerateScenario(scenario, scenarioBase())
	require.NoError(t, err)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	assert.JSONEq(t, string(a), string(b))
	assert.Len(t, entriesFor(*first.GeneratedTimetable, "c4"), 1)
}

func TestGenerateScenarioRejectsLunchChange(t *testing.T) {
	scenario := scenarioFixture()
	scenario.Parameters.Constraints.LunchBreakDuration = 45

	_, err := GenerateScenario(scenario, scenarioBase())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestApplyModificationsInOrder(t *testing.T) {
	base := scenarioBase()
	mods := []models.Modification{
		{Type: models.ModAddCourse, Target: "lab-1", Changes: map[string]any{
			"name": "Networks Lab", "instructorId": "prof-5", "lectureType": "lab",
			"year": 2, "branch": "CSE", "division": "A", "createdAt": "2024-07-01T09:00:00Z",
		}},
		{Type: models.ModRemoveCourse, Target: "c2"},
		{Type: models.ModChangeFaculty, Target: "c1", Changes: map[string]any{"instructorId": "prof-7", "instructorName": "Dr Seven"}},
		{Type: models.ModChangeRoom, Target: "R1", Changes: map[string]any{"capacity": "60", "allowedYears": []any{float64(2)}}},
		{Type: models.ModChangeTime, Target: "c3", Changes: map[string]any{"preferredTimeSlots": []any{"10:00", "11:00"}}},
	}

	snap, err := ApplyModifications(base, mods)
	require.NoError(t, err)

	ids := make([]string, 0, len(snap.Courses))
	for _, c := range snap.Courses {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"c1", "c3", "mech", "lab-1"}, ids)

	lab := snap.Courses[3]
	assert.Equal(t, models.LectureLab, lab.LectureType)
	assert.Equal(t, 120, lab.DurationMinutes)
	assert.Equal(t, 9, lab.CreatedAt.Hour())
	assert.Equal(t, "prof-7", snap.Courses[0].InstructorID)
	assert.Equal(t, "Dr Seven", snap.Courses[0].InstructorName)
	assert.Equal(t, []string{"10:00", "11:00"}, []string(snap.Courses[1].PreferredTimeSlots))
	assert.Equal(t, 60, snap.Rooms[0].Capacity)
	assert.Equal(t, []int64{2}, []int64(snap.Rooms[0].AllowedYears))

	// The base snapshot is left alone.
	assert.Len(t, base.Courses, 4)
	assert.Equal(t, "prof-1", base.Courses[0].InstructorID)
	assert.Equal(t, 40, base.Rooms[0].Capacity)
}

func TestApplyModificationsErrors(t *testing.T) {
	cases := []struct {
		name   string
		mod    models.Modification
		target *appErrors.Error
	}{
		{"unknown type", models.Modification{Type: "rename", Target: "c1"}, appErrors.ErrValidation},
		{"missing course", models.Modification{Type: models.ModRemoveCourse, Target: "nope"}, appErrors.ErrNotFound},
		{"missing room", models.Modification{Type: models.ModChangeRoom, Target: "R404", Changes: map[string]any{"capacity": 10}}, appErrors.ErrNotFound},
		{"unknown field", models.Modification{Type: models.ModChangeFaculty, Target: "c1", Changes: map[string]any{"teacher": "x"}}, appErrors.ErrValidation},
		{"lunch preference", models.Modification{Type: models.ModChangeTime, Target: "c1", Changes: map[string]any{"preferredTimeSlots": []any{"12:00"}}}, appErrors.ErrValidation},
		{"duplicate course", models.Modification{Type: models.ModAddCourse, Target: "c1", Changes: map[string]any{"instructorId": "p"}}, appErrors.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ApplyModifications(scenarioBase(), []models.Modification{tc.mod})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.target), "got %v", err)
		})
	}
}

func TestWorkingSetReplaysLineageRootFirst(t *testing.T) {
	lineage := [][]models.Modification{
		{{Type: models.ModAddCourse, Target: "extra", Changes: map[string]any{"instructorId": "prof-8", "year": 2, "branch": "CSE", "division": "A"}}},
		{{Type: models.ModChangeFaculty, Target: "extra", Changes: map[string]any{"instructorId": "prof-9"}}},
	}

	snap, err := WorkingSet(scenarioBase(), lineage)
	require.NoError(t, err)
	require.Len(t, snap.Courses, 5)
	assert.Equal(t, "prof-9", snap.Courses[4].InstructorID)

	_, err = WorkingSet(scenarioBase(), [][]models.Modification{lineage[1]})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestCompareMetrics(t *testing.T) {
	delta := CompareMetrics(
		models.ScenarioMetrics{ConflictCount: 2, RoomUtilization: 40, FacultyWorkload: 55.5, StudentSatisfaction: 80, UnscheduledCount: 1},
		models.ScenarioMetrics{ConflictCount: 0, RoomUtilization: 42.25, FacultyWorkload: 50, StudentSatisfaction: 90, UnscheduledCount: 3},
	)
	assert.Equal(t, -2, delta.ConflictCount)
	assert.InDelta(t, 2.25, delta.RoomUtilization, 0.001)
	assert.InDelta(t, -5.5, delta.FacultyWorkload, 0.001)
	assert.InDelta(t, 10.0, delta.StudentSatisfaction, 0.001)
	assert.Equal(t, 2, delta.UnscheduledCount)
}
