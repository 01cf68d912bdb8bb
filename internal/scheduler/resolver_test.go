package scheduler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
)

func TestResolveFixesFeasibleConflictsAndReportsTheRest(t *testing.T) {
	r1 := testRoom("R1", models.RoomClassroom, 40)
	r2 := testRoom("R2", models.RoomClassroom, 40)
	entries := []models.ScheduleEntry{
		placed(theoryCourse("c1", "prof-1", 1), r1, models.Monday, "09:00"),
		placed(theoryCourse("c2", "prof-2", 2), r1, models.Monday, "09:00"),
		placed(theoryCourse("c3", "prof-3", 3), r1, models.Monday, "10:00"),
		placed(theoryCourse("c4", "prof-4", 4), r1, models.Monday, "10:00"),
		placed(theoryCourse("c5", "prof-5", 5), r1, models.Monday, "11:00"),
		placed(theoryCourse("c6", "prof-5", 6), r2, models.Monday, "11:00"),
	}
	// Every other cell is taken, so the instructor clash has nowhere to go.
	entries = append(entries, fillerEntries("Monday 09:00", "Monday 10:00", "Monday 11:00")...)
	tt := models.Timetable{Year: 2, Entries: entries}

	conflicts := Detect(tt)
	require.Len(t, conflicts, 3)

	result := Resolve(tt, conflicts, RoomList{r1, r2}, Constraints{})
	require.Len(t, result.Resolutions, 2)
	for _, applied := range result.Resolutions {
		change, ok := applied.Change.(models.RoomChange)
		require.True(t, ok)
		assert.Equal(t, "R2", change.RoomID)
	}
	assert.Equal(t, []int{1}, result.Resolutions[0].EntryIndices)
	assert.Equal(t, []int{3}, result.Resolutions[1].EntryIndices)

	require.Len(t, result.Unresolved, 1)
	assert.Equal(t, models.ConflictInstructor, result.Unresolved[0].Type)
	assert.Equal(t, "11:00", result.Unresolved[0].StartTime)

	after := Detect(result.Timetable)
	assert.Len(t, after, 1)
	assert.LessOrEqual(t, len(result.Unresolved), len(conflicts))
}

func TestResolveInstructorConflictMovesLaterEntry(t *testing.T) {
	r1 := testRoom("R1", models.RoomClassroom, 40)
	r2 := testRoom("R2", models.RoomClassroom, 40)
	tt := models.Timetable{Entries: []models.ScheduleEntry{
		placed(theoryCourse("a", "prof-1", 1), r1, models.Monday, "09:00"),
		placed(theoryCourse("b", "prof-1", 2), r2, models.Monday, "09:00"),
	}}

	result := Resolve(tt, Detect(tt), RoomList{r1, r2}, Constraints{})
	require.Len(t, result.Resolutions, 1)
	assert.Equal(t, models.TimeChange{Day: models.Monday, StartTime: "10:00"}, result.Resolutions[0].Change)
	assert.Empty(t, result.Unresolved)

	moved := entriesFor(result.Timetable, "b")
	require.Len(t, moved, 1)
	assert.Equal(t, "10:00", moved[0].StartTime)
	assert.Equal(t, "R2", moved[0].RoomID())
	stayed := entriesFor(result.Timetable, "a")
	require.Len(t, stayed, 1)
	assert.Equal(t, "09:00", stayed[0].StartTime)
	assertTimetableInvariants(t, result.Timetable)
}

func TestResolveRoomConflictFallsBackToTimeChange(t *testing.T) {
	r1 := testRoom("R1", models.RoomClassroom, 40)
	tt := models.Timetable{Entries: []models.ScheduleEntry{
		placed(theoryCourse("a", "prof-1", 1), r1, models.Monday, "09:00"),
		placed(theoryCourse("b", "prof-2", 2), r1, models.Monday, "09:00"),
	}}

	result := Resolve(tt, Detect(tt), RoomList{r1}, Constraints{})
	require.Len(t, result.Resolutions, 1)
	assert.Equal(t, models.ResolutionTime, result.Resolutions[0].Change.Kind())
	assert.Empty(t, result.Unresolved)
	assert.Empty(t, Detect(result.Timetable))
}

func TestResolveMovesLabAsBlock(t *testing.T) {
	c1 := testRoom("C1", models.RoomClassroom, 40)
	l1 := testRoom("L1", models.RoomLab, 40)
	entries := []models.ScheduleEntry{placed(theoryCourse("t", "prof-1", 1), c1, models.Monday, "09:00")}
	entries = append(entries, labPlaced(labCourse("lab", "prof-1", 2), l1, models.Monday, "09:00")...)
	tt := models.Timetable{Entries: entries}

	conflicts := Detect(tt)
	require.Len(t, conflicts, 1)

	result := Resolve(tt, conflicts, RoomList{c1, l1}, Constraints{})
	require.Len(t, result.Resolutions, 1)
	assert.Equal(t, []int{1, 2}, result.Resolutions[0].EntryIndices)
	assert.Equal(t, models.TimeChange{Day: models.Monday, StartTime: "10:00"}, result.Resolutions[0].Change)

	block := entriesFor(result.Timetable, "lab")
	require.Len(t, block, 2)
	assert.Equal(t, "10:00", block[0].StartTime)
	assert.Equal(t, "11:00", block[1].StartTime)
	assertTimetableInvariants(t, result.Timetable)
}

func TestResolveAvoidsRoomsBookedElsewhere(t *testing.T) {
	r1 := testRoom("R1", models.RoomClassroom, 40)
	r2 := testRoom("R2", models.RoomClassroom, 40)
	tt := models.Timetable{Entries: []models.ScheduleEntry{
		placed(theoryCourse("c1", "prof-1", 1), r1, models.Monday, "09:00"),
		placed(theoryCourse("c2", "prof-2", 2), r1, models.Monday, "09:00"),
	}}
	other := placed(theoryCourse("e1", "prof-9", 1), r2, models.Monday, "09:00")

	result := Resolve(tt, Detect(tt), RoomList{r1, r2}, Constraints{Blocked: []models.ScheduleEntry{other}})
	require.Len(t, result.Resolutions, 1)
	assert.Equal(t, models.TimeChange{Day: models.Monday, StartTime: "10:00"}, result.Resolutions[0].Change)
	moved := entriesFor(result.Timetable, "c2")
	require.Len(t, moved, 1)
	assert.Equal(t, "R1", moved[0].RoomID())
	assert.Empty(t, result.Unresolved)
}

func TestResolveAvoidsInstructorSlotsTaughtElsewhere(t *testing.T) {
	r1 := testRoom("R1", models.RoomClassroom, 40)
	r2 := testRoom("R2", models.RoomClassroom, 40)
	tt := models.Timetable{Entries: []models.ScheduleEntry{
		placed(theoryCourse("a", "prof-1", 1), r1, models.Monday, "09:00"),
		placed(theoryCourse("b", "prof-1", 2), r2, models.Monday, "09:00"),
	}}
	other := placed(theoryCourse("e1", "prof-1", 1), testRoom("R9", models.RoomClassroom, 40), models.Monday, "10:00")

	result := Resolve(tt, Detect(tt), RoomList{r1, r2}, Constraints{Blocked: []models.ScheduleEntry{other}})
	require.Len(t, result.Resolutions, 1)
	assert.Equal(t, models.TimeChange{Day: models.Monday, StartTime: "11:00"}, result.Resolutions[0].Change)
}

func TestResolveKeepsTimeChangesInsideDailyWindow(t *testing.T) {
	r1 := testRoom("R1", models.RoomClassroom, 40)
	tt := models.Timetable{Entries: []models.ScheduleEntry{
		placed(theoryCourse("a", "prof-1", 1), r1, models.Monday, "09:00"),
		placed(theoryCourse("b", "prof-2", 2), r1, models.Monday, "09:00"),
	}}

	result := Resolve(tt, Detect(tt), RoomList{r1}, Constraints{MaxDailyHours: 1})
	require.Len(t, result.Resolutions, 1)
	assert.Equal(t, models.TimeChange{Day: models.Tuesday, StartTime: "09:00"}, result.Resolutions[0].Change)
	assert.Empty(t, result.Unresolved)
}

func TestResolveLabStaysInsideDailyWindow(t *testing.T) {
	c1 := testRoom("C1", models.RoomClassroom, 40)
	l1 := testRoom("L1", models.RoomLab, 40)
	entries := []models.ScheduleEntry{placed(theoryCourse("t", "prof-1", 1), c1, models.Monday, "09:00")}
	entries = append(entries, labPlaced(labCourse("lab", "prof-1", 2), l1, models.Monday, "09:00")...)
	tt := models.Timetable{Entries: entries}

	result := Resolve(tt, Detect(tt), RoomList{c1, l1}, Constraints{MaxDailyHours: 2})
	require.Len(t, result.Resolutions, 1)
	assert.Equal(t, models.TimeChange{Day: models.Tuesday, StartTime: "09:00"}, result.Resolutions[0].Change)
	block := entriesFor(result.Timetable, "lab")
	require.Len(t, block, 2)
	assert.Equal(t, "10:00", block[1].StartTime)
}

func TestResolveSkipsConflictsAlreadyCleared(t *testing.T) {
	r1 := testRoom("R1", models.RoomClassroom, 40)
	r2 := testRoom("R2", models.RoomClassroom, 40)
	tt := models.Timetable{Entries: []models.ScheduleEntry{
		placed(theoryCourse("a", "prof-1", 1), r1, models.Monday, "09:00"),
		placed(theoryCourse("b", "prof-2", 2), r1, models.Monday, "09:00"),
	}}
	conflicts := Detect(tt)
	conflicts = append(conflicts, conflicts[0])

	result := Resolve(tt, conflicts, RoomList{r1, r2}, Constraints{})
	assert.Len(t, result.Resolutions, 1)
	assert.Empty(t, result.Unresolved)
}

func TestResolveLeavesInputUntouched(t *testing.T) {
	r1 := testRoom("R1", models.RoomClassroom, 40)
	tt := models.Timetable{Entries: []models.ScheduleEntry{
		placed(theoryCourse("a", "prof-1", 1), r1, models.Monday, "09:00"),
		placed(theoryCourse("b", "prof-2", 2), r1, models.Monday, "09:00"),
	}}
	before, err := json.Marshal(tt)
	require.NoError(t, err)

	Resolve(tt, Detect(tt), RoomList{r1, testRoom("R2", models.RoomClassroom, 40)}, Constraints{})

	after, err := json.Marshal(tt)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestAppliedResolutionMarshalsKind(t *testing.T) {
	applied := models.AppliedResolution{
		EntryIndices: []int{3},
		Change:       models.RoomChange{RoomID: "R2", RoomName: "Room R2"},
	}
	raw, err := json.Marshal(applied)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "room", decoded["kind"])
	assert.Equal(t, "R2", decoded["change"].(map[string]any)["roomId"])
}
