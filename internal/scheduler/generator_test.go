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

func TestGeneratePlacesLabOnConsecutiveSlots(t *testing.T) {
	lab := labCourse("os-lab", "prof-1", 1)
	rooms := []models.Room{testRoom("C1", models.RoomClassroom, 40), testRoom("L1", models.RoomLab, 40)}

	result, err := Generate([]models.Course{lab}, rooms, Constraints{})
	require.NoError(t, err)
	require.True(t, result.Complete())

	block := entriesFor(result.Timetable, "os-lab")
	require.Len(t, block, 2)
	assert.Equal(t, models.Monday, block[0].Day)
	assert.Equal(t, "09:00", block[0].StartTime)
	assert.Equal(t, "10:00", block[1].StartTime)
	assert.Equal(t, "L1", block[0].RoomID())
	assert.Equal(t, "L1", block[1].RoomID())
	assert.True(t, block[0].IsLabFirst)
	assert.True(t, block[1].IsLabSecond)
	assertTimetableInvariants(t, result.Timetable)
}

func TestGenerateLabSkipsPairAcrossLunch(t *testing.T) {
	lab := labCourse("net-lab", "prof-1", 1)
	rooms := []models.Room{testRoom("L1", models.RoomLab, 40)}
	// The instructor teaches elsewhere at 09:00 and 10:00 and 11:00 has no
	// partner before lunch, so Monday's first usable pair starts at 13:00.
	blocked := []models.ScheduleEntry{
		placed(theoryCourse("x1", "prof-1", 0), testRoom("C9", models.RoomClassroom, 30), models.Monday, "09:00"),
		placed(theoryCourse("x2", "prof-1", 0), testRoom("C9", models.RoomClassroom, 30), models.Monday, "10:00"),
	}

	result, err := Generate([]models.Course{lab}, rooms, Constraints{Blocked: blocked})
	require.NoError(t, err)

	block := entriesFor(result.Timetable, "net-lab")
	require.Len(t, block, 2)
	assert.Equal(t, models.Monday, block[0].Day)
	assert.Equal(t, "13:00", block[0].StartTime)
	assert.Equal(t, "14:00", block[1].StartTime)
	assert.Empty(t, entriesFor(result.Timetable, "x1"), "blocked bookings are not part of the output")
}

func TestGenerateHonoursPreferredSlots(t *testing.T) {
	courses := []models.Course{
		theoryCourse("algo", "prof-1", 1, "14:00"),
		theoryCourse("db", "prof-2", 2, "14:00", "09:00"),
	}
	rooms := []models.Room{testRoom("C1", models.RoomClassroom, 40)}

	result, err := Generate(courses, rooms, Constraints{})
	require.NoError(t, err)

	algo := entriesFor(result.Timetable, "algo")
	require.Len(t, algo, 1)
	assert.Equal(t, models.Monday, algo[0].Day)
	assert.Equal(t, "14:00", algo[0].StartTime)

	// Monday 14:00 is taken by the class group, the preferred slot wins on Tuesday.
	db := entriesFor(result.Timetable, "db")
	require.Len(t, db, 1)
	assert.Equal(t, models.Tuesday, db[0].Day)
	assert.Equal(t, "14:00", db[0].StartTime)
}

func TestGenerateUsesCreationOrder(t *testing.T) {
	late := theoryCourse("late", "prof-1", 5)
	early := theoryCourse("early", "prof-2", 1)
	rooms := []models.Room{testRoom("C1", models.RoomClassroom, 40)}

	result, err := Generate([]models.Course{late, early}, rooms, Constraints{})
	require.NoError(t, err)

	first := entriesFor(result.Timetable, "early")
	require.Len(t, first, 1)
	assert.Equal(t, "09:00", first[0].StartTime)
	second := entriesFor(result.Timetable, "late")
	require.Len(t, second, 1)
	assert.Equal(t, "10:00", second[0].StartTime)
}

func TestGeneratePrefersBestFitRoom(t *testing.T) {
	course := theoryCourse("algo", "prof-1", 1)
	course.Capacity = 50
	rooms := []models.Room{
		testRoom("HALL", models.RoomLectureHall, 200),
		testRoom("SMALL", models.RoomClassroom, 20),
		testRoom("MID", models.RoomClassroom, 60),
		testRoom("LAB", models.RoomLab, 60),
	}

	result, err := Generate([]models.Course{course}, rooms, Constraints{})
	require.NoError(t, err)

	entries := entriesFor(result.Timetable, "algo")
	require.Len(t, entries, 1)
	assert.Equal(t, "MID", entries[0].RoomID())
}

func TestGenerateKeepsInvariantsOnFullWeek(t *testing.T) {
	var courses []models.Course
	for i := 0; i < 30; i++ {
		courses = append(courses, theoryCourse(string(rune('a'+i%26))+string(rune('a'+i/26)), "prof-"+string(rune('a'+i%4)), i))
	}
	courses = append(courses, labCourse("lab-1", "prof-a", 40), labCourse("lab-2", "prof-b", 41))
	rooms := []models.Room{
		testRoom("C1", models.RoomClassroom, 40),
		testRoom("C2", models.RoomClassroom, 40),
		testRoom("L1", models.RoomLab, 40),
	}

	result, err := Generate(courses, rooms, Constraints{})
	require.NoError(t, err)
	assertTimetableInvariants(t, result.Timetable)

	assert.Empty(t, result.Unscheduled)

	scheduled := 0
	for _, entry := range result.Timetable.Entries {
		if entry.Occupied() {
			scheduled++
		}
	}
	// 30 theory cells plus two lab blocks on Friday afternoon.
	assert.Equal(t, 34, scheduled)
	assert.Equal(t, models.Friday, entriesFor(result.Timetable, "lab-1")[0].Day)
	assert.Equal(t, "13:00", entriesFor(result.Timetable, "lab-1")[0].StartTime)
	assert.Equal(t, "15:00", entriesFor(result.Timetable, "lab-2")[0].StartTime)
}

func TestGenerateReportsUnscheduledCourses(t *testing.T) {
	big := theoryCourse("big", "prof-1", 1)
	big.Capacity = 500
	lab := labCourse("lab", "prof-2", 2)
	small := theoryCourse("small", "prof-3", 3)
	rooms := []models.Room{testRoom("C1", models.RoomClassroom, 40)}

	result, err := Generate([]models.Course{big, lab, small}, rooms, Constraints{})
	require.NoError(t, err)
	require.False(t, result.Complete())
	require.Len(t, result.Unscheduled, 2)
	assert.Equal(t, "big", result.Unscheduled[0].Course.ID)
	assert.Equal(t, reasonNoRoom, result.Unscheduled[0].Reason)
	assert.Equal(t, "lab", result.Unscheduled[1].Course.ID)
	assert.Len(t, entriesFor(result.Timetable, "small"), 1)
}

func TestGenerateSkipsRoomsClosedToYear(t *testing.T) {
	course := theoryCourse("algo", "prof-1", 1)
	closed := testRoom("C1", models.RoomClassroom, 40)
	closed.AllowedYears = []int64{1}
	offline := testRoom("C2", models.RoomClassroom, 40)
	offline.IsAvailable = false
	open := testRoom("C3", models.RoomClassroom, 80)
	open.AllowedYears = []int64{2, 3}

	result, err := Generate([]models.Course{course}, []models.Room{closed, offline, open}, Constraints{})
	require.NoError(t, err)
	entries := entriesFor(result.Timetable, "algo")
	require.Len(t, entries, 1)
	assert.Equal(t, "C3", entries[0].RoomID())
}

func TestGenerateEnforcesFacultyMaxLoad(t *testing.T) {
	courses := []models.Course{
		theoryCourse("a", "prof-1", 1),
		theoryCourse("b", "prof-1", 2),
		labCourse("c", "prof-2", 3),
	}
	rooms := []models.Room{testRoom("C1", models.RoomClassroom, 40), testRoom("L1", models.RoomLab, 40)}

	result, err := Generate(courses, rooms, Constraints{FacultyMaxLoad: 1})
	require.NoError(t, err)
	require.Len(t, result.Unscheduled, 2)
	assert.Equal(t, "b", result.Unscheduled[0].Course.ID)
	assert.Equal(t, reasonLoadCap, result.Unscheduled[0].Reason)
	assert.Equal(t, "c", result.Unscheduled[1].Course.ID)
	assert.Equal(t, reasonLoadCap, result.Unscheduled[1].Reason)
}

func TestGenerateRespectsMaxDailyHours(t *testing.T) {
	var courses []models.Course
	for i, id := range []string{"a", "b", "c", "d", "e", "f"} {
		courses = append(courses, theoryCourse(id, "prof-"+id, i, "16:00"))
	}
	rooms := []models.Room{testRoom("C1", models.RoomClassroom, 40)}

	result, err := Generate(courses, rooms, Constraints{MaxDailyHours: 2})
	require.NoError(t, err)
	for _, entry := range result.Timetable.Entries {
		if entry.Occupied() {
			assert.Contains(t, []string{"09:00", "10:00"}, entry.StartTime)
		}
	}
	assert.Len(t, entriesFor(result.Timetable, "f"), 1)
	assert.Equal(t, models.Wednesday, entriesFor(result.Timetable, "f")[0].Day)
}

func TestGenerateRespectsBlockedInstructor(t *testing.T) {
	course := theoryCourse("algo", "prof-1", 1)
	other := theoryCourse("elsewhere", "prof-1", 0)
	blocked := []models.ScheduleEntry{placed(other, testRoom("C9", models.RoomClassroom, 40), models.Monday, "09:00")}

	result, err := Generate([]models.Course{course}, []models.Room{testRoom("C1", models.RoomClassroom, 40)}, Constraints{Blocked: blocked})
	require.NoError(t, err)
	entries := entriesFor(result.Timetable, "algo")
	require.Len(t, entries, 1)
	assert.Equal(t, models.Monday, entries[0].Day)
	assert.Equal(t, "10:00", entries[0].StartTime)
}

func TestGenerateIsDeterministic(t *testing.T) {
	courses := []models.Course{
		theoryCourse("a", "prof-1", 3, "11:00"),
		theoryCourse("b", "prof-2", 1),
		labCourse("c", "prof-1", 2),
		theoryCourse("d", "prof-3", 2, "13:00", "09:00"),
	}
	rooms := []models.Room{
		testRoom("C2", models.RoomClassroom, 40),
		testRoom("C1", models.RoomClassroom, 40),
		testRoom("L1", models.RoomLab, 40),
	}

	first, err := Generate(courses, rooms, Constraints{})
	require.NoError(t, err)
	second, err := Generate(courses, rooms, Constraints{})
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestGenerateRejectsInvalidInput(t *testing.T) {
	badLab := labCourse("lab", "prof-1", 1)
	badLab.DurationMinutes = 60
	noInstructor := theoryCourse("x", "", 1)
	badDuration := theoryCourse("y", "prof-1", 1)
	badDuration.DurationMinutes = 90

	cases := map[string][]models.Course{
		"empty":         nil,
		"lab duration":  {badLab},
		"no instructor": {noInstructor},
		"duration":      {badDuration},
		"duplicate":     {theoryCourse("z", "prof-1", 1), theoryCourse("z", "prof-2", 2)},
	}
	for name, courses := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Generate(courses, nil, Constraints{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrValidation))
		})
	}
}
