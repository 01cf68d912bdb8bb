package scheduler

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
)

var fixtureEpoch = time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

func theoryCourse(id, instructor string, order int, preferred ...string) models.Course {
	return models.Course{
		ID:                 id,
		Code:               strings.ToUpper(id),
		Name:               "Course " + id,
		InstructorID:       instructor,
		InstructorName:     "Prof " + instructor,
		DurationMinutes:    60,
		LectureType:        models.LectureTheory,
		Capacity:           30,
		PreferredTimeSlots: pq.StringArray(preferred),
		Year:               2,
		Branch:             "CSE",
		Division:           "A",
		CreatedAt:          fixtureEpoch.Add(time.Duration(order) * time.Minute),
	}
}

func labCourse(id, instructor string, order int) models.Course {
	course := theoryCourse(id, instructor, order)
	course.LectureType = models.LectureLab
	course.DurationMinutes = 120
	return course
}

func testRoom(id string, roomType models.RoomType, capacity int) models.Room {
	return models.Room{ID: id, Name: "Room " + id, Capacity: capacity, Type: roomType, IsAvailable: true}
}

func placed(course models.Course, room models.Room, day models.Day, slot string) models.ScheduleEntry {
	return models.ScheduleEntry{Day: day, StartTime: slot, Course: course.Ref(), Room: room.Ref()}
}

func labPlaced(course models.Course, room models.Room, day models.Day, slot string) []models.ScheduleEntry {
	next, _ := models.NextSlot(slot)
	first := placed(course, room, day, slot)
	first.IsLabFirst = true
	second := placed(course, room, day, next)
	second.IsLabSecond = true
	return []models.ScheduleEntry{first, second}
}

func entriesFor(tt models.Timetable, courseID string) []models.ScheduleEntry {
	var out []models.ScheduleEntry
	for _, entry := range tt.Entries {
		if entry.Occupied() && entry.CourseID() == courseID {
			out = append(out, entry)
		}
	}
	return out
}

// fillerEntries occupies every teaching cell except the skipped ones with a
// course of its own instructor and room.
func fillerEntries(skip ...string) []models.ScheduleEntry {
	var out []models.ScheduleEntry
	n := 0
	for _, day := range models.Days {
		for _, slot := range models.TeachingSlots() {
			if containsCell(skip, day, slot) {
				continue
			}
			n++
			course := theoryCourse(fmt.Sprintf("filler-%d", n), fmt.Sprintf("filler-prof-%d", n), 100+n)
			room := testRoom(fmt.Sprintf("F%d", n), models.RoomClassroom, 40)
			out = append(out, placed(course, room, day, slot))
		}
	}
	return out
}

func containsCell(cells []string, day models.Day, slot string) bool {
	for _, cell := range cells {
		if cell == string(day)+" "+slot {
			return true
		}
	}
	return false
}

// assertTimetableInvariants checks collisions, lunch and lab blocks.
func assertTimetableInvariants(t *testing.T, tt models.Timetable) {
	t.Helper()
	assert.Empty(t, Detect(tt), "timetable must be collision free")

	lunches := 0
	for _, entry := range tt.Entries {
		if entry.StartTime != models.LunchSlot {
			continue
		}
		assert.False(t, entry.Occupied(), "lunch must stay free on %s", entry.Day)
		lunches++
	}
	assert.Equal(t, len(models.Days), lunches)

	labs := map[string][]models.ScheduleEntry{}
	for _, entry := range tt.Entries {
		if entry.Occupied() && entry.Course.LectureType == models.LectureLab {
			labs[entry.CourseID()] = append(labs[entry.CourseID()], entry)
		}
	}
	for id, block := range labs {
		if !assert.Len(t, block, 2, "lab %s must hold two entries", id) {
			continue
		}
		first, second := block[0], block[1]
		assert.True(t, first.IsLabFirst, "lab %s first flag", id)
		assert.True(t, second.IsLabSecond, "lab %s second flag", id)
		assert.Equal(t, first.Day, second.Day)
		assert.Equal(t, first.RoomID(), second.RoomID())
		assert.Equal(t, first.InstructorID(), second.InstructorID())
		next, ok := models.NextSlot(first.StartTime)
		assert.True(t, ok)
		assert.Equal(t, next, second.StartTime)
	}
}
