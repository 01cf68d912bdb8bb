package models

import (
	"fmt"
	"strings"
)

// ConflictType names the resource two entries collide on.
type ConflictType string

const (
	ConflictRoom       ConflictType = "room"
	ConflictInstructor ConflictType = "instructor"
)

// Conflict is a collision between two entries of the same (day, slot) bucket.
// It is always derivable from a timetable and never persisted as state.
type Conflict struct {
	Type         ConflictType `json:"type"`
	Day          Day          `json:"day"`
	StartTime    string       `json:"startTime"`
	EntryIndices [2]int       `json:"entryIndices"`
	Courses      []CourseRef  `json:"courses"`
}

// Describe renders the conflict for operators.
func (c Conflict) Describe() string {
	names := make([]string, 0, len(c.Courses))
	for _, course := range c.Courses {
		names = append(names, course.Name)
	}
	return fmt.Sprintf("%s conflict on %s %s: %s", c.Type, c.Day, c.StartTime, strings.Join(names, " / "))
}

// ConstraintViolationError rejects a batch of manual changes.
type ConstraintViolationError struct {
	Message   string     `json:"message"`
	Conflicts []Conflict `json:"conflicts"`
}

// Error implements the error interface.
func (e *ConstraintViolationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%d scheduling conflicts", len(e.Conflicts))
}

// ManualChange is one drag-and-drop or direct slot edit. An empty CourseID
// deletes whatever the (Day, StartTime, RoomID) slot holds.
type ManualChange struct {
	Day       string `json:"day" validate:"required"`
	StartTime string `json:"timeSlot" validate:"required"`
	CourseID  string `json:"courseId"`
	RoomID    string `json:"roomId" validate:"required"`
}

// IsDelete reports whether the change removes a booking.
func (c ManualChange) IsDelete() bool {
	return strings.TrimSpace(c.CourseID) == ""
}

// PendingChanges is the editor's batch of local edits submitted as one save.
type PendingChanges struct {
	ScheduleID  string         `json:"scheduleId"`
	BaseVersion int            `json:"baseVersion"`
	Changes     []ManualChange `json:"changes"`
}
