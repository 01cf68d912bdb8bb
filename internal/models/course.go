package models

import (
	"time"

	"github.com/lib/pq"
)

// LectureType distinguishes single-slot theory from double-block labs.
type LectureType string

const (
	LectureTheory LectureType = "theory"
	LectureLab    LectureType = "lab"
)

// Course is a schedulable offering owned by the course-management flow.
type Course struct {
	ID                 string         `db:"id" json:"id"`
	Code               string         `db:"code" json:"code"`
	Name               string         `db:"name" json:"name"`
	InstructorID       string         `db:"instructor_id" json:"instructorId"`
	InstructorName     string         `db:"instructor_name" json:"instructorName"`
	DurationMinutes    int            `db:"duration_minutes" json:"durationMinutes"`
	LectureType        LectureType    `db:"lecture_type" json:"lectureType"`
	Capacity           int            `db:"capacity" json:"capacity"`
	PreferredTimeSlots pq.StringArray `db:"preferred_time_slots" json:"preferredTimeSlots"`
	Year               int            `db:"year" json:"year"`
	Branch             string         `db:"branch" json:"branch"`
	Division           string         `db:"division" json:"division"`
	Credits            int            `db:"credits" json:"credits"`
	Category           string         `db:"category" json:"category"`
	CreatedAt          time.Time      `db:"created_at" json:"createdAt"`
}

// IsLab reports whether the course needs a double block.
func (c Course) IsLab() bool {
	return c.LectureType == LectureLab
}

// Hours is the number of grid slots the course occupies per week.
func (c Course) Hours() int {
	if c.IsLab() {
		return 2
	}
	return 1
}

// Ref projects the course onto the schedule entry wire format.
func (c Course) Ref() *CourseRef {
	return &CourseRef{
		ID:          c.ID,
		Name:        c.Name,
		Code:        c.Code,
		Instructor:  InstructorRef{ID: c.InstructorID, Name: c.InstructorName},
		LectureType: c.LectureType,
		Capacity:    c.Capacity,
	}
}

// UnscheduledCourse records a course the generator could not place.
type UnscheduledCourse struct {
	Course Course `json:"course"`
	Reason string `json:"reason"`
}
