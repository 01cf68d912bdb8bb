package models

import (
	"fmt"
	"strings"
	"time"
)

// Day is a teaching day of the week.
type Day string

const (
	Monday    Day = "Monday"
	Tuesday   Day = "Tuesday"
	Wednesday Day = "Wednesday"
	Thursday  Day = "Thursday"
	Friday    Day = "Friday"
)

// Days lists the teaching days in calendar order.
var Days = []Day{Monday, Tuesday, Wednesday, Thursday, Friday}

// LunchSlot is reserved every day and never carries a course.
const LunchSlot = "12:00"

// TimeSlots is the fixed hourly grid in chronological order, lunch included.
var TimeSlots = []string{"09:00", "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00"}

// ParseDay resolves a day name case-insensitively.
func ParseDay(raw string) (Day, bool) {
	raw = strings.TrimSpace(raw)
	for _, day := range Days {
		if strings.EqualFold(string(day), raw) {
			return day, true
		}
	}
	return "", false
}

// DayIndex returns the position of the day in Days, or -1.
func DayIndex(day Day) int {
	for i, d := range Days {
		if d == day {
			return i
		}
	}
	return -1
}

// SlotIndex returns the position of the slot in TimeSlots, or -1.
func SlotIndex(slot string) int {
	for i, s := range TimeSlots {
		if s == slot {
			return i
		}
	}
	return -1
}

// IsTeachingSlot reports whether a course may start at the slot.
func IsTeachingSlot(slot string) bool {
	return slot != LunchSlot && SlotIndex(slot) >= 0
}

// TeachingSlots returns the grid without the lunch slot.
func TeachingSlots() []string {
	slots := make([]string, 0, len(TimeSlots)-1)
	for _, slot := range TimeSlots {
		if slot != LunchSlot {
			slots = append(slots, slot)
		}
	}
	return slots
}

// NextSlot returns the slot chronologically following slot when both are
// teaching slots, which is the second half of a lab double block.
func NextSlot(slot string) (string, bool) {
	idx := SlotIndex(slot)
	if idx < 0 || idx+1 >= len(TimeSlots) || slot == LunchSlot {
		return "", false
	}
	next := TimeSlots[idx+1]
	if next == LunchSlot {
		return "", false
	}
	return next, true
}

// Scope identifies the class group a timetable belongs to.
type Scope struct {
	Year     int    `json:"year"`
	Branch   string `json:"branch"`
	Division string `json:"division"`
}

// Key renders the scope for cache and lock keys.
func (s Scope) Key() string {
	return fmt.Sprintf("%d:%s:%s", s.Year, strings.ToLower(s.Branch), strings.ToLower(s.Division))
}

// InstructorRef is the embedded instructor summary of a scheduled course.
type InstructorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CourseRef is the course projection carried by a schedule entry.
type CourseRef struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Code        string        `json:"code"`
	Instructor  InstructorRef `json:"instructor"`
	LectureType LectureType   `json:"lectureType"`
	Capacity    int           `json:"capacity,omitempty"`
}

// RoomRef is the room projection carried by a schedule entry.
type RoomRef struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Type     RoomType `json:"type,omitempty"`
	Capacity int      `json:"capacity,omitempty"`
}

// ScheduleEntry is one cell of a timetable. A lab occupies two entries tagged
// IsLabFirst and IsLabSecond.
type ScheduleEntry struct {
	Day         Day        `json:"day"`
	StartTime   string     `json:"startTime"`
	Course      *CourseRef `json:"course"`
	Room        *RoomRef   `json:"room"`
	IsFree      bool       `json:"isFree"`
	IsLabFirst  bool       `json:"isLabFirst"`
	IsLabSecond bool       `json:"isLabSecond"`
}

// FreeEntry builds an empty cell.
func FreeEntry(day Day, slot string) ScheduleEntry {
	return ScheduleEntry{Day: day, StartTime: slot, IsFree: true}
}

// Occupied reports whether the entry carries a course.
func (e ScheduleEntry) Occupied() bool {
	return !e.IsFree && e.Course != nil
}

// CourseID returns the scheduled course id or "".
func (e ScheduleEntry) CourseID() string {
	if e.Course == nil {
		return ""
	}
	return e.Course.ID
}

// RoomID returns the booked room id or "".
func (e ScheduleEntry) RoomID() string {
	if e.Room == nil {
		return ""
	}
	return e.Room.ID
}

// InstructorID returns the instructor teaching the entry or "".
func (e ScheduleEntry) InstructorID() string {
	if e.Course == nil {
		return ""
	}
	return e.Course.Instructor.ID
}

// IsLab reports whether the entry is half of a lab double block.
func (e ScheduleEntry) IsLab() bool {
	return e.IsLabFirst || e.IsLabSecond
}

// Clear turns the entry into a free cell in place.
func (e *ScheduleEntry) Clear() {
	e.Course = nil
	e.Room = nil
	e.IsFree = true
	e.IsLabFirst = false
	e.IsLabSecond = false
}

func (e ScheduleEntry) clone() ScheduleEntry {
	out := e
	if e.Course != nil {
		course := *e.Course
		out.Course = &course
	}
	if e.Room != nil {
		room := *e.Room
		out.Room = &room
	}
	return out
}

// Timetable is one stored version of a scope's weekly schedule.
type Timetable struct {
	ID        string          `json:"id"`
	Year      int             `json:"year"`
	Branch    string          `json:"branch"`
	Division  string          `json:"division"`
	Version   int             `json:"version"`
	Entries   []ScheduleEntry `json:"entries"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Scope returns the timetable's scope.
func (t Timetable) Scope() Scope {
	return Scope{Year: t.Year, Branch: t.Branch, Division: t.Division}
}

// Clone deep-copies the timetable so callers can mutate entries freely.
func (t Timetable) Clone() Timetable {
	out := t
	out.Entries = make([]ScheduleEntry, len(t.Entries))
	for i, entry := range t.Entries {
		out.Entries[i] = entry.clone()
	}
	return out
}

// TimetableVersion is the lightweight listing row for a stored version.
type TimetableVersion struct {
	ID        string    `db:"id" json:"id"`
	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
