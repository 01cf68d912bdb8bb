package models

import "github.com/lib/pq"

// RoomType classifies rooms for compatibility with lecture types.
type RoomType string

const (
	RoomClassroom   RoomType = "classroom"
	RoomLab         RoomType = "lab"
	RoomLectureHall RoomType = "lecture-hall"
)

// CompatibleRoomTypes lists room types a lecture type may be held in.
func CompatibleRoomTypes(lecture LectureType) []RoomType {
	if lecture == LectureLab {
		return []RoomType{RoomLab}
	}
	return []RoomType{RoomClassroom, RoomLectureHall}
}

// Room is an immutable engine input.
type Room struct {
	ID           string        `db:"id" json:"id"`
	Name         string        `db:"name" json:"name"`
	Capacity     int           `db:"capacity" json:"capacity"`
	Type         RoomType      `db:"type" json:"type"`
	Department   string        `db:"department" json:"department"`
	AllowedYears pq.Int64Array `db:"allowed_years" json:"allowedYears"`
	IsAvailable  bool          `db:"is_available" json:"isAvailable"`
}

// AllowsYear reports whether the room may host courses of the given year.
// An empty allow-list admits every year.
func (r Room) AllowsYear(year int) bool {
	if len(r.AllowedYears) == 0 {
		return true
	}
	for _, allowed := range r.AllowedYears {
		if int(allowed) == year {
			return true
		}
	}
	return false
}

// Ref projects the room onto the schedule entry wire format.
func (r Room) Ref() *RoomRef {
	return &RoomRef{ID: r.ID, Name: r.Name, Type: r.Type, Capacity: r.Capacity}
}

// RoomCriteria filters rooms in the room repository. Zero values do not filter.
type RoomCriteria struct {
	Type       RoomType
	Year       int
	Department string
}
