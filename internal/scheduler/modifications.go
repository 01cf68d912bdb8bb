package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
	appErrors "github.com/gaurav5327/Edu-Sync-sub000/pkg/errors"
)

// Snapshot is an immutable course and room working set. Modifications never
// touch a snapshot in place; they return a new one.
type Snapshot struct {
	Courses []models.Course
	Rooms   []models.Room
}

// Clone copies the snapshot including slice fields of each item.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Courses: make([]models.Course, len(s.Courses)),
		Rooms:   make([]models.Room, len(s.Rooms)),
	}
	for i, course := range s.Courses {
		course.PreferredTimeSlots = append(pq.StringArray(nil), course.PreferredTimeSlots...)
		out.Courses[i] = course
	}
	for i, room := range s.Rooms {
		room.AllowedYears = append(pq.Int64Array(nil), room.AllowedYears...)
		out.Rooms[i] = room
	}
	return out
}

type coursePatch struct {
	ID                 *string    `mapstructure:"id"`
	Code               *string    `mapstructure:"code"`
	Name               *string    `mapstructure:"name"`
	InstructorID       *string    `mapstructure:"instructorId"`
	InstructorName     *string    `mapstructure:"instructorName"`
	DurationMinutes    *int       `mapstructure:"durationMinutes"`
	LectureType        *string    `mapstructure:"lectureType"`
	Capacity           *int       `mapstructure:"capacity"`
	PreferredTimeSlots *[]string  `mapstructure:"preferredTimeSlots"`
	Year               *int       `mapstructure:"year"`
	Branch             *string    `mapstructure:"branch"`
	Division           *string    `mapstructure:"division"`
	Credits            *int       `mapstructure:"credits"`
	Category           *string    `mapstructure:"category"`
	CreatedAt          *time.Time `mapstructure:"createdAt"`
}

type facultyPatch struct {
	InstructorID   *string `mapstructure:"instructorId"`
	InstructorName *string `mapstructure:"instructorName"`
}

type roomPatch struct {
	Name         *string  `mapstructure:"name"`
	Capacity     *int     `mapstructure:"capacity"`
	Type         *string  `mapstructure:"type"`
	Department   *string  `mapstructure:"department"`
	AllowedYears *[]int64 `mapstructure:"allowedYears"`
	IsAvailable  *bool    `mapstructure:"isAvailable"`
}

type timePatch struct {
	PreferredTimeSlots *[]string `mapstructure:"preferredTimeSlots"`
}

func decodeChanges(changes map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(changes)
}

// ApplyModifications applies the modifications in order to a copy of base.
func ApplyModifications(base Snapshot, mods []models.Modification) (Snapshot, error) {
	snap := base.Clone()
	for n, mod := range mods {
		var err error
		switch mod.Type {
		case models.ModAddCourse:
			err = snap.addCourse(mod)
		case models.ModRemoveCourse:
			err = snap.removeCourse(mod)
		case models.ModChangeFaculty:
			err = snap.changeFaculty(mod)
		case models.ModChangeRoom:
			err = snap.changeRoom(mod)
		case models.ModChangeTime:
			err = snap.changeTime(mod)
		default:
			err = appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown modification type %q", mod.Type))
		}
		if err != nil {
			return Snapshot{}, wrapModification(n, mod, err)
		}
	}
	return snap, nil
}

// WorkingSet replays the modifications of each ancestor, root first, on top of live.
func WorkingSet(live Snapshot, lineage [][]models.Modification) (Snapshot, error) {
	snap := live
	for _, mods := range lineage {
		next, err := ApplyModifications(snap, mods)
		if err != nil {
			return Snapshot{}, err
		}
		snap = next
	}
	return snap.Clone(), nil
}

func wrapModification(n int, mod models.Modification, err error) error {
	var typed *appErrors.Error
	if errors.As(err, &typed) {
		return appErrors.Clone(typed, fmt.Sprintf("modification %d (%s %s): %s", n, mod.Type, mod.Target, typed.Message))
	}
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("modification %d (%s %s): invalid changes", n, mod.Type, mod.Target))
}

func (s *Snapshot) courseIndex(id string) (int, error) {
	_, idx, ok := lo.FindIndexOf(s.Courses, func(c models.Course) bool { return c.ID == id })
	if !ok {
		return 0, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course %s not found", id))
	}
	return idx, nil
}

func (s *Snapshot) addCourse(mod models.Modification) error {
	var patch coursePatch
	if err := decodeChanges(mod.Changes, &patch); err != nil {
		return err
	}
	course := models.Course{ID: mod.Target, LectureType: models.LectureTheory}
	applyCoursePatch(&course, patch)
	if course.ID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "new course needs an id")
	}
	if _, err := s.courseIndex(course.ID); err == nil {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("course %s already exists", course.ID))
	}
	if course.DurationMinutes == 0 {
		course.DurationMinutes = 60 * course.Hours()
	}
	if err := validateSlots(course.PreferredTimeSlots); err != nil {
		return err
	}
	s.Courses = append(s.Courses, course)
	return nil
}

func applyCoursePatch(course *models.Course, p coursePatch) {
	if p.ID != nil {
		course.ID = *p.ID
	}
	if p.Code != nil {
		course.Code = *p.Code
	}
	if p.Name != nil {
		course.Name = *p.Name
	}
	if p.InstructorID != nil {
		course.InstructorID = *p.InstructorID
	}
	if p.InstructorName != nil {
		course.InstructorName = *p.InstructorName
	}
	if p.DurationMinutes != nil {
		course.DurationMinutes = *p.DurationMinutes
	}
	if p.LectureType != nil {
		course.LectureType = models.LectureType(*p.LectureType)
	}
	if p.Capacity != nil {
		course.Capacity = *p.Capacity
	}
	if p.PreferredTimeSlots != nil {
		course.PreferredTimeSlots = pq.StringArray(*p.PreferredTimeSlots)
	}
	if p.Year != nil {
		course.Year = *p.Year
	}
	if p.Branch != nil {
		course.Branch = *p.Branch
	}
	if p.Division != nil {
		course.Division = *p.Division
	}
	if p.Credits != nil {
		course.Credits = *p.Credits
	}
	if p.Category != nil {
		course.Category = *p.Category
	}
	if p.CreatedAt != nil {
		course.CreatedAt = *p.CreatedAt
	}
}

func (s *Snapshot) removeCourse(mod models.Modification) error {
	idx, err := s.courseIndex(mod.Target)
	if err != nil {
		return err
	}
	s.Courses = append(s.Courses[:idx:idx], s.Courses[idx+1:]...)
	return nil
}

func (s *Snapshot) changeFaculty(mod models.Modification) error {
	idx, err := s.courseIndex(mod.Target)
	if err != nil {
		return err
	}
	var patch facultyPatch
	if err := decodeChanges(mod.Changes, &patch); err != nil {
		return err
	}
	if patch.InstructorID == nil || *patch.InstructorID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "instructorId is required")
	}
	s.Courses[idx].InstructorID = *patch.InstructorID
	if patch.InstructorName != nil {
		s.Courses[idx].InstructorName = *patch.InstructorName
	}
	return nil
}

func (s *Snapshot) changeRoom(mod models.Modification) error {
	_, idx, ok := lo.FindIndexOf(s.Rooms, func(r models.Room) bool { return r.ID == mod.Target })
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("room %s not found", mod.Target))
	}
	var patch roomPatch
	if err := decodeChanges(mod.Changes, &patch); err != nil {
		return err
	}
	room := &s.Rooms[idx]
	if patch.Name != nil {
		room.Name = *patch.Name
	}
	if patch.Capacity != nil {
		room.Capacity = *patch.Capacity
	}
	if patch.Type != nil {
		switch rt := models.RoomType(*patch.Type); rt {
		case models.RoomClassroom, models.RoomLab, models.RoomLectureHall:
			room.Type = rt
		default:
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown room type %q", rt))
		}
	}
	if patch.Department != nil {
		room.Department = *patch.Department
	}
	if patch.AllowedYears != nil {
		room.AllowedYears = pq.Int64Array(*patch.AllowedYears)
	}
	if patch.IsAvailable != nil {
		room.IsAvailable = *patch.IsAvailable
	}
	return nil
}

func (s *Snapshot) changeTime(mod models.Modification) error {
	idx, err := s.courseIndex(mod.Target)
	if err != nil {
		return err
	}
	var patch timePatch
	if err := decodeChanges(mod.Changes, &patch); err != nil {
		return err
	}
	if patch.PreferredTimeSlots == nil {
		return appErrors.Clone(appErrors.ErrValidation, "preferredTimeSlots is required")
	}
	if err := validateSlots(*patch.PreferredTimeSlots); err != nil {
		return err
	}
	s.Courses[idx].PreferredTimeSlots = pq.StringArray(*patch.PreferredTimeSlots)
	return nil
}

func validateSlots(slots []string) error {
	for _, slot := range slots {
		if !models.IsTeachingSlot(slot) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%q is not a teaching slot", slot))
		}
	}
	return nil
}
