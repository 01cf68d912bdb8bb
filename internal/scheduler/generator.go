package scheduler

import (
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
	appErrors "github.com/gaurav5327/Edu-Sync-sub000/pkg/errors"
)

// Constraints bound a generation run.
type Constraints struct {
	// MaxDailyHours keeps only the first N teaching slots of each day. 0 disables it.
	MaxDailyHours int
	// FacultyMaxLoad caps weekly teaching hours per instructor. 0 disables it.
	FacultyMaxLoad int
	// Blocked are bookings held elsewhere (other scopes) that occupy rooms
	// and instructors but are not part of the output.
	Blocked []models.ScheduleEntry
}

// GenerateResult is a best-effort timetable plus every course that could not be placed.
type GenerateResult struct {
	Timetable   models.Timetable
	Unscheduled []models.UnscheduledCourse
}

// Complete reports whether every course was placed.
func (r *GenerateResult) Complete() bool {
	return len(r.Unscheduled) == 0
}

const (
	reasonNoRoom    = "no compatible room"
	reasonLoadCap   = "instructor weekly load cap reached"
	reasonNoSlot    = "no free slot for room and instructor"
	reasonNoLabPair = "no free consecutive slot pair for a lab room and instructor"
)

// Generate assigns courses to (day, slot, room) in creation order. Theory
// courses try their preferred slots on every day before the rest of the grid;
// labs take the first day and consecutive slot pair with a free lab room.
// Each course's class group holds at most one course per cell. Courses that
// cannot be placed are returned in Unscheduled.
func Generate(courses []models.Course, rooms []models.Room, constraints Constraints) (*GenerateResult, error) {
	if err := validateCourses(courses); err != nil {
		return nil, err
	}

	ordered := make([]models.Course, len(courses))
	copy(ordered, courses)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].CreatedAt, ordered[j].CreatedAt
		if a.IsZero() != b.IsZero() {
			return !a.IsZero()
		}
		return a.Before(b)
	})

	occ := newOccupancy()
	reserveBlocked(occ, constraints.Blocked)

	finder := RoomList(rooms)
	slots := eligibleSlots(constraints.MaxDailyHours)
	entries := make([]models.ScheduleEntry, 0, len(ordered)+len(ordered)/2)
	result := &GenerateResult{}

	for _, course := range ordered {
		candidates := finder.FindAvailable(models.CompatibleRoomTypes(course.LectureType), RoomFilter{
			MinCapacity: course.Capacity,
			Year:        course.Year,
		})
		if len(candidates) == 0 {
			result.Unscheduled = append(result.Unscheduled, models.UnscheduledCourse{Course: course, Reason: reasonNoRoom})
			continue
		}
		if !occ.WithinLoad(course.InstructorID, course.Hours(), constraints.FacultyMaxLoad) {
			result.Unscheduled = append(result.Unscheduled, models.UnscheduledCourse{Course: course, Reason: reasonLoadCap})
			continue
		}

		var placed []models.ScheduleEntry
		if course.IsLab() {
			placed = placeLab(occ, course, candidates, slots)
		} else {
			placed = placeTheory(occ, course, candidates, slots)
		}
		if placed == nil {
			reason := reasonNoSlot
			if course.IsLab() {
				reason = reasonNoLabPair
			}
			result.Unscheduled = append(result.Unscheduled, models.UnscheduledCourse{Course: course, Reason: reason})
			continue
		}
		entries = append(entries, placed...)
	}

	result.Timetable.Entries, _ = normalizeEntries(entries)
	if scope, ok := uniformScope(ordered); ok {
		result.Timetable.Year = scope.Year
		result.Timetable.Branch = scope.Branch
		result.Timetable.Division = scope.Division
	}
	return result, nil
}

func validateCourses(courses []models.Course) error {
	if len(courses) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one course is required")
	}
	seen := make(map[string]bool, len(courses))
	for _, course := range courses {
		if course.ID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "course id is required")
		}
		if seen[course.ID] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("course %s is listed twice", course.ID))
		}
		seen[course.ID] = true
		if course.InstructorID == "" {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("course %s has no instructor", course.ID))
		}
		switch course.LectureType {
		case models.LectureTheory, models.LectureLab:
		default:
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("course %s has unknown lecture type %q", course.ID, course.LectureType))
		}
		if course.DurationMinutes != 60 && course.DurationMinutes != 120 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("course %s duration must be 60 or 120 minutes", course.ID))
		}
		if course.IsLab() && course.DurationMinutes != 120 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("lab course %s must last 120 minutes", course.ID))
		}
	}
	return nil
}

// theoryPositions lists preferred slots across the week first, then the rest
// of the eligible grid in day, slot order.
func theoryPositions(course models.Course, slots []string) []position {
	tried := make(map[position]bool)
	positions := make([]position, 0, len(models.Days)*len(slots))
	for _, preferred := range lo.Uniq(course.PreferredTimeSlots) {
		if !lo.Contains(slots, preferred) {
			continue
		}
		for _, day := range models.Days {
			pos := position{day: day, slot: preferred}
			tried[pos] = true
			positions = append(positions, pos)
		}
	}
	for _, day := range models.Days {
		for _, slot := range slots {
			pos := position{day: day, slot: slot}
			if tried[pos] {
				continue
			}
			positions = append(positions, pos)
		}
	}
	return positions
}

func placeTheory(occ *occupancy, course models.Course, rooms []models.Room, slots []string) []models.ScheduleEntry {
	group := courseGroup(course)
	for _, pos := range theoryPositions(course, slots) {
		for _, room := range rooms {
			if !occ.CanHold(pos.day, []string{pos.slot}, room.ID, course.InstructorID, group) {
				continue
			}
			entry := models.ScheduleEntry{Day: pos.day, StartTime: pos.slot, Course: course.Ref(), Room: room.Ref()}
			occ.Reserve(entryBooking(entry, group))
			return []models.ScheduleEntry{entry}
		}
	}
	return nil
}

func placeLab(occ *occupancy, course models.Course, rooms []models.Room, slots []string) []models.ScheduleEntry {
	group := courseGroup(course)
	pairs := consecutivePairs(slots)
	for _, day := range models.Days {
		for _, pair := range pairs {
			for _, room := range rooms {
				if !occ.CanHold(day, pair[:], room.ID, course.InstructorID, group) {
					continue
				}
				block := labBlock(course, room, day, pair)
				for _, entry := range block {
					occ.Reserve(entryBooking(entry, group))
				}
				return block
			}
		}
	}
	return nil
}

func labBlock(course models.Course, room models.Room, day models.Day, pair [2]string) []models.ScheduleEntry {
	first := models.ScheduleEntry{Day: day, StartTime: pair[0], Course: course.Ref(), Room: room.Ref(), IsLabFirst: true}
	second := models.ScheduleEntry{Day: day, StartTime: pair[1], Course: course.Ref(), Room: room.Ref(), IsLabSecond: true}
	return []models.ScheduleEntry{first, second}
}

func courseGroup(course models.Course) string {
	return models.Scope{Year: course.Year, Branch: course.Branch, Division: course.Division}.Key()
}

func uniformScope(courses []models.Course) (models.Scope, bool) {
	scopes := lo.Uniq(lo.Map(courses, func(c models.Course, _ int) models.Scope {
		return models.Scope{Year: c.Year, Branch: c.Branch, Division: c.Division}
	}))
	if len(scopes) != 1 {
		return models.Scope{}, false
	}
	return scopes[0], true
}
