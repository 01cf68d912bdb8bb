package scheduler

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
	appErrors "github.com/gaurav5327/Edu-Sync-sub000/pkg/errors"
)

// Catalog holds the courses and rooms manual changes may reference. Blocked
// lists entries other timetables hold on shared rooms and instructors.
type Catalog struct {
	Courses []models.Course
	Rooms   []models.Room
	Blocked []models.ScheduleEntry
}

// ValidationResult is the outcome of a batch of manual changes. When the batch
// is rejected Timetable holds the hypothetical layout the conflict indices
// refer to; the caller's timetable is never modified either way.
type ValidationResult struct {
	Accepted  bool
	Timetable models.Timetable
	Conflicts []models.Conflict
}

type editor struct {
	work    models.Timetable
	courses map[string]models.Course
	rooms   map[string]models.Room
	changed map[int]bool
	touched map[slotKey]bool
}

// ValidateChanges applies the batch to a copy of the timetable and accepts it
// only if no room or instructor collision involves a changed entry. A change
// with a course id places that course at (day, slot) in the room, moving it
// when already scheduled; a change without one deletes the booking held in
// that room and slot. Swaps are expressed as two moves in the same batch.
func ValidateChanges(tt models.Timetable, changes []models.ManualChange, catalog Catalog) (*ValidationResult, error) {
	if len(changes) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one change is required")
	}
	ed := &editor{
		work:    tt.Clone(),
		courses: lo.KeyBy(catalog.Courses, func(c models.Course) string { return c.ID }),
		rooms:   lo.KeyBy(catalog.Rooms, func(r models.Room) string { return r.ID }),
		changed: make(map[int]bool),
		touched: make(map[slotKey]bool),
	}

	for n, change := range changes {
		day, ok := models.ParseDay(change.Day)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("change %d: unknown day %q", n, change.Day))
		}
		if models.SlotIndex(change.StartTime) < 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("change %d: unknown time slot %q", n, change.StartTime))
		}
		if change.StartTime == models.LunchSlot {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("change %d: %s is reserved for lunch", n, models.LunchSlot))
		}
		var err error
		if change.IsDelete() {
			err = ed.remove(n, day, change)
		} else {
			err = ed.place(n, day, change)
		}
		if err != nil {
			return nil, err
		}
	}

	entries, origin := normalizeEntries(ed.work.Entries)
	involved := make(map[int]bool)
	for out, in := range origin {
		if in >= 0 && ed.changed[in] {
			involved[out] = true
		}
	}
	ed.work.Entries = entries

	for _, entry := range entries {
		if entry.Occupied() && entry.StartTime == models.LunchSlot {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s on %s sits in the lunch slot and must be moved", entry.Course.Code, entry.Day))
		}
	}

	affected := lo.Filter(bucketEntries(entries), func(b bucket, _ int) bool { return ed.touched[b.key] })
	conflicts := detectIn(entries, affected, involved)
	conflicts = append(conflicts, detectBlocked(entries, affected, involved, catalog.Blocked)...)
	return &ValidationResult{
		Accepted:  len(conflicts) == 0,
		Timetable: ed.work,
		Conflicts: conflicts,
	}, nil
}

// detectBlocked reports involved entries colliding with another timetable's
// booking. The second index is -1 since that entry lives outside entries.
func detectBlocked(entries []models.ScheduleEntry, buckets []bucket, involved map[int]bool, blocked []models.ScheduleEntry) []models.Conflict {
	if len(blocked) == 0 {
		return nil
	}
	byKey := lo.GroupBy(lo.Filter(blocked, func(e models.ScheduleEntry, _ int) bool { return e.Occupied() }),
		func(e models.ScheduleEntry) slotKey { return slotKey{day: e.Day, slot: e.StartTime} })
	var conflicts []models.Conflict
	for _, b := range buckets {
		for _, i := range b.indices {
			if !involved[i] {
				continue
			}
			a := entries[i]
			for _, other := range byKey[b.key] {
				if a.RoomID() != "" && a.RoomID() == other.RoomID() {
					conflicts = append(conflicts, newConflict(models.ConflictRoom, b.key, i, -1, a, other))
				}
				if a.InstructorID() != "" && a.InstructorID() == other.InstructorID() {
					conflicts = append(conflicts, newConflict(models.ConflictInstructor, b.key, i, -1, a, other))
				}
			}
		}
	}
	return conflicts
}

func (ed *editor) remove(n int, day models.Day, change models.ManualChange) error {
	for idx, entry := range ed.work.Entries {
		if !entry.Occupied() || entry.Day != day || entry.StartTime != change.StartTime || entry.RoomID() != change.RoomID {
			continue
		}
		block := []int{idx}
		if entry.IsLab() {
			block = ed.labBlock(entry.CourseID())
		}
		for _, k := range block {
			ed.touched[slotKey{day: ed.work.Entries[k].Day, slot: ed.work.Entries[k].StartTime}] = true
			ed.work.Entries[k].Clear()
		}
		return nil
	}
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("change %d: nothing scheduled in room %s on %s %s", n, change.RoomID, day, change.StartTime))
}

func (ed *editor) place(n int, day models.Day, change models.ManualChange) error {
	course, ok := ed.courses[change.CourseID]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("change %d: course %s not found", n, change.CourseID))
	}
	room, ok := ed.rooms[change.RoomID]
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("change %d: room %s not found", n, change.RoomID))
	}
	if !room.IsAvailable {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("change %d: room %s is not available", n, room.Name))
	}
	if !room.AllowsYear(course.Year) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("change %d: room %s is not open to year %d", n, room.Name, course.Year))
	}
	if !lo.Contains(models.CompatibleRoomTypes(course.LectureType), room.Type) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("change %d: %s course cannot use %s room %s", n, course.LectureType, room.Type, room.Name))
	}
	if room.Capacity < course.Capacity {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("change %d: room %s holds %d, course needs %d", n, room.Name, room.Capacity, course.Capacity))
	}
	slots, ok := blockSlots(course.IsLab(), change.StartTime)
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("change %d: lab cannot start at %s without a consecutive slot", n, change.StartTime))
	}

	var block []int
	if course.IsLab() {
		block = ed.labBlock(course.ID)
	} else if idx, found := ed.firstOccurrence(course.ID); found {
		block = []int{idx}
	}
	for _, idx := range block {
		ed.touched[slotKey{day: ed.work.Entries[idx].Day, slot: ed.work.Entries[idx].StartTime}] = true
	}
	if len(block) != len(slots) {
		// Missing or partial: drop what is there and book afresh.
		for _, idx := range block {
			ed.work.Entries[idx].Clear()
		}
		block = block[:0]
		for range slots {
			ed.work.Entries = append(ed.work.Entries, models.ScheduleEntry{})
			block = append(block, len(ed.work.Entries)-1)
		}
	}

	for k, idx := range block {
		ed.work.Entries[idx] = models.ScheduleEntry{
			Day:         day,
			StartTime:   slots[k],
			Course:      course.Ref(),
			Room:        room.Ref(),
			IsLabFirst:  course.IsLab() && k == 0,
			IsLabSecond: course.IsLab() && k == 1,
		}
		ed.changed[idx] = true
		ed.touched[slotKey{day: day, slot: slots[k]}] = true
	}
	return nil
}

func (ed *editor) firstOccurrence(courseID string) (int, bool) {
	for idx, entry := range ed.work.Entries {
		if entry.Occupied() && entry.CourseID() == courseID {
			return idx, true
		}
	}
	return 0, false
}

// labBlock returns the first and second entries of the course's lab block, in
// that order, when both exist.
func (ed *editor) labBlock(courseID string) []int {
	first, second := -1, -1
	for idx, entry := range ed.work.Entries {
		if !entry.Occupied() || entry.CourseID() != courseID {
			continue
		}
		if entry.IsLabFirst && first < 0 {
			first = idx
		}
		if entry.IsLabSecond && second < 0 {
			second = idx
		}
	}
	out := make([]int, 0, 2)
	if first >= 0 {
		out = append(out, first)
	}
	if second >= 0 {
		out = append(out, second)
	}
	return out
}
