package scheduler

import "github.com/gaurav5327/Edu-Sync-sub000/internal/models"

// occupancy books rooms, instructors and class groups per grid cell and keeps
// weekly instructor hours.
type occupancy struct {
	rooms       map[slotKey]map[string]int
	instructors map[slotKey]map[string]int
	groups      map[slotKey]map[string]int
	hours       map[string]int
}

func newOccupancy() *occupancy {
	return &occupancy{
		rooms:       make(map[slotKey]map[string]int),
		instructors: make(map[slotKey]map[string]int),
		groups:      make(map[slotKey]map[string]int),
		hours:       make(map[string]int),
	}
}

// booking is one slot held by one entry.
type booking struct {
	day        models.Day
	slot       string
	room       string
	instructor string
	group      string
}

func bump(index map[slotKey]map[string]int, key slotKey, id string, delta int) {
	if id == "" {
		return
	}
	bucket := index[key]
	if bucket == nil {
		bucket = make(map[string]int)
		index[key] = bucket
	}
	bucket[id] += delta
	if bucket[id] <= 0 {
		delete(bucket, id)
	}
}

func (o *occupancy) Reserve(b booking) {
	key := slotKey{day: b.day, slot: b.slot}
	bump(o.rooms, key, b.room, 1)
	bump(o.instructors, key, b.instructor, 1)
	bump(o.groups, key, b.group, 1)
	if b.instructor != "" {
		o.hours[b.instructor]++
	}
}

func (o *occupancy) Release(b booking) {
	key := slotKey{day: b.day, slot: b.slot}
	bump(o.rooms, key, b.room, -1)
	bump(o.instructors, key, b.instructor, -1)
	bump(o.groups, key, b.group, -1)
	if b.instructor != "" && o.hours[b.instructor] > 0 {
		o.hours[b.instructor]--
	}
}

func (o *occupancy) RoomFree(day models.Day, slot, roomID string) bool {
	return o.rooms[slotKey{day: day, slot: slot}][roomID] == 0
}

func (o *occupancy) InstructorFree(day models.Day, slot, instructorID string) bool {
	if instructorID == "" {
		return true
	}
	return o.instructors[slotKey{day: day, slot: slot}][instructorID] == 0
}

func (o *occupancy) GroupFree(day models.Day, slot, group string) bool {
	return o.groups[slotKey{day: day, slot: slot}][group] == 0
}

// CanHold reports whether every slot is free for the room, instructor and group.
func (o *occupancy) CanHold(day models.Day, slots []string, roomID, instructorID, group string) bool {
	for _, slot := range slots {
		if !o.RoomFree(day, slot, roomID) || !o.InstructorFree(day, slot, instructorID) || !o.GroupFree(day, slot, group) {
			return false
		}
	}
	return true
}

// WithinLoad reports whether adding extra hours keeps the instructor at or
// under limit. limit <= 0 means unbounded.
func (o *occupancy) WithinLoad(instructorID string, extra, limit int) bool {
	if limit <= 0 {
		return true
	}
	return o.hours[instructorID]+extra <= limit
}

// timetableGroup is the class-group id used when a whole timetable is one group.
const timetableGroup = "timetable"

func entryBooking(entry models.ScheduleEntry, group string) booking {
	return booking{
		day:        entry.Day,
		slot:       entry.StartTime,
		room:       entry.RoomID(),
		instructor: entry.InstructorID(),
		group:      group,
	}
}

// occupancyFromEntries books every occupied entry, treating the entries as
// one class group.
func occupancyFromEntries(entries []models.ScheduleEntry) *occupancy {
	occ := newOccupancy()
	for _, entry := range entries {
		if entry.Occupied() {
			occ.Reserve(entryBooking(entry, timetableGroup))
		}
	}
	return occ
}

// reserveBlocked books entries held by other timetables. They carry no group
// so they never block this timetable's own cells.
func reserveBlocked(occ *occupancy, blocked []models.ScheduleEntry) {
	for _, entry := range blocked {
		if entry.Occupied() {
			occ.Reserve(entryBooking(entry, ""))
		}
	}
}
