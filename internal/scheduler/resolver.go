package scheduler

import (
	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
)

// ResolveResult is the repaired timetable, what was changed, and the input
// conflicts that are still present.
type ResolveResult struct {
	Timetable   models.Timetable
	Resolutions []models.AppliedResolution
	Unresolved  []models.Conflict
}

// Resolve relocates one entry per conflict. The entry with the higher index is
// mobile and a lab moves together with its partner. Room conflicts try another
// room at the same time before a time change; instructor conflicts try a time
// change keeping the room. Candidates are scanned in stable order and the
// first feasible one wins. Conflicts already cleared by an earlier move are
// skipped. The input timetable is not modified.
//
// Time changes stay inside the MaxDailyHours window, and constraints.Blocked
// holds rooms and instructors booked by other timetables.
func Resolve(tt models.Timetable, conflicts []models.Conflict, finder RoomFinder, constraints Constraints) ResolveResult {
	work := tt.Clone()
	occ := occupancyFromEntries(work.Entries)
	reserveBlocked(occ, constraints.Blocked)
	r := &resolver{tt: &work, occ: occ, finder: finder, slots: eligibleSlots(constraints.MaxDailyHours)}

	var applied []models.AppliedResolution
	for _, conflict := range conflicts {
		if !r.stillHolds(conflict) {
			continue
		}
		if resolution, ok := r.fix(conflict); ok {
			applied = append(applied, resolution)
		}
	}

	work.Entries, _ = normalizeEntries(work.Entries)
	return ResolveResult{
		Timetable:   work,
		Resolutions: applied,
		Unresolved:  remaining(conflicts, Detect(work)),
	}
}

type resolver struct {
	tt     *models.Timetable
	occ    *occupancy
	finder RoomFinder
	slots  []string
}

func (r *resolver) valid(idx int) bool {
	return idx >= 0 && idx < len(r.tt.Entries) && r.tt.Entries[idx].Occupied()
}

func (r *resolver) stillHolds(c models.Conflict) bool {
	i, j := c.EntryIndices[0], c.EntryIndices[1]
	if i == j || !r.valid(i) || !r.valid(j) {
		return false
	}
	a, b := r.tt.Entries[i], r.tt.Entries[j]
	for _, e := range []models.ScheduleEntry{a, b} {
		if e.Day != c.Day || e.StartTime != c.StartTime {
			return false
		}
	}
	switch c.Type {
	case models.ConflictRoom:
		return a.RoomID() != "" && a.RoomID() == b.RoomID()
	case models.ConflictInstructor:
		return a.InstructorID() != "" && a.InstructorID() == b.InstructorID()
	}
	return false
}

func (r *resolver) fix(c models.Conflict) (models.AppliedResolution, bool) {
	mobile := c.EntryIndices[1]
	if c.EntryIndices[0] > mobile {
		mobile = c.EntryIndices[0]
	}
	block := r.block(mobile)

	bookings := r.bookings(block)
	for _, b := range bookings {
		r.occ.Release(b)
	}

	var change models.Resolution
	if c.Type == models.ConflictRoom {
		if room, ok := r.findRoom(block); ok {
			change = models.RoomChange{RoomID: room.ID, RoomName: room.Name}
			for _, idx := range block {
				r.tt.Entries[idx].Room = room.Ref()
			}
		}
	}
	if change == nil {
		if day, slots, ok := r.findTime(block); ok {
			change = models.TimeChange{Day: day, StartTime: slots[0]}
			for n, idx := range block {
				r.tt.Entries[idx].Day = day
				r.tt.Entries[idx].StartTime = slots[n]
			}
		}
	}

	for _, b := range r.bookings(block) {
		r.occ.Reserve(b)
	}
	if change == nil {
		return models.AppliedResolution{}, false
	}
	return models.AppliedResolution{Conflict: c, EntryIndices: block, Change: change}, true
}

// block returns the mobile entry plus its lab partner, ordered by slot.
func (r *resolver) block(idx int) []int {
	entry := r.tt.Entries[idx]
	if !entry.IsLab() {
		return []int{idx}
	}
	for k, other := range r.tt.Entries {
		if k == idx || !other.Occupied() || other.Day != entry.Day || other.CourseID() != entry.CourseID() {
			continue
		}
		if entry.IsLabFirst && other.IsLabSecond {
			if next, ok := models.NextSlot(entry.StartTime); ok && next == other.StartTime {
				return []int{idx, k}
			}
		}
		if entry.IsLabSecond && other.IsLabFirst {
			if next, ok := models.NextSlot(other.StartTime); ok && next == entry.StartTime {
				return []int{k, idx}
			}
		}
	}
	return []int{idx}
}

func (r *resolver) bookings(block []int) []booking {
	out := make([]booking, 0, len(block))
	for _, idx := range block {
		out = append(out, entryBooking(r.tt.Entries[idx], timetableGroup))
	}
	return out
}

// findRoom looks for another compatible room free for every slot of the block.
func (r *resolver) findRoom(block []int) (models.Room, bool) {
	if r.finder == nil {
		return models.Room{}, false
	}
	first := r.tt.Entries[block[0]]
	candidates := r.finder.FindAvailable(models.CompatibleRoomTypes(first.Course.LectureType), RoomFilter{
		MinCapacity: first.Course.Capacity,
		Year:        r.tt.Year,
		ExcludeIDs:  []string{first.RoomID()},
	})
	for _, room := range candidates {
		fits := true
		for _, idx := range block {
			entry := r.tt.Entries[idx]
			if !r.occ.RoomFree(entry.Day, entry.StartTime, room.ID) || !r.occ.InstructorFree(entry.Day, entry.StartTime, entry.InstructorID()) {
				fits = false
				break
			}
		}
		if fits {
			return room, true
		}
	}
	return models.Room{}, false
}

// findTime looks for another cell (or consecutive pair for a lab) inside the
// eligible slots where the current room and instructor are free and the
// timetable has no other course.
func (r *resolver) findTime(block []int) (models.Day, []string, bool) {
	first := r.tt.Entries[block[0]]
	var starts [][]string
	if len(block) == 2 {
		for _, pair := range consecutivePairs(r.slots) {
			starts = append(starts, []string{pair[0], pair[1]})
		}
	} else {
		for _, slot := range r.slots {
			starts = append(starts, []string{slot})
		}
	}
	for _, day := range models.Days {
		for _, slots := range starts {
			if day == first.Day && slots[0] == first.StartTime {
				continue
			}
			if r.occ.CanHold(day, slots, first.RoomID(), first.InstructorID(), timetableGroup) {
				return day, slots, true
			}
		}
	}
	return "", nil, false
}

// remaining returns the detected conflicts that match an input conflict,
// consuming each input at most once.
func remaining(input, detected []models.Conflict) []models.Conflict {
	pending := make(map[string]int, len(input))
	for _, c := range input {
		pending[conflictKey(c)]++
	}
	out := make([]models.Conflict, 0)
	for _, c := range detected {
		key := conflictKey(c)
		if pending[key] == 0 {
			continue
		}
		pending[key]--
		out = append(out, c)
	}
	return out
}
