package scheduler

import (
	"sort"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
)

// normalizeEntries lays entries out in grid order. Occupied entries keep their
// relative order inside a (day, slot) bucket, every empty bucket gets one free
// entry and the lunch bucket always leads with a free entry. Entries outside
// the grid are kept at the end so nothing is dropped silently.
//
// The second return value maps each output index to its input index, or -1
// for synthesized free entries.
func normalizeEntries(entries []models.ScheduleEntry) ([]models.ScheduleEntry, []int) {
	buckets := make(map[slotKey][]int)
	var offGrid []int
	for i, entry := range entries {
		if !entry.Occupied() {
			continue
		}
		if models.DayIndex(entry.Day) < 0 || models.SlotIndex(entry.StartTime) < 0 {
			offGrid = append(offGrid, i)
			continue
		}
		key := slotKey{day: entry.Day, slot: entry.StartTime}
		buckets[key] = append(buckets[key], i)
	}

	out := make([]models.ScheduleEntry, 0, len(models.Days)*len(models.TimeSlots)+len(offGrid))
	origin := make([]int, 0, cap(out))
	for _, day := range models.Days {
		for _, slot := range models.TimeSlots {
			held := buckets[slotKey{day: day, slot: slot}]
			if len(held) == 0 || slot == models.LunchSlot {
				out = append(out, models.FreeEntry(day, slot))
				origin = append(origin, -1)
			}
			for _, idx := range held {
				out = append(out, entries[idx])
				origin = append(origin, idx)
			}
		}
	}

	sort.SliceStable(offGrid, func(i, j int) bool {
		a, b := entries[offGrid[i]], entries[offGrid[j]]
		return gridLess(a.Day, a.StartTime, b.Day, b.StartTime)
	})
	for _, idx := range offGrid {
		out = append(out, entries[idx])
		origin = append(origin, idx)
	}
	return out, origin
}

// Normalize returns a copy of the timetable with entries in canonical grid layout.
func Normalize(tt models.Timetable) models.Timetable {
	out := tt.Clone()
	out.Entries, _ = normalizeEntries(out.Entries)
	return out
}
