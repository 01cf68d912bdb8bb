package scheduler

import (
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
)

// Detect reports room and instructor collisions. Entries are bucketed by
// (day, slot) and only pairs inside a bucket are compared. Results are ordered
// by day, slot and then discovery; a pair colliding on both resources yields
// the room conflict first.
func Detect(tt models.Timetable) []models.Conflict {
	return detectIn(tt.Entries, bucketEntries(tt.Entries), nil)
}

type bucket struct {
	key     slotKey
	indices []int
}

// bucketEntries groups occupied entries by cell in grid order. Off-grid cells
// follow the grid in discovery order.
func bucketEntries(entries []models.ScheduleEntry) []bucket {
	byKey := make(map[slotKey]int)
	var buckets []bucket
	for i, entry := range entries {
		if !entry.Occupied() {
			continue
		}
		key := slotKey{day: entry.Day, slot: entry.StartTime}
		pos, ok := byKey[key]
		if !ok {
			pos = len(buckets)
			byKey[key] = pos
			buckets = append(buckets, bucket{key: key})
		}
		buckets[pos].indices = append(buckets[pos].indices, i)
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return gridLess(buckets[i].key.day, buckets[i].key.slot, buckets[j].key.day, buckets[j].key.slot)
	})
	return buckets
}

// detectIn compares pairs within the given buckets. When involved is non-nil
// only pairs touching an involved entry are reported.
func detectIn(entries []models.ScheduleEntry, buckets []bucket, involved map[int]bool) []models.Conflict {
	conflicts := make([]models.Conflict, 0)
	for _, b := range buckets {
		for x := 0; x < len(b.indices); x++ {
			for y := x + 1; y < len(b.indices); y++ {
				i, j := b.indices[x], b.indices[y]
				if involved != nil && !involved[i] && !involved[j] {
					continue
				}
				a, c := entries[i], entries[j]
				if a.RoomID() != "" && a.RoomID() == c.RoomID() {
					conflicts = append(conflicts, newConflict(models.ConflictRoom, b.key, i, j, a, c))
				}
				if a.InstructorID() != "" && a.InstructorID() == c.InstructorID() {
					conflicts = append(conflicts, newConflict(models.ConflictInstructor, b.key, i, j, a, c))
				}
			}
		}
	}
	return conflicts
}

func newConflict(kind models.ConflictType, key slotKey, i, j int, a, b models.ScheduleEntry) models.Conflict {
	return models.Conflict{
		Type:         kind,
		Day:          key.day,
		StartTime:    key.slot,
		EntryIndices: [2]int{i, j},
		Courses:      []models.CourseRef{*a.Course, *b.Course},
	}
}

// conflictKey identifies a conflict independent of entry positions.
func conflictKey(c models.Conflict) string {
	ids := lo.Map(c.Courses, func(ref models.CourseRef, _ int) string { return ref.ID })
	sort.Strings(ids)
	return strings.Join([]string{string(c.Type), string(c.Day), c.StartTime, strings.Join(ids, ",")}, "|")
}
