package scheduler

import (
	"sort"

	"github.com/samber/lo"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
)

// RoomFilter narrows a room search. Zero values do not filter.
type RoomFilter struct {
	MinCapacity int
	Year        int
	ExcludeIDs  []string
}

// RoomFinder supplies candidate rooms to the generator and resolver in a
// stable order.
type RoomFinder interface {
	FindAvailable(types []models.RoomType, filter RoomFilter) []models.Room
}

// RoomList is an in-memory RoomFinder.
type RoomList []models.Room

// FindAvailable returns available rooms of the given types that satisfy the
// filter, ordered best-fit: smallest sufficient capacity, then name, then id.
func (l RoomList) FindAvailable(types []models.RoomType, filter RoomFilter) []models.Room {
	matches := lo.Filter(l, func(room models.Room, _ int) bool {
		if !room.IsAvailable || !lo.Contains(types, room.Type) {
			return false
		}
		if room.Capacity < filter.MinCapacity {
			return false
		}
		if filter.Year > 0 && !room.AllowsYear(filter.Year) {
			return false
		}
		return !lo.Contains(filter.ExcludeIDs, room.ID)
	})
	sortBestFit(matches)
	return matches
}

func sortBestFit(rooms []models.Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		if rooms[i].Capacity != rooms[j].Capacity {
			return rooms[i].Capacity < rooms[j].Capacity
		}
		if rooms[i].Name != rooms[j].Name {
			return rooms[i].Name < rooms[j].Name
		}
		return rooms[i].ID < rooms[j].ID
	})
}

// roomFits applies the placement predicate to a single room.
func roomFits(room models.Room, course models.Course) bool {
	return room.IsAvailable &&
		lo.Contains(models.CompatibleRoomTypes(course.LectureType), room.Type) &&
		room.Capacity >= course.Capacity &&
		room.AllowsYear(course.Year)
}
