// Package scheduler is the timetable engine: generation, conflict detection,
// conflict resolution, manual edit validation and scenario simulation. Every
// function works on in-memory snapshots and returns new values; nothing here
// performs I/O, reads the clock or draws random numbers.
package scheduler

import (
	"math"

	"github.com/samber/lo"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
)

type slotKey struct {
	day  models.Day
	slot string
}

// position is a candidate placement start.
type position struct {
	day  models.Day
	slot string
}

// eligibleSlots returns the teaching slots a day may use. maxDaily > 0 keeps
// only the first maxDaily teaching slots.
func eligibleSlots(maxDaily int) []string {
	slots := models.TeachingSlots()
	if maxDaily > 0 && maxDaily < len(slots) {
		return slots[:maxDaily]
	}
	return slots
}

// consecutivePairs lists lab double blocks whose both halves are eligible.
func consecutivePairs(slots []string) [][2]string {
	pairs := make([][2]string, 0, len(slots))
	for _, slot := range slots {
		next, ok := models.NextSlot(slot)
		if !ok || !lo.Contains(slots, next) {
			continue
		}
		pairs = append(pairs, [2]string{slot, next})
	}
	return pairs
}

// blockSlots returns the slots a course occupies when starting at slot.
func blockSlots(lab bool, slot string) ([]string, bool) {
	if !lab {
		return []string{slot}, true
	}
	next, ok := models.NextSlot(slot)
	if !ok {
		return nil, false
	}
	return []string{slot, next}, true
}

func gridLess(aDay models.Day, aSlot string, bDay models.Day, bSlot string) bool {
	ad, bd := gridIndex(models.DayIndex(aDay)), gridIndex(models.DayIndex(bDay))
	if ad != bd {
		return ad < bd
	}
	return gridIndex(models.SlotIndex(aSlot)) < gridIndex(models.SlotIndex(bSlot))
}

// gridIndex pushes off-grid values (-1) behind every real position.
func gridIndex(idx int) int {
	if idx < 0 {
		return math.MaxInt32
	}
	return idx
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
