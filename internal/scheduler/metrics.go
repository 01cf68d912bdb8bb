package scheduler

import (
	"github.com/samber/lo"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
)

func computeMetrics(tt models.Timetable, courses []models.Course, rooms []models.Room, constraints models.ScenarioConstraints, conflicts, unscheduled int) models.ScenarioMetrics {
	occupied := lo.Filter(tt.Entries, func(e models.ScheduleEntry, _ int) bool { return e.Occupied() })
	slotsPerDay := len(eligibleSlots(constraints.MaxDailyHours))

	return models.ScenarioMetrics{
		ConflictCount:       conflicts,
		RoomUtilization:     roomUtilization(occupied, rooms, slotsPerDay),
		FacultyWorkload:     facultyWorkload(occupied, courses, constraints.FacultyMaxLoad, slotsPerDay),
		StudentSatisfaction: studentSatisfaction(occupied, courses),
		UnscheduledCount:    unscheduled,
	}
}

// roomUtilization is booked room slots over bookable room slots, as a percentage.
func roomUtilization(occupied []models.ScheduleEntry, rooms []models.Room, slotsPerDay int) float64 {
	available := len(rooms) * len(models.Days) * slotsPerDay
	if available == 0 {
		return 0
	}
	allowed := lo.Associate(rooms, func(r models.Room) (string, bool) { return r.ID, true })
	assigned := lo.CountBy(occupied, func(e models.ScheduleEntry) bool { return allowed[e.RoomID()] })
	return round2(float64(assigned) / float64(available) * 100)
}

// facultyWorkload averages each instructor's hours over the load cap, capped
// at 100%. Without a cap the week's eligible slots stand in for it.
func facultyWorkload(occupied []models.ScheduleEntry, courses []models.Course, maxLoad, slotsPerDay int) float64 {
	instructors := lo.Uniq(lo.Map(courses, func(c models.Course, _ int) string { return c.InstructorID }))
	if len(instructors) == 0 {
		return 0
	}
	limit := maxLoad
	if limit <= 0 {
		limit = len(models.Days) * slotsPerDay
	}
	if limit <= 0 {
		return 0
	}
	hours := lo.CountValuesBy(occupied, func(e models.ScheduleEntry) string { return e.InstructorID() })
	total := lo.SumBy(instructors, func(id string) float64 {
		return min(1, float64(hours[id])/float64(limit))
	})
	return round2(total / float64(len(instructors)) * 100)
}

// studentSatisfaction is the share of theory courses placed in one of their
// preferred slots. A course without preferences counts as not honoured, and a
// set with no theory courses scores 0.
func studentSatisfaction(occupied []models.ScheduleEntry, courses []models.Course) float64 {
	theory := lo.Filter(courses, func(c models.Course, _ int) bool { return !c.IsLab() })
	if len(theory) == 0 {
		return 0
	}
	placedAt := make(map[string]string, len(occupied))
	for _, entry := range occupied {
		if _, seen := placedAt[entry.CourseID()]; !seen {
			placedAt[entry.CourseID()] = entry.StartTime
		}
	}
	honoured := lo.CountBy(theory, func(c models.Course) bool {
		slot, ok := placedAt[c.ID]
		return ok && lo.Contains(c.PreferredTimeSlots, slot)
	})
	return round2(float64(honoured) / float64(len(theory)) * 100)
}
