package scheduler

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
	appErrors "github.com/gaurav5327/Edu-Sync-sub000/pkg/errors"
)

// lunchMinutes is the only lunch break the grid can express.
const lunchMinutes = 60

// GenerateScenario applies the scenario's modifications to base, generates a
// timetable for its programs under its constraints and derives metrics. base
// is the working set the scenario starts from: the live collections, or the
// base scenario's working set. The returned scenario is marked generated;
// identifiers and timestamps are left to the caller.
func GenerateScenario(scenario models.Scenario, base Snapshot) (models.Scenario, error) {
	constraints := scenario.Parameters.Constraints
	if constraints.LunchBreakDuration != 0 && constraints.LunchBreakDuration != lunchMinutes {
		return models.Scenario{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("lunchBreakDuration must be %d minutes", lunchMinutes))
	}
	if constraints.MaxDailyHours < 0 || constraints.FacultyMaxLoad < 0 {
		return models.Scenario{}, appErrors.Clone(appErrors.ErrValidation, "scenario constraints must not be negative")
	}

	snap, err := ApplyModifications(base, scenario.Modifications)
	if err != nil {
		return models.Scenario{}, err
	}

	programs := scenario.Parameters.Programs
	courses := lo.Filter(snap.Courses, func(c models.Course, _ int) bool {
		return len(programs) == 0 || lo.SomeBy(programs, func(p models.Program) bool { return p.Matches(c) })
	})
	if len(courses) == 0 {
		return models.Scenario{}, appErrors.Clone(appErrors.ErrValidation, "scenario programs select no courses")
	}

	result, err := Generate(courses, snap.Rooms, Constraints{
		MaxDailyHours:  constraints.MaxDailyHours,
		FacultyMaxLoad: constraints.FacultyMaxLoad,
	})
	if err != nil {
		return models.Scenario{}, err
	}

	tt := result.Timetable
	if len(programs) == 1 {
		tt.Year, tt.Branch, tt.Division = programs[0].Year, programs[0].Branch, programs[0].Division
	}
	conflicts := Detect(tt)
	metrics := computeMetrics(tt, courses, allowedRooms(snap.Rooms, programs), constraints, len(conflicts), len(result.Unscheduled))

	out := scenario
	out.GeneratedTimetable = &tt
	out.Metrics = &metrics
	out.Unscheduled = result.Unscheduled
	out.Status = models.ScenarioGenerated
	return out, nil
}

// allowedRooms keeps available rooms open to at least one program year.
func allowedRooms(rooms []models.Room, programs []models.Program) []models.Room {
	return lo.Filter(rooms, func(r models.Room, _ int) bool {
		if !r.IsAvailable {
			return false
		}
		return len(programs) == 0 || lo.SomeBy(programs, func(p models.Program) bool { return r.AllowsYear(p.Year) })
	})
}

// CompareMetrics returns b minus a for every metric.
func CompareMetrics(a, b models.ScenarioMetrics) models.MetricsDelta {
	return models.MetricsDelta{
		ConflictCount:       b.ConflictCount - a.ConflictCount,
		RoomUtilization:     round2(b.RoomUtilization - a.RoomUtilization),
		FacultyWorkload:     round2(b.FacultyWorkload - a.FacultyWorkload),
		StudentSatisfaction: round2(b.StudentSatisfaction - a.StudentSatisfaction),
		UnscheduledCount:    b.UnscheduledCount - a.UnscheduledCount,
	}
}
