package models

import "time"

// ScenarioStatus tracks a scenario through its lifecycle.
type ScenarioStatus string

const (
	ScenarioDraft     ScenarioStatus = "draft"
	ScenarioGenerated ScenarioStatus = "generated"
	ScenarioApproved  ScenarioStatus = "approved"
	ScenarioArchived  ScenarioStatus = "archived"
)

// ModificationType enumerates the what-if edits a scenario can apply.
type ModificationType string

const (
	ModAddCourse     ModificationType = "add_course"
	ModRemoveCourse  ModificationType = "remove_course"
	ModChangeFaculty ModificationType = "change_faculty"
	ModChangeRoom    ModificationType = "change_room"
	ModChangeTime    ModificationType = "change_time"
)

// Program selects the class groups a scenario schedules.
type Program struct {
	Year     int    `json:"year" mapstructure:"year" validate:"required,min=1"`
	Branch   string `json:"branch" mapstructure:"branch" validate:"required"`
	Division string `json:"division" mapstructure:"division" validate:"required"`
}

// Matches reports whether the course belongs to the program.
func (p Program) Matches(c Course) bool {
	return p.Year == c.Year && p.Branch == c.Branch && p.Division == c.Division
}

// ScenarioConstraints tunes generation for a scenario. Zero values disable a bound.
type ScenarioConstraints struct {
	MaxDailyHours      int     `json:"maxDailyHours" validate:"min=0,max=7"`
	LunchBreakDuration int     `json:"lunchBreakDuration" validate:"min=0"`
	FacultyMaxLoad     int     `json:"facultyMaxLoad" validate:"min=0"`
	RoomUtilization    float64 `json:"roomUtilization" validate:"min=0,max=100"`
}

// ScenarioParameters is the configuration a scenario is generated from.
type ScenarioParameters struct {
	Semester     string              `json:"semester"`
	AcademicYear string              `json:"academicYear"`
	Programs     []Program           `json:"programs" validate:"dive"`
	Constraints  ScenarioConstraints `json:"constraints"`
}

// Modification is one ordered edit to the scenario's working set.
type Modification struct {
	Type    ModificationType `json:"type" validate:"required"`
	Target  string           `json:"target"`
	Changes map[string]any   `json:"changes"`
}

// ScenarioMetrics summarises a generated scenario. Percentages are 0..100.
type ScenarioMetrics struct {
	ConflictCount       int     `json:"conflictCount"`
	RoomUtilization     float64 `json:"roomUtilization"`
	FacultyWorkload     float64 `json:"facultyWorkload"`
	StudentSatisfaction float64 `json:"studentSatisfaction"`
	UnscheduledCount    int     `json:"unscheduledCount"`
}

// MetricsDelta is the difference between two scenarios' metrics (b - a).
type MetricsDelta struct {
	ConflictCount       int     `json:"conflictCount"`
	RoomUtilization     float64 `json:"roomUtilization"`
	FacultyWorkload     float64 `json:"facultyWorkload"`
	StudentSatisfaction float64 `json:"studentSatisfaction"`
	UnscheduledCount    int     `json:"unscheduledCount"`
}

// Scenario is a named what-if configuration and its last generated output.
type Scenario struct {
	ID                 string              `json:"id"`
	Name               string              `json:"name"`
	BaseScenarioID     *string             `json:"baseScenarioId,omitempty"`
	Parameters         ScenarioParameters  `json:"parameters"`
	Modifications      []Modification      `json:"modifications"`
	GeneratedTimetable *Timetable          `json:"generatedTimetable,omitempty"`
	Metrics            *ScenarioMetrics    `json:"metrics,omitempty"`
	Unscheduled        []UnscheduledCourse `json:"unscheduled,omitempty"`
	Status             ScenarioStatus      `json:"status"`
	CreatedAt          time.Time           `json:"createdAt"`
	UpdatedAt          time.Time           `json:"updatedAt"`
}

// HasBase reports whether the scenario derives from another scenario.
func (s Scenario) HasBase() bool {
	return s.BaseScenarioID != nil && *s.BaseScenarioID != ""
}
