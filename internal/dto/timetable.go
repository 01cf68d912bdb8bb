package dto

import "github.com/gaurav5327/Edu-Sync-sub000/internal/models"

// ScopeRequest identifies the class group an operation targets.
type ScopeRequest struct {
	Year     int    `json:"year" validate:"required,min=1,max=6"`
	Branch   string `json:"branch" validate:"required"`
	Division string `json:"division" validate:"required"`
}

// Scope converts the request into the domain scope.
func (r ScopeRequest) Scope() models.Scope {
	return models.Scope{Year: r.Year, Branch: r.Branch, Division: r.Division}
}

// GenerateTimetableResponse returns the stored timetable and any course left out.
type GenerateTimetableResponse struct {
	Timetable   models.Timetable           `json:"timetable"`
	Unscheduled []models.UnscheduledCourse `json:"unscheduled"`
	Conflicts   []models.Conflict          `json:"conflicts"`
}

// ConflictsResponse lists the conflicts of the scope's current timetable.
type ConflictsResponse struct {
	TimetableID string            `json:"timetableId"`
	Version     int               `json:"version"`
	Conflicts   []models.Conflict `json:"conflicts"`
	Cached      bool              `json:"cached"`
}

// ResolveResponse reports what the resolver changed.
type ResolveResponse struct {
	Timetable   models.Timetable           `json:"timetable"`
	Resolutions []models.AppliedResolution `json:"resolutions"`
	Unresolved  []models.Conflict          `json:"unresolved"`
	Saved       bool                       `json:"saved"`
}

// ManualChangeRequest submits a batch of editor changes against a known version.
type ManualChangeRequest struct {
	BaseVersion int                   `json:"baseVersion" validate:"min=0"`
	Changes     []models.ManualChange `json:"changes" validate:"required,min=1,dive"`
}

// CreateScenarioRequest defines a new what-if scenario.
type CreateScenarioRequest struct {
	Name           string                    `json:"name" validate:"required,max=120"`
	BaseScenarioID *string                   `json:"baseScenarioId"`
	Parameters     models.ScenarioParameters `json:"parameters"`
	Modifications  []models.Modification     `json:"modifications" validate:"omitempty,dive"`
}

// CloneScenarioRequest derives a scenario from an existing one.
type CloneScenarioRequest struct {
	Name          string                `json:"name" validate:"required,max=120"`
	Modifications []models.Modification `json:"modifications" validate:"omitempty,dive"`
}

// ScenarioComparison is the metric delta between two generated scenarios.
type ScenarioComparison struct {
	BaseID  string                 `json:"baseId"`
	OtherID string                 `json:"otherId"`
	Base    models.ScenarioMetrics `json:"base"`
	Other   models.ScenarioMetrics `json:"other"`
	Delta   models.MetricsDelta    `json:"delta"`
}
