package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/dto"
	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
	"github.com/gaurav5327/Edu-Sync-sub000/internal/scheduler"
	appErrors "github.com/gaurav5327/Edu-Sync-sub000/pkg/errors"
	"github.com/gaurav5327/Edu-Sync-sub000/pkg/jobs"
)

// JobTypeScenarioGenerate identifies background scenario generation jobs.
const JobTypeScenarioGenerate = "scenario.generate"

// ScenarioJobKey is the queue key generation jobs for a scenario share.
func ScenarioJobKey(id string) string {
	return "scenario:" + id
}

type scenarioStore interface {
	Create(ctx context.Context, scenario *models.Scenario) error
	FindByID(ctx context.Context, id string) (*models.Scenario, error)
	Update(ctx context.Context, scenario *models.Scenario) error
	List(ctx context.Context, status models.ScenarioStatus) ([]models.Scenario, error)
}

type courseCatalog interface {
	ListAll(ctx context.Context) ([]models.Course, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// ScenarioServiceConfig governs scenario operations.
type ScenarioServiceConfig struct {
	RequestTimeout time.Duration
	MaxLineage     int
}

// ScenarioService manages what-if scenarios. Generation never touches the
// live timetables; it runs against a copy of the catalogue.
type ScenarioService struct {
	scenarios scenarioStore
	courses   courseCatalog
	rooms     roomReader
	queue     jobEnqueuer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ScenarioServiceConfig
	now       func() time.Time
}

// NewScenarioService wires scenario dependencies.
func NewScenarioService(
	scenarios scenarioStore,
	courses courseCatalog,
	rooms roomReader,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScenarioServiceConfig,
) *ScenarioService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = time.Minute
	}
	if cfg.MaxLineage <= 0 {
		cfg.MaxLineage = 16
	}
	return &ScenarioService{
		scenarios: scenarios,
		courses:   courses,
		rooms:     rooms,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AttachQueue enables GenerateAsync.
func (s *ScenarioService) AttachQueue(queue jobEnqueuer) {
	s.queue = queue
}

// Create stores a new draft scenario.
func (s *ScenarioService) Create(ctx context.Context, req dto.CreateScenarioRequest) (*models.Scenario, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scenario payload")
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	scenario := &models.Scenario{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Parameters:    req.Parameters,
		Modifications: req.Modifications,
		Status:        models.ScenarioDraft,
		CreatedAt:     s.now(),
	}
	if req.BaseScenarioID != nil && *req.BaseScenarioID != "" {
		base, err := s.load(ctx, *req.BaseScenarioID)
		if err != nil {
			return nil, err
		}
		depth, err := s.lineageDepth(ctx, base)
		if err != nil {
			return nil, err
		}
		if depth+1 > s.cfg.MaxLineage {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("scenario lineage may not exceed %d ancestors", s.cfg.MaxLineage))
		}
		baseID := base.ID
		scenario.BaseScenarioID = &baseID
	}

	if err := s.scenarios.Create(ctx, scenario); err != nil {
		return nil, storeError(err, "failed to create scenario")
	}
	s.logger.Info("scenario created", zap.String("scenario_id", scenario.ID), zap.String("name", scenario.Name))
	return scenario, nil
}

// Get loads a scenario.
func (s *ScenarioService) Get(ctx context.Context, id string) (*models.Scenario, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()
	return s.load(ctx, id)
}

// List returns scenarios, optionally filtered by status.
func (s *ScenarioService) List(ctx context.Context, status models.ScenarioStatus) ([]models.Scenario, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()
	list, err := s.scenarios.List(ctx, status)
	if err != nil {
		return nil, storeError(err, "failed to list scenarios")
	}
	return list, nil
}

// Generate replays the scenario's lineage over the live catalogue, generates
// its timetable and stores the result with metrics.
func (s *ScenarioService) Generate(ctx context.Context, id string) (*models.Scenario, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	scenario, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	switch scenario.Status {
	case models.ScenarioApproved, models.ScenarioArchived:
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("scenario is %s and can no longer be regenerated", scenario.Status))
	}

	lineage, err := s.lineage(ctx, scenario)
	if err != nil {
		return nil, err
	}
	live, err := s.liveSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	base, err := scheduler.WorkingSet(live, lineage)
	if err != nil {
		s.metrics.ObserveScenarioRun("failed")
		return nil, err
	}
	generated, err := scheduler.GenerateScenario(*scenario, base)
	if err != nil {
		s.metrics.ObserveScenarioRun("failed")
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, appErrors.ErrTimeout.Message)
	}

	generated.GeneratedTimetable.ID = uuid.NewString()
	generated.GeneratedTimetable.CreatedAt = s.now()
	if err := s.scenarios.Update(ctx, &generated); err != nil {
		return nil, storeError(err, "failed to store scenario result")
	}
	s.metrics.ObserveScenarioRun("generated")
	s.logger.Info("scenario generated",
		zap.String("scenario_id", generated.ID),
		zap.Int("conflicts", generated.Metrics.ConflictCount),
		zap.Int("unscheduled", generated.Metrics.UnscheduledCount),
		zap.Float64("room_utilization", generated.Metrics.RoomUtilization),
	)
	return &generated, nil
}

// GenerateAsync queues generation on the worker pool and returns the job id.
// A scenario has at most one generation queued or running.
func (s *ScenarioService) GenerateAsync(ctx context.Context, id string) (string, error) {
	if s.queue == nil {
		return "", appErrors.Clone(appErrors.ErrPreconditionFailed, "background generation is not configured")
	}
	scenario, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if scenario.Status == models.ScenarioApproved || scenario.Status == models.ScenarioArchived {
		return "", appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("scenario is %s and can no longer be regenerated", scenario.Status))
	}

	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    JobTypeScenarioGenerate,
		Key:     ScenarioJobKey(scenario.ID),
		Payload: scenario.ID,
	}
	if err := s.queue.Enqueue(job); err != nil {
		if errors.Is(err, jobs.ErrDuplicate) {
			return "", appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "scenario generation already in progress")
		}
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue scenario generation")
	}
	s.logger.Info("scenario generation queued", zap.String("scenario_id", scenario.ID), zap.String("job_id", job.ID))
	return job.ID, nil
}

// HandleJob is the worker-pool handler for scenario generation. Client errors
// are logged and dropped since a retry cannot fix them.
func (s *ScenarioService) HandleJob(ctx context.Context, job jobs.Job) error {
	id, ok := job.Payload.(string)
	if !ok || job.Type != JobTypeScenarioGenerate {
		s.logger.Error("unexpected scenario job", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	_, err := s.Generate(ctx, id)
	if err == nil {
		return nil
	}
	switch appErrors.FromError(err).Code {
	case appErrors.ErrValidation.Code, appErrors.ErrNotFound.Code, appErrors.ErrPreconditionFailed.Code:
		s.logger.Warn("scenario generation rejected", zap.String("scenario_id", id), zap.Error(err))
		return nil
	}
	return err
}

// Clone derives a draft scenario that inherits source's working set and parameters.
func (s *ScenarioService) Clone(ctx context.Context, id string, req dto.CloneScenarioRequest) (*models.Scenario, error) {
	source, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Create(ctx, dto.CreateScenarioRequest{
		Name:           req.Name,
		BaseScenarioID: &source.ID,
		Parameters:     source.Parameters,
		Modifications:  req.Modifications,
	})
}

// Approve marks a generated scenario as approved.
func (s *ScenarioService) Approve(ctx context.Context, id string) (*models.Scenario, error) {
	return s.transition(ctx, id, models.ScenarioApproved, models.ScenarioGenerated)
}

// Archive retires a scenario. Archiving twice is a no-op.
func (s *ScenarioService) Archive(ctx context.Context, id string) (*models.Scenario, error) {
	return s.transition(ctx, id, models.ScenarioArchived, models.ScenarioDraft, models.ScenarioGenerated, models.ScenarioApproved)
}

// Compare reports other's metrics relative to base's.
func (s *ScenarioService) Compare(ctx context.Context, baseID, otherID string) (*dto.ScenarioComparison, error) {
	base, err := s.Get(ctx, baseID)
	if err != nil {
		return nil, err
	}
	other, err := s.Get(ctx, otherID)
	if err != nil {
		return nil, err
	}
	for _, sc := range []*models.Scenario{base, other} {
		if sc.Metrics == nil {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("scenario %s has not been generated", sc.ID))
		}
	}
	return &dto.ScenarioComparison{
		BaseID:  base.ID,
		OtherID: other.ID,
		Base:    *base.Metrics,
		Other:   *other.Metrics,
		Delta:   scheduler.CompareMetrics(*base.Metrics, *other.Metrics),
	}, nil
}

func (s *ScenarioService) transition(ctx context.Context, id string, to models.ScenarioStatus, from ...models.ScenarioStatus) (*models.Scenario, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	scenario, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if scenario.Status == to {
		return scenario, nil
	}
	if !lo.Contains(from, scenario.Status) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("scenario cannot move from %s to %s", scenario.Status, to))
	}
	scenario.Status = to
	if err := s.scenarios.Update(ctx, scenario); err != nil {
		return nil, storeError(err, "failed to update scenario")
	}
	s.logger.Info("scenario status changed", zap.String("scenario_id", scenario.ID), zap.String("status", string(to)))
	return scenario, nil
}

func (s *ScenarioService) load(ctx context.Context, id string) (*models.Scenario, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "scenario id is required")
	}
	scenario, err := s.scenarios.FindByID(ctx, id)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("scenario %s not found", id))
	}
	return scenario, nil
}

// lineage returns the modifications of every ancestor, root first.
func (s *ScenarioService) lineage(ctx context.Context, scenario *models.Scenario) ([][]models.Modification, error) {
	var chain [][]models.Modification
	seen := map[string]bool{scenario.ID: true}
	current := scenario
	for current.HasBase() {
		if len(chain) >= s.cfg.MaxLineage {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("scenario lineage exceeds %d ancestors", s.cfg.MaxLineage))
		}
		baseID := *current.BaseScenarioID
		if seen[baseID] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("scenario lineage of %s is cyclic", scenario.ID))
		}
		seen[baseID] = true
		base, err := s.load(ctx, baseID)
		if err != nil {
			return nil, err
		}
		chain = append(chain, base.Modifications)
		current = base
	}
	return lo.Reverse(chain), nil
}

func (s *ScenarioService) lineageDepth(ctx context.Context, scenario *models.Scenario) (int, error) {
	chain, err := s.lineage(ctx, scenario)
	if err != nil {
		return 0, err
	}
	return len(chain), nil
}

func (s *ScenarioService) liveSnapshot(ctx context.Context) (scheduler.Snapshot, error) {
	courses, err := s.courses.ListAll(ctx)
	if err != nil {
		return scheduler.Snapshot{}, storeError(err, "failed to load courses")
	}
	rooms, err := s.rooms.FindByCriteria(ctx, models.RoomCriteria{})
	if err != nil {
		return scheduler.Snapshot{}, storeError(err, "failed to load rooms")
	}
	return scheduler.Snapshot{Courses: courses, Rooms: rooms}, nil
}
