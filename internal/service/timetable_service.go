package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/dto"
	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
	"github.com/gaurav5327/Edu-Sync-sub000/internal/repository"
	"github.com/gaurav5327/Edu-Sync-sub000/internal/scheduler"
	appErrors "github.com/gaurav5327/Edu-Sync-sub000/pkg/errors"
	"github.com/gaurav5327/Edu-Sync-sub000/pkg/logger"
)

type courseReader interface {
	AllForScope(ctx context.Context, year int, branch, division string) ([]models.Course, error)
	ListByIDs(ctx context.Context, ids []string) ([]models.Course, error)
}

type roomReader interface {
	FindByCriteria(ctx context.Context, criteria models.RoomCriteria) ([]models.Room, error)
}

type timetableStore interface {
	LoadLatest(ctx context.Context, scope models.Scope) (*models.Timetable, error)
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, tt *models.Timetable, expectedVersion int) error
	ListLatestExcept(ctx context.Context, scope models.Scope) ([]models.Timetable, error)
	ListVersions(ctx context.Context, scope models.Scope) ([]models.TimetableVersion, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// TimetableServiceConfig governs timetable operations.
type TimetableServiceConfig struct {
	RequestTimeout   time.Duration
	ConflictCacheTTL time.Duration
	MaxDailyHours    int
	FacultyMaxLoad   int
	BlockOtherScopes bool
}

// TimetableService generates, inspects, repairs and edits scope timetables.
// Every write runs under the scope lock and stores a new version.
type TimetableService struct {
	courses    courseReader
	rooms      roomReader
	timetables timetableStore
	tx         txProvider
	locker     ScopeLocker
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        TimetableServiceConfig
	now        func() time.Time
}

// NewTimetableService wires timetable dependencies.
func NewTimetableService(
	courses courseReader,
	rooms roomReader,
	timetables timetableStore,
	tx txProvider,
	locker ScopeLocker,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewLocalScopeLocker()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &TimetableService{
		courses:    courses,
		rooms:      rooms,
		timetables: timetables,
		tx:         tx,
		locker:     locker,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Generate builds a fresh timetable for the scope from its courses and stores it
// as the next version. Courses that could not be placed are reported, not dropped.
func (s *TimetableService) Generate(ctx context.Context, req dto.ScopeRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scope")
	}
	scope := req.Scope()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	unlock, err := s.locker.Lock(ctx, scope.Key())
	if err != nil {
		return nil, err
	}
	defer unlock()

	courses, err := s.courses.AllForScope(ctx, scope.Year, scope.Branch, scope.Division)
	if err != nil {
		return nil, storeError(err, "failed to load courses")
	}
	if len(courses) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no courses defined for this scope")
	}
	rooms, err := s.rooms.FindByCriteria(ctx, models.RoomCriteria{Year: scope.Year})
	if err != nil {
		return nil, storeError(err, "failed to load rooms")
	}
	blocked, err := s.blockedEntries(ctx, scope)
	if err != nil {
		return nil, err
	}
	current, err := s.currentVersion(ctx, scope)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := scheduler.Generate(courses, rooms, scheduler.Constraints{
		MaxDailyHours:  s.cfg.MaxDailyHours,
		FacultyMaxLoad: s.cfg.FacultyMaxLoad,
		Blocked:        blocked,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveGeneration(time.Since(start), len(result.Unscheduled))

	tt := result.Timetable
	tt.Year, tt.Branch, tt.Division = scope.Year, scope.Branch, scope.Division
	if err := s.save(ctx, &tt, current); err != nil {
		return nil, err
	}

	fields := append(logger.ScopeFields(scope.Year, scope.Branch, scope.Division),
		zap.Int("version", tt.Version),
		zap.Int("courses", len(courses)),
		zap.Int("unscheduled", len(result.Unscheduled)),
	)
	s.logger.Info("timetable generated", fields...)
	for _, u := range result.Unscheduled {
		s.logger.Warn("course left unscheduled", zap.String("course_id", u.Course.ID), zap.String("reason", u.Reason))
	}

	return &dto.GenerateTimetableResponse{
		Timetable:   tt,
		Unscheduled: lo.Ternary(result.Unscheduled == nil, []models.UnscheduledCourse{}, result.Unscheduled),
		Conflicts:   scheduler.Detect(tt),
	}, nil
}

// Current returns the scope's latest stored timetable.
func (s *TimetableService) Current(ctx context.Context, req dto.ScopeRequest) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scope")
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()
	return s.latest(ctx, req.Scope())
}

// GetConflicts detects conflicts in the scope's current timetable. Results are
// cached per stored version, so a new version never sees a stale list.
func (s *TimetableService) GetConflicts(ctx context.Context, req dto.ScopeRequest) (*dto.ConflictsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scope")
	}
	scope := req.Scope()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	tt, err := s.latest(ctx, scope)
	if err != nil {
		return nil, err
	}

	resp := &dto.ConflictsResponse{TimetableID: tt.ID, Version: tt.Version}
	key := conflictsCacheKey(scope, tt.Version)
	if hit, _ := s.cache.Get(ctx, key, &resp.Conflicts); hit {
		resp.Cached = true
		return resp, nil
	}

	resp.Conflicts = scheduler.Detect(*tt)
	s.metrics.ObserveConflicts(len(resp.Conflicts))
	_ = s.cache.Set(ctx, key, resp.Conflicts, s.cfg.ConflictCacheTTL)
	return resp, nil
}

// ResolveConflicts runs the resolver over the scope's current conflicts and
// stores the repaired timetable when anything changed.
func (s *TimetableService) ResolveConflicts(ctx context.Context, req dto.ScopeRequest) (*dto.ResolveResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scope")
	}
	scope := req.Scope()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	unlock, err := s.locker.Lock(ctx, scope.Key())
	if err != nil {
		return nil, err
	}
	defer unlock()

	tt, err := s.latest(ctx, scope)
	if err != nil {
		return nil, err
	}
	conflicts := scheduler.Detect(*tt)
	if len(conflicts) == 0 {
		return &dto.ResolveResponse{
			Timetable:   *tt,
			Resolutions: []models.AppliedResolution{},
			Unresolved:  []models.Conflict{},
		}, nil
	}

	rooms, err := s.rooms.FindByCriteria(ctx, models.RoomCriteria{Year: scope.Year})
	if err != nil {
		return nil, storeError(err, "failed to load rooms")
	}
	blocked, err := s.blockedEntries(ctx, scope)
	if err != nil {
		return nil, err
	}
	result := scheduler.Resolve(*tt, conflicts, scheduler.RoomList(rooms), scheduler.Constraints{
		MaxDailyHours: s.cfg.MaxDailyHours,
		Blocked:       blocked,
	})
	s.metrics.ObserveResolutions(result.Resolutions, len(result.Unresolved))

	resp := &dto.ResolveResponse{
		Timetable:   result.Timetable,
		Resolutions: lo.Ternary(result.Resolutions == nil, []models.AppliedResolution{}, result.Resolutions),
		Unresolved:  result.Unresolved,
	}
	if len(result.Resolutions) == 0 {
		return resp, nil
	}

	repaired := result.Timetable
	repaired.ID = ""
	repaired.CreatedAt = time.Time{}
	if err := s.save(ctx, &repaired, tt.Version); err != nil {
		return nil, err
	}
	resp.Timetable = repaired
	resp.Saved = true

	s.logger.Info("timetable conflicts resolved", append(logger.ScopeFields(scope.Year, scope.Branch, scope.Division),
		zap.Int("version", repaired.Version),
		zap.Int("resolved", len(result.Resolutions)),
		zap.Int("unresolved", len(result.Unresolved)),
	)...)
	return resp, nil
}

// ApplyManualChange validates a batch of edits against the stored timetable
// and saves it as a new version only if it introduces no conflict. A rejected
// batch returns ErrConstraintViolation wrapping the conflict list.
func (s *TimetableService) ApplyManualChange(ctx context.Context, scheduleID string, req dto.ManualChangeRequest) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid manual change payload")
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	target, err := s.timetables.FindByID(ctx, scheduleID)
	if err != nil {
		return nil, storeError(err, "timetable not found")
	}
	scope := target.Scope()
	baseVersion := req.BaseVersion
	if baseVersion == 0 {
		baseVersion = target.Version
	}

	unlock, err := s.locker.Lock(ctx, scope.Key())
	if err != nil {
		return nil, err
	}
	defer unlock()

	latest, err := s.latest(ctx, scope)
	if err != nil {
		return nil, err
	}
	if latest.Version != baseVersion {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("timetable moved to version %d since version %d was loaded", latest.Version, baseVersion))
	}

	catalog, err := s.catalogFor(ctx, req.Changes)
	if err != nil {
		return nil, err
	}
	if catalog.Blocked, err = s.blockedEntries(ctx, scope); err != nil {
		return nil, err
	}
	result, err := scheduler.ValidateChanges(*latest, req.Changes, catalog)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveManualEdit(result.Accepted)
	if !result.Accepted {
		violation := &models.ConstraintViolationError{
			Message:   fmt.Sprintf("%d conflicts introduced by the proposed change", len(result.Conflicts)),
			Conflicts: result.Conflicts,
		}
		s.logger.Info("manual change rejected", append(logger.ScopeFields(scope.Year, scope.Branch, scope.Division),
			zap.Int("conflicts", len(result.Conflicts)))...)
		return nil, appErrors.Wrap(violation, appErrors.ErrConstraintViolation.Code, appErrors.ErrConstraintViolation.Status, violation.Message)
	}

	edited := result.Timetable
	edited.ID = ""
	edited.CreatedAt = time.Time{}
	if err := s.save(ctx, &edited, latest.Version); err != nil {
		return nil, err
	}
	s.logger.Info("manual change applied", append(logger.ScopeFields(scope.Year, scope.Branch, scope.Division),
		zap.Int("version", edited.Version), zap.Int("changes", len(req.Changes)))...)
	return &edited, nil
}

// History lists the stored versions of a scope, newest first.
func (s *TimetableService) History(ctx context.Context, req dto.ScopeRequest) ([]models.TimetableVersion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scope")
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	versions, err := s.timetables.ListVersions(ctx, req.Scope())
	if err != nil {
		return nil, storeError(err, "failed to list timetable versions")
	}
	if versions == nil {
		versions = []models.TimetableVersion{}
	}
	return versions, nil
}

func (s *TimetableService) latest(ctx context.Context, scope models.Scope) (*models.Timetable, error) {
	tt, err := s.timetables.LoadLatest(ctx, scope)
	if err != nil {
		return nil, storeError(err, "no timetable stored for this scope")
	}
	return tt, nil
}

func (s *TimetableService) currentVersion(ctx context.Context, scope models.Scope) (int, error) {
	tt, err := s.timetables.LoadLatest(ctx, scope)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storeError(err, "failed to load current timetable")
	}
	return tt.Version, nil
}

// blockedEntries collects the bookings other scopes hold on shared rooms and instructors.
func (s *TimetableService) blockedEntries(ctx context.Context, scope models.Scope) ([]models.ScheduleEntry, error) {
	if !s.cfg.BlockOtherScopes {
		return nil, nil
	}
	others, err := s.timetables.ListLatestExcept(ctx, scope)
	if err != nil {
		return nil, storeError(err, "failed to load other timetables")
	}
	var blocked []models.ScheduleEntry
	for _, tt := range others {
		blocked = append(blocked, lo.Filter(tt.Entries, func(e models.ScheduleEntry, _ int) bool {
			return e.Occupied()
		})...)
	}
	return blocked, nil
}

func (s *TimetableService) catalogFor(ctx context.Context, changes []models.ManualChange) (scheduler.Catalog, error) {
	ids := lo.Uniq(lo.FilterMap(changes, func(c models.ManualChange, _ int) (string, bool) {
		return c.CourseID, !c.IsDelete()
	}))
	courses, err := s.courses.ListByIDs(ctx, ids)
	if err != nil {
		return scheduler.Catalog{}, storeError(err, "failed to load courses")
	}
	rooms, err := s.rooms.FindByCriteria(ctx, models.RoomCriteria{})
	if err != nil {
		return scheduler.Catalog{}, storeError(err, "failed to load rooms")
	}
	return scheduler.Catalog{Courses: courses, Rooms: rooms}, nil
}

// save stores tt as the version after expected and drops cached conflict lists.
func (s *TimetableService) save(ctx context.Context, tt *models.Timetable, expected int) error {
	if err := ctx.Err(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, appErrors.ErrTimeout.Message)
	}
	if tt.ID == "" {
		tt.ID = uuid.NewString()
	}
	if tt.CreatedAt.IsZero() {
		tt.CreatedAt = s.now()
	}

	if s.tx == nil {
		if err := s.timetables.CreateVersioned(ctx, nil, tt, expected); err != nil {
			return storeError(err, "failed to save timetable")
		}
	} else {
		tx, err := s.tx.BeginTxx(ctx, nil)
		if err != nil {
			return storeError(err, "failed to begin transaction")
		}
		if err := s.timetables.CreateVersioned(ctx, tx, tt, expected); err != nil {
			_ = tx.Rollback()
			return storeError(err, "failed to save timetable")
		}
		if err := tx.Commit(); err != nil {
			return storeError(err, "failed to commit timetable")
		}
	}

	_ = s.cache.Invalidate(ctx, conflictsCachePattern(tt.Scope()))
	return nil
}

// storeError maps persistence failures onto typed errors.
func storeError(err error, message string) error {
	var typed *appErrors.Error
	switch {
	case errors.As(err, &typed):
		return typed
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, message)
	case errors.Is(err, repository.ErrStaleVersion):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "timetable was modified concurrently")
	case errors.Is(err, context.DeadlineExceeded):
		return appErrors.Wrap(err, appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, appErrors.ErrTimeout.Message)
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
	}
}
