package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/dto"
	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
	"github.com/gaurav5327/Edu-Sync-sub000/internal/repository"
	"github.com/gaurav5327/Edu-Sync-sub000/internal/service"
	"github.com/gaurav5327/Edu-Sync-sub000/pkg/cache"
	"github.com/gaurav5327/Edu-Sync-sub000/pkg/config"
	"github.com/gaurav5327/Edu-Sync-sub000/pkg/database"
	appErrors "github.com/gaurav5327/Edu-Sync-sub000/pkg/errors"
	"github.com/gaurav5327/Edu-Sync-sub000/pkg/jobs"
	"github.com/gaurav5327/Edu-Sync-sub000/pkg/logger"
)

const usage = `usage: timetabler <command> [flags]

commands:
  generate   -year -branch -division          build and store a new timetable
  show       -year -branch -division          print the current timetable
  conflicts  -year -branch -division          list conflicts of the current timetable
  resolve    -year -branch -division          repair conflicts and store the result
  edit       -changes FILE [-schedule ID]     apply a batch of pending manual changes
  history    -year -branch -division          list stored versions
  scenario   create|generate|clone|approve|archive|compare|list`

type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	db         *sqlx.DB
	redis      *redis.Client
	metrics    *service.MetricsService
	timetables *service.TimetableService
	scenarios  *service.ScenarioService
	queue      *jobs.Queue
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	os.Exit(run(os.Args[1], os.Args[2:]))
}

func run(command string, args []string) int {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Printf("failed to init logger: %v", err)
		return 1
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logr)
	if err != nil {
		logr.Error("failed to initialise", zap.Error(err))
		return 1
	}
	defer a.close()

	err = a.dispatch(ctx, command, args)
	a.pushMetrics(command)
	if err != nil {
		printError(err)
		return 1
	}
	return 0
}

func newApp(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*app, error) {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, continuing without cache and distributed locks", zap.Error(err))
			redisClient = nil
		}
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	courseRepo := repository.NewCourseRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	scenarioRepo := repository.NewScenarioRepository(db)

	var cacheSvc *service.CacheService
	var locker service.ScopeLocker
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Scheduler.ConflictCacheTTL, logr, cfg.Scheduler.CacheEnabled)
		locker = service.NewScopeLocker(cfg.Scheduler, repository.NewScopeLockRepository(redisClient), logr)
	} else {
		locker = service.NewScopeLocker(cfg.Scheduler, nil, logr)
	}

	timetables := service.NewTimetableService(
		courseRepo,
		roomRepo,
		timetableRepo,
		timetableRepo,
		locker,
		cacheSvc,
		metrics,
		validate,
		logr,
		service.TimetableServiceConfig{
			RequestTimeout:   cfg.Scheduler.RequestTimeout,
			ConflictCacheTTL: cfg.Scheduler.ConflictCacheTTL,
			MaxDailyHours:    cfg.Scheduler.MaxDailyHours,
			FacultyMaxLoad:   cfg.Scheduler.FacultyMaxLoad,
			BlockOtherScopes: cfg.Scheduler.BlockOtherScopes,
		},
	)

	scenarios := service.NewScenarioService(
		scenarioRepo,
		courseRepo,
		roomRepo,
		metrics,
		validate,
		logr,
		service.ScenarioServiceConfig{
			RequestTimeout: cfg.Scheduler.RequestTimeout,
			MaxLineage:     cfg.Scenarios.MaxLineage,
		},
	)

	queue := jobs.NewQueue("scenarios", scenarios.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Scenarios.Workers,
		MaxRetries: cfg.Scenarios.Retries,
		RetryDelay: cfg.Scenarios.RetryDelay,
		Logger:     logr,
	})
	scenarios.AttachQueue(queue)

	return &app{
		cfg:        cfg,
		logger:     logr,
		db:         db,
		redis:      redisClient,
		metrics:    metrics,
		timetables: timetables,
		scenarios:  scenarios,
		queue:      queue,
	}, nil
}

func (a *app) close() {
	a.queue.Stop()
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.db.Close()
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "generate":
		scope, err := parseScope(command, args)
		if err != nil {
			return err
		}
		resp, err := a.timetables.Generate(ctx, scope)
		if err != nil {
			return err
		}
		renderTimetable(resp.Timetable)
		renderUnscheduled(resp.Unscheduled)
		renderConflicts(resp.Conflicts)
		color.Green("stored version %d (%s)", resp.Timetable.Version, resp.Timetable.ID)
		return nil

	case "show":
		scope, err := parseScope(command, args)
		if err != nil {
			return err
		}
		tt, err := a.timetables.Current(ctx, scope)
		if err != nil {
			return err
		}
		renderTimetable(*tt)
		return nil

	case "conflicts":
		scope, err := parseScope(command, args)
		if err != nil {
			return err
		}
		resp, err := a.timetables.GetConflicts(ctx, scope)
		if err != nil {
			return err
		}
		renderConflicts(resp.Conflicts)
		if len(resp.Conflicts) == 0 {
			color.Green("version %d has no conflicts", resp.Version)
		}
		return nil

	case "resolve":
		scope, err := parseScope(command, args)
		if err != nil {
			return err
		}
		resp, err := a.timetables.ResolveConflicts(ctx, scope)
		if err != nil {
			return err
		}
		renderResolutions(resp.Resolutions)
		renderConflicts(resp.Unresolved)
		if resp.Saved {
			color.Green("stored version %d (%s)", resp.Timetable.Version, resp.Timetable.ID)
		} else {
			color.Yellow("nothing to resolve")
		}
		return nil

	case "edit":
		return a.edit(ctx, args)

	case "history":
		scope, err := parseScope(command, args)
		if err != nil {
			return err
		}
		versions, err := a.timetables.History(ctx, scope)
		if err != nil {
			return err
		}
		renderHistory(versions)
		return nil

	case "scenario":
		if len(args) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "scenario requires a subcommand")
		}
		return a.scenario(ctx, args[0], args[1:])

	default:
		fmt.Fprintln(os.Stderr, usage)
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown command %q", command))
	}
}

// edit submits the editor's pending changes as one batch. Flags override the
// schedule and base version recorded in the file.
func (a *app) edit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	scheduleID := fs.String("schedule", "", "timetable id the changes were made against")
	baseVersion := fs.Int("base-version", 0, "version the editor loaded (defaults to the schedule's version)")
	changesPath := fs.String("changes", "", "JSON file holding the pending changes")
	if err := fs.Parse(args); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid flags")
	}

	var pending models.PendingChanges
	if err := readJSON(*changesPath, &pending); err != nil {
		return err
	}
	if *scheduleID != "" {
		pending.ScheduleID = *scheduleID
	}
	if *baseVersion > 0 {
		pending.BaseVersion = *baseVersion
	}

	tt, err := a.timetables.ApplyManualChange(ctx, pending.ScheduleID, dto.ManualChangeRequest{
		BaseVersion: pending.BaseVersion,
		Changes:     pending.Changes,
	})
	if err != nil {
		return err
	}
	renderTimetable(*tt)
	color.Green("stored version %d (%s)", tt.Version, tt.ID)
	return nil
}

func (a *app) scenario(ctx context.Context, sub string, args []string) error {
	fs := flag.NewFlagSet("scenario "+sub, flag.ContinueOnError)
	id := fs.String("id", "", "scenario id")
	other := fs.String("other", "", "scenario to compare against -id")
	name := fs.String("name", "", "name of the cloned scenario")
	file := fs.String("file", "", "JSON request body")
	status := fs.String("status", "", "filter listed scenarios by status")
	async := fs.Bool("async", false, "generate on the background worker pool and wait")
	if err := fs.Parse(args); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid flags")
	}

	switch sub {
	case "create":
		var req dto.CreateScenarioRequest
		if err := readJSON(*file, &req); err != nil {
			return err
		}
		scenario, err := a.scenarios.Create(ctx, req)
		if err != nil {
			return err
		}
		renderScenarios([]models.Scenario{*scenario})
		return nil

	case "generate":
		if *async {
			return a.generateAsync(ctx, *id)
		}
		scenario, err := a.scenarios.Generate(ctx, *id)
		if err != nil {
			return err
		}
		renderScenarioResult(*scenario)
		return nil

	case "clone":
		req := dto.CloneScenarioRequest{Name: *name}
		if *file != "" {
			if err := readJSON(*file, &req.Modifications); err != nil {
				return err
			}
		}
		scenario, err := a.scenarios.Clone(ctx, *id, req)
		if err != nil {
			return err
		}
		renderScenarios([]models.Scenario{*scenario})
		return nil

	case "approve":
		scenario, err := a.scenarios.Approve(ctx, *id)
		if err != nil {
			return err
		}
		color.Green("scenario %s approved", scenario.ID)
		return nil

	case "archive":
		scenario, err := a.scenarios.Archive(ctx, *id)
		if err != nil {
			return err
		}
		color.Green("scenario %s archived", scenario.ID)
		return nil

	case "compare":
		cmp, err := a.scenarios.Compare(ctx, *id, *other)
		if err != nil {
			return err
		}
		renderComparison(*cmp)
		return nil

	case "list":
		list, err := a.scenarios.List(ctx, models.ScenarioStatus(*status))
		if err != nil {
			return err
		}
		renderScenarios(list)
		return nil
	}
	return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown scenario subcommand %q", sub))
}

func (a *app) generateAsync(ctx context.Context, id string) error {
	a.queue.Start(ctx)
	jobID, err := a.scenarios.GenerateAsync(ctx, id)
	if err != nil {
		return err
	}
	color.Cyan("queued job %s", jobID)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for a.queue.InFlight(service.ScenarioJobKey(id)) {
		select {
		case <-ctx.Done():
			return appErrors.Wrap(ctx.Err(), appErrors.ErrTimeout.Code, appErrors.ErrTimeout.Status, "interrupted while waiting for scenario generation")
		case <-ticker.C:
		}
	}
	scenario, err := a.scenarios.Get(ctx, id)
	if err != nil {
		return err
	}
	if scenario.Status != models.ScenarioGenerated {
		return appErrors.Clone(appErrors.ErrInternal, fmt.Sprintf("scenario %s finished as %s", id, scenario.Status))
	}
	renderScenarioResult(*scenario)
	return nil
}

func (a *app) pushMetrics(command string) {
	if a.cfg.Metrics.PushgatewayURL == "" {
		return
	}
	err := push.New(a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.JobName).
		Gatherer(a.metrics.Gatherer()).
		Grouping("command", command).
		Push()
	if err != nil {
		a.logger.Warn("failed to push metrics", zap.String("gateway", a.cfg.Metrics.PushgatewayURL), zap.Error(err))
	}
}

func parseScope(command string, args []string) (dto.ScopeRequest, error) {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	year := fs.Int("year", 0, "academic year of study")
	branch := fs.String("branch", "", "branch, e.g. CSE")
	division := fs.String("division", "", "division, e.g. A")
	if err := fs.Parse(args); err != nil {
		return dto.ScopeRequest{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid flags")
	}
	return dto.ScopeRequest{Year: *year, Branch: *branch, Division: *division}, nil
}

func readJSON(path string, dest interface{}) error {
	if path == "" {
		return appErrors.Clone(appErrors.ErrValidation, "a JSON file is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "cannot read "+path)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid JSON in "+path)
	}
	return nil
}

func printError(err error) {
	appErr := appErrors.FromError(err)
	color.Red("%s: %s", appErr.Code, appErr.Error())

	var violation *models.ConstraintViolationError
	if errors.As(err, &violation) {
		renderConflicts(violation.Conflicts)
	}
}
