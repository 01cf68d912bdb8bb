package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
)

type scenarioRow struct {
	ID                 string         `db:"id"`
	Name               string         `db:"name"`
	BaseScenarioID     sql.NullString `db:"base_scenario_id"`
	Parameters         types.JSONText `db:"parameters"`
	Modifications      types.JSONText `db:"modifications"`
	GeneratedTimetable types.JSONText `db:"generated_timetable"`
	Metrics            types.JSONText `db:"metrics"`
	Unscheduled        types.JSONText `db:"unscheduled"`
	Status             string         `db:"status"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

const scenarioColumns = `id, name, base_scenario_id, parameters, modifications, generated_timetable,
metrics, unscheduled, status, created_at, updated_at`

func newScenarioRow(s *models.Scenario) (scenarioRow, error) {
	row := scenarioRow{
		ID:        s.ID,
		Name:      s.Name,
		Status:    string(s.Status),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.HasBase() {
		row.BaseScenarioID = sql.NullString{String: *s.BaseScenarioID, Valid: true}
	}
	var err error
	if row.Parameters, err = encodeJSON(s.Parameters); err != nil {
		return row, fmt.Errorf("encode scenario parameters: %w", err)
	}
	mods := s.Modifications
	if mods == nil {
		mods = []models.Modification{}
	}
	if row.Modifications, err = encodeJSON(mods); err != nil {
		return row, fmt.Errorf("encode scenario modifications: %w", err)
	}
	if row.GeneratedTimetable, err = encodeJSON(s.GeneratedTimetable); err != nil {
		return row, fmt.Errorf("encode scenario timetable: %w", err)
	}
	if row.Metrics, err = encodeJSON(s.Metrics); err != nil {
		return row, fmt.Errorf("encode scenario metrics: %w", err)
	}
	if row.Unscheduled, err = encodeJSON(s.Unscheduled); err != nil {
		return row, fmt.Errorf("encode scenario unscheduled: %w", err)
	}
	return row, nil
}

func (row scenarioRow) toModel() (*models.Scenario, error) {
	s := &models.Scenario{
		ID:        row.ID,
		Name:      row.Name,
		Status:    models.ScenarioStatus(row.Status),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if row.BaseScenarioID.Valid {
		base := row.BaseScenarioID.String
		s.BaseScenarioID = &base
	}
	if err := decodeJSON(row.Parameters, &s.Parameters); err != nil {
		return nil, fmt.Errorf("decode scenario %s parameters: %w", row.ID, err)
	}
	if err := decodeJSON(row.Modifications, &s.Modifications); err != nil {
		return nil, fmt.Errorf("decode scenario %s modifications: %w", row.ID, err)
	}
	if !emptyJSON(row.GeneratedTimetable) {
		s.GeneratedTimetable = &models.Timetable{}
		if err := json.Unmarshal(row.GeneratedTimetable, s.GeneratedTimetable); err != nil {
			return nil, fmt.Errorf("decode scenario %s timetable: %w", row.ID, err)
		}
	}
	if !emptyJSON(row.Metrics) {
		s.Metrics = &models.ScenarioMetrics{}
		if err := json.Unmarshal(row.Metrics, s.Metrics); err != nil {
			return nil, fmt.Errorf("decode scenario %s metrics: %w", row.ID, err)
		}
	}
	if err := decodeJSON(row.Unscheduled, &s.Unscheduled); err != nil {
		return nil, fmt.Errorf("decode scenario %s unscheduled: %w", row.ID, err)
	}
	return s, nil
}

func encodeJSON(v interface{}) (types.JSONText, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return types.JSONText(raw), nil
}

// emptyJSON treats NULL, JSON null and the {} sqlx writes for empty values alike.
func emptyJSON(raw types.JSONText) bool {
	switch string(raw) {
	case "", "null", "{}":
		return true
	}
	return false
}

func decodeJSON(raw types.JSONText, dest interface{}) error {
	if emptyJSON(raw) {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

// ScenarioRepository persists what-if scenarios as JSONB documents.
type ScenarioRepository struct {
	db *sqlx.DB
}

// NewScenarioRepository constructs a ScenarioRepository.
func NewScenarioRepository(db *sqlx.DB) *ScenarioRepository {
	return &ScenarioRepository{db: db}
}

// Create inserts a scenario, assigning an id and timestamps when absent.
func (r *ScenarioRepository) Create(ctx context.Context, scenario *models.Scenario) error {
	if scenario.ID == "" {
		scenario.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if scenario.CreatedAt.IsZero() {
		scenario.CreatedAt = now
	}
	scenario.UpdatedAt = scenario.CreatedAt
	if scenario.Status == "" {
		scenario.Status = models.ScenarioDraft
	}

	row, err := newScenarioRow(scenario)
	if err != nil {
		return err
	}
	const query = `
INSERT INTO scenarios (id, name, base_scenario_id, parameters, modifications, generated_timetable,
	metrics, unscheduled, status, created_at, updated_at)
VALUES (:id, :name, :base_scenario_id, :parameters, :modifications, :generated_timetable,
	:metrics, :unscheduled, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("insert scenario: %w", err)
	}
	return nil
}

// FindByID loads a scenario or returns sql.ErrNoRows.
func (r *ScenarioRepository) FindByID(ctx context.Context, id string) (*models.Scenario, error) {
	query := `SELECT ` + scenarioColumns + ` FROM scenarios WHERE id = $1`
	var row scenarioRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return row.toModel()
}

// Update overwrites the mutable scenario fields.
func (r *ScenarioRepository) Update(ctx context.Context, scenario *models.Scenario) error {
	scenario.UpdatedAt = time.Now().UTC()
	row, err := newScenarioRow(scenario)
	if err != nil {
		return err
	}
	const query = `
UPDATE scenarios SET name = :name, parameters = :parameters, modifications = :modifications,
	generated_timetable = :generated_timetable, metrics = :metrics, unscheduled = :unscheduled,
	status = :status, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("update scenario: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("scenario rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns scenarios newest first, optionally filtered by status.
func (r *ScenarioRepository) List(ctx context.Context, status models.ScenarioStatus) ([]models.Scenario, error) {
	query := `SELECT ` + scenarioColumns + ` FROM scenarios`
	var args []interface{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC, id"

	var rows []scenarioRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	out := make([]models.Scenario, 0, len(rows))
	for _, row := range rows {
		s, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}
