package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
)

// ErrStaleVersion is returned when another writer stored a newer version first.
var ErrStaleVersion = errors.New("timetable version is stale")

const uniqueViolation = "23505"

type timetableRow struct {
	ID        string         `db:"id"`
	Year      int            `db:"year"`
	Branch    string         `db:"branch"`
	Division  string         `db:"division"`
	Version   int            `db:"version"`
	Entries   types.JSONText `db:"entries"`
	CreatedAt time.Time      `db:"created_at"`
}

func (row timetableRow) toModel() (*models.Timetable, error) {
	tt := &models.Timetable{
		ID:        row.ID,
		Year:      row.Year,
		Branch:    row.Branch,
		Division:  row.Division,
		Version:   row.Version,
		CreatedAt: row.CreatedAt,
	}
	if len(row.Entries) > 0 {
		if err := json.Unmarshal(row.Entries, &tt.Entries); err != nil {
			return nil, fmt.Errorf("decode timetable %s entries: %w", row.ID, err)
		}
	}
	return tt, nil
}

const timetableColumns = `id, year, branch, division, version, entries, created_at`

// TimetableRepository stores every saved version of a scope's timetable. The
// latest version is the scope's current timetable.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository constructs a TimetableRepository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

// BeginTxx starts a transaction on the underlying database.
func (r *TimetableRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

func (r *TimetableRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// LoadLatest returns the newest version for the scope or sql.ErrNoRows.
func (r *TimetableRepository) LoadLatest(ctx context.Context, scope models.Scope) (*models.Timetable, error) {
	query := `SELECT ` + timetableColumns + ` FROM timetables
WHERE year = $1 AND branch = $2 AND division = $3 ORDER BY version DESC LIMIT 1`
	var row timetableRow
	if err := r.db.GetContext(ctx, &row, query, scope.Year, scope.Branch, scope.Division); err != nil {
		return nil, err
	}
	return row.toModel()
}

// FindByID loads a stored version by id or returns sql.ErrNoRows.
func (r *TimetableRepository) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	query := `SELECT ` + timetableColumns + ` FROM timetables WHERE id = $1`
	var row timetableRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return row.toModel()
}

// CreateVersioned stores tt as version expectedVersion+1 of its scope. It
// returns ErrStaleVersion when the scope has moved past expectedVersion.
func (r *TimetableRepository) CreateVersioned(ctx context.Context, exec sqlx.ExtContext, tt *models.Timetable, expectedVersion int) error {
	if tt == nil {
		return fmt.Errorf("timetable payload is nil")
	}
	if tt.Year <= 0 || tt.Branch == "" || tt.Division == "" {
		return fmt.Errorf("year, branch and division are required")
	}
	target := r.exec(exec)

	const nextVersionQuery = `SELECT COALESCE(MAX(version), 0) + 1 FROM timetables WHERE year = $1 AND branch = $2 AND division = $3`
	var next int
	if err := sqlx.GetContext(ctx, target, &next, nextVersionQuery, tt.Year, tt.Branch, tt.Division); err != nil {
		return fmt.Errorf("compute next timetable version: %w", err)
	}
	if next != expectedVersion+1 {
		return fmt.Errorf("scope at version %d, expected %d: %w", next-1, expectedVersion, ErrStaleVersion)
	}

	entries, err := json.Marshal(tt.Entries)
	if err != nil {
		return fmt.Errorf("encode timetable entries: %w", err)
	}
	row := timetableRow{
		ID:        tt.ID,
		Year:      tt.Year,
		Branch:    tt.Branch,
		Division:  tt.Division,
		Version:   next,
		Entries:   types.JSONText(entries),
		CreatedAt: tt.CreatedAt,
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}

	const insertQuery = `
INSERT INTO timetables (id, year, branch, division, version, entries, created_at)
VALUES (:id, :year, :branch, :division, :version, :entries, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, insertQuery, row); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("insert timetable version %d: %w", next, ErrStaleVersion)
		}
		return fmt.Errorf("insert timetable: %w", err)
	}

	tt.ID = row.ID
	tt.Version = row.Version
	tt.CreatedAt = row.CreatedAt
	return nil
}

// ListLatestExcept returns the current timetable of every other scope.
func (r *TimetableRepository) ListLatestExcept(ctx context.Context, scope models.Scope) ([]models.Timetable, error) {
	query := `SELECT DISTINCT ON (year, branch, division) ` + timetableColumns + `
FROM timetables WHERE NOT (year = $1 AND branch = $2 AND division = $3)
ORDER BY year, branch, division, version DESC`
	var rows []timetableRow
	if err := r.db.SelectContext(ctx, &rows, query, scope.Year, scope.Branch, scope.Division); err != nil {
		return nil, fmt.Errorf("list other timetables: %w", err)
	}
	out := make([]models.Timetable, 0, len(rows))
	for _, row := range rows {
		tt, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, *tt)
	}
	return out, nil
}

// ListVersions returns the stored versions of a scope, newest first.
func (r *TimetableRepository) ListVersions(ctx context.Context, scope models.Scope) ([]models.TimetableVersion, error) {
	const query = `SELECT id, version, created_at FROM timetables
WHERE year = $1 AND branch = $2 AND division = $3 ORDER BY version DESC`
	var versions []models.TimetableVersion
	if err := r.db.SelectContext(ctx, &versions, query, scope.Year, scope.Branch, scope.Division); err != nil {
		return nil, fmt.Errorf("list timetable versions: %w", err)
	}
	return versions, nil
}
