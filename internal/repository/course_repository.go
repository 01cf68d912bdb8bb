package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
)

const courseColumns = `c.id, c.code, c.name, c.instructor_id, COALESCE(i.name, '') AS instructor_name,
c.duration_minutes, c.lecture_type, c.capacity, c.preferred_time_slots, c.year, c.branch, c.division,
c.credits, c.category, c.created_at`

// CourseRepository reads the course catalogue maintained by course management.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs a CourseRepository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// AllForScope returns the courses of one class group in creation order.
func (r *CourseRepository) AllForScope(ctx context.Context, year int, branch, division string) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + `
FROM courses c LEFT JOIN instructors i ON i.id = c.instructor_id
WHERE c.year = $1 AND c.branch = $2 AND c.division = $3
ORDER BY c.created_at, c.id`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, year, branch, division); err != nil {
		return nil, fmt.Errorf("list courses for scope: %w", err)
	}
	return courses, nil
}

// ListAll returns the whole catalogue in creation order.
func (r *CourseRepository) ListAll(ctx context.Context) ([]models.Course, error) {
	query := `SELECT ` + courseColumns + `
FROM courses c LEFT JOIN instructors i ON i.id = c.instructor_id
ORDER BY c.created_at, c.id`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	return courses, nil
}

// ListByIDs loads the given courses. Unknown ids are skipped.
func (r *CourseRepository) ListByIDs(ctx context.Context, ids []string) ([]models.Course, error) {
	if len(ids) == 0 {
		return []models.Course{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+courseColumns+`
FROM courses c LEFT JOIN instructors i ON i.id = c.instructor_id
WHERE c.id IN (?)
ORDER BY c.created_at, c.id`, ids)
	if err != nil {
		return nil, fmt.Errorf("build course lookup: %w", err)
	}
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list courses by id: %w", err)
	}
	return courses, nil
}
