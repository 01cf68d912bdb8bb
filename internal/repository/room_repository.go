package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
)

// RoomRepository reads the room inventory.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs a RoomRepository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// FindByCriteria returns rooms matching the criteria, smallest first. A room
// with no allowed years is open to every year.
func (r *RoomRepository) FindByCriteria(ctx context.Context, criteria models.RoomCriteria) ([]models.Room, error) {
	base := "FROM rooms WHERE 1=1"
	var conditions []string
	var args []interface{}

	if criteria.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, string(criteria.Type))
	}
	if criteria.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("(cardinality(allowed_years) = 0 OR $%d = ANY(allowed_years))", len(args)+1))
		args = append(args, criteria.Year)
	}
	if criteria.Department != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(department) = LOWER($%d)", len(args)+1))
		args = append(args, criteria.Department)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT id, name, capacity, type, department, allowed_years, is_available %s ORDER BY capacity, name, id", base)
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, fmt.Errorf("find rooms: %w", err)
	}
	return rooms, nil
}
