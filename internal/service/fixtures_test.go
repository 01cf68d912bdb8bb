package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/gaurav5327/Edu-Sync-sub000/internal/models"
	"github.com/gaurav5327/Edu-Sync-sub000/internal/repository"
	appErrors "github.com/gaurav5327/Edu-Sync-sub000/pkg/errors"
)

var testScope = models.Scope{Year: 2, Branch: "CSE", Division: "A"}

func serviceCourse(id, instructor string, order int) models.Course {
	return models.Course{
		ID:              id,
		Code:            strings.ToUpper(id),
		Name:            "Course " + id,
		InstructorID:    instructor,
		DurationMinutes: 60,
		LectureType:     models.LectureTheory,
		Capacity:        30,
		Year:            testScope.Year,
		Branch:          testScope.Branch,
		Division:        testScope.Division,
		CreatedAt:       time.Date(2024, 7, 1, 8, order, 0, 0, time.UTC),
	}
}

func serviceRoom(id string, capacity int) models.Room {
	return models.Room{ID: id, Name: "Room " + id, Capacity: capacity, Type: models.RoomClassroom, IsAvailable: true}
}

func booked(course models.Course, room models.Room, day models.Day, slot string) models.ScheduleEntry {
	return models.ScheduleEntry{Day: day, StartTime: slot, Course: course.Ref(), Room: room.Ref()}
}

func courseEntries(tt models.Timetable, courseID string) []models.ScheduleEntry {
	var out []models.ScheduleEntry
	for _, e := range tt.Entries {
		if e.Occupied() && e.CourseID() == courseID {
			out = append(out, e)
		}
	}
	return out
}

type stubCourses struct {
	courses []models.Course
	err     error
}

func (s *stubCourses) AllForScope(_ context.Context, year int, branch, division string) ([]models.Course, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.Course
	for _, c := range s.courses {
		if c.Year == year && c.Branch == branch && c.Division == division {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubCourses) ListByIDs(_ context.Context, ids []string) ([]models.Course, error) {
	var out []models.Course
	for _, c := range s.courses {
		for _, id := range ids {
			if c.ID == id {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (s *stubCourses) ListAll(context.Context) ([]models.Course, error) {
	return append([]models.Course(nil), s.courses...), s.err
}

type stubRooms struct {
	rooms []models.Room
}

func (s *stubRooms) FindByCriteria(_ context.Context, criteria models.RoomCriteria) ([]models.Room, error) {
	var out []models.Room
	for _, r := range s.rooms {
		if criteria.Type != "" && r.Type != criteria.Type {
			continue
		}
		if criteria.Year > 0 && !r.AllowsYear(criteria.Year) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// memoryTimetableStore keeps every version per scope in memory.
type memoryTimetableStore struct {
	mu       sync.Mutex
	versions map[string][]models.Timetable
}

func newMemoryTimetableStore() *memoryTimetableStore {
	return &memoryTimetableStore{versions: make(map[string][]models.Timetable)}
}

func (m *memoryTimetableStore) put(tt models.Timetable) models.Timetable {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := tt.Scope().Key()
	tt.Version = len(m.versions[key]) + 1
	if tt.ID == "" {
		tt.ID = fmt.Sprintf("tt-%s-%d", key, tt.Version)
	}
	m.versions[key] = append(m.versions[key], tt.Clone())
	return tt
}

func (m *memoryTimetableStore) LoadLatest(_ context.Context, scope models.Scope) (*models.Timetable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.versions[scope.Key()]
	if len(list) == 0 {
		return nil, sql.ErrNoRows
	}
	tt := list[len(list)-1].Clone()
	return &tt, nil
}

func (m *memoryTimetableStore) FindByID(_ context.Context, id string) (*models.Timetable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, list := range m.versions {
		for _, tt := range list {
			if tt.ID == id {
				out := tt.Clone()
				return &out, nil
			}
		}
	}
	return nil, sql.ErrNoRows
}

func (m *memoryTimetableStore) CreateVersioned(_ context.Context, _ sqlx.ExtContext, tt *models.Timetable, expected int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := tt.Scope().Key()
	if current := len(m.versions[key]); current != expected {
		return fmt.Errorf("scope at %d: %w", current, repository.ErrStaleVersion)
	}
	tt.Version = expected + 1
	m.versions[key] = append(m.versions[key], tt.Clone())
	return nil
}

func (m *memoryTimetableStore) ListLatestExcept(_ context.Context, scope models.Scope) ([]models.Timetable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.versions))
	for key := range m.versions {
		if key != scope.Key() {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	var out []models.Timetable
	for _, key := range keys {
		list := m.versions[key]
		out = append(out, list[len(list)-1].Clone())
	}
	return out, nil
}

func (m *memoryTimetableStore) ListVersions(_ context.Context, scope models.Scope) ([]models.TimetableVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.versions[scope.Key()]
	out := make([]models.TimetableVersion, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, models.TimetableVersion{ID: list[i].ID, Version: list[i].Version, CreatedAt: list[i].CreatedAt})
	}
	return out, nil
}

// memoryCache is a CacheRepository backed by a map.
type memoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = raw
	return nil
}

func (c *memoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
	return nil
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlx.NewDb(db, "sqlmock")}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}
