package reports

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/urbanize/urbanize-backend/internal/metrics"
)

// Store holds citizen reports. Each operation is atomic on its own; there are no
// multi-step transactions.
type Store interface {
	Create(ctx context.Context, in NewReport) (Report, error)
	List(ctx context.Context) ([]Report, error)
	ListByUser(ctx context.Context, userID string) ([]Report, error)
	// Delete reports whether a report with id existed and was removed.
	Delete(ctx context.Context, id string) (bool, error)
}

// MemStore is the process-local Store used when no database is configured.
type MemStore struct {
	mu      sync.RWMutex
	reports map[string]Report
	now     func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{reports: make(map[string]Report), now: time.Now}
}

func (s *MemStore) Create(_ context.Context, in NewReport) (Report, error) {
	if err := in.Validate(); err != nil {
		return Report{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	r := in.build(uuid.NewString(), s.now())
	s.reports[r.ID] = r
	metrics.ReportsStored.Set(float64(len(s.reports)))
	return r, nil
}

// List returns every report, oldest first.
func (s *MemStore) List(_ context.Context) ([]Report, error) {
	s.mu.RLock()
	out := make([]Report, 0, len(s.reports))
	for _, r := range s.reports {
		out = append(out, r)
	}
	s.mu.RUnlock()
	sortByCreated(out)
	return out, nil
}

func (s *MemStore) ListByUser(_ context.Context, userID string) ([]Report, error) {
	s.mu.RLock()
	out := []Report{}
	for _, r := range s.reports {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()
	sortByCreated(out)
	return out, nil
}

func (s *MemStore) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.reports[id]
	delete(s.reports, id)
	metrics.ReportsStored.Set(float64(len(s.reports)))
	return ok, nil
}

func sortByCreated(rs []Report) {
	slices.SortStableFunc(rs, func(a, b Report) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}

// GormStore keeps reports in Postgres.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

func (s *GormStore) Create(ctx context.Context, in NewReport) (Report, error) {
	if err := in.Validate(); err != nil {
		return Report{}, err
	}
	r := in.build(uuid.NewString(), s.now())
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return Report{}, fmt.Errorf("insert report: %w", err)
	}
	s.refreshGauge(ctx)
	return r, nil
}

func (s *GormStore) List(ctx context.Context) ([]Report, error) {
	var out []Report
	if err := s.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return out, nil
}

func (s *GormStore) ListByUser(ctx context.Context, userID string) ([]Report, error) {
	var out []Report
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list reports for user: %w", err)
	}
	return out, nil
}

func (s *GormStore) Delete(ctx context.Context, id string) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&Report{}, "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("delete report: %w", res.Error)
	}
	s.refreshGauge(ctx)
	return res.RowsAffected > 0, nil
}

func (s *GormStore) refreshGauge(ctx context.Context) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Report{}).Count(&n).Error; err == nil {
		metrics.ReportsStored.Set(float64(n))
	}
}
