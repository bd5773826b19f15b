package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"card-grader/internal/domain/entity"
	"card-grader/internal/domain/port"
)

// DefaultHistory сколько отчётов хранится по умолчанию
const DefaultHistory = 32

// MemoryReportRepository in-memory хранилище отчётов с ограниченной историей
type MemoryReportRepository struct {
	mu      sync.RWMutex
	reports map[uuid.UUID]*entity.GradingReport
	order   []uuid.UUID
	limit   int
}

// NewMemoryReportRepository создаёт новое in-memory хранилище.
// limit <= 0 означает DefaultHistory.
func NewMemoryReportRepository(limit int) *MemoryReportRepository {
	if limit <= 0 {
		limit = DefaultHistory
	}
	return &MemoryReportRepository{
		reports: make(map[uuid.UUID]*entity.GradingReport),
		limit:   limit,
	}
}

// Get возвращает отчёт по идентификатору прогона
func (r *MemoryReportRepository) Get(ctx context.Context, runID uuid.UUID) (*entity.GradingReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	report, exists := r.reports[runID]
	if !exists {
		return nil, entity.ErrReportNotFound
	}
	return report, nil
}

// Save сохраняет отчёт, вытесняя самые старые сверх лимита
func (r *MemoryReportRepository) Save(ctx context.Context, report *entity.GradingReport) error {
	if report == nil {
		return &entity.ValidationError{Reason: "report is nil"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reports[report.RunID]; !exists {
		r.order = append(r.order, report.RunID)
	}
	r.reports[report.RunID] = report

	for len(r.order) > r.limit {
		delete(r.reports, r.order[0])
		r.order = r.order[1:]
	}
	return nil
}

// Latest возвращает последний сохранённый отчёт
func (r *MemoryReportRepository) Latest(ctx context.Context) (*entity.GradingReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return nil, entity.ErrReportNotFound
	}
	return r.reports[r.order[len(r.order)-1]], nil
}

// Len возвращает число хранимых отчётов
func (r *MemoryReportRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Проверка реализации интерфейса
var _ port.ReportRepository = (*MemoryReportRepository)(nil)
