package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"multiwindow-go/domain/report"
)

// MemoryReportRepository keeps reports in process memory. It is used when
// MongoDB is disabled and in tests.
type MemoryReportRepository struct {
	mu      sync.RWMutex
	reports map[string]*report.Report
}

// NewMemoryReportRepository creates an empty repository.
func NewMemoryReportRepository() *MemoryReportRepository {
	return &MemoryReportRepository{reports: make(map[string]*report.Report)}
}

// Save stores a copy of rep, replacing any report with the same ID.
func (r *MemoryReportRepository) Save(ctx context.Context, rep *report.Report) error {
	if rep.ID == "" {
		return fmt.Errorf("report has no ID")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports[rep.ID] = rep.Clone()
	return nil
}

// FindByID returns a copy of the report with the given ID.
func (r *MemoryReportRepository) FindByID(ctx context.Context, id string) (*report.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.reports[id]
	if !ok {
		return nil, report.ErrReportNotFound
	}
	return rep.Clone(), nil
}

// FindByScenario returns copies of the scenario's reports, newest first.
func (r *MemoryReportRepository) FindByScenario(ctx context.Context, scenario string, limit int) ([]*report.Report, error) {
	r.mu.RLock()
	var found []*report.Report
	for _, rep := range r.reports {
		if rep.Scenario == scenario {
			found = append(found, rep.Clone())
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(found, func(a, b *report.Report) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

// Count returns the number of stored reports.
func (r *MemoryReportRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reports)
}

var _ report.Repository = (*MemoryReportRepository)(nil)
