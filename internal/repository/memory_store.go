// internal/repository/memory_store.go
package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/teambind/support-server/internal/keyset"
	"github.com/teambind/support-server/internal/models"
)

// MemoryReportStore keeps reports in process memory. It enforces the same
// uniqueness and optimistic status checks as the SQL store and is used for
// local runs and tests.
type MemoryReportStore struct {
	mu      sync.RWMutex
	reports map[string]*models.Report
}

func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{reports: make(map[string]*models.Report)}
}

func (s *MemoryReportStore) Create(_ context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[report.ReportID]; exists {
		return ErrDuplicate
	}
	if s.violatesUniqueness(report, report.Status) {
		return ErrDuplicate
	}
	s.reports[report.ReportID] = cloneReport(report)
	return nil
}

// violatesUniqueness checks uk_report_per_user for r moving to status.
// Called with mu held.
func (s *MemoryReportStore) violatesUniqueness(r *models.Report, status models.ReportStatus) bool {
	for id, other := range s.reports {
		if id == r.ReportID {
			continue
		}
		if other.ReporterID == r.ReporterID &&
			other.ReferenceType == r.ReferenceType &&
			other.ReportedID == r.ReportedID &&
			other.Status == status {
			return true
		}
	}
	return false
}

func (s *MemoryReportStore) FindByID(_ context.Context, reportID string) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[reportID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneReport(r), nil
}

func (s *MemoryReportStore) SaveTransition(_ context.Context, report *models.Report, expected models.ReportStatus, entries []models.ReportHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.reports[report.ReportID]
	if !ok || stored.Status != expected {
		return ErrStaleStatus
	}
	if report.Status != stored.Status && s.violatesUniqueness(stored, report.Status) {
		return ErrDuplicate
	}

	stored.Status = report.Status
	stored.History = append(stored.History, entries...)
	return nil
}

func (s *MemoryReportStore) Query(_ context.Context, plan keyset.Plan) ([]models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Report
	for _, r := range s.reports {
		if plan.Matches(r) {
			out = append(out, withoutHistory(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return plan.Less(&out[i], &out[j]) })
	if len(out) > plan.Limit {
		out = out[:plan.Limit]
	}
	return out, nil
}

func (s *MemoryReportStore) BoundaryStatus(_ context.Context, reportID string) (models.ReportStatus, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[reportID]
	if !ok {
		return "", false, nil
	}
	return r.Status, true, nil
}

func (s *MemoryReportStore) ByReporter(_ context.Context, reporterID string) ([]models.Report, error) {
	return s.newestFirst(func(r *models.Report) bool { return r.ReporterID == reporterID }), nil
}

func (s *MemoryReportStore) ByReported(_ context.Context, reportedID string) ([]models.Report, error) {
	return s.newestFirst(func(r *models.Report) bool { return r.ReportedID == reportedID }), nil
}

func (s *MemoryReportStore) newestFirst(keep func(*models.Report) bool) []models.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []models.Report{}
	for _, r := range s.reports {
		if keep(r) {
			out = append(out, withoutHistory(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReportedAt.Equal(out[j].ReportedAt) {
			return out[i].ReportedAt.After(out[j].ReportedAt)
		}
		return out[i].ReportID > out[j].ReportID
	})
	return out
}

func (s *MemoryReportStore) History(_ context.Context, reportID string) ([]models.ReportHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[reportID]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]models.ReportHistory{}, r.History...), nil
}

// Len reports how many reports are stored.
func (s *MemoryReportStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

func cloneReport(r *models.Report) *models.Report {
	c := *r
	c.History = append([]models.ReportHistory(nil), r.History...)
	return &c
}

func withoutHistory(r *models.Report) models.Report {
	c := *r
	c.History = nil
	return c
}

// MemoryCategoryStore serves a fixed category list.
type MemoryCategoryStore struct {
	mu         sync.RWMutex
	categories []models.ReportCategory
	err        error
}

func NewMemoryCategoryStore(categories ...models.ReportCategory) *MemoryCategoryStore {
	return &MemoryCategoryStore{categories: categories}
}

func (s *MemoryCategoryStore) FindAll(_ context.Context) ([]models.ReportCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]models.ReportCategory(nil), s.categories...), nil
}

// Replace swaps the stored categories; a non-nil err makes FindAll fail.
func (s *MemoryCategoryStore) Replace(categories []models.ReportCategory, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = categories
	s.err = err
}

// DefaultCategories is the seed set loaded into an empty category table.
func DefaultCategories() []models.ReportCategory {
	return []models.ReportCategory{
		{ReferenceType: models.ReferenceTypeProfile, Category: "spam", Name: "Spam"},
		{ReferenceType: models.ReferenceTypeProfile, Category: "impersonation", Name: "Impersonation"},
		{ReferenceType: models.ReferenceTypeProfile, Category: "inappropriate_profile", Name: "Inappropriate profile"},
		{ReferenceType: models.ReferenceTypeArticle, Category: "spam", Name: "Spam"},
		{ReferenceType: models.ReferenceTypeArticle, Category: "abuse", Name: "Abusive language"},
		{ReferenceType: models.ReferenceTypeArticle, Category: "illegal_content", Name: "Illegal content"},
		{ReferenceType: models.ReferenceTypeBusiness, Category: "fraud", Name: "Fraud"},
		{ReferenceType: models.ReferenceTypeBusiness, Category: "false_information", Name: "False information"},
		{ReferenceType: models.ReferenceTypeBusiness, Category: "no_show", Name: "No-show"},
	}
}
