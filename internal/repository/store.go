// internal/repository/store.go
package repository

import (
	"context"
	"errors"

	"github.com/teambind/support-server/internal/keyset"
	"github.com/teambind/support-server/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate means the uk_report_per_user constraint (or the primary
	// key) rejected the write.
	ErrDuplicate = errors.New("duplicate report")
	// ErrStaleStatus means the report no longer had the status the caller
	// read, so another writer got there first.
	ErrStaleStatus = errors.New("report status changed concurrently")
)

// ReportStore persists reports and their history.
type ReportStore interface {
	keyset.Source

	Create(ctx context.Context, report *models.Report) error
	// FindByID loads a report with its full history, oldest entry first.
	FindByID(ctx context.Context, reportID string) (*models.Report, error)
	// SaveTransition writes report.Status and appends entries, provided the
	// stored status still equals expected. Nothing is written otherwise.
	SaveTransition(ctx context.Context, report *models.Report, expected models.ReportStatus, entries []models.ReportHistory) error
	ByReporter(ctx context.Context, reporterID string) ([]models.Report, error)
	ByReported(ctx context.Context, reportedID string) ([]models.Report, error)
	History(ctx context.Context, reportID string) ([]models.ReportHistory, error)
}

type CategoryStore interface {
	FindAll(ctx context.Context) ([]models.ReportCategory, error)
}

var (
	_ ReportStore   = (*GormReportStore)(nil)
	_ ReportStore   = (*MemoryReportStore)(nil)
	_ CategoryStore = (*GormCategoryStore)(nil)
	_ CategoryStore = (*MemoryCategoryStore)(nil)
)
