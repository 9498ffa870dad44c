// internal/repository/gorm_store.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/teambind/support-server/internal/keyset"
	"github.com/teambind/support-server/internal/models"
)

type GormReportStore struct {
	db *gorm.DB
}

func NewGormReportStore(db *gorm.DB) *GormReportStore {
	return &GormReportStore{db: db}
}

func (s *GormReportStore) Create(ctx context.Context, report *models.Report) error {
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *GormReportStore) FindByID(ctx context.Context, reportID string) (*models.Report, error) {
	var report models.Report
	err := s.db.WithContext(ctx).
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, history_id ASC")
		}).
		Where("report_id = ?", reportID).
		First(&report).Error
	if err != nil {
		return nil, translate(err)
	}
	return &report, nil
}

func (s *GormReportStore) SaveTransition(ctx context.Context, report *models.Report, expected models.ReportStatus, entries []models.ReportHistory) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := guardedStatusUpdate(tx, report, expected)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrStaleStatus
		}

		if len(entries) == 0 {
			return nil
		}
		if err := tx.Create(&entries).Error; err != nil {
			return fmt.Errorf("append history: %w", translate(err))
		}
		return nil
	})
}

// guardedStatusUpdate touches the row even when the status is unchanged, so
// a comment-only append still detects a concurrent transition.
func guardedStatusUpdate(tx *gorm.DB, report *models.Report, expected models.ReportStatus) *gorm.DB {
	return tx.Model(&models.Report{}).
		Where("report_id = ? AND status = ?", report.ReportID, expected).
		UpdateColumn("status", report.Status)
}

func (s *GormReportStore) Query(ctx context.Context, plan keyset.Plan) ([]models.Report, error) {
	var reports []models.Report
	if err := buildQuery(s.db.WithContext(ctx), plan).Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

// buildQuery renders a keyset plan as WHERE / ORDER BY / LIMIT.
func buildQuery(db *gorm.DB, plan keyset.Plan) *gorm.DB {
	q := db.Model(&models.Report{})

	if f := plan.Filter; f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f := plan.Filter; f.ReferenceType != nil {
		q = q.Where("reference_type = ?", *f.ReferenceType)
	}
	if f := plan.Filter; f.Category != "" {
		q = q.Where("report_category = ?", f.Category)
	}

	dir, op := "ASC", ">"
	if plan.Descending() {
		dir, op = "DESC", "<"
	}

	if b := plan.After; b != nil {
		switch plan.Sort {
		case keyset.SortStatus:
			if b.Status != nil {
				q = q.Where("(status, report_id) "+op+" (?, ?)", *b.Status, b.ReportID)
			} else {
				q = q.Where("report_id "+op+" ?", b.ReportID)
			}
		default:
			q = q.Where("reported_at "+op+" ?", b.ReportedAt)
		}
	}

	return q.Order(plan.SortColumn() + " " + dir).
		Order("report_id " + dir).
		Limit(plan.Limit)
}

func (s *GormReportStore) BoundaryStatus(ctx context.Context, reportID string) (models.ReportStatus, bool, error) {
	var statuses []models.ReportStatus
	err := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("report_id = ?", reportID).
		Limit(1).
		Pluck("status", &statuses).Error
	if err != nil {
		return "", false, err
	}
	if len(statuses) == 0 {
		return "", false, nil
	}
	return statuses[0], true, nil
}

func (s *GormReportStore) ByReporter(ctx context.Context, reporterID string) ([]models.Report, error) {
	return s.newestFirst(ctx, "reporter_id = ?", reporterID)
}

func (s *GormReportStore) ByReported(ctx context.Context, reportedID string) ([]models.Report, error) {
	return s.newestFirst(ctx, "reported_id = ?", reportedID)
}

func (s *GormReportStore) newestFirst(ctx context.Context, cond string, arg string) ([]models.Report, error) {
	var reports []models.Report
	err := s.db.WithContext(ctx).
		Where(cond, arg).
		Order("reported_at DESC").
		Find(&reports).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *GormReportStore) History(ctx context.Context, reportID string) ([]models.ReportHistory, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Report{}).Where("report_id = ?", reportID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	var entries []models.ReportHistory
	err := s.db.WithContext(ctx).
		Where("report_id = ?", reportID).
		Order("created_at ASC, history_id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

type GormCategoryStore struct {
	db *gorm.DB
}

func NewGormCategoryStore(db *gorm.DB) *GormCategoryStore {
	return &GormCategoryStore{db: db}
}

func (s *GormCategoryStore) FindAll(ctx context.Context) ([]models.ReportCategory, error) {
	var categories []models.ReportCategory
	if err := s.db.WithContext(ctx).Order("reference_type, report_category").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// translate maps gorm errors onto this package's sentinels. The connection
// must be opened with TranslateError for duplicate keys to be recognised.
func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
