// internal/services/report_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/teambind/support-server/internal/keyset"
	"github.com/teambind/support-server/internal/metrics"
	"github.com/teambind/support-server/internal/models"
	"github.com/teambind/support-server/internal/repository"
	"github.com/teambind/support-server/internal/utils"
)

var (
	ErrCategoryNotFound       = errors.New("report category not found")
	ErrReportNotFound         = errors.New("report not found")
	ErrConcurrentModification = errors.New("report was modified by another request")
	ErrDuplicateReport        = errors.New("an identical report already exists")
	ErrInvalidInput           = errors.New("invalid input")
)

const (
	defaultWithdrawComment = "withdrawn by reporter"
	defaultHoldComment     = "on hold"
	defaultReviewComment   = "review started"
	defaultApproveComment  = "approved - sanction pending"
	defaultRejectComment   = "rejected"
)

// IDGenerator mints decimal identifiers.
type IDGenerator interface {
	NextIDString() (string, error)
}

type ReportService struct {
	store      repository.ReportStore
	categories CategoryCache
	ids        IDGenerator
	metrics    *metrics.Collector
	now        func() time.Time
}

type CreateReportInput struct {
	ReporterID    string `json:"-" validate:"required,max=100"`
	ReportedID    string `json:"reported_id" validate:"required,max=100"`
	ReferenceType string `json:"reference_type" validate:"required,reference_type"`
	Category      string `json:"report_category" validate:"required,max=50"`
	Reason        string `json:"reason" validate:"required,max=500"`
}

func NewReportService(store repository.ReportStore, categories CategoryCache, ids IDGenerator, collector *metrics.Collector) *ReportService {
	return &ReportService{
		store:      store,
		categories: categories,
		ids:        ids,
		metrics:    collector,
		now:        time.Now,
	}
}

func (s *ReportService) nextID() (string, error) {
	id, err := s.ids.NextIDString()
	if err != nil {
		return "", err
	}
	s.metrics.IDMinted()
	return id, nil
}

func (s *ReportService) CreateReport(ctx context.Context, in *CreateReportInput) (*models.Report, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	referenceType, err := models.ParseReferenceType(in.ReferenceType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	log := logrus.WithFields(logrus.Fields{
		"reporter_id":    in.ReporterID,
		"reported_id":    in.ReportedID,
		"reference_type": referenceType,
		"category":       in.Category,
	})

	category, ok := s.categories.Lookup(referenceType, in.Category)
	if !ok {
		log.Warn("Report category not found")
		return nil, fmt.Errorf("%w: %s/%s", ErrCategoryNotFound, referenceType, models.NormalizeCategory(in.Category))
	}

	reportID, err := s.nextID()
	if err != nil {
		return nil, fmt.Errorf("mint report id: %w", err)
	}

	report := models.NewReport(reportID, in.ReporterID, in.ReportedID, strings.TrimSpace(in.Reason), category, s.now())
	if err := s.store.Create(ctx, report); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateReport, err)
		}
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	s.metrics.ReportCreated(string(referenceType))
	log.WithField("report_id", reportID).Info("Report created")
	return report, nil
}

func (s *ReportService) GetReport(ctx context.Context, reportID string) (*models.Report, error) {
	report, err := s.store.FindByID(ctx, reportID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrReportNotFound, reportID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return report, nil
}

func (s *ReportService) SearchReports(ctx context.Context, req keyset.Request) (keyset.Page, error) {
	start := time.Now()
	page, err := keyset.Search(ctx, s.store, req)
	if err != nil {
		return keyset.Page{}, err
	}

	plan := keyset.Build(req)
	s.metrics.Search(string(plan.Sort), string(plan.Direction), plan.After != nil, len(page.Items), time.Since(start))
	logrus.WithFields(logrus.Fields{
		"sort":      plan.Sort,
		"direction": plan.Direction,
		"size":      plan.Size,
		"returned":  len(page.Items),
		"has_next":  page.HasNext,
	}).Debug("Report search")
	return page, nil
}

func (s *ReportService) ReportsByReporter(ctx context.Context, reporterID string) ([]models.Report, error) {
	reports, err := s.store.ByReporter(ctx, reporterID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return reports, nil
}

func (s *ReportService) ReportsByReported(ctx context.Context, reportedID string) ([]models.Report, error) {
	reports, err := s.store.ByReported(ctx, reportedID)
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return reports, nil
}

func (s *ReportService) History(ctx context.Context, reportID string) ([]models.ReportHistory, error) {
	entries, err := s.store.History(ctx, reportID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrReportNotFound, reportID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return entries, nil
}

func (s *ReportService) UpdateStatus(ctx context.Context, reportID string, status models.ReportStatus, adminID, comment string) (*models.Report, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.transition(ctx, reportID, "update_status", adminID, func(r *models.Report) error {
		return r.ChangeStatus(status, &adminID, comment, s.nextID)
	})
}

func (s *ReportService) Approve(ctx context.Context, reportID, adminID, comment string) (*models.Report, error) {
	return s.transition(ctx, reportID, "approve", adminID, func(r *models.Report) error {
		return r.Approve(&adminID, withDefault(comment, defaultApproveComment), s.nextID)
	})
}

func (s *ReportService) Reject(ctx context.Context, reportID, adminID, reason string) (*models.Report, error) {
	return s.transition(ctx, reportID, "reject", adminID, func(r *models.Report) error {
		return r.Reject(&adminID, withDefault(reason, defaultRejectComment), s.nextID)
	})
}

func (s *ReportService) StartReview(ctx context.Context, reportID, adminID string) (*models.Report, error) {
	return s.transition(ctx, reportID, "start_review", adminID, func(r *models.Report) error {
		return r.StartReview(&adminID, defaultReviewComment, s.nextID)
	})
}

func (s *ReportService) Hold(ctx context.Context, reportID, adminID, reason string) (*models.Report, error) {
	return s.transition(ctx, reportID, "hold", adminID, func(r *models.Report) error {
		return r.Hold(&adminID, withDefault(reason, defaultHoldComment), s.nextID)
	})
}

func (s *ReportService) Withdraw(ctx context.Context, reportID, reporterID, reason string) (*models.Report, error) {
	return s.transition(ctx, reportID, "withdraw", reporterID, func(r *models.Report) error {
		return r.Withdraw(reporterID, withDefault(reason, defaultWithdrawComment), s.nextID)
	})
}

func (s *ReportService) AddComment(ctx context.Context, reportID, adminID, comment string) (*models.Report, error) {
	if strings.TrimSpace(comment) == "" {
		return nil, fmt.Errorf("%w: comment is required", ErrInvalidInput)
	}
	return s.transition(ctx, reportID, "comment", adminID, func(r *models.Report) error {
		return r.AddComment(&adminID, comment, s.nextID)
	})
}

// transition loads the report, applies mutate and persists whatever history
// it appended together with the new status. The write only succeeds if the
// stored status is still the one that was read.
func (s *ReportService) transition(ctx context.Context, reportID, action, actorID string, mutate func(*models.Report) error) (*models.Report, error) {
	log := logrus.WithFields(logrus.Fields{
		"report_id": reportID,
		"action":    action,
		"actor_id":  actorID,
	})

	report, err := s.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	expected := report.Status
	before := len(report.History)
	if err := mutate(report); err != nil {
		s.metrics.TransitionRejected(rejectionReason(err))
		log.WithError(err).Warn("Report transition rejected")
		return nil, err
	}

	appended := report.History[before:]
	if len(appended) == 0 {
		log.WithField("status", report.Status).Debug("Report already in requested status")
		return report, nil
	}

	if err := s.store.SaveTransition(ctx, report, expected, appended); err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleStatus):
			s.metrics.TransitionRejected("conflict")
			log.Warn("Concurrent report modification")
			return nil, fmt.Errorf("%w: %s", ErrConcurrentModification, reportID)
		case errors.Is(err, repository.ErrDuplicate):
			s.metrics.TransitionRejected("duplicate")
			return nil, fmt.Errorf("%w: %v", ErrDuplicateReport, err)
		}
		return nil, fmt.Errorf("failed to save report transition: %w", err)
	}

	for _, h := range appended {
		from := ""
		if h.PreviousStatus != nil {
			from = string(*h.PreviousStatus)
		}
		s.metrics.Transition(string(h.ActionType), from, string(h.NewStatus))
	}
	log.WithFields(logrus.Fields{
		"from": expected,
		"to":   report.Status,
	}).Info("Report transition saved")
	return report, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, models.ErrInvalidState):
		return "invalid_state"
	}
	return "id_generation"
}

func withDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
