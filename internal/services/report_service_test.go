// internal/services/report_service_test.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/teambind/support-server/internal/idgen"
	"github.com/teambind/support-server/internal/keyset"
	"github.com/teambind/support-server/internal/metrics"
	"github.com/teambind/support-server/internal/models"
	"github.com/teambind/support-server/internal/repository"
)

type sequenceIDs struct {
	mu   sync.Mutex
	n    int
	fail error
}

func (s *sequenceIDs) NextIDString() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return "", s.fail
	}
	s.n++
	return fmt.Sprintf("7%018d", s.n), nil
}

// racingStore lets a competing writer land between load and save.
type racingStore struct {
	*repository.MemoryReportStore
	beforeSave func()
}

func (s *racingStore) SaveTransition(ctx context.Context, report *models.Report, expected models.ReportStatus, entries []models.ReportHistory) error {
	if s.beforeSave != nil {
		hook := s.beforeSave
		s.beforeSave = nil
		hook()
	}
	return s.MemoryReportStore.SaveTransition(ctx, report, expected, entries)
}

// brokenLookups fails the reporter and reported listings.
type brokenLookups struct {
	*repository.MemoryReportStore
}

func (brokenLookups) ByReporter(context.Context, string) ([]models.Report, error) {
	return nil, errors.New("connection reset")
}

func (brokenLookups) ByReported(context.Context, string) ([]models.Report, error) {
	return nil, errors.New("connection reset")
}

type ReportServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	store     *racingStore
	ids       *sequenceIDs
	collector *metrics.Collector
	service   *ReportService
}

func (suite *ReportServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = &racingStore{MemoryReportStore: repository.NewMemoryReportStore()}
	suite.ids = &sequenceIDs{}
	suite.collector = metrics.NewCollector()

	cache := NewInMemoryCategoryCache(
		repository.NewMemoryCategoryStore(repository.DefaultCategories()...),
		suite.collector, CategoryCacheOptions{InitialAttempts: 1})
	suite.Require().NoError(cache.Initialize(suite.ctx))

	suite.service = NewReportService(suite.store, cache, suite.ids, suite.collector)
}

func (suite *ReportServiceTestSuite) create(reporter, reported string) *models.Report {
	report, err := suite.service.CreateReport(suite.ctx, &CreateReportInput{
		ReporterID:    reporter,
		ReportedID:    reported,
		ReferenceType: "article",
		Category:      " Spam ",
		Reason:        "  repeated advertising  ",
	})
	suite.Require().NoError(err)
	return report
}

func (suite *ReportServiceTestSuite) TestCreateReport() {
	report := suite.create("U1", "T1")

	suite.Equal(models.ReportStatusPending, report.Status)
	suite.Equal(models.ReferenceTypeArticle, report.ReferenceType)
	suite.Equal("spam", report.Category)
	suite.Equal("repeated advertising", report.Reason)
	suite.Empty(report.History)
	suite.Len(report.ReportID, 19)
	suite.Equal("Spam", report.CategoryRef().Name)

	suite.Equal(1, suite.store.Len())
	series, err := testutil.GatherAndCount(suite.collector.Registry(), "support_server_reports_created_total")
	suite.Require().NoError(err)
	suite.Equal(1, series)
}

func (suite *ReportServiceTestSuite) TestCreateReport_Validation() {
	_, err := suite.service.CreateReport(suite.ctx, &CreateReportInput{
		ReporterID:    "U1",
		ReferenceType: "POST",
		Category:      "spam",
	})
	suite.Error(err)
	suite.Zero(suite.store.Len())
}

func (suite *ReportServiceTestSuite) TestCreateReport_UnknownCategory() {
	_, err := suite.service.CreateReport(suite.ctx, &CreateReportInput{
		ReporterID:    "U1",
		ReportedID:    "T1",
		ReferenceType: "BUSINESS",
		Category:      "spam",
		Reason:        "r",
	})
	suite.ErrorIs(err, ErrCategoryNotFound)
	suite.Zero(suite.ids.n, "no id minted for a rejected report")
}

func (suite *ReportServiceTestSuite) TestCreateReport_DuplicatePending() {
	suite.create("U1", "T1")

	_, err := suite.service.CreateReport(suite.ctx, &CreateReportInput{
		ReporterID: "U1", ReportedID: "T1", ReferenceType: "ARTICLE", Category: "abuse", Reason: "again",
	})
	suite.ErrorIs(err, ErrDuplicateReport)
}

func (suite *ReportServiceTestSuite) TestCreateReport_ClockRegression() {
	suite.ids.fail = &idgen.ClockRegressionError{LastMillis: 10, ObservedMillis: 5}

	_, err := suite.service.CreateReport(suite.ctx, &CreateReportInput{
		ReporterID: "U1", ReportedID: "T1", ReferenceType: "ARTICLE", Category: "spam", Reason: "r",
	})
	suite.ErrorIs(err, idgen.ErrClockRegression)
	suite.Zero(suite.store.Len())
}

func (suite *ReportServiceTestSuite) TestGetReport_NotFound() {
	_, err := suite.service.GetReport(suite.ctx, "404")
	suite.ErrorIs(err, ErrReportNotFound)

	_, err = suite.service.History(suite.ctx, "404")
	suite.ErrorIs(err, ErrReportNotFound)
}

func (suite *ReportServiceTestSuite) TestAdminLifecycle() {
	report := suite.create("U1", "T1")

	_, err := suite.service.StartReview(suite.ctx, report.ReportID, "A1")
	suite.Require().NoError(err)
	_, err = suite.service.Hold(suite.ctx, report.ReportID, "A1", "")
	suite.Require().NoError(err)
	_, err = suite.service.AddComment(suite.ctx, report.ReportID, "A2", "asked reporter for evidence")
	suite.Require().NoError(err)
	updated, err := suite.service.Approve(suite.ctx, report.ReportID, "A2", "")
	suite.Require().NoError(err)
	suite.Equal(models.ReportStatusApproved, updated.Status)

	stored, err := suite.service.GetReport(suite.ctx, report.ReportID)
	suite.Require().NoError(err)
	suite.Equal(models.ReportStatusApproved, stored.Status)
	suite.Require().Len(stored.History, 4)

	actions := []models.ActionType{}
	comments := []string{}
	for _, h := range stored.History {
		actions = append(actions, h.ActionType)
		comments = append(comments, h.Comment)
	}
	suite.Equal([]models.ActionType{
		models.ActionTypeStatusChanged,
		models.ActionTypeStatusChanged,
		models.ActionTypeCommentAdded,
		models.ActionTypeStatusChanged,
	}, actions)
	suite.Equal([]string{
		defaultReviewComment,
		defaultHoldComment,
		"asked reporter for evidence",
		defaultApproveComment,
	}, comments)
	suite.Equal(stored.Status, stored.LastHistory().NewStatus)
	suite.Equal("A2", *stored.LastHistory().AdminID)

	history, err := suite.service.History(suite.ctx, report.ReportID)
	suite.Require().NoError(err)
	suite.Len(history, 4)
}

func (suite *ReportServiceTestSuite) TestUpdateStatus_SameStatusIsNoop() {
	report := suite.create("U1", "T1")

	updated, err := suite.service.UpdateStatus(suite.ctx, report.ReportID, models.ReportStatusPending, "A1", "noop")
	suite.Require().NoError(err)
	suite.Empty(updated.History)

	_, err = suite.service.UpdateStatus(suite.ctx, report.ReportID, models.ReportStatus("DONE"), "A1", "")
	suite.ErrorIs(err, ErrInvalidInput)
}

func (suite *ReportServiceTestSuite) TestWithdraw() {
	report := suite.create("U1", "T1")

	_, err := suite.service.Withdraw(suite.ctx, report.ReportID, "U2", "")
	suite.ErrorIs(err, models.ErrUnauthorized)

	withdrawn, err := suite.service.Withdraw(suite.ctx, report.ReportID, "U1", "")
	suite.Require().NoError(err)
	suite.Equal(models.ReportStatusWithdrawn, withdrawn.Status)
	suite.Equal(defaultWithdrawComment, withdrawn.LastHistory().Comment)
	suite.Nil(withdrawn.LastHistory().AdminID)

	_, err = suite.service.Withdraw(suite.ctx, report.ReportID, "U1", "")
	suite.ErrorIs(err, models.ErrInvalidState)

	// A withdrawn report no longer blocks a fresh one for the same target.
	suite.create("U1", "T1")
}

func (suite *ReportServiceTestSuite) TestAddComment_RequiresText() {
	report := suite.create("U1", "T1")
	_, err := suite.service.AddComment(suite.ctx, report.ReportID, "A1", "   ")
	suite.ErrorIs(err, ErrInvalidInput)
}

func (suite *ReportServiceTestSuite) TestConcurrentModification() {
	report := suite.create("U1", "T1")

	suite.store.beforeSave = func() {
		_, err := suite.service.StartReview(suite.ctx, report.ReportID, "A2")
		suite.Require().NoError(err)
	}

	_, err := suite.service.Approve(suite.ctx, report.ReportID, "A1", "")
	suite.ErrorIs(err, ErrConcurrentModification)

	stored, err := suite.service.GetReport(suite.ctx, report.ReportID)
	suite.Require().NoError(err)
	suite.Equal(models.ReportStatusReviewing, stored.Status)
	suite.Len(stored.History, 1, "the losing writer appended nothing")
}

func (suite *ReportServiceTestSuite) TestTransitionIDFailureLeavesReportUntouched() {
	report := suite.create("U1", "T1")
	suite.ids.fail = errors.New("clock unavailable")

	_, err := suite.service.Reject(suite.ctx, report.ReportID, "A1", "")
	suite.Error(err)

	suite.ids.fail = nil
	stored, err := suite.service.GetReport(suite.ctx, report.ReportID)
	suite.Require().NoError(err)
	suite.Equal(models.ReportStatusPending, stored.Status)
	suite.Empty(stored.History)
}

func (suite *ReportServiceTestSuite) TestSearchAndLookups() {
	first := suite.create("U1", "T1")
	second := suite.create("U2", "T1")
	suite.create("U1", "T2")

	_, err := suite.service.StartReview(suite.ctx, second.ReportID, "A1")
	suite.Require().NoError(err)

	reviewing := models.ReportStatusReviewing
	page, err := suite.service.SearchReports(suite.ctx, keyset.Request{
		Filter: keyset.Filter{Status: &reviewing},
	})
	suite.Require().NoError(err)
	suite.Require().Len(page.Items, 1)
	suite.Equal(second.ReportID, page.Items[0].ReportID)
	suite.False(page.HasNext)

	byReporter, err := suite.service.ReportsByReporter(suite.ctx, "U1")
	suite.Require().NoError(err)
	suite.Len(byReporter, 2)

	byReported, err := suite.service.ReportsByReported(suite.ctx, "T1")
	suite.Require().NoError(err)
	suite.ElementsMatch([]string{first.ReportID, second.ReportID},
		[]string{byReported[0].ReportID, byReported[1].ReportID})
}

func (suite *ReportServiceTestSuite) TestListingsWrapStoreErrors() {
	cache := NewInMemoryCategoryCache(
		repository.NewMemoryCategoryStore(repository.DefaultCategories()...),
		suite.collector, CategoryCacheOptions{InitialAttempts: 1})
	service := NewReportService(brokenLookups{repository.NewMemoryReportStore()}, cache, suite.ids, suite.collector)

	_, err := service.ReportsByReporter(suite.ctx, "U1")
	suite.EqualError(err, "database error: connection reset")

	_, err = service.ReportsByReported(suite.ctx, "T1")
	suite.EqualError(err, "database error: connection reset")
}

func TestReportServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReportServiceTestSuite))
}
