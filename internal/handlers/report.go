// internal/handlers/report.go
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/teambind/support-server/internal/i18n"
	"github.com/teambind/support-server/internal/idgen"
	"github.com/teambind/support-server/internal/models"
	"github.com/teambind/support-server/internal/services"
	"github.com/teambind/support-server/internal/utils"
)

type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
	}
}

type WithdrawRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type CommentRequest struct {
	Comment string `json:"comment" validate:"max=1000"`
}

type UpdateStatusRequest struct {
	Status  string `json:"status" validate:"required,report_status"`
	Comment string `json:"comment" validate:"max=1000"`
}

// POST /reports
func (h *ReportHandler) CreateReport(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	reporterID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.CreateReportInput
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}
	req.ReporterID = reporterID

	report, err := h.reportService.CreateReport(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, report)
}

// GET /reports/:id
func (h *ReportHandler) GetReport(c *gin.Context) {
	report, err := h.reportService.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, report)
}

// GET /reports
func (h *ReportHandler) SearchReports(c *gin.Context) {
	req, validationErrors := utils.GetCursorParams(c)
	if len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	page, err := h.reportService.SearchReports(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CursorPageResponse(c, page)
}

// GET /reports/reporter/:reporterId
func (h *ReportHandler) GetReportsByReporter(c *gin.Context) {
	reports, err := h.reportService.ReportsByReporter(c.Request.Context(), c.Param("reporterId"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, nonNil(reports))
}

// GET /reports/reported/:reportedId
func (h *ReportHandler) GetReportsByReported(c *gin.Context) {
	reports, err := h.reportService.ReportsByReported(c.Request.Context(), c.Param("reportedId"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, nonNil(reports))
}

// POST /reports/:id/withdraw
func (h *ReportHandler) WithdrawReport(c *gin.Context) {
	reporterID, exists := utils.GetUserIDFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req WithdrawRequest
	if !bindOptional(c, &req) {
		return
	}

	report, err := h.reportService.Withdraw(c.Request.Context(), c.Param("id"), reporterID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, report)
}

// GET /admin/reports/:id/history
func (h *ReportHandler) GetReportHistory(c *gin.Context) {
	history, err := h.reportService.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, history)
}

// PATCH /admin/reports/:id
func (h *ReportHandler) UpdateReportStatus(c *gin.Context) {
	adminID, _ := utils.GetUserIDFromContext(c)

	var req UpdateStatusRequest
	if !bindRequired(c, &req) {
		return
	}

	status, err := models.ParseReportStatus(req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	report, err := h.reportService.UpdateStatus(c.Request.Context(), c.Param("id"), status, adminID, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, report)
}

// POST /admin/reports/:id/review
func (h *ReportHandler) StartReview(c *gin.Context) {
	adminID, _ := utils.GetUserIDFromContext(c)

	report, err := h.reportService.StartReview(c.Request.Context(), c.Param("id"), adminID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, report)
}

// POST /admin/reports/:id/approve
func (h *ReportHandler) ApproveReport(c *gin.Context) {
	h.adminComment(c, h.reportService.Approve)
}

// POST /admin/reports/:id/reject
func (h *ReportHandler) RejectReport(c *gin.Context) {
	h.adminComment(c, h.reportService.Reject)
}

// POST /admin/reports/:id/hold
func (h *ReportHandler) HoldReport(c *gin.Context) {
	h.adminComment(c, h.reportService.Hold)
}

// POST /admin/reports/:id/comments
func (h *ReportHandler) AddComment(c *gin.Context) {
	h.adminComment(c, h.reportService.AddComment)
}

type adminAction func(ctx context.Context, reportID, adminID, comment string) (*models.Report, error)

func (h *ReportHandler) adminComment(c *gin.Context, action adminAction) {
	adminID, _ := utils.GetUserIDFromContext(c)

	var req CommentRequest
	if !bindOptional(c, &req) {
		return
	}

	report, err := action(c.Request.Context(), c.Param("id"), adminID, req.Comment)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, report)
}

// bindOptional accepts an empty body and validates whatever was sent.
func bindOptional(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}

func bindRequired(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}

// respondError maps service and domain errors onto the response envelope.
func respondError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	if validationErrors := utils.GetValidationErrors(err); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, models.ErrUnknownValue):
		utils.ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR",
			i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
	case errors.Is(err, services.ErrReportNotFound):
		utils.NotFoundResponse(c, "report")
	case errors.Is(err, services.ErrCategoryNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "CATEGORY_NOT_FOUND",
			i18n.T(lang, i18n.KeyReportCategoryNotFound), nil)
	case errors.Is(err, models.ErrUnauthorized):
		utils.ErrorResponse(c, http.StatusForbidden, "UNAUTHORIZED",
			i18n.T(lang, i18n.KeyReportNotReporter), nil)
	case errors.Is(err, models.ErrInvalidState):
		utils.ErrorResponse(c, http.StatusConflict, "INVALID_STATE",
			i18n.T(lang, i18n.KeyReportInvalidState), nil)
	case errors.Is(err, services.ErrConcurrentModification):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyReportConflict))
	case errors.Is(err, services.ErrDuplicateReport):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyReportDuplicate))
	case errors.Is(err, idgen.ErrClockRegression):
		logrus.WithError(err).Error("Identifier generation unavailable")
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "ID_UNAVAILABLE",
			i18n.T(lang, i18n.KeyReportIDUnavailable), nil)
	default:
		logrus.WithFields(logrus.Fields{
			"path":       c.Request.URL.Path,
			"request_id": c.GetString("request_id"),
		}).WithError(err).Error("Unhandled report error")
		utils.InternalErrorResponse(c, "")
	}
}

func nonNil(reports []models.Report) []models.Report {
	if reports == nil {
		return []models.Report{}
	}
	return reports
}
