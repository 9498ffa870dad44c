// internal/models/report.go
package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnauthorized = errors.New("actor is not the reporter of this report")
	ErrInvalidState = errors.New("report is not in a state that allows this action")
)

// nowFunc stamps history entries.
var nowFunc = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// Report is the moderation aggregate. Status and History must only change
// through the methods below, which keep Status equal to the NewStatus of the
// last history entry.
type Report struct {
	ReportID      string          `json:"report_id" gorm:"primaryKey;size:20;index:idx_reports_reported_at_id,priority:2;index:idx_reports_status_id,priority:2"`
	ReporterID    string          `json:"reporter_id" gorm:"size:100;not null;index:idx_reports_reporter_id;uniqueIndex:uk_report_per_user,priority:1"`
	ReportedID    string          `json:"reported_id" gorm:"size:100;not null;index:idx_reports_reported_id;uniqueIndex:uk_report_per_user,priority:3"`
	ReferenceType ReferenceType   `json:"reference_type" gorm:"type:varchar(20);not null;uniqueIndex:uk_report_per_user,priority:2"`
	Category      string          `json:"report_category" gorm:"column:report_category;size:50;not null"`
	Reason        string          `json:"reason" gorm:"size:500;not null"`
	ReportedAt    time.Time       `json:"reported_at" gorm:"not null;index:idx_reports_reported_at_id,priority:1"`
	Status        ReportStatus    `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';uniqueIndex:uk_report_per_user,priority:4;index:idx_reports_status_id,priority:1"`
	History       []ReportHistory `json:"history,omitempty" gorm:"foreignKey:ReportID;references:ReportID;constraint:OnDelete:CASCADE"`

	categoryRef *ReportCategory
}

// NewReport builds a PENDING report with an empty history. reportedAt is
// truncated to the microsecond precision of the timestamp column.
func NewReport(id, reporterID, reportedID, reason string, category *ReportCategory, reportedAt time.Time) *Report {
	r := &Report{
		ReportID:   id,
		ReporterID: reporterID,
		ReportedID: reportedID,
		Reason:     reason,
		ReportedAt: reportedAt.UTC().Truncate(time.Microsecond),
		Status:     ReportStatusPending,
	}
	r.SetCategory(category)
	return r
}

// SetCategory attaches the category reference and copies its key into the
// denormalised columns. A nil category clears both.
func (r *Report) SetCategory(category *ReportCategory) {
	r.categoryRef = category
	if category == nil {
		r.ReferenceType = ""
		r.Category = ""
		return
	}
	r.ReferenceType = category.ReferenceType
	r.Category = category.Category
}

func (r *Report) CategoryRef() *ReportCategory {
	return r.categoryRef
}

// ChangeStatus moves the report to newStatus and records a STATUS_CHANGED
// entry. Requesting the current status does nothing.
func (r *Report) ChangeStatus(newStatus ReportStatus, adminID *string, comment string, nextID IDSupplier) error {
	if newStatus == r.Status {
		return nil
	}
	return r.appendEntry(ActionTypeStatusChanged, newStatus, adminID, comment, nextID)
}

func (r *Report) Approve(adminID *string, comment string, nextID IDSupplier) error {
	return r.ChangeStatus(ReportStatusApproved, adminID, comment, nextID)
}

func (r *Report) Reject(adminID *string, comment string, nextID IDSupplier) error {
	return r.ChangeStatus(ReportStatusRejected, adminID, comment, nextID)
}

func (r *Report) StartReview(adminID *string, comment string, nextID IDSupplier) error {
	return r.ChangeStatus(ReportStatusReviewing, adminID, comment, nextID)
}

// Hold puts the report back to PENDING.
func (r *Report) Hold(adminID *string, comment string, nextID IDSupplier) error {
	return r.ChangeStatus(ReportStatusPending, adminID, comment, nextID)
}

// Withdraw lets the original reporter retract a report that nobody has
// picked up yet.
func (r *Report) Withdraw(reporterID, comment string, nextID IDSupplier) error {
	if reporterID != r.ReporterID {
		return fmt.Errorf("%w: withdraw by %q", ErrUnauthorized, reporterID)
	}
	if r.Status != ReportStatusPending {
		return fmt.Errorf("%w: cannot withdraw a %s report", ErrInvalidState, r.Status)
	}
	return r.ChangeStatus(ReportStatusWithdrawn, nil, comment, nextID)
}

// AddComment records a note without changing the status.
func (r *Report) AddComment(adminID *string, comment string, nextID IDSupplier) error {
	return r.appendEntry(ActionTypeCommentAdded, r.Status, adminID, comment, nextID)
}

// appendEntry obtains the entry id before touching any state, so a failing
// supplier leaves the report exactly as it was.
func (r *Report) appendEntry(action ActionType, newStatus ReportStatus, adminID *string, comment string, nextID IDSupplier) error {
	historyID, err := nextID()
	if err != nil {
		return fmt.Errorf("mint history id: %w", err)
	}

	previous := r.Status
	createdAt := nowFunc()
	if last := r.LastHistory(); last != nil && createdAt.Before(last.CreatedAt) {
		createdAt = last.CreatedAt
	}

	r.History = append(r.History, ReportHistory{
		HistoryID:      historyID,
		ReportID:       r.ReportID,
		AdminID:        copyString(adminID),
		PreviousStatus: &previous,
		NewStatus:      newStatus,
		ActionType:     action,
		Comment:        comment,
		CreatedAt:      createdAt,
	})
	r.Status = newStatus
	return nil
}

// LastHistory returns the most recent entry, or nil for a fresh report.
func (r *Report) LastHistory() *ReportHistory {
	if len(r.History) == 0 {
		return nil
	}
	return &r.History[len(r.History)-1]
}

func (r *Report) IsPending() bool {
	return r.Status == ReportStatusPending
}

func (r *Report) IsApproved() bool {
	return r.Status == ReportStatusApproved
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
