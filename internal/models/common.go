// internal/models/common.go
package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownValue is returned when parsing an enum value fails.
var ErrUnknownValue = errors.New("unknown value")

// IDSupplier mints the identifier of a new history entry.
type IDSupplier func() (string, error)

// Enums
type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "PENDING"
	ReportStatusReviewing ReportStatus = "REVIEWING"
	ReportStatusApproved  ReportStatus = "APPROVED"
	ReportStatusRejected  ReportStatus = "REJECTED"
	ReportStatusWithdrawn ReportStatus = "WITHDRAWN"
)

var reportStatuses = []ReportStatus{
	ReportStatusPending,
	ReportStatusReviewing,
	ReportStatusApproved,
	ReportStatusRejected,
	ReportStatusWithdrawn,
}

func (s ReportStatus) Valid() bool {
	for _, v := range reportStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ParseReportStatus accepts any letter case and surrounding blanks.
func ParseReportStatus(raw string) (ReportStatus, error) {
	s := ReportStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: report status %q", ErrUnknownValue, raw)
	}
	return s, nil
}

type ReferenceType string

const (
	ReferenceTypeProfile  ReferenceType = "PROFILE"
	ReferenceTypeArticle  ReferenceType = "ARTICLE"
	ReferenceTypeBusiness ReferenceType = "BUSINESS"
)

func (t ReferenceType) Valid() bool {
	switch t {
	case ReferenceTypeProfile, ReferenceTypeArticle, ReferenceTypeBusiness:
		return true
	}
	return false
}

func ParseReferenceType(raw string) (ReferenceType, error) {
	t := ReferenceType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: reference type %q", ErrUnknownValue, raw)
	}
	return t, nil
}

type ActionType string

const (
	ActionTypeStatusChanged   ActionType = "STATUS_CHANGED"
	ActionTypeAssigned        ActionType = "ASSIGNED"
	ActionTypeReviewed        ActionType = "REVIEWED"
	ActionTypeSanctionApplied ActionType = "SANCTION_APPLIED"
	ActionTypeCommentAdded    ActionType = "COMMENT_ADDED"
)
