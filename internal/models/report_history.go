// internal/models/report_history.go
package models

import "time"

// ReportHistory is one immutable audit entry. Entries are only ever created
// by the Report that owns them.
type ReportHistory struct {
	HistoryID      string        `json:"history_id" gorm:"primaryKey;size:20"`
	ReportID       string        `json:"report_id" gorm:"size:20;not null;index:idx_report_histories_report_created,priority:1"`
	AdminID        *string       `json:"admin_id" gorm:"size:64"`
	PreviousStatus *ReportStatus `json:"previous_status" gorm:"type:varchar(20)"`
	NewStatus      ReportStatus  `json:"new_status" gorm:"type:varchar(20);not null"`
	ActionType     ActionType    `json:"action_type" gorm:"type:varchar(30);not null"`
	Comment        string        `json:"comment" gorm:"type:text"`
	CreatedAt      time.Time     `json:"created_at" gorm:"not null;index:idx_report_histories_report_created,priority:2"`
}

func (ReportHistory) TableName() string {
	return "report_histories"
}
