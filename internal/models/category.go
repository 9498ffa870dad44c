// internal/models/category.go
package models

import "strings"

// ReportCategory is a reason a given kind of target can be reported for.
// The pair (ReferenceType, Category) is the key; Category is stored
// normalised.
type ReportCategory struct {
	ReferenceType ReferenceType `json:"reference_type" gorm:"primaryKey;type:varchar(20)"`
	Category      string        `json:"report_category" gorm:"primaryKey;column:report_category;size:50"`
	Name          string        `json:"name" gorm:"size:100"`
}

func (ReportCategory) TableName() string {
	return "report_categories"
}

// NormalizeCategory trims and lower-cases a category string.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
