// internal/keyset/cursor.go
package keyset

import (
	"strings"
	"time"

	"github.com/teambind/support-server/internal/idgen"
	"github.com/teambind/support-server/internal/models"
)

// Boundary is the decoded position of the last row of the previous page.
type Boundary struct {
	// ReportedAt is set for REPORTED_AT cursors.
	ReportedAt time.Time
	// ReportID is set for STATUS cursors.
	ReportID string
	// Status is the boundary row's status, resolved from the store. Nil when
	// the row is gone, in which case only ReportID orders the boundary.
	Status *models.ReportStatus
}

// sortField is one supported sort key. The set is closed: sortFields holds
// every implementation.
type sortField interface {
	column() string
	compare(a, b *models.Report) int
	parseCursor(raw string) (Boundary, bool)
	cursorOf(r *models.Report) string
	// afterBoundary reports whether r sorts strictly after b in ascending order.
	afterBoundary(r *models.Report, b Boundary) bool
	beforeBoundary(r *models.Report, b Boundary) bool
}

var sortFields = map[SortKey]sortField{
	SortReportedAt: reportedAtField{},
	SortStatus:     statusField{},
}

// cursorLayouts are tried in order. Zone-less timestamps are read as UTC.
var cursorLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

type reportedAtField struct{}

func (reportedAtField) column() string { return "reported_at" }

func (reportedAtField) compare(a, b *models.Report) int {
	return a.ReportedAt.Compare(b.ReportedAt)
}

func (reportedAtField) parseCursor(raw string) (Boundary, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range cursorLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return Boundary{ReportedAt: ts.UTC()}, true
		}
	}
	return Boundary{}, false
}

// cursorOf encodes only the timestamp. Rows sharing the boundary row's
// timestamp are skipped by the next page's strict comparison.
func (reportedAtField) cursorOf(r *models.Report) string {
	return r.ReportedAt.UTC().Format(time.RFC3339Nano)
}

func (reportedAtField) afterBoundary(r *models.Report, b Boundary) bool {
	return r.ReportedAt.After(b.ReportedAt)
}

func (reportedAtField) beforeBoundary(r *models.Report, b Boundary) bool {
	return r.ReportedAt.Before(b.ReportedAt)
}

type statusField struct{}

func (statusField) column() string { return "status" }

func (statusField) compare(a, b *models.Report) int {
	return strings.Compare(string(a.Status), string(b.Status))
}

func (statusField) parseCursor(raw string) (Boundary, bool) {
	raw = strings.TrimSpace(raw)
	if _, err := idgen.ParseString(raw); err != nil {
		return Boundary{}, false
	}
	return Boundary{ReportID: raw}, true
}

func (statusField) cursorOf(r *models.Report) string {
	return r.ReportID
}

func (statusField) afterBoundary(r *models.Report, b Boundary) bool {
	if b.Status != nil && r.Status != *b.Status {
		return r.Status > *b.Status
	}
	return r.ReportID > b.ReportID
}

func (statusField) beforeBoundary(r *models.Report, b Boundary) bool {
	if b.Status != nil && r.Status != *b.Status {
		return r.Status < *b.Status
	}
	return r.ReportID < b.ReportID
}
