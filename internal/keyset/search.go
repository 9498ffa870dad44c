// internal/keyset/search.go
package keyset

import (
	"context"
	"fmt"

	"github.com/teambind/support-server/internal/models"
)

// Source executes plans. Query must return at most plan.Limit rows that
// satisfy plan.Matches, ordered by plan.Less.
type Source interface {
	Query(ctx context.Context, plan Plan) ([]models.Report, error)
	BoundaryStatus(ctx context.Context, reportID string) (models.ReportStatus, bool, error)
}

type Page struct {
	Items      []models.Report `json:"items"`
	NextCursor *string         `json:"next_cursor"`
	Size       int             `json:"size"`
	HasNext    bool            `json:"has_next"`
}

// Search fetches one page of reports.
func Search(ctx context.Context, src Source, req Request) (Page, error) {
	plan := Build(req)

	if plan.NeedsBoundaryStatus() {
		status, found, err := src.BoundaryStatus(ctx, plan.After.ReportID)
		if err != nil {
			return Page{}, fmt.Errorf("resolve cursor boundary: %w", err)
		}
		if found {
			plan.After.Status = &status
		}
	}

	rows, err := src.Query(ctx, plan)
	if err != nil {
		return Page{}, fmt.Errorf("query reports: %w", err)
	}
	return Assemble(plan, rows), nil
}

// Assemble trims the look-ahead row and derives the next cursor.
func Assemble(plan Plan, rows []models.Report) Page {
	page := Page{Size: plan.Size}
	if len(rows) > plan.Size {
		rows = rows[:plan.Size]
		page.HasNext = true
		cursor := plan.CursorOf(&rows[len(rows)-1])
		page.NextCursor = &cursor
	}
	if rows == nil {
		rows = []models.Report{}
	}
	page.Items = rows
	return page
}
