// internal/keyset/plan.go
package keyset

import (
	"strings"

	"github.com/teambind/support-server/internal/models"
)

// Plan is a storage-agnostic description of one page fetch: filters, a total
// order, an optional strict lower bound in that order, and a row limit.
type Plan struct {
	Filter    Filter
	Sort      SortKey
	Direction Direction
	// After is nil on the first page.
	After *Boundary
	// Size is the page size; Limit is Size+1 so the extra row signals a
	// further page.
	Size  int
	Limit int
}

// Build normalises req and decodes its cursor. A cursor that cannot be
// decoded is dropped and the plan starts from the first page.
func Build(req Request) Plan {
	req = req.normalize()
	plan := Plan{
		Filter:    req.Filter,
		Sort:      req.Sort,
		Direction: req.Direction,
		Size:      req.Size,
		Limit:     req.Size + 1,
	}
	if req.Cursor != "" {
		if b, ok := plan.field().parseCursor(req.Cursor); ok {
			plan.After = &b
		}
	}
	return plan
}

func (p Plan) field() sortField {
	if f, ok := sortFields[p.Sort]; ok {
		return f
	}
	return sortFields[SortReportedAt]
}

// SortColumn is the primary order column; report_id always follows it.
func (p Plan) SortColumn() string {
	return p.field().column()
}

func (p Plan) Descending() bool {
	return p.Direction != Asc
}

// NeedsBoundaryStatus is true when the cursor names a row whose status the
// store must look up before the plan can be executed.
func (p Plan) NeedsBoundaryStatus() bool {
	return p.Sort == SortStatus && p.After != nil && p.After.Status == nil
}

// Matches evaluates filters and the cursor predicate against one report.
func (p Plan) Matches(r *models.Report) bool {
	f := p.Filter
	if f.Status != nil && r.Status != *f.Status {
		return false
	}
	if f.ReferenceType != nil && r.ReferenceType != *f.ReferenceType {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if p.After == nil {
		return true
	}
	if p.Descending() {
		return p.field().beforeBoundary(r, *p.After)
	}
	return p.field().afterBoundary(r, *p.After)
}

// Less orders a before b under the plan's sort key, direction and report_id
// tie-break.
func (p Plan) Less(a, b *models.Report) bool {
	c := p.field().compare(a, b)
	if c == 0 {
		c = strings.Compare(a.ReportID, b.ReportID)
	}
	if p.Descending() {
		return c > 0
	}
	return c < 0
}

// CursorOf encodes the position of r for the next request.
func (p Plan) CursorOf(r *models.Report) string {
	return p.field().cursorOf(r)
}
