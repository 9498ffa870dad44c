// internal/keyset/search_test.go
package keyset

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teambind/support-server/internal/models"
)

type sliceSource struct {
	reports     []models.Report
	queries     []Plan
	boundaryErr error
}

func (s *sliceSource) Query(_ context.Context, plan Plan) ([]models.Report, error) {
	s.queries = append(s.queries, plan)
	var out []models.Report
	for i := range s.reports {
		if plan.Matches(&s.reports[i]) {
			out = append(out, s.reports[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return plan.Less(&out[i], &out[j]) })
	if len(out) > plan.Limit {
		out = out[:plan.Limit]
	}
	return out, nil
}

func (s *sliceSource) BoundaryStatus(_ context.Context, id string) (models.ReportStatus, bool, error) {
	if s.boundaryErr != nil {
		return "", false, s.boundaryErr
	}
	for _, r := range s.reports {
		if r.ReportID == id {
			return r.Status, true, nil
		}
	}
	return "", false, nil
}

var t0 = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func reportID(n int) string {
	return fmt.Sprintf("7%018d", n)
}

func report(n int, status models.ReportStatus, at time.Time) models.Report {
	return models.Report{
		ReportID:      reportID(n),
		ReporterID:    fmt.Sprintf("USER-%03d", n),
		ReportedID:    "USER-999",
		ReferenceType: models.ReferenceTypeProfile,
		Category:      "spam",
		ReportedAt:    at,
		Status:        status,
	}
}

func ids(reports []models.Report) []string {
	out := make([]string, len(reports))
	for i, r := range reports {
		out[i] = r.ReportID
	}
	return out
}

func sixReports() []models.Report {
	var out []models.Report
	for i := 1; i <= 6; i++ {
		out = append(out, report(i, models.ReportStatusPending, t0.Add(time.Duration(i)*time.Minute)))
	}
	return out
}

func TestSearch_TwoPagesReportedAtDesc(t *testing.T) {
	src := &sliceSource{reports: sixReports()}
	ctx := context.Background()

	first, err := Search(ctx, src, Request{Size: 5})
	require.NoError(t, err)
	require.Len(t, first.Items, 5)
	require.NotNil(t, first.NextCursor)
	assert.True(t, first.HasNext)
	assert.Equal(t, 5, first.Size)
	assert.Equal(t, t0.Add(2*time.Minute).Format(time.RFC3339Nano), *first.NextCursor)

	// a newer report arrives between the two calls
	src.reports = append(src.reports, report(7, models.ReportStatusPending, t0.Add(time.Hour)))

	second, err := Search(ctx, src, Request{Size: 5, Cursor: *first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Nil(t, second.NextCursor)
	assert.False(t, second.HasNext)

	all := append(ids(first.Items), ids(second.Items)...)
	assert.Equal(t, []string{
		reportID(6), reportID(5), reportID(4), reportID(3), reportID(2), reportID(1),
	}, all)
}

func TestSearch_ExactlyOnePageHasNoCursor(t *testing.T) {
	src := &sliceSource{reports: sixReports()}

	page, err := Search(context.Background(), src, Request{Size: 6})
	require.NoError(t, err)
	assert.Len(t, page.Items, 6)
	assert.False(t, page.HasNext)
	assert.Nil(t, page.NextCursor)
	assert.Equal(t, 7, src.queries[0].Limit)
}

func TestSearch_EmptyResultIsEmptySlice(t *testing.T) {
	page, err := Search(context.Background(), &sliceSource{}, Request{})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.NextCursor)
}

func TestSearch_FilterHoldsAcrossPages(t *testing.T) {
	statuses := []models.ReportStatus{
		models.ReportStatusPending, models.ReportStatusApproved, models.ReportStatusPending,
		models.ReportStatusRejected, models.ReportStatusPending, models.ReportStatusPending,
		models.ReportStatusReviewing, models.ReportStatusPending,
	}
	var reports []models.Report
	for i, s := range statuses {
		reports = append(reports, report(i+1, s, t0.Add(time.Duration(i)*time.Minute)))
	}
	src := &sliceSource{reports: reports}

	pending := models.ReportStatusPending
	req := Request{Filter: Filter{Status: &pending}, Size: 2}

	var seen []string
	for pages := 0; pages < 10; pages++ {
		page, err := Search(context.Background(), src, req)
		require.NoError(t, err)
		for _, r := range page.Items {
			assert.Equal(t, models.ReportStatusPending, r.Status)
		}
		seen = append(seen, ids(page.Items)...)
		if page.NextCursor == nil {
			break
		}
		req.Cursor = *page.NextCursor
	}
	assert.Equal(t, []string{reportID(8), reportID(6), reportID(5), reportID(3), reportID(1)}, seen)
}

func TestSearch_FiltersCombine(t *testing.T) {
	a := report(1, models.ReportStatusPending, t0)
	b := report(2, models.ReportStatusPending, t0.Add(time.Minute))
	b.ReferenceType = models.ReferenceTypeArticle
	c := report(3, models.ReportStatusPending, t0.Add(2*time.Minute))
	c.Category = "abuse"
	src := &sliceSource{reports: []models.Report{a, b, c}}

	profile := models.ReferenceTypeProfile
	page, err := Search(context.Background(), src, Request{
		Filter: Filter{ReferenceType: &profile, Category: " spam "},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{reportID(1)}, ids(page.Items))
}

func TestSearch_UnparsableCursorIsFirstPage(t *testing.T) {
	src := &sliceSource{reports: sixReports()}
	ctx := context.Background()

	baseline, err := Search(ctx, src, Request{Size: 3})
	require.NoError(t, err)

	for _, cursor := range []string{"not-a-date", "2025-13-45T99:00:00Z", "{}"} {
		page, err := Search(ctx, src, Request{Size: 3, Cursor: cursor})
		require.NoError(t, err, cursor)
		assert.Equal(t, ids(baseline.Items), ids(page.Items), cursor)
	}

	page, err := Search(ctx, src, Request{Sort: SortStatus, Size: 3, Cursor: "abc"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Nil(t, src.queries[len(src.queries)-1].After)
}

func TestSearch_ZonelessCursorIsUTC(t *testing.T) {
	src := &sliceSource{reports: sixReports()}

	page, err := Search(context.Background(), src, Request{Cursor: "2025-06-01T08:03:00"})
	require.NoError(t, err)
	assert.Equal(t, []string{reportID(2), reportID(1)}, ids(page.Items))
}

func TestSearch_AscendingReportedAt(t *testing.T) {
	src := &sliceSource{reports: sixReports()}
	ctx := context.Background()

	first, err := Search(ctx, src, Request{Direction: Asc, Size: 4})
	require.NoError(t, err)
	require.NotNil(t, first.NextCursor)
	assert.Equal(t, []string{reportID(1), reportID(2), reportID(3), reportID(4)}, ids(first.Items))

	second, err := Search(ctx, src, Request{Direction: Asc, Size: 4, Cursor: *first.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, []string{reportID(5), reportID(6)}, ids(second.Items))
	assert.Nil(t, second.NextCursor)
}

func statusMix() []models.Report {
	statuses := []models.ReportStatus{
		models.ReportStatusPending, models.ReportStatusApproved, models.ReportStatusRejected,
		models.ReportStatusPending, models.ReportStatusApproved, models.ReportStatusReviewing,
		models.ReportStatusPending, models.ReportStatusWithdrawn,
	}
	var out []models.Report
	for i, s := range statuses {
		out = append(out, report(i+1, s, t0.Add(time.Duration(i)*time.Minute)))
	}
	return out
}

func walk(t *testing.T, src Source, req Request) []string {
	t.Helper()
	var seen []string
	for pages := 0; pages < 20; pages++ {
		page, err := Search(context.Background(), src, req)
		require.NoError(t, err)
		seen = append(seen, ids(page.Items)...)
		if page.NextCursor == nil {
			return seen
		}
		req.Cursor = *page.NextCursor
	}
	t.Fatal("pagination did not terminate")
	return nil
}

func TestSearch_StatusSortWalksEveryRowOnce(t *testing.T) {
	reports := statusMix()

	for _, dir := range []Direction{Desc, Asc} {
		plan := Build(Request{Sort: SortStatus, Direction: dir})
		want := append([]models.Report(nil), reports...)
		sort.SliceStable(want, func(i, j int) bool { return plan.Less(&want[i], &want[j]) })

		got := walk(t, &sliceSource{reports: reports}, Request{Sort: SortStatus, Direction: dir, Size: 3})
		assert.Equal(t, ids(want), got, string(dir))
	}
}

func TestSearch_StatusSortOrdersByStatusThenID(t *testing.T) {
	got := walk(t, &sliceSource{reports: statusMix()}, Request{Sort: SortStatus, Direction: Asc, Size: 2})

	assert.Equal(t, []string{
		reportID(2), reportID(5), // APPROVED
		reportID(1), reportID(4), reportID(7), // PENDING
		reportID(3), // REJECTED
		reportID(6), // REVIEWING
		reportID(8), // WITHDRAWN
	}, got)
}

func TestSearch_StatusCursorWithDeletedBoundaryFallsBackToID(t *testing.T) {
	src := &sliceSource{reports: statusMix()}

	page, err := Search(context.Background(), src, Request{Sort: SortStatus, Direction: Asc, Cursor: reportID(99)})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = Search(context.Background(), src, Request{Sort: SortStatus, Direction: Desc, Cursor: reportID(4)})
	require.NoError(t, err)
	plan := src.queries[len(src.queries)-1]
	require.NotNil(t, plan.After.Status)
	assert.Equal(t, models.ReportStatusPending, *plan.After.Status)
	for _, r := range page.Items {
		assert.True(t, plan.Less(&models.Report{ReportID: reportID(4), Status: models.ReportStatusPending}, &r))
	}
}

func TestSearch_BoundaryLookupErrorPropagates(t *testing.T) {
	boom := errors.New("connection reset")
	src := &sliceSource{reports: statusMix(), boundaryErr: boom}

	_, err := Search(context.Background(), src, Request{Sort: SortStatus, Cursor: reportID(3)})
	assert.ErrorIs(t, err, boom)
}

func TestClampSize(t *testing.T) {
	cases := map[int]int{0: 20, -3: 20, 1: 1, 7: 7, 100: 100, 101: 100, 5000: 100}
	for in, want := range cases {
		assert.Equal(t, want, ClampSize(in), "size %d", in)
	}

	plan := Build(Request{Size: 500})
	assert.Equal(t, 100, plan.Size)
	assert.Equal(t, 101, plan.Limit)
}

func TestBuild_Defaults(t *testing.T) {
	plan := Build(Request{})
	assert.Equal(t, SortReportedAt, plan.Sort)
	assert.Equal(t, Desc, plan.Direction)
	assert.Equal(t, "reported_at", plan.SortColumn())
	assert.True(t, plan.Descending())
	assert.Nil(t, plan.After)

	plan = Build(Request{Sort: "PRIORITY", Direction: "sideways"})
	assert.Equal(t, SortReportedAt, plan.Sort)
	assert.Equal(t, Desc, plan.Direction)
}

func TestParseSortKeyAndDirection(t *testing.T) {
	k, err := ParseSortKey("status")
	require.NoError(t, err)
	assert.Equal(t, SortStatus, k)

	k, err = ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortReportedAt, k)

	_, err = ParseSortKey("reason")
	assert.Error(t, err)

	d, err := ParseDirection("asc")
	require.NoError(t, err)
	assert.Equal(t, Asc, d)

	_, err = ParseDirection("up")
	assert.Error(t, err)
}

func TestSearch_ReportedAtTieAtPageBoundary(t *testing.T) {
	tied := t0.Add(2 * time.Minute)
	src := &sliceSource{reports: []models.Report{
		report(1, models.ReportStatusPending, t0.Add(time.Minute)),
		report(2, models.ReportStatusPending, tied),
		report(3, models.ReportStatusPending, tied),
	}}
	ctx := context.Background()

	first, err := Search(ctx, src, Request{Size: 1})
	require.NoError(t, err)
	require.Len(t, first.Items, 1)
	require.NotNil(t, first.NextCursor)
	assert.Equal(t, tied.Format(time.RFC3339Nano), *first.NextCursor)

	second, err := Search(ctx, src, Request{Size: 1, Cursor: *first.NextCursor})
	require.NoError(t, err)

	// The cursor carries no id, so the other tied row is not reachable.
	require.Len(t, second.Items, 1)
	assert.Equal(t, reportID(1), second.Items[0].ReportID)
	assert.False(t, second.HasNext)
}
