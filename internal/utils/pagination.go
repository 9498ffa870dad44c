// internal/utils/pagination.go
package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/teambind/support-server/internal/keyset"
	"github.com/teambind/support-server/internal/models"
)

// GetCursorParams reads the listing query string. Unknown enum values are
// reported back to the client; the cursor is passed through untouched and a
// non-numeric size falls back to the default.
func GetCursorParams(c *gin.Context) (keyset.Request, []ValidationError) {
	var req keyset.Request
	var errs []ValidationError

	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseReportStatus(raw)
		if err != nil {
			errs = append(errs, ValidationError{Field: "status", Tag: "report_status", Message: err.Error()})
		} else {
			req.Filter.Status = &status
		}
	}
	if raw := c.Query("reference_type"); raw != "" {
		refType, err := models.ParseReferenceType(raw)
		if err != nil {
			errs = append(errs, ValidationError{Field: "reference_type", Tag: "reference_type", Message: err.Error()})
		} else {
			req.Filter.ReferenceType = &refType
		}
	}
	req.Filter.Category = models.NormalizeCategory(c.DefaultQuery("category", c.Query("report_category")))

	sortKey, err := keyset.ParseSortKey(c.Query("sort"))
	if err != nil {
		errs = append(errs, ValidationError{Field: "sort", Tag: "oneof", Message: err.Error()})
	}
	req.Sort = sortKey

	direction, err := keyset.ParseDirection(c.Query("direction"))
	if err != nil {
		errs = append(errs, ValidationError{Field: "direction", Tag: "oneof", Message: err.Error()})
	}
	req.Direction = direction

	req.Cursor = c.Query("cursor")
	req.Size, _ = strconv.Atoi(c.Query("size"))

	return req, errs
}

const (
	PageSizeHeader   = "X-Page-Size"
	HasNextHeader    = "X-Has-Next"
	NextCursorHeader = "X-Next-Cursor"
)

func SetCursorHeaders(c *gin.Context, page keyset.Page) {
	c.Header(PageSizeHeader, strconv.Itoa(page.Size))
	c.Header(HasNextHeader, strconv.FormatBool(page.HasNext))
	if page.NextCursor != nil {
		c.Header(NextCursorHeader, *page.NextCursor)
	}
}
