// internal/keyset/request.go
package keyset

import (
	"fmt"
	"strings"

	"github.com/teambind/support-server/internal/models"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type SortKey string

const (
	SortReportedAt SortKey = "REPORTED_AT"
	SortStatus     SortKey = "STATUS"
)

func ParseSortKey(raw string) (SortKey, error) {
	switch k := SortKey(strings.ToUpper(strings.TrimSpace(raw))); k {
	case SortReportedAt, SortStatus:
		return k, nil
	case "":
		return SortReportedAt, nil
	}
	return "", fmt.Errorf("unsupported sort key %q", raw)
}

type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

func ParseDirection(raw string) (Direction, error) {
	switch d := Direction(strings.ToUpper(strings.TrimSpace(raw))); d {
	case Asc, Desc:
		return d, nil
	case "":
		return Desc, nil
	}
	return "", fmt.Errorf("unsupported sort direction %q", raw)
}

// Filter fields are optional and combined with AND.
type Filter struct {
	Status        *models.ReportStatus
	ReferenceType *models.ReferenceType
	Category      string
}

// Request describes one page of a report listing.
type Request struct {
	Filter    Filter
	Sort      SortKey
	Direction Direction
	Cursor    string
	Size      int
}

// normalize fills defaults and clamps the page size.
func (r Request) normalize() Request {
	if _, ok := sortFields[r.Sort]; !ok {
		r.Sort = SortReportedAt
	}
	if r.Direction != Asc {
		r.Direction = Desc
	}
	r.Size = ClampSize(r.Size)
	r.Filter.Category = strings.TrimSpace(r.Filter.Category)
	return r
}

// ClampSize maps unset or non-positive sizes to DefaultPageSize and caps the
// rest at MaxPageSize.
func ClampSize(size int) int {
	switch {
	case size <= 0:
		return DefaultPageSize
	case size > MaxPageSize:
		return MaxPageSize
	}
	return size
}
