// internal/query/page.go
package query

import (
	"fmt"

	"jobboard-backend/internal/common/errors"
	"jobboard-backend/internal/models"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100

	// NoLimit is the explicit "all items, unpaginated" sentinel.
	NoLimit = -1
)

// Page selects one page of results. The zero value means page 1 with the
// default limit.
type Page struct {
	Number int `json:"page"`
	Limit  int `json:"limit"`
}

// Normalized fills in defaults for unset fields.
func (p Page) Normalized() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	return p
}

// Validate rejects limits outside 1..MaxLimit (NoLimit excepted).
func (p Page) Validate() error {
	p = p.Normalized()
	if p.Limit == NoLimit {
		return nil
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return errors.NewValidationError(fmt.Sprintf("limit must be between 1 and %d", MaxLimit))
	}
	return nil
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	p = p.Normalized()
	if p.Limit == NoLimit {
		return 0
	}
	return (p.Number - 1) * p.Limit
}

// Unpaginated reports whether the caller asked for everything.
func (p Page) Unpaginated() bool {
	return p.Limit == NoLimit
}

// PageCount returns the number of pages needed for total items.
func PageCount(total int64, limit int) int {
	if limit <= 0 {
		if total > 0 {
			return 1
		}
		return 0
	}
	if total == 0 {
		return 0
	}
	return int((total + int64(limit) - 1) / int64(limit))
}

// PagedListings is the uniform listing query result.
type PagedListings struct {
	Items     []models.JobListing `json:"items"`
	Total     int64               `json:"total"`
	PageCount int                 `json:"pageCount"`
}

// PagedApplications is the uniform application query result.
type PagedApplications struct {
	Items     []models.Application `json:"items"`
	Total     int64                `json:"total"`
	PageCount int                  `json:"pageCount"`
}
