// internal/query/filters.go
package query

import (
	"fmt"
	"strings"
	"time"

	"jobboard-backend/internal/models"

	"github.com/lib/pq"
)

// ListingFilter composes job listing query conditions. Text filters are
// case-insensitive substring matches; categories combine with AND, the search
// term's multi-field match is the only OR.
type ListingFilter struct {
	SearchTerm     string
	Status         models.JobStatus
	EmploymentType models.EmploymentType
	City           string
	State          string
	Country        string
	IsRemote       *bool
	Tags           []string
	PublishedOnly  bool
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
}

// Compile renders the filter as a WHERE clause with positional args starting
// at $1. Callers continue numbering at len(args)+1 for LIMIT/OFFSET.
func (f ListingFilter) Compile() (string, []interface{}) {
	var conds []string
	var args []interface{}
	next := func(v interface{}) int {
		args = append(args, v)
		return len(args)
	}

	if f.SearchTerm != "" {
		n := next("%" + f.SearchTerm + "%")
		conds = append(conds, fmt.Sprintf(
			"(title ILIKE $%d OR description ILIKE $%d OR role ILIKE $%d OR company->>'name' ILIKE $%d)",
			n, n, n, n))
	}
	if f.Status != "" {
		n := next(string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", n))
	}
	if f.EmploymentType != "" {
		n := next(string(f.EmploymentType))
		conds = append(conds, fmt.Sprintf("employment_type = $%d", n))
	}
	if f.City != "" {
		n := next("%" + f.City + "%")
		conds = append(conds, fmt.Sprintf("location->>'city' ILIKE $%d", n))
	}
	if f.State != "" {
		n := next("%" + f.State + "%")
		conds = append(conds, fmt.Sprintf("location->>'state' ILIKE $%d", n))
	}
	if f.Country != "" {
		n := next("%" + f.Country + "%")
		conds = append(conds, fmt.Sprintf("location->>'country' ILIKE $%d", n))
	}
	if f.IsRemote != nil {
		n := next(*f.IsRemote)
		conds = append(conds, fmt.Sprintf("(location->>'isRemote')::boolean = $%d", n))
	}
	if len(f.Tags) > 0 {
		n := next(pq.Array(f.Tags))
		conds = append(conds, fmt.Sprintf("tags && $%d", n))
	}
	if f.PublishedOnly {
		conds = append(conds, "is_published = TRUE AND status = 'active' AND (expires_at IS NULL OR expires_at > NOW())")
	}
	if f.CreatedFrom != nil {
		n := next(*f.CreatedFrom)
		conds = append(conds, fmt.Sprintf("created_at >= $%d", n))
	}
	if f.CreatedTo != nil {
		n := next(*f.CreatedTo)
		conds = append(conds, fmt.Sprintf("created_at <= $%d", n))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ApplicationFilter composes application query conditions.
type ApplicationFilter struct {
	JobListingID   string
	Status         models.ApplicationStatus
	CandidateEmail string
	SubmittedFrom  *time.Time
	SubmittedTo    *time.Time

	// ResponseField/ResponseValue match one answered form field by name with a
	// substring search over its value.
	ResponseField string
	ResponseValue string
}

// Compile renders the filter as a WHERE clause with positional args starting
// at $1.
func (f ApplicationFilter) Compile() (string, []interface{}) {
	var conds []string
	var args []interface{}
	next := func(v interface{}) int {
		args = append(args, v)
		return len(args)
	}

	if f.JobListingID != "" {
		n := next(f.JobListingID)
		conds = append(conds, fmt.Sprintf("job_listing_id = $%d", n))
	}
	if f.Status != "" {
		n := next(string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", n))
	}
	if f.CandidateEmail != "" {
		n := next(strings.ToLower(f.CandidateEmail))
		conds = append(conds, fmt.Sprintf("candidate_email = $%d", n))
	}
	if f.SubmittedFrom != nil {
		n := next(*f.SubmittedFrom)
		conds = append(conds, fmt.Sprintf("submitted_at >= $%d", n))
	}
	if f.SubmittedTo != nil {
		n := next(*f.SubmittedTo)
		conds = append(conds, fmt.Sprintf("submitted_at <= $%d", n))
	}
	if f.ResponseField != "" {
		fn := next(f.ResponseField)
		vn := next("%" + f.ResponseValue + "%")
		conds = append(conds, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM jsonb_array_elements(responses) AS r WHERE r->>'fieldName' = $%d AND r->>'value' ILIKE $%d)",
			fn, vn))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
