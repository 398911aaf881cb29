// internal/applications/service.go
package applications

import (
	"context"
	"fmt"
	"strings"
	"time"

	apperrors "jobboard-backend/internal/common/errors"
	"jobboard-backend/internal/common/logger"
	"jobboard-backend/internal/common/metrics"
	"jobboard-backend/internal/models"
	"jobboard-backend/internal/query"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Store is the persistence surface the service depends on.
type Store interface {
	Insert(ctx context.Context, a *models.Application) error
	GetByID(ctx context.Context, id string) (*models.Application, error)
	Exists(ctx context.Context, candidateEmail, jobListingID string) (bool, error)
	List(ctx context.Context, filter query.ApplicationFilter, page query.Page) (*query.PagedApplications, error)
	Count(ctx context.Context, filter query.ApplicationFilter) (int64, error)
	UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, notes *string, rating *int) (*models.Application, error)
	UpdateNotes(ctx context.Context, id, notes string) (*models.Application, error)
	UpdateRating(ctx context.Context, id string, rating int) (*models.Application, error)
	BulkUpdateStatus(ctx context.Context, ids []string, status models.ApplicationStatus) (int64, error)
	Delete(ctx context.Context, id string) error
}

// Service owns the application domain rules: submission validation against
// the form snapshot, the review workflow, and statistics.
type Service struct {
	store     Store
	validator *Validator
	notifier  *Notifier
	logger    logger.Logger
}

// NewService wires the service; notifier may be nil when outbound email is
// disabled.
func NewService(store Store, validator *Validator, notifier *Notifier, log logger.Logger) *Service {
	return &Service{
		store:     store,
		validator: validator,
		notifier:  notifier,
		logger:    log.WithFields(map[string]interface{}{"component": "application-service"}),
	}
}

// SubmitApplication carries a candidate's submission. FormSnapshot is the
// caller's deep copy of the listing's custom sections at submission time.
type SubmitApplication struct {
	JobListingID string
	Candidate    models.Candidate
	Responses    []models.ApplicationResponse
	FormSnapshot models.FormSnapshot
}

// Submit validates and persists a new application. The duplicate-candidate
// check rides on the store's unique constraint rather than a separate
// read-before-write.
func (s *Service) Submit(ctx context.Context, in SubmitApplication) (*models.Application, error) {
	if _, err := uuid.Parse(in.JobListingID); err != nil {
		return nil, apperrors.NewInvalidIdentifierError(in.JobListingID)
	}
	if strings.TrimSpace(in.Candidate.Name) == "" {
		return nil, apperrors.NewValidationError("candidate name is required")
	}
	if strings.TrimSpace(in.Candidate.Email) == "" {
		return nil, apperrors.NewValidationError("candidate email is required")
	}
	if len(in.Responses) == 0 {
		return nil, apperrors.NewValidationError("at least one response is required")
	}

	if err := s.validator.Validate(in.Responses, in.FormSnapshot); err != nil {
		metrics.ApplicationsSubmitted.WithLabelValues("rejected").Inc()
		return nil, err
	}

	now := time.Now().UTC()
	s.validator.StampUploadTimes(in.Responses, now)

	app := &models.Application{
		ID:           uuid.NewString(),
		JobListingID: in.JobListingID,
		Candidate: models.Candidate{
			Name:  in.Candidate.Name,
			Email: strings.ToLower(strings.TrimSpace(in.Candidate.Email)),
			Phone: in.Candidate.Phone,
		},
		Responses:    in.Responses,
		FormSnapshot: in.FormSnapshot,
		Status:       models.ApplicationStatusSubmitted,
		SubmittedAt:  now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.Insert(ctx, app); err != nil {
		if apperrors.IsConflict(err) {
			metrics.ApplicationsSubmitted.WithLabelValues("duplicate").Inc()
		}
		return nil, err
	}
	metrics.ApplicationsSubmitted.WithLabelValues("accepted").Inc()

	s.logger.Info("application submitted", map[string]interface{}{
		"applicationId": app.ID,
		"jobListingId":  app.JobListingID,
	})
	s.notifier.ApplicationReceived(ctx, app)
	return app, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*models.Application, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewInvalidIdentifierError(id)
	}
	return s.store.GetByID(ctx, id)
}

// ListOptions selects one page of a listing's applications. Status is
// optional; an unset Page falls back to defaults and query.NoLimit requests
// everything.
type ListOptions struct {
	Status models.ApplicationStatus
	Page   query.Page
}

// ListByJobListing is the single list operation: optionally status-filtered,
// always paginated, always returning items with the total.
func (s *Service) ListByJobListing(ctx context.Context, jobListingID string, opts ListOptions) (*query.PagedApplications, error) {
	if _, err := uuid.Parse(jobListingID); err != nil {
		return nil, apperrors.NewInvalidIdentifierError(jobListingID)
	}
	if opts.Status != "" && !opts.Status.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid status: %s", opts.Status))
	}
	if err := opts.Page.Validate(); err != nil {
		return nil, err
	}
	return s.store.List(ctx, query.ApplicationFilter{
		JobListingID: jobListingID,
		Status:       opts.Status,
	}, opts.Page)
}

func (s *Service) ListByCandidateEmail(ctx context.Context, email string, page query.Page) (*query.PagedApplications, error) {
	if strings.TrimSpace(email) == "" {
		return nil, apperrors.NewValidationError("candidate email is required")
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	return s.store.List(ctx, query.ApplicationFilter{CandidateEmail: email}, page)
}

func (s *Service) ListByDateRange(ctx context.Context, from, to *time.Time, page query.Page) (*query.PagedApplications, error) {
	if from == nil && to == nil {
		return nil, apperrors.NewValidationError("a date range bound is required")
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	return s.store.List(ctx, query.ApplicationFilter{SubmittedFrom: from, SubmittedTo: to}, page)
}

// ListRecent returns the latest submissions across all listings.
func (s *Service) ListRecent(ctx context.Context, limit int) (*query.PagedApplications, error) {
	page := query.Page{Number: 1, Limit: limit}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	return s.store.List(ctx, query.ApplicationFilter{}, page)
}

// SearchByResponseField finds applications whose answer to one form field
// contains the given value, case-insensitively.
func (s *Service) SearchByResponseField(ctx context.Context, jobListingID, fieldName, value string, page query.Page) (*query.PagedApplications, error) {
	if strings.TrimSpace(fieldName) == "" {
		return nil, apperrors.NewValidationError("field name is required")
	}
	if strings.TrimSpace(value) == "" {
		return nil, apperrors.NewValidationError("search value is required")
	}
	if jobListingID != "" {
		if _, err := uuid.Parse(jobListingID); err != nil {
			return nil, apperrors.NewInvalidIdentifierError(jobListingID)
		}
	}
	if err := page.Validate(); err != nil {
		return nil, err
	}
	return s.store.List(ctx, query.ApplicationFilter{
		JobListingID:  jobListingID,
		ResponseField: fieldName,
		ResponseValue: value,
	}, page)
}

func validateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return apperrors.NewValidationError("rating must be between 1 and 5")
	}
	return nil
}

// UpdateStatus moves the application through the review workflow; notes and
// rating may be updated in the same call.
func (s *Service) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, notes *string, rating *int) (*models.Application, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewInvalidIdentifierError(id)
	}
	if !status.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid status: %s", status))
	}
	if rating != nil {
		if err := validateRating(*rating); err != nil {
			return nil, err
		}
	}

	app, err := s.store.UpdateStatus(ctx, id, status, notes, rating)
	if err != nil {
		return nil, err
	}

	s.logger.Info("application status updated", map[string]interface{}{
		"applicationId": id,
		"status":        status,
	})
	s.notifier.StatusChanged(ctx, app)
	return app, nil
}

func (s *Service) AddNotes(ctx context.Context, id, notes string) (*models.Application, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewInvalidIdentifierError(id)
	}
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return nil, apperrors.NewValidationError("notes must not be empty")
	}
	return s.store.UpdateNotes(ctx, id, notes)
}

func (s *Service) Rate(ctx context.Context, id string, rating int) (*models.Application, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewInvalidIdentifierError(id)
	}
	if err := validateRating(rating); err != nil {
		return nil, err
	}
	return s.store.UpdateRating(ctx, id, rating)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewInvalidIdentifierError(id)
	}
	return s.store.Delete(ctx, id)
}

func (s *Service) Count(ctx context.Context, jobListingID string) (int64, error) {
	if _, err := uuid.Parse(jobListingID); err != nil {
		return 0, apperrors.NewInvalidIdentifierError(jobListingID)
	}
	return s.store.Count(ctx, query.ApplicationFilter{JobListingID: jobListingID})
}

func (s *Service) CountByStatus(ctx context.Context, jobListingID string, status models.ApplicationStatus) (int64, error) {
	if _, err := uuid.Parse(jobListingID); err != nil {
		return 0, apperrors.NewInvalidIdentifierError(jobListingID)
	}
	if !status.IsValid() {
		return 0, apperrors.NewValidationError(fmt.Sprintf("invalid status: %s", status))
	}
	return s.store.Count(ctx, query.ApplicationFilter{JobListingID: jobListingID, Status: status})
}

// Exists reports whether the candidate already applied to the listing.
func (s *Service) Exists(ctx context.Context, candidateEmail, jobListingID string) (bool, error) {
	if strings.TrimSpace(candidateEmail) == "" {
		return false, apperrors.NewValidationError("candidate email is required")
	}
	if _, err := uuid.Parse(jobListingID); err != nil {
		return false, apperrors.NewInvalidIdentifierError(jobListingID)
	}
	return s.store.Exists(ctx, strings.ToLower(strings.TrimSpace(candidateEmail)), jobListingID)
}

// Statistics returns the total and a per-status breakdown for one listing.
// The six counts run concurrently and are independent reads, so the
// breakdown is an eventual-consistency snapshot, not a transactional one.
func (s *Service) Statistics(ctx context.Context, jobListingID string) (*models.ApplicationStatistics, error) {
	if _, err := uuid.Parse(jobListingID); err != nil {
		return nil, apperrors.NewInvalidIdentifierError(jobListingID)
	}

	stats := &models.ApplicationStatistics{
		ByStatus: make(map[models.ApplicationStatus]int64, 5),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.store.Count(gctx, query.ApplicationFilter{JobListingID: jobListingID})
		if err != nil {
			return err
		}
		stats.Total = total
		return nil
	})

	counts := make([]int64, 5)
	statuses := models.AllApplicationStatuses()
	for i, status := range statuses {
		g.Go(func() error {
			n, err := s.store.Count(gctx, query.ApplicationFilter{JobListingID: jobListingID, Status: status})
			if err != nil {
				return err
			}
			counts[i] = n
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, status := range statuses {
		stats.ByStatus[status] = counts[i]
	}
	return stats, nil
}

// BulkUpdateStatus validates every id up front; one malformed id rejects the
// whole call before any write. The returned count is the contract; partial
// success (missing ids) is reported through it, not as an error.
func (s *Service) BulkUpdateStatus(ctx context.Context, ids []string, status models.ApplicationStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, apperrors.NewValidationError("at least one application id is required")
	}
	if !status.IsValid() {
		return 0, apperrors.NewValidationError(fmt.Sprintf("invalid status: %s", status))
	}
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return 0, apperrors.NewInvalidIdentifierError(id)
		}
	}
	return s.store.BulkUpdateStatus(ctx, ids, status)
}
