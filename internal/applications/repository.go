// internal/applications/repository.go
package applications

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "jobboard-backend/internal/common/errors"
	"jobboard-backend/internal/common/logger"
	"jobboard-backend/internal/models"
	"jobboard-backend/internal/query"

	"github.com/lib/pq"
)

const applicationColumns = `id, job_listing_id, candidate_name, candidate_email, candidate_phone,
			status, responses, form_snapshot, notes, rating, submitted_at, created_at, updated_at`

// Repository persists applications in PostgreSQL. Responses and the form
// snapshot live in JSONB columns; the compound unique constraint on
// (candidate_email, job_listing_id) enforces one application per candidate
// per listing.
type Repository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewRepository(db *sql.DB, log logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "application-repository"}),
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var a models.Application
	var responses, snapshot []byte
	var rating sql.NullInt64

	err := row.Scan(
		&a.ID, &a.JobListingID, &a.Candidate.Name, &a.Candidate.Email, &a.Candidate.Phone,
		&a.Status, &responses, &snapshot, &a.Notes, &rating,
		&a.SubmittedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rating.Valid {
		r := int(rating.Int64)
		a.Rating = &r
	}
	if len(responses) > 0 {
		if err := json.Unmarshal(responses, &a.Responses); err != nil {
			return nil, fmt.Errorf("failed to decode responses: %w", err)
		}
	}
	if len(snapshot) > 0 {
		if err := json.Unmarshal(snapshot, &a.FormSnapshot); err != nil {
			return nil, fmt.Errorf("failed to decode form snapshot: %w", err)
		}
	}
	if a.Responses == nil {
		a.Responses = []models.ApplicationResponse{}
	}
	return &a, nil
}

func isDuplicateApplication(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *Repository) Insert(ctx context.Context, a *models.Application) error {
	responses, err := json.Marshal(a.Responses)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	snapshot, err := json.Marshal(a.FormSnapshot)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}

	var rating interface{}
	if a.Rating != nil {
		rating = *a.Rating
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO applications (
			id, job_listing_id, candidate_name, candidate_email, candidate_phone,
			status, responses, form_snapshot, notes, rating,
			submitted_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		a.ID, a.JobListingID, a.Candidate.Name, a.Candidate.Email, a.Candidate.Phone,
		a.Status, responses, snapshot, a.Notes, rating,
		a.SubmittedAt, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isDuplicateApplication(err) {
			return apperrors.NewDuplicateApplicationError(a.Candidate.Email, a.JobListingID)
		}
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)

	a, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewApplicationNotFoundError(id)
		}
		return nil, apperrors.NewQueryExecutionFailedError("get_application", err)
	}
	return a, nil
}

// Exists reports whether the candidate already applied to the listing.
func (r *Repository) Exists(ctx context.Context, candidateEmail, jobListingID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM applications
			WHERE candidate_email = $1 AND job_listing_id = $2
		)`, candidateEmail, jobListingID).Scan(&exists)
	if err != nil {
		return false, apperrors.NewQueryExecutionFailedError("application_exists", err)
	}
	return exists, nil
}

// List returns one page of applications matching the filter, newest
// submissions first, always with the total.
func (r *Repository) List(ctx context.Context, filter query.ApplicationFilter, page query.Page) (*query.PagedApplications, error) {
	where, args := filter.Compile()

	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications`+where, args...).Scan(&total)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("count_applications", err)
	}

	page = page.Normalized()
	q := `SELECT ` + applicationColumns + ` FROM applications` + where + ` ORDER BY submitted_at DESC`
	if !page.Unpaginated() {
		q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, page.Limit, page.Offset())
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_applications", err)
	}
	defer rows.Close()

	items := []models.Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list_applications", err)
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_applications", err)
	}

	return &query.PagedApplications{
		Items:     items,
		Total:     total,
		PageCount: query.PageCount(total, page.Limit),
	}, nil
}

// Count counts applications matching the filter.
func (r *Repository) Count(ctx context.Context, filter query.ApplicationFilter) (int64, error) {
	where, args := filter.Compile()

	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM applications`+where, args...).Scan(&total)
	if err != nil {
		return 0, apperrors.NewQueryExecutionFailedError("count_applications", err)
	}
	return total, nil
}

// UpdateStatus moves the application through the review workflow, optionally
// updating notes and rating in the same write.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, notes *string, rating *int) (*models.Application, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE applications
		SET status = $2,
		    notes = COALESCE($3, notes),
		    rating = COALESCE($4, rating),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+applicationColumns, id, string(status), notes, rating)

	a, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewApplicationNotFoundError(id)
		}
		return nil, apperrors.NewQueryExecutionFailedError("update_application_status", err)
	}
	return a, nil
}

func (r *Repository) UpdateNotes(ctx context.Context, id, notes string) (*models.Application, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE applications SET notes = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+applicationColumns, id, notes)

	a, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewApplicationNotFoundError(id)
		}
		return nil, apperrors.NewQueryExecutionFailedError("update_application_notes", err)
	}
	return a, nil
}

func (r *Repository) UpdateRating(ctx context.Context, id string, rating int) (*models.Application, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE applications SET rating = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+applicationColumns, id, rating)

	a, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewApplicationNotFoundError(id)
		}
		return nil, apperrors.NewQueryExecutionFailedError("rate_application", err)
	}
	return a, nil
}

// BulkUpdateStatus applies one status to many applications and returns how
// many rows actually changed.
func (r *Repository) BulkUpdateStatus(ctx context.Context, ids []string, status models.ApplicationStatus) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE applications SET status = $1, updated_at = NOW()
		WHERE id = ANY($2)`,
		string(status), pq.Array(ids))
	if err != nil {
		return 0, apperrors.NewQueryExecutionFailedError("bulk_update_application_status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.NewQueryExecutionFailedError("bulk_update_application_status", err)
	}
	return n, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("delete_application", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewApplicationNotFoundError(id)
	}
	return nil
}
