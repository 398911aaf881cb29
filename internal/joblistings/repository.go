// internal/joblistings/repository.go
package joblistings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "jobboard-backend/internal/common/errors"
	"jobboard-backend/internal/common/logger"
	"jobboard-backend/internal/models"
	"jobboard-backend/internal/query"

	"github.com/lib/pq"
)

const listingColumns = `id, title, description, role, slug, status, employment_type,
		is_published, published_at, expires_at, views, applications, tags, qualifications,
		notes, company, location, salary, experience, custom_sections, media,
		created_at, updated_at`

const expiredCondition = ` WHERE expires_at IS NOT NULL AND expires_at <= NOW() AND status <> 'closed'`

// Repository persists job listings in PostgreSQL. Embedded documents
// (company, location, salary, experience, custom sections, media) live in
// JSONB columns; tags and qualifications are text arrays.
type Repository struct {
	db     *sql.DB
	logger logger.Logger
}

func NewRepository(db *sql.DB, log logger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "job-listing-repository"}),
	}
}

// UpdateListing is a partial update; nil fields are left unchanged.
type UpdateListing struct {
	Title          *string
	Description    *string
	Role           *string
	Slug           *string
	EmploymentType *models.EmploymentType
	Notes          *string
	Qualifications *[]string
	Company        *models.CompanyInfo
	Location       *models.Location
	Salary         *models.SalaryRange
	Experience     *models.ExperienceRange
	ExpiresAt      *time.Time
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanListing(row rowScanner) (*models.JobListing, error) {
	var l models.JobListing
	var slug sql.NullString
	var publishedAt, expiresAt sql.NullTime
	var company, location, salary, experience, sections, media []byte

	err := row.Scan(
		&l.ID, &l.Title, &l.Description, &l.Role, &slug, &l.Status, &l.EmploymentType,
		&l.IsPublished, &publishedAt, &expiresAt, &l.Views, &l.Applications,
		pq.Array(&l.Tags), pq.Array(&l.Qualifications), &l.Notes,
		&company, &location, &salary, &experience, &sections, &media,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.Slug = slug.String
	if publishedAt.Valid {
		t := publishedAt.Time
		l.PublishedAt = &t
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		l.ExpiresAt = &t
	}

	for _, doc := range []struct {
		data []byte
		dest interface{}
	}{
		{company, &l.Company},
		{location, &l.Location},
		{salary, &l.Salary},
		{experience, &l.Experience},
		{sections, &l.CustomSections},
		{media, &l.Media},
	} {
		if len(doc.data) == 0 {
			continue
		}
		if err := json.Unmarshal(doc.data, doc.dest); err != nil {
			return nil, fmt.Errorf("failed to decode listing document: %w", err)
		}
	}

	if l.Tags == nil {
		l.Tags = []string{}
	}
	if l.Qualifications == nil {
		l.Qualifications = []string{}
	}
	if l.CustomSections == nil {
		l.CustomSections = []models.FormSection{}
	}
	if l.Media == nil {
		l.Media = []models.MediaItem{}
	}

	return &l, nil
}

// nullableSlug maps an empty slug to NULL so the sparse unique index ignores it.
func nullableSlug(slug string) interface{} {
	if slug == "" {
		return nil
	}
	return slug
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return constraint == "" || pqErr.Constraint == constraint
	}
	return false
}

func (r *Repository) Insert(ctx context.Context, l *models.JobListing) error {
	company, err := json.Marshal(l.Company)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	location, err := json.Marshal(l.Location)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	salary, err := json.Marshal(l.Salary)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	experience, err := json.Marshal(l.Experience)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	sections, err := json.Marshal(l.CustomSections)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}
	media, err := json.Marshal(l.Media)
	if err != nil {
		return apperrors.NewDatabaseInsertFailedError(err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO job_listings (
			id, title, description, role, slug, status, employment_type,
			is_published, published_at, expires_at, views, applications,
			tags, qualifications, notes, company, location, salary, experience,
			custom_sections, media, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23)`,
		l.ID, l.Title, l.Description, l.Role, nullableSlug(l.Slug), l.Status, l.EmploymentType,
		l.IsPublished, l.PublishedAt, l.ExpiresAt, l.Views, l.Applications,
		pq.Array(l.Tags), pq.Array(l.Qualifications), l.Notes,
		company, location, salary, experience, sections, media,
		l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "job_listings_slug_key") {
			return apperrors.NewSlugConflictError(l.Slug)
		}
		return apperrors.NewDatabaseInsertFailedError(err)
	}

	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*models.JobListing, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM job_listings WHERE id = $1`, id)

	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewJobListingNotFoundError(id)
		}
		return nil, apperrors.NewQueryExecutionFailedError("get_job_listing", err)
	}
	return l, nil
}

func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.JobListing, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM job_listings WHERE slug = $1`, slug)

	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewJobListingNotFoundError(slug)
		}
		return nil, apperrors.NewQueryExecutionFailedError("get_job_listing_by_slug", err)
	}
	return l, nil
}

// IncrementViews bumps the view counter atomically. Unpublished listings are
// left untouched; that is not an error.
func (r *Repository) IncrementViews(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE job_listings
		SET views = views + 1
		WHERE id = $1 AND is_published = TRUE`, id)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("increment_views", err)
	}
	return nil
}

// Update applies a partial update in one conditional write. A slug collision
// surfaces as Conflict via the unique index rather than a pre-check.
func (r *Repository) Update(ctx context.Context, id string, u UpdateListing) (*models.JobListing, error) {
	var sets []string
	var args []interface{}
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if u.Title != nil {
		add("title", *u.Title)
	}
	if u.Description != nil {
		add("description", *u.Description)
	}
	if u.Role != nil {
		add("role", *u.Role)
	}
	if u.Slug != nil {
		add("slug", nullableSlug(*u.Slug))
	}
	if u.EmploymentType != nil {
		add("employment_type", string(*u.EmploymentType))
	}
	if u.Notes != nil {
		add("notes", *u.Notes)
	}
	if u.Qualifications != nil {
		add("qualifications", pq.Array(*u.Qualifications))
	}
	if u.Company != nil {
		b, err := json.Marshal(u.Company)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("update_job_listing", err)
		}
		add("company", b)
	}
	if u.Location != nil {
		b, err := json.Marshal(u.Location)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("update_job_listing", err)
		}
		add("location", b)
	}
	if u.Salary != nil {
		b, err := json.Marshal(u.Salary)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("update_job_listing", err)
		}
		add("salary", b)
	}
	if u.Experience != nil {
		b, err := json.Marshal(u.Experience)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("update_job_listing", err)
		}
		add("experience", b)
	}
	if u.ExpiresAt != nil {
		add("expires_at", *u.ExpiresAt)
	}

	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)
	q := fmt.Sprintf(`UPDATE job_listings SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), listingColumns)

	l, err := scanListing(r.db.QueryRowContext(ctx, q, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewJobListingNotFoundError(id)
		}
		if isUniqueViolation(err, "job_listings_slug_key") {
			slug := ""
			if u.Slug != nil {
				slug = *u.Slug
			}
			return nil, apperrors.NewSlugConflictError(slug)
		}
		return nil, apperrors.NewQueryExecutionFailedError("update_job_listing", err)
	}
	return l, nil
}

// UpdateStatus sets the lifecycle status. Closing additionally stamps
// expires_at with the current time.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status models.JobStatus) (*models.JobListing, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE job_listings
		SET status = $2,
		    expires_at = CASE WHEN $2 = 'closed' THEN NOW() ELSE expires_at END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+listingColumns, id, string(status))

	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NewJobListingNotFoundError(id)
		}
		return nil, apperrors.NewQueryExecutionFailedError("update_job_status", err)
	}
	return l, nil
}

// Publish flips the listing to published in one conditional write so a
// concurrent publish cannot double-apply.
func (r *Repository) Publish(ctx context.Context, id string) (*models.JobListing, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE job_listings
		SET is_published = TRUE, published_at = NOW(), status = 'active', updated_at = NOW()
		WHERE id = $1 AND is_published = FALSE
		RETURNING `+listingColumns, id)

	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.disambiguatePublishFailure(ctx, id, true)
		}
		return nil, apperrors.NewQueryExecutionFailedError("publish_job_listing", err)
	}
	return l, nil
}

// Unpublish reverts the listing to an unpublished draft.
func (r *Repository) Unpublish(ctx context.Context, id string) (*models.JobListing, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE job_listings
		SET is_published = FALSE, status = 'draft', updated_at = NOW()
		WHERE id = $1 AND is_published = TRUE
		RETURNING `+listingColumns, id)

	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.disambiguatePublishFailure(ctx, id, false)
		}
		return nil, apperrors.NewQueryExecutionFailedError("unpublish_job_listing", err)
	}
	return l, nil
}

// disambiguatePublishFailure separates "listing missing" from "listing in the
// wrong publish state" after a conditional write matched no row.
func (r *Repository) disambiguatePublishFailure(ctx context.Context, id string, publishing bool) error {
	var published bool
	err := r.db.QueryRowContext(ctx,
		`SELECT is_published FROM job_listings WHERE id = $1`, id).Scan(&published)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewJobListingNotFoundError(id)
		}
		return apperrors.NewQueryExecutionFailedError("publish_state_check", err)
	}
	if publishing {
		return apperrors.NewAlreadyPublishedError(id)
	}
	return apperrors.NewNotPublishedError(id)
}

// SetMedia replaces the embedded media gallery.
func (r *Repository) SetMedia(ctx context.Context, id string, media []models.MediaItem) error {
	return r.setDocumentColumn(ctx, id, "media", media)
}

// SetSections replaces the embedded custom form sections.
func (r *Repository) SetSections(ctx context.Context, id string, sections []models.FormSection) error {
	return r.setDocumentColumn(ctx, id, "custom_sections", sections)
}

func (r *Repository) setDocumentColumn(ctx context.Context, id, column string, doc interface{}) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("set_"+column, err)
	}

	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE job_listings SET %s = $2, updated_at = NOW() WHERE id = $1`, column),
		id, b)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("set_"+column, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewJobListingNotFoundError(id)
	}
	return nil
}

// SetTags replaces the tag set.
func (r *Repository) SetTags(ctx context.Context, id string, tags []string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE job_listings SET tags = $2, updated_at = NOW() WHERE id = $1`,
		id, pq.Array(tags))
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("set_tags", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewJobListingNotFoundError(id)
	}
	return nil
}

// IncrementApplications bumps the application counter by one.
func (r *Repository) IncrementApplications(ctx context.Context, id string) error {
	return r.adjustApplications(ctx, id, "+")
}

// DecrementApplications lowers the application counter by one. No lower bound
// is enforced.
func (r *Repository) DecrementApplications(ctx context.Context, id string) error {
	return r.adjustApplications(ctx, id, "-")
}

func (r *Repository) adjustApplications(ctx context.Context, id, op string) error {
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE job_listings SET applications = applications %s 1, updated_at = NOW() WHERE id = $1`, op),
		id)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("adjust_applications", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewJobListingNotFoundError(id)
	}
	return nil
}

// BulkUpdateStatus applies one status to many listings and returns how many
// rows actually changed.
func (r *Repository) BulkUpdateStatus(ctx context.Context, ids []string, status models.JobStatus) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE job_listings
		SET status = $1,
		    expires_at = CASE WHEN $1 = 'closed' THEN NOW() ELSE expires_at END,
		    updated_at = NOW()
		WHERE id = ANY($2)`,
		string(status), pq.Array(ids))
	if err != nil {
		return 0, apperrors.NewQueryExecutionFailedError("bulk_update_status", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.NewQueryExecutionFailedError("bulk_update_status", err)
	}
	return n, nil
}

// List returns one page of listings matching the filter, newest first.
func (r *Repository) List(ctx context.Context, filter query.ListingFilter, page query.Page) (*query.PagedListings, error) {
	where, args := filter.Compile()

	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM job_listings`+where, args...).Scan(&total)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("count_job_listings", err)
	}

	page = page.Normalized()
	q := `SELECT ` + listingColumns + ` FROM job_listings` + where + ` ORDER BY created_at DESC`
	if !page.Unpaginated() {
		q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, page.Limit, page.Offset())
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_job_listings", err)
	}
	defer rows.Close()

	items := []models.JobListing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list_job_listings", err)
		}
		items = append(items, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_job_listings", err)
	}

	return &query.PagedListings{
		Items:     items,
		Total:     total,
		PageCount: query.PageCount(total, page.Limit),
	}, nil
}

// ListExpired returns listings whose expiry has passed but are not yet closed.
func (r *Repository) ListExpired(ctx context.Context, page query.Page) (*query.PagedListings, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM job_listings`+expiredCondition).Scan(&total)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("count_expired_listings", err)
	}

	page = page.Normalized()
	q := `SELECT ` + listingColumns + ` FROM job_listings` + expiredCondition + ` ORDER BY expires_at ASC`
	var args []interface{}
	if !page.Unpaginated() {
		q += ` LIMIT $1 OFFSET $2`
		args = append(args, page.Limit, page.Offset())
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_expired_listings", err)
	}
	defer rows.Close()

	items := []models.JobListing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list_expired_listings", err)
		}
		items = append(items, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_expired_listings", err)
	}

	return &query.PagedListings{
		Items:     items,
		Total:     total,
		PageCount: query.PageCount(total, page.Limit),
	}, nil
}

// CloseExpired transitions every overdue listing to closed in one statement
// and returns the number affected.
func (r *Repository) CloseExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE job_listings SET status = 'closed', updated_at = NOW()`+expiredCondition)
	if err != nil {
		return 0, apperrors.NewQueryExecutionFailedError("close_expired_listings", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.NewQueryExecutionFailedError("close_expired_listings", err)
	}
	return n, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM job_listings WHERE id = $1`, id)
	if err != nil {
		return apperrors.NewQueryExecutionFailedError("delete_job_listing", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NewJobListingNotFoundError(id)
	}
	return nil
}
