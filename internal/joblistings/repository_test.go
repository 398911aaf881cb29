// internal/joblistings/repository_test.go
package joblistings

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	apperrors "jobboard-backend/internal/common/errors"
	"jobboard-backend/internal/common/logger"
	"jobboard-backend/internal/models"
	"jobboard-backend/internal/query"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var listingRowColumns = []string{
	"id", "title", "description", "role", "slug", "status", "employment_type",
	"is_published", "published_at", "expires_at", "views", "applications",
	"tags", "qualifications", "notes", "company", "location", "salary",
	"experience", "custom_sections", "media", "created_at", "updated_at",
}

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(db, logger.NewNoOpLogger()), mock
}

func sampleListing() *models.JobListing {
	now := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	return &models.JobListing{
		ID:             testListingID,
		Title:          "Backend Engineer",
		Description:    "Build services",
		Role:           "engineer",
		Slug:           "backend-engineer-abc123defg",
		Status:         models.JobStatusDraft,
		EmploymentType: models.EmploymentFullTime,
		Tags:           []string{"go", "backend"},
		Qualifications: []string{},
		Media:          []models.MediaItem{},
		CustomSections: []models.FormSection{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func listingRow(t *testing.T, l *models.JobListing) *sqlmock.Rows {
	marshal := func(v interface{}) []byte {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		return b
	}

	var publishedAt, expiresAt interface{}
	if l.PublishedAt != nil {
		publishedAt = *l.PublishedAt
	}
	if l.ExpiresAt != nil {
		expiresAt = *l.ExpiresAt
	}

	return sqlmock.NewRows(listingRowColumns).AddRow(
		l.ID, l.Title, l.Description, l.Role, l.Slug, string(l.Status), string(l.EmploymentType),
		l.IsPublished, publishedAt, expiresAt, l.Views, l.Applications,
		[]byte("{go,backend}"), []byte("{}"), l.Notes,
		marshal(l.Company), marshal(l.Location), marshal(l.Salary),
		marshal(l.Experience), marshal(l.CustomSections), marshal(l.Media),
		l.CreatedAt, l.UpdatedAt,
	)
}

// ==========================
// Insert Tests
// ==========================

func TestRepository_Insert(t *testing.T) {
	repo, mock := newMockRepository(t)
	l := sampleListing()

	mock.ExpectExec(`(?s)INSERT INTO job_listings`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Insert(context.Background(), l)

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Insert_SlugCollisionBecomesConflict(t *testing.T) {
	repo, mock := newMockRepository(t)
	l := sampleListing()

	mock.ExpectExec(`(?s)INSERT INTO job_listings`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "job_listings_slug_key"})

	err := repo.Insert(context.Background(), l)

	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.Equal(t, apperrors.ErrCodeSlugConflict, apperrors.FromError(err).Code)
}

// ==========================
// Lookup Tests
// ==========================

func TestRepository_GetByID(t *testing.T) {
	repo, mock := newMockRepository(t)
	l := sampleListing()

	mock.ExpectQuery(`(?s)SELECT .+ FROM job_listings WHERE id = \$1`).
		WithArgs(l.ID).
		WillReturnRows(listingRow(t, l))

	got, err := repo.GetByID(context.Background(), l.ID)

	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)
	assert.Equal(t, l.Slug, got.Slug)
	assert.Equal(t, []string{"go", "backend"}, got.Tags)
	assert.NotNil(t, got.Media, "embedded documents decode to empty, not nil")
	assert.Nil(t, got.ExpiresAt)
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`(?s)SELECT .+ FROM job_listings WHERE id = \$1`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), testListingID)

	assert.True(t, apperrors.IsNotFound(err))
}

func TestRepository_GetBySlug(t *testing.T) {
	repo, mock := newMockRepository(t)
	l := sampleListing()

	mock.ExpectQuery(`(?s)SELECT .+ FROM job_listings WHERE slug = \$1`).
		WithArgs(l.Slug).
		WillReturnRows(listingRow(t, l))

	got, err := repo.GetBySlug(context.Background(), l.Slug)

	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)
}

// ==========================
// View Counter Tests
// ==========================

func TestRepository_IncrementViews_OnlyTouchesPublished(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`(?s)UPDATE job_listings.+SET views = views \+ 1.+WHERE id = \$1 AND is_published = TRUE`).
		WithArgs(testListingID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// Zero rows matched means the listing was unpublished; still no error.
	assert.NoError(t, repo.IncrementViews(context.Background(), testListingID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Partial Update Tests
// ==========================

func TestRepository_Update_BuildsOnlyRequestedColumns(t *testing.T) {
	repo, mock := newMockRepository(t)
	l := sampleListing()
	l.Title = "Senior Backend Engineer"

	title := "Senior Backend Engineer"
	notes := "internal note"

	mock.ExpectQuery(`(?s)UPDATE job_listings SET title = \$1, notes = \$2, updated_at = NOW\(\) WHERE id = \$3 RETURNING`).
		WithArgs(title, notes, l.ID).
		WillReturnRows(listingRow(t, l))

	got, err := repo.Update(context.Background(), l.ID, UpdateListing{Title: &title, Notes: &notes})

	require.NoError(t, err)
	assert.Equal(t, "Senior Backend Engineer", got.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Update_NoFieldsFallsBackToGet(t *testing.T) {
	repo, mock := newMockRepository(t)
	l := sampleListing()

	mock.ExpectQuery(`(?s)SELECT .+ FROM job_listings WHERE id = \$1`).
		WithArgs(l.ID).
		WillReturnRows(listingRow(t, l))

	got, err := repo.Update(context.Background(), l.ID, UpdateListing{})

	require.NoError(t, err)
	assert.Equal(t, l.ID, got.ID)
}

func TestRepository_Update_SlugCollision(t *testing.T) {
	repo, mock := newMockRepository(t)
	slug := "taken-slug"

	mock.ExpectQuery(`(?s)UPDATE job_listings SET slug = \$1`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "job_listings_slug_key"})

	_, err := repo.Update(context.Background(), testListingID, UpdateListing{Slug: &slug})

	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

// ==========================
// Publish Tests
// ==========================

func TestRepository_Publish(t *testing.T) {
	repo, mock := newMockRepository(t)
	l := sampleListing()
	l.IsPublished = true
	l.Status = models.JobStatusActive
	now := time.Now().UTC()
	l.PublishedAt = &now

	mock.ExpectQuery(`(?s)UPDATE job_listings.+WHERE id = \$1 AND is_published = FALSE.+RETURNING`).
		WithArgs(l.ID).
		WillReturnRows(listingRow(t, l))

	got, err := repo.Publish(context.Background(), l.ID)

	require.NoError(t, err)
	assert.True(t, got.IsPublished)
	assert.Equal(t, models.JobStatusActive, got.Status)
	assert.NotNil(t, got.PublishedAt)
}

func TestRepository_Publish_AlreadyPublished(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`(?s)UPDATE job_listings.+WHERE id = \$1 AND is_published = FALSE.+RETURNING`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT is_published FROM job_listings WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"is_published"}).AddRow(true))

	_, err := repo.Publish(context.Background(), testListingID)

	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Publish_MissingListing(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`(?s)UPDATE job_listings.+WHERE id = \$1 AND is_published = FALSE.+RETURNING`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT is_published FROM job_listings WHERE id = \$1`).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Publish(context.Background(), testListingID)

	assert.True(t, apperrors.IsNotFound(err))
}

func TestRepository_Unpublish_NotPublished(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`(?s)UPDATE job_listings.+WHERE id = \$1 AND is_published = TRUE.+RETURNING`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`SELECT is_published FROM job_listings WHERE id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"is_published"}).AddRow(false))

	_, err := repo.Unpublish(context.Background(), testListingID)

	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))
}

// ==========================
// Document Column Tests
// ==========================

func TestRepository_SetTags(t *testing.T) {
	repo, mock := newMockRepository(t)
	tags := []string{"go", "remote"}

	mock.ExpectExec(`UPDATE job_listings SET tags = \$2, updated_at = NOW\(\) WHERE id = \$1`).
		WithArgs(testListingID, pq.Array(tags)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.SetTags(context.Background(), testListingID, tags))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SetTags_MissingListing(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`UPDATE job_listings SET tags = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetTags(context.Background(), testListingID, []string{"go"})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRepository_SetMedia_MissingListing(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`UPDATE job_listings SET media = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetMedia(context.Background(), testListingID, []models.MediaItem{})
	assert.True(t, apperrors.IsNotFound(err))
}

// ==========================
// Counter + Bulk Tests
// ==========================

func TestRepository_IncrementApplications(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`UPDATE job_listings SET applications = applications \+ 1, updated_at = NOW\(\) WHERE id = \$1`).
		WithArgs(testListingID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.IncrementApplications(context.Background(), testListingID))
}

func TestRepository_BulkUpdateStatus(t *testing.T) {
	repo, mock := newMockRepository(t)
	ids := []string{testListingID, "b5f6a4a1-3f4e-4a43-9b7c-6d8e9f0a1b2c"}

	mock.ExpectExec(`(?s)UPDATE job_listings.+SET status = \$1.+WHERE id = ANY\(\$2\)`).
		WithArgs("closed", pq.Array(ids)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.BulkUpdateStatus(context.Background(), ids, models.JobStatusClosed)

	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// List + Expiry Tests
// ==========================

func TestRepository_List_Paginated(t *testing.T) {
	repo, mock := newMockRepository(t)
	l := sampleListing()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM job_listings WHERE status = \$1`).
		WithArgs("draft").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(15)))
	mock.ExpectQuery(`(?s)SELECT .+ FROM job_listings WHERE status = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("draft", 10, 0).
		WillReturnRows(listingRow(t, l))

	result, err := repo.List(context.Background(),
		query.ListingFilter{Status: models.JobStatusDraft},
		query.Page{Number: 1, Limit: 10})

	require.NoError(t, err)
	assert.Equal(t, int64(15), result.Total)
	assert.Equal(t, 2, result.PageCount)
	assert.Len(t, result.Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_List_Unpaginated(t *testing.T) {
	repo, mock := newMockRepository(t)
	l := sampleListing()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM job_listings`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`(?s)SELECT .+ FROM job_listings ORDER BY created_at DESC$`).
		WillReturnRows(listingRow(t, l))

	result, err := repo.List(context.Background(), query.ListingFilter{},
		query.Page{Limit: query.NoLimit})

	require.NoError(t, err)
	assert.Equal(t, 1, result.PageCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListExpired(t *testing.T) {
	repo, mock := newMockRepository(t)
	l := sampleListing()
	past := time.Now().Add(-24 * time.Hour).UTC()
	l.ExpiresAt = &past

	mock.ExpectQuery(`(?s)SELECT COUNT\(\*\) FROM job_listings WHERE expires_at IS NOT NULL AND expires_at <= NOW\(\) AND status <> 'closed'`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`(?s)SELECT .+ FROM job_listings WHERE expires_at IS NOT NULL.+ORDER BY expires_at ASC LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 0).
		WillReturnRows(listingRow(t, l))

	result, err := repo.ListExpired(context.Background(), query.Page{})

	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
	assert.NotNil(t, result.Items[0].ExpiresAt)
}

func TestRepository_CloseExpired(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`(?s)UPDATE job_listings SET status = 'closed', updated_at = NOW\(\) WHERE expires_at IS NOT NULL AND expires_at <= NOW\(\) AND status <> 'closed'`).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.CloseExpired(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

// ==========================
// Delete Tests
// ==========================

func TestRepository_Delete(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`DELETE FROM job_listings WHERE id = \$1`).
		WithArgs(testListingID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Delete(context.Background(), testListingID))
}

func TestRepository_Delete_NotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`DELETE FROM job_listings WHERE id = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), testListingID)
	assert.True(t, apperrors.IsNotFound(err))
}
