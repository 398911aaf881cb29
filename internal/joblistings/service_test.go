// internal/joblistings/service_test.go
package joblistings

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	apperrors "jobboard-backend/internal/common/errors"
	"jobboard-backend/internal/common/logger"
	"jobboard-backend/internal/models"
	"jobboard-backend/internal/query"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

const testListingID = "6b4b0e62-9f2c-4a52-bf8f-2f48d4f7a6f0"

// stubStore keeps one listing in memory and records writes.
type stubStore struct {
	listing       *models.JobListing
	getCalls      int
	viewIncCalls  int
	appCounter    int64
	setMedia      []models.MediaItem
	setSections   []models.FormSection
	setTags       []string
	bulkIDs       []string
	listFilter    query.ListingFilter
	listPage      query.Page
	closedExpired int64
	publishErr    error
	deletedID     string
}

func (s *stubStore) Insert(ctx context.Context, l *models.JobListing) error {
	s.listing = l
	return nil
}

func (s *stubStore) GetByID(ctx context.Context, id string) (*models.JobListing, error) {
	s.getCalls++
	if s.listing == nil || s.listing.ID != id {
		return nil, apperrors.NewJobListingNotFoundError(id)
	}
	cp := *s.listing
	return &cp, nil
}

func (s *stubStore) GetBySlug(ctx context.Context, slug string) (*models.JobListing, error) {
	s.getCalls++
	if s.listing == nil || s.listing.Slug != slug {
		return nil, apperrors.NewJobListingNotFoundError(slug)
	}
	cp := *s.listing
	return &cp, nil
}

func (s *stubStore) IncrementViews(ctx context.Context, id string) error {
	s.viewIncCalls++
	s.listing.Views++
	return nil
}

func (s *stubStore) Update(ctx context.Context, id string, u UpdateListing) (*models.JobListing, error) {
	return s.GetByID(ctx, id)
}

func (s *stubStore) UpdateStatus(ctx context.Context, id string, status models.JobStatus) (*models.JobListing, error) {
	l, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	l.Status = status
	s.listing.Status = status
	return l, nil
}

func (s *stubStore) Publish(ctx context.Context, id string) (*models.JobListing, error) {
	if s.publishErr != nil {
		return nil, s.publishErr
	}
	l, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	l.IsPublished = true
	l.Status = models.JobStatusActive
	s.listing.IsPublished = true
	s.listing.Status = models.JobStatusActive
	return l, nil
}

func (s *stubStore) Unpublish(ctx context.Context, id string) (*models.JobListing, error) {
	l, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	l.IsPublished = false
	s.listing.IsPublished = false
	return l, nil
}

func (s *stubStore) SetMedia(ctx context.Context, id string, media []models.MediaItem) error {
	s.setMedia = media
	return nil
}

func (s *stubStore) SetSections(ctx context.Context, id string, sections []models.FormSection) error {
	s.setSections = sections
	return nil
}

func (s *stubStore) SetTags(ctx context.Context, id string, tags []string) error {
	s.setTags = tags
	return nil
}

func (s *stubStore) IncrementApplications(ctx context.Context, id string) error {
	s.appCounter++
	return nil
}

func (s *stubStore) DecrementApplications(ctx context.Context, id string) error {
	s.appCounter--
	return nil
}

func (s *stubStore) BulkUpdateStatus(ctx context.Context, ids []string, status models.JobStatus) (int64, error) {
	s.bulkIDs = ids
	return int64(len(ids)), nil
}

func (s *stubStore) List(ctx context.Context, filter query.ListingFilter, page query.Page) (*query.PagedListings, error) {
	s.listFilter = filter
	s.listPage = page
	return &query.PagedListings{Items: []models.JobListing{}}, nil
}

func (s *stubStore) ListExpired(ctx context.Context, page query.Page) (*query.PagedListings, error) {
	return &query.PagedListings{Items: []models.JobListing{}}, nil
}

func (s *stubStore) CloseExpired(ctx context.Context) (int64, error) {
	return s.closedExpired, nil
}

func (s *stubStore) Delete(ctx context.Context, id string) error {
	s.deletedID = id
	return nil
}

func newTestService(store *stubStore) *Service {
	return NewService(store, nil, CacheOptions{}, logger.NewNoOpLogger())
}

func storedListing() *models.JobListing {
	return &models.JobListing{
		ID:          testListingID,
		Title:       "Backend Engineer",
		Description: "Build services",
		Role:        "engineer",
		Slug:        "backend-engineer-abc123defg",
		Status:      models.JobStatusDraft,
		Tags:        []string{"go", "backend"},
		Media:       []models.MediaItem{},
	}
}

// ==========================
// Slug Tests
// ==========================

func TestDeriveSlug(t *testing.T) {
	tests := []struct {
		name       string
		title      string
		wantPrefix string
	}{
		{"simple title", "Backend Engineer", "backend-engineer-"},
		{"punctuation collapses to hyphens", "Sr. Engineer (Go/K8s)!", "sr-engineer-go-k8s-"},
		{"leading and trailing separators trimmed", "  --Hello--  ", "hello-"},
		{"uppercase lowered", "QA LEAD", "qa-lead-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slug := DeriveSlug(tt.title)
			assert.True(t, strings.HasPrefix(slug, tt.wantPrefix), "slug %q", slug)
			// Random suffix is 10 chars from [a-z0-9].
			suffix := slug[len(tt.wantPrefix):]
			assert.Len(t, suffix, 10)
			for _, r := range suffix {
				assert.Contains(t, slugSuffixCharset, string(r))
			}
		})
	}
}

func TestDeriveSlug_EmptyBase(t *testing.T) {
	slug := DeriveSlug("!!!")
	assert.Len(t, slug, 10)
	assert.NotContains(t, slug, "-")
}

func TestDeriveSlug_Uniqueness(t *testing.T) {
	a := DeriveSlug("Backend Engineer")
	b := DeriveSlug("Backend Engineer")
	assert.NotEqual(t, a, b)
}

// ==========================
// Create Tests
// ==========================

func TestService_Create(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(store)

	listing, err := svc.Create(context.Background(), CreateListing{
		Title:       "Backend Engineer",
		Description: "Build services",
		Role:        "engineer",
		Tags:        []string{"Go", "go", " Backend "},
		CustomSections: []models.FormSection{
			{SectionTitle: "Extra", Fields: []models.FormField{
				{FieldName: "q1", FieldLabel: "Q1", FieldType: models.FieldTypeText},
			}},
		},
	})

	require.NoError(t, err)
	assert.NotEmpty(t, listing.ID)
	assert.Equal(t, models.JobStatusDraft, listing.Status)
	assert.Equal(t, models.EmploymentFullTime, listing.EmploymentType)
	assert.False(t, listing.IsPublished)
	assert.True(t, strings.HasPrefix(listing.Slug, "backend-engineer-"))
	assert.Equal(t, []string{"go", "backend"}, listing.Tags)
	assert.NotEmpty(t, listing.CustomSections[0].ID, "sections get ids assigned")
	assert.Equal(t, listing, store.listing)
}

func TestService_Create_Validation(t *testing.T) {
	svc := newTestService(&stubStore{})

	tests := []struct {
		name  string
		input CreateListing
	}{
		{"missing title", CreateListing{Description: "d", Role: "r"}},
		{"missing description", CreateListing{Title: "t", Role: "r"}},
		{"missing role", CreateListing{Title: "t", Description: "d"}},
		{"bad employment type", CreateListing{Title: "t", Description: "d", Role: "r", EmploymentType: "gig"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.input)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

// ==========================
// Publish Tests
// ==========================

func TestService_Publish(t *testing.T) {
	store := &stubStore{listing: storedListing()}
	svc := newTestService(store)

	listing, err := svc.Publish(context.Background(), testListingID)

	require.NoError(t, err)
	assert.True(t, listing.IsPublished)
	assert.Equal(t, models.JobStatusActive, listing.Status)
}

func TestService_Publish_RequiresContent(t *testing.T) {
	l := storedListing()
	l.Description = "  "
	store := &stubStore{listing: l}
	svc := newTestService(store)

	_, err := svc.Publish(context.Background(), testListingID)

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.False(t, store.listing.IsPublished)
}

func TestService_Publish_AlreadyPublishedConflict(t *testing.T) {
	store := &stubStore{
		listing:    storedListing(),
		publishErr: apperrors.NewAlreadyPublishedError(testListingID),
	}
	svc := newTestService(store)

	_, err := svc.Publish(context.Background(), testListingID)
	assert.True(t, apperrors.IsConflict(err))
}

// ==========================
// View Counting Tests
// ==========================

func TestService_GetByID_ViewsOnlyCountPublished(t *testing.T) {
	store := &stubStore{listing: storedListing()}
	svc := newTestService(store)

	// Draft listing: the flag is ignored.
	listing, err := svc.GetByID(context.Background(), testListingID, true)
	require.NoError(t, err)
	assert.Equal(t, 0, store.viewIncCalls)
	assert.Equal(t, int64(0), listing.Views)

	store.listing.IsPublished = true
	listing, err = svc.GetByID(context.Background(), testListingID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, store.viewIncCalls)
	assert.Equal(t, int64(1), listing.Views)
}

// ==========================
// Media + Section Tests
// ==========================

func TestService_AddMedia(t *testing.T) {
	store := &stubStore{listing: storedListing()}
	svc := newTestService(store)

	listing, err := svc.AddMedia(context.Background(), testListingID, models.MediaItem{
		URL:  "https://cdn/logo.png",
		Type: models.MediaTypeImage,
	})

	require.NoError(t, err)
	require.Len(t, listing.Media, 1)
	assert.NotEmpty(t, listing.Media[0].ID)
	assert.Len(t, store.setMedia, 1)
}

func TestService_AddMedia_Validation(t *testing.T) {
	svc := newTestService(&stubStore{listing: storedListing()})

	_, err := svc.AddMedia(context.Background(), testListingID, models.MediaItem{Type: models.MediaTypeImage})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.AddMedia(context.Background(), testListingID, models.MediaItem{URL: "u", Type: "gif"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestService_UpdateMedia_MissingIDIsNoOp(t *testing.T) {
	l := storedListing()
	l.Media = []models.MediaItem{{ID: "m1", URL: "u1", Type: models.MediaTypeImage}}
	store := &stubStore{listing: l}
	svc := newTestService(store)

	caption := "new caption"
	listing, err := svc.UpdateMedia(context.Background(), testListingID, "no-such-media",
		UpdateMediaItem{Caption: &caption})

	require.NoError(t, err)
	assert.Empty(t, listing.Media[0].Caption)
	assert.Nil(t, store.setMedia, "no write on a missing sub-document")
}

func TestService_RemoveMedia(t *testing.T) {
	l := storedListing()
	l.Media = []models.MediaItem{
		{ID: "m1", URL: "u1", Type: models.MediaTypeImage},
		{ID: "m2", URL: "u2", Type: models.MediaTypeVideo},
	}
	store := &stubStore{listing: l}
	svc := newTestService(store)

	listing, err := svc.RemoveMedia(context.Background(), testListingID, "m1")

	require.NoError(t, err)
	require.Len(t, listing.Media, 1)
	assert.Equal(t, "m2", listing.Media[0].ID)
}

func TestService_AddSection_NeedsAtLeastOneField(t *testing.T) {
	svc := newTestService(&stubStore{listing: storedListing()})

	_, err := svc.AddSection(context.Background(), testListingID, models.FormSection{
		SectionTitle: "Empty",
	})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.AddSection(context.Background(), testListingID, models.FormSection{
		SectionTitle: "Bad field type",
		Fields:       []models.FormField{{FieldName: "x", FieldLabel: "X", FieldType: "slider"}},
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestService_UpdateSection_KeepsID(t *testing.T) {
	l := storedListing()
	l.CustomSections = []models.FormSection{
		{ID: "s1", SectionTitle: "Old", Fields: []models.FormField{
			{FieldName: "a", FieldLabel: "A", FieldType: models.FieldTypeText},
		}},
	}
	store := &stubStore{listing: l}
	svc := newTestService(store)

	listing, err := svc.UpdateSection(context.Background(), testListingID, "s1", models.FormSection{
		ID:           "attempted-override",
		SectionTitle: "New",
		Fields: []models.FormField{
			{FieldName: "b", FieldLabel: "B", FieldType: models.FieldTypeText},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "s1", listing.CustomSections[0].ID)
	assert.Equal(t, "New", listing.CustomSections[0].SectionTitle)
}

// ==========================
// Tag Tests
// ==========================

func TestService_AddTags_NormalizesAndDedupes(t *testing.T) {
	store := &stubStore{listing: storedListing()}
	svc := newTestService(store)

	listing, err := svc.AddTags(context.Background(), testListingID, []string{"GO", " remote ", "backend"})

	require.NoError(t, err)
	assert.Equal(t, []string{"go", "backend", "remote"}, listing.Tags)
}

func TestService_RemoveTags(t *testing.T) {
	store := &stubStore{listing: storedListing()}
	svc := newTestService(store)

	listing, err := svc.RemoveTags(context.Background(), testListingID, []string{"GO"})

	require.NoError(t, err)
	assert.Equal(t, []string{"backend"}, listing.Tags)
}

// ==========================
// Bulk + Query Tests
// ==========================

func TestService_BulkUpdateStatus_RejectsMalformedIDs(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(store)

	_, err := svc.BulkUpdateStatus(context.Background(),
		[]string{testListingID, "oops"}, models.JobStatusClosed)

	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Nil(t, store.bulkIDs)
}

func TestService_ListPublished_ForcesVisibilityFilter(t *testing.T) {
	store := &stubStore{}
	svc := newTestService(store)

	_, err := svc.ListPublished(context.Background(), query.ListingFilter{SearchTerm: "go"}, query.Page{})

	require.NoError(t, err)
	assert.True(t, store.listFilter.PublishedOnly)
	assert.Equal(t, "go", store.listFilter.SearchTerm)
}

func TestService_Search_RequiresTerm(t *testing.T) {
	svc := newTestService(&stubStore{})

	_, err := svc.Search(context.Background(), "   ", query.Page{})
	assert.True(t, apperrors.IsValidation(err))
}

func TestService_ListByLocation_RequiresAFilter(t *testing.T) {
	svc := newTestService(&stubStore{})

	_, err := svc.ListByLocation(context.Background(), "", "", "", nil, query.Page{})
	assert.True(t, apperrors.IsValidation(err))
}

// ==========================
// Cache Tests
// ==========================

func newCachedService(t *testing.T, store *stubStore) (*Service, *miniredis.Miniredis) {
	srv, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewService(store, client, CacheOptions{TTL: time.Minute, KeyPrefix: "test"}, logger.NewNoOpLogger()), srv
}

func TestService_GetByID_CachesPublishedListings(t *testing.T) {
	l := storedListing()
	l.IsPublished = true
	store := &stubStore{listing: l}
	svc, srv := newCachedService(t, store)

	_, err := svc.GetByID(context.Background(), testListingID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, store.getCalls)
	assert.True(t, srv.Exists("test:listing:id:"+testListingID))
	assert.True(t, srv.Exists("test:listing:slug:"+l.Slug))

	// Second read is served from the cache.
	got, err := svc.GetByID(context.Background(), testListingID, false)
	require.NoError(t, err)
	assert.Equal(t, 1, store.getCalls)
	assert.Equal(t, l.Title, got.Title)
}

func TestService_GetByID_DoesNotCacheDrafts(t *testing.T) {
	store := &stubStore{listing: storedListing()}
	svc, srv := newCachedService(t, store)

	_, err := svc.GetByID(context.Background(), testListingID, false)
	require.NoError(t, err)
	assert.False(t, srv.Exists("test:listing:id:" + testListingID))

	_, err = svc.GetByID(context.Background(), testListingID, false)
	require.NoError(t, err)
	assert.Equal(t, 2, store.getCalls)
}

func TestService_Unpublish_InvalidatesCache(t *testing.T) {
	l := storedListing()
	l.IsPublished = true
	store := &stubStore{listing: l}
	svc, srv := newCachedService(t, store)

	_, err := svc.GetByID(context.Background(), testListingID, false)
	require.NoError(t, err)
	require.True(t, srv.Exists("test:listing:id:"+testListingID))

	_, err = svc.Unpublish(context.Background(), testListingID)
	require.NoError(t, err)
	assert.False(t, srv.Exists("test:listing:id:"+testListingID))
	assert.False(t, srv.Exists("test:listing:slug:"+l.Slug))
}

func TestService_GetByID_CacheFailureFallsBackToStore(t *testing.T) {
	l := storedListing()
	l.IsPublished = true
	store := &stubStore{listing: l}

	client, mock := redismock.NewClientMock()
	mock.ExpectGet("jobboard:listing:id:" + testListingID).SetErr(assert.AnError)
	mock.Regexp().ExpectSet(`jobboard:listing:id:.+`, `.+`, 5*time.Minute).SetErr(assert.AnError)
	mock.Regexp().ExpectSet(`jobboard:listing:slug:.+`, `.+`, 5*time.Minute).SetErr(assert.AnError)

	svc := NewService(store, client, CacheOptions{}, logger.NewNoOpLogger())

	got, err := svc.GetByID(context.Background(), testListingID, false)

	require.NoError(t, err)
	assert.Equal(t, l.Title, got.Title)
	assert.Equal(t, 1, store.getCalls)
}

func TestService_GetBySlug_ServesFromCache(t *testing.T) {
	l := storedListing()
	l.IsPublished = true
	store := &stubStore{listing: l}
	svc, srv := newCachedService(t, store)

	_, err := svc.GetBySlug(context.Background(), l.Slug, false)
	require.NoError(t, err)

	raw, err := srv.Get("test:listing:slug:" + l.Slug)
	require.NoError(t, err)
	var cached models.JobListing
	require.NoError(t, json.Unmarshal([]byte(raw), &cached))
	assert.Equal(t, l.ID, cached.ID)

	_, err = svc.GetBySlug(context.Background(), l.Slug, false)
	require.NoError(t, err)
	assert.Equal(t, 1, store.getCalls)
}
