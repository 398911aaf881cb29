// internal/joblistings/service.go
package joblistings

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	apperrors "jobboard-backend/internal/common/errors"
	"jobboard-backend/internal/common/logger"
	"jobboard-backend/internal/common/metrics"
	"jobboard-backend/internal/models"
	"jobboard-backend/internal/query"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store is the persistence surface the service depends on.
type Store interface {
	Insert(ctx context.Context, l *models.JobListing) error
	GetByID(ctx context.Context, id string) (*models.JobListing, error)
	GetBySlug(ctx context.Context, slug string) (*models.JobListing, error)
	IncrementViews(ctx context.Context, id string) error
	Update(ctx context.Context, id string, u UpdateListing) (*models.JobListing, error)
	UpdateStatus(ctx context.Context, id string, status models.JobStatus) (*models.JobListing, error)
	Publish(ctx context.Context, id string) (*models.JobListing, error)
	Unpublish(ctx context.Context, id string) (*models.JobListing, error)
	SetMedia(ctx context.Context, id string, media []models.MediaItem) error
	SetSections(ctx context.Context, id string, sections []models.FormSection) error
	SetTags(ctx context.Context, id string, tags []string) error
	IncrementApplications(ctx context.Context, id string) error
	DecrementApplications(ctx context.Context, id string) error
	BulkUpdateStatus(ctx context.Context, ids []string, status models.JobStatus) (int64, error)
	List(ctx context.Context, filter query.ListingFilter, page query.Page) (*query.PagedListings, error)
	ListExpired(ctx context.Context, page query.Page) (*query.PagedListings, error)
	CloseExpired(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id string) error
}

// CacheOptions tunes the read-through listing cache. A nil redis client
// disables caching entirely.
type CacheOptions struct {
	TTL       time.Duration
	KeyPrefix string
}

// Service owns the job listing domain rules. Validation happens here, before
// any mutating store call; the store is only asked to persist.
type Service struct {
	store  Store
	cache  *redis.Client
	opts   CacheOptions
	logger logger.Logger
}

func NewService(store Store, cache *redis.Client, opts CacheOptions, log logger.Logger) *Service {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = "jobboard"
	}
	if opts.TTL == 0 {
		opts.TTL = 5 * time.Minute
	}
	return &Service{
		store:  store,
		cache:  cache,
		opts:   opts,
		logger: log.WithFields(map[string]interface{}{"component": "job-listing-service"}),
	}
}

// CreateListing carries the caller-supplied fields for a new listing.
type CreateListing struct {
	Title          string
	Description    string
	Role           string
	Slug           string
	EmploymentType models.EmploymentType
	Tags           []string
	Qualifications []string
	Notes          string
	Company        models.CompanyInfo
	Location       models.Location
	Salary         models.SalaryRange
	Experience     models.ExperienceRange
	CustomSections []models.FormSection
	ExpiresAt      *time.Time
}

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

const slugSuffixCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

func slugSuffix() string {
	b := make([]byte, 10)
	for i := range b {
		b[i] = slugSuffixCharset[rand.IntN(len(slugSuffixCharset))]
	}
	return string(b)
}

// DeriveSlug builds a URL slug from a title: lowercase, runs of
// non-alphanumerics collapsed to single hyphens, no leading or trailing
// hyphen, plus a random 10-character suffix for practical uniqueness.
func DeriveSlug(title string) string {
	base := strings.Trim(slugSeparators.ReplaceAllString(strings.ToLower(title), "-"), "-")
	suffix := slugSuffix()
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := []string{}
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (s *Service) Create(ctx context.Context, in CreateListing) (*models.JobListing, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, apperrors.NewValidationError("title is required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, apperrors.NewValidationError("description is required")
	}
	if strings.TrimSpace(in.Role) == "" {
		return nil, apperrors.NewValidationError("role is required")
	}
	if in.EmploymentType == "" {
		in.EmploymentType = models.EmploymentFullTime
	}
	if !in.EmploymentType.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid employment type: %s", in.EmploymentType))
	}

	slug := in.Slug
	if slug == "" {
		slug = DeriveSlug(in.Title)
	}

	now := time.Now().UTC()
	listing := &models.JobListing{
		ID:             uuid.NewString(),
		Title:          in.Title,
		Description:    in.Description,
		Role:           in.Role,
		Slug:           slug,
		Status:         models.JobStatusDraft,
		EmploymentType: in.EmploymentType,
		Tags:           normalizeTags(in.Tags),
		Qualifications: in.Qualifications,
		Notes:          in.Notes,
		Company:        in.Company,
		Location:       in.Location,
		Salary:         in.Salary,
		Experience:     in.Experience,
		CustomSections: in.CustomSections,
		Media:          []models.MediaItem{},
		ExpiresAt:      in.ExpiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if listing.Qualifications == nil {
		listing.Qualifications = []string{}
	}
	if listing.CustomSections == nil {
		listing.CustomSections = []models.FormSection{}
	}
	for i := range listing.CustomSections {
		if listing.CustomSections[i].ID == "" {
			listing.CustomSections[i].ID = uuid.NewString()
		}
	}

	if err := s.store.Insert(ctx, listing); err != nil {
		return nil, err
	}

	s.logger.Info("job listing created", map[string]interface{}{
		"jobId": listing.ID,
		"slug":  listing.Slug,
	})
	return listing, nil
}

// GetByID returns a listing, serving published listings from the cache when
// possible. With incrementViews set, a published listing's view counter is
// bumped atomically; unpublished listings are never counted.
func (s *Service) GetByID(ctx context.Context, id string, incrementViews bool) (*models.JobListing, error) {
	listing, cached := s.cacheGet(ctx, s.idKey(id))
	if !cached {
		var err error
		listing, err = s.store.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if listing.IsPublished {
			s.cacheSet(ctx, listing)
		}
	}

	if incrementViews && listing.IsPublished {
		if err := s.store.IncrementViews(ctx, id); err != nil {
			return nil, err
		}
		listing.Views++
		s.invalidate(ctx, listing)
	}
	return listing, nil
}

func (s *Service) GetBySlug(ctx context.Context, slug string, incrementViews bool) (*models.JobListing, error) {
	listing, cached := s.cacheGet(ctx, s.slugKey(slug))
	if !cached {
		var err error
		listing, err = s.store.GetBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		if listing.IsPublished {
			s.cacheSet(ctx, listing)
		}
	}

	if incrementViews && listing.IsPublished {
		if err := s.store.IncrementViews(ctx, listing.ID); err != nil {
			return nil, err
		}
		listing.Views++
		s.invalidate(ctx, listing)
	}
	return listing, nil
}

func (s *Service) Update(ctx context.Context, id string, u UpdateListing) (*models.JobListing, error) {
	listing, err := s.store.Update(ctx, id, u)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, listing)
	return listing, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id string, status models.JobStatus) (*models.JobListing, error) {
	if !status.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid status: %s", status))
	}
	listing, err := s.store.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, listing)
	return listing, nil
}

// Publish activates a listing. The required-field check runs against the
// stored document, not caller input; already-published listings conflict.
func (s *Service) Publish(ctx context.Context, id string) (*models.JobListing, error) {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(current.Title) == "" ||
		strings.TrimSpace(current.Description) == "" ||
		strings.TrimSpace(current.Role) == "" {
		return nil, apperrors.NewValidationError("title, description and role are required to publish")
	}

	listing, err := s.store.Publish(ctx, id)
	if err != nil {
		return nil, err
	}
	metrics.JobListingsPublished.Inc()
	s.invalidate(ctx, listing)

	s.logger.Info("job listing published", map[string]interface{}{"jobId": id})
	return listing, nil
}

func (s *Service) Unpublish(ctx context.Context, id string) (*models.JobListing, error) {
	listing, err := s.store.Unpublish(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, listing)
	return listing, nil
}

func (s *Service) AddMedia(ctx context.Context, id string, item models.MediaItem) (*models.JobListing, error) {
	if item.URL == "" {
		return nil, apperrors.NewValidationError("media url is required")
	}
	if item.Type == "" {
		return nil, apperrors.NewValidationError("media type is required")
	}
	if !item.Type.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid media type: %s", item.Type))
	}

	listing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item.ID = uuid.NewString()
	item.CreatedAt = now
	item.UpdatedAt = now
	if item.Order == 0 {
		item.Order = len(listing.Media)
	}
	listing.Media = append(listing.Media, item)

	if err := s.store.SetMedia(ctx, id, listing.Media); err != nil {
		return nil, err
	}
	s.invalidate(ctx, listing)
	return listing, nil
}

// UpdateMediaItem carries optional media fields; nil leaves a field unchanged.
type UpdateMediaItem struct {
	URL      *string
	Type     *models.MediaType
	Filename *string
	Caption  *string
	Order    *int
}

// UpdateMedia edits one gallery entry. A missing media id is not an error;
// the call succeeds without changing anything.
func (s *Service) UpdateMedia(ctx context.Context, id, mediaID string, u UpdateMediaItem) (*models.JobListing, error) {
	listing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := false
	for i := range listing.Media {
		if listing.Media[i].ID != mediaID {
			continue
		}
		m := &listing.Media[i]
		if u.URL != nil {
			m.URL = *u.URL
		}
		if u.Type != nil {
			if !u.Type.IsValid() {
				return nil, apperrors.NewValidationError(fmt.Sprintf("invalid media type: %s", *u.Type))
			}
			m.Type = *u.Type
		}
		if u.Filename != nil {
			m.Filename = *u.Filename
		}
		if u.Caption != nil {
			m.Caption = *u.Caption
		}
		if u.Order != nil {
			m.Order = *u.Order
		}
		m.UpdatedAt = time.Now().UTC()
		changed = true
		break
	}
	if !changed {
		return listing, nil
	}

	if err := s.store.SetMedia(ctx, id, listing.Media); err != nil {
		return nil, err
	}
	s.invalidate(ctx, listing)
	return listing, nil
}

// RemoveMedia drops one gallery entry. A missing media id is not an error.
func (s *Service) RemoveMedia(ctx context.Context, id, mediaID string) (*models.JobListing, error) {
	listing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	kept := listing.Media[:0]
	removed := false
	for _, m := range listing.Media {
		if m.ID == mediaID {
			removed = true
			continue
		}
		kept = append(kept, m)
	}
	if !removed {
		return listing, nil
	}
	listing.Media = kept

	if err := s.store.SetMedia(ctx, id, listing.Media); err != nil {
		return nil, err
	}
	s.invalidate(ctx, listing)
	return listing, nil
}

func validateSectionFields(fields []models.FormField) error {
	if len(fields) == 0 {
		return apperrors.NewValidationError("a custom section needs at least one field")
	}
	for _, f := range fields {
		if strings.TrimSpace(f.FieldName) == "" {
			return apperrors.NewValidationError("fieldName is required on every field")
		}
		if strings.TrimSpace(f.FieldLabel) == "" {
			return apperrors.NewValidationError(fmt.Sprintf("fieldLabel is required on field %q", f.FieldName))
		}
		if !f.FieldType.IsValid() {
			return apperrors.NewValidationError(fmt.Sprintf("invalid field type %q on field %q", f.FieldType, f.FieldName))
		}
	}
	return nil
}

func (s *Service) AddSection(ctx context.Context, id string, section models.FormSection) (*models.JobListing, error) {
	if strings.TrimSpace(section.SectionTitle) == "" {
		return nil, apperrors.NewValidationError("sectionTitle is required")
	}
	if err := validateSectionFields(section.Fields); err != nil {
		return nil, err
	}

	listing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	section.ID = uuid.NewString()
	if section.Order == 0 {
		section.Order = len(listing.CustomSections)
	}
	listing.CustomSections = append(listing.CustomSections, section)

	if err := s.store.SetSections(ctx, id, listing.CustomSections); err != nil {
		return nil, err
	}
	s.invalidate(ctx, listing)
	return listing, nil
}

// UpdateSection replaces a section's content in place, keeping its id. A
// missing section id is not an error.
func (s *Service) UpdateSection(ctx context.Context, id, sectionID string, section models.FormSection) (*models.JobListing, error) {
	if strings.TrimSpace(section.SectionTitle) == "" {
		return nil, apperrors.NewValidationError("sectionTitle is required")
	}
	if err := validateSectionFields(section.Fields); err != nil {
		return nil, err
	}

	listing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := false
	for i := range listing.CustomSections {
		if listing.CustomSections[i].ID != sectionID {
			continue
		}
		section.ID = sectionID
		listing.CustomSections[i] = section
		changed = true
		break
	}
	if !changed {
		return listing, nil
	}

	if err := s.store.SetSections(ctx, id, listing.CustomSections); err != nil {
		return nil, err
	}
	s.invalidate(ctx, listing)
	return listing, nil
}

// RemoveSection drops one custom section. A missing section id is not an error.
func (s *Service) RemoveSection(ctx context.Context, id, sectionID string) (*models.JobListing, error) {
	listing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	kept := listing.CustomSections[:0]
	removed := false
	for _, sec := range listing.CustomSections {
		if sec.ID == sectionID {
			removed = true
			continue
		}
		kept = append(kept, sec)
	}
	if !removed {
		return listing, nil
	}
	listing.CustomSections = kept

	if err := s.store.SetSections(ctx, id, listing.CustomSections); err != nil {
		return nil, err
	}
	s.invalidate(ctx, listing)
	return listing, nil
}

// AddTags unions the given tags into the listing's tag set, lowercased and
// deduplicated.
func (s *Service) AddTags(ctx context.Context, id string, tags []string) (*models.JobListing, error) {
	if id == "" {
		return nil, apperrors.NewValidationError("job listing id is required")
	}
	incoming := normalizeTags(tags)
	if len(incoming) == 0 {
		return nil, apperrors.NewValidationError("at least one tag is required")
	}

	listing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	listing.Tags = normalizeTags(append(listing.Tags, incoming...))
	if err := s.store.SetTags(ctx, id, listing.Tags); err != nil {
		return nil, err
	}
	s.invalidate(ctx, listing)
	return listing, nil
}

// RemoveTags takes the set difference of the listing's tags and the given ones.
func (s *Service) RemoveTags(ctx context.Context, id string, tags []string) (*models.JobListing, error) {
	if id == "" {
		return nil, apperrors.NewValidationError("job listing id is required")
	}
	remove := normalizeTags(tags)
	if len(remove) == 0 {
		return nil, apperrors.NewValidationError("at least one tag is required")
	}

	listing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	drop := make(map[string]struct{}, len(remove))
	for _, t := range remove {
		drop[t] = struct{}{}
	}
	kept := []string{}
	for _, t := range listing.Tags {
		if _, ok := drop[t]; ok {
			continue
		}
		kept = append(kept, t)
	}
	listing.Tags = kept

	if err := s.store.SetTags(ctx, id, listing.Tags); err != nil {
		return nil, err
	}
	s.invalidate(ctx, listing)
	return listing, nil
}

func (s *Service) IncrementApplications(ctx context.Context, id string) error {
	if err := s.store.IncrementApplications(ctx, id); err != nil {
		return err
	}
	s.invalidateID(ctx, id)
	return nil
}

func (s *Service) DecrementApplications(ctx context.Context, id string) error {
	if err := s.store.DecrementApplications(ctx, id); err != nil {
		return err
	}
	s.invalidateID(ctx, id)
	return nil
}

// BulkUpdateStatus validates every id up front; one malformed id rejects the
// whole call before any write.
func (s *Service) BulkUpdateStatus(ctx context.Context, ids []string, status models.JobStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, apperrors.NewValidationError("at least one job listing id is required")
	}
	if !status.IsValid() {
		return 0, apperrors.NewValidationError(fmt.Sprintf("invalid status: %s", status))
	}
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return 0, apperrors.NewInvalidIdentifierError(id)
		}
	}

	n, err := s.store.BulkUpdateStatus(ctx, ids, status)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.invalidateID(ctx, id)
	}
	return n, nil
}

func (s *Service) List(ctx context.Context, filter query.ListingFilter, page query.Page) (*query.PagedListings, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	return s.store.List(ctx, filter, page)
}

// ListPublished returns active, unexpired, published listings.
func (s *Service) ListPublished(ctx context.Context, filter query.ListingFilter, page query.Page) (*query.PagedListings, error) {
	filter.PublishedOnly = true
	return s.List(ctx, filter, page)
}

// Search matches the term against title, description, role and company name.
func (s *Service) Search(ctx context.Context, term string, page query.Page) (*query.PagedListings, error) {
	if strings.TrimSpace(term) == "" {
		return nil, apperrors.NewValidationError("search term is required")
	}
	return s.List(ctx, query.ListingFilter{SearchTerm: term}, page)
}

func (s *Service) ListByLocation(ctx context.Context, city, state, country string, isRemote *bool, page query.Page) (*query.PagedListings, error) {
	if city == "" && state == "" && country == "" && isRemote == nil {
		return nil, apperrors.NewValidationError("at least one location filter is required")
	}
	return s.List(ctx, query.ListingFilter{City: city, State: state, Country: country, IsRemote: isRemote}, page)
}

func (s *Service) ListByEmploymentType(ctx context.Context, et models.EmploymentType, page query.Page) (*query.PagedListings, error) {
	if !et.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid employment type: %s", et))
	}
	return s.List(ctx, query.ListingFilter{EmploymentType: et}, page)
}

func (s *Service) ListByDateRange(ctx context.Context, from, to *time.Time, page query.Page) (*query.PagedListings, error) {
	if from == nil && to == nil {
		return nil, apperrors.NewValidationError("a date range bound is required")
	}
	return s.List(ctx, query.ListingFilter{CreatedFrom: from, CreatedTo: to}, page)
}

func (s *Service) ListExpired(ctx context.Context, page query.Page) (*query.PagedListings, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	return s.store.ListExpired(ctx, page)
}

// CloseExpired transitions every overdue listing to closed and returns the
// count affected.
func (s *Service) CloseExpired(ctx context.Context) (int64, error) {
	n, err := s.store.CloseExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.ExpiredListingsClosed.Add(float64(n))
		s.logger.Info("expired listings closed", map[string]interface{}{"count": n})
	}
	return n, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	listing, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, listing)
	return nil
}

// --- cache plumbing ---

func (s *Service) idKey(id string) string {
	return s.opts.KeyPrefix + ":listing:id:" + id
}

func (s *Service) slugKey(slug string) string {
	return s.opts.KeyPrefix + ":listing:slug:" + slug
}

func (s *Service) cacheGet(ctx context.Context, key string) (*models.JobListing, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, key).Result()
	if err != nil {
		metrics.ListingCacheEvents.WithLabelValues("miss").Inc()
		return nil, false
	}
	var l models.JobListing
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		metrics.ListingCacheEvents.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.ListingCacheEvents.WithLabelValues("hit").Inc()
	return &l, true
}

func (s *Service) cacheSet(ctx context.Context, l *models.JobListing) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(l)
	if err != nil {
		return
	}
	s.cache.Set(ctx, s.idKey(l.ID), raw, s.opts.TTL)
	if l.Slug != "" {
		s.cache.Set(ctx, s.slugKey(l.Slug), raw, s.opts.TTL)
	}
}

func (s *Service) invalidate(ctx context.Context, l *models.JobListing) {
	if s.cache == nil || l == nil {
		return
	}
	keys := []string{s.idKey(l.ID)}
	if l.Slug != "" {
		keys = append(keys, s.slugKey(l.Slug))
	}
	s.cache.Del(ctx, keys...)
}

func (s *Service) invalidateID(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	s.cache.Del(ctx, s.idKey(id))
}
