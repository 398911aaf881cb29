// internal/server/joblistings.go
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	apperrors "jobboard-backend/internal/common/errors"
	"jobboard-backend/internal/common/logger"
	"jobboard-backend/internal/joblistings"
	"jobboard-backend/internal/models"
	"jobboard-backend/internal/query"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BlobStore uploads media payloads and returns durable URLs; satisfied by
// the S3 client.
type BlobStore interface {
	Upload(ctx context.Context, key string, payload []byte, contentType string) (string, error)
}

// JobListingHandlers exposes the job listing operation surface over HTTP.
type JobListingHandlers struct {
	service *joblistings.Service
	blobs   BlobStore
	logger  logger.Logger
}

func NewJobListingHandlers(service *joblistings.Service, blobs BlobStore, log logger.Logger) *JobListingHandlers {
	return &JobListingHandlers{
		service: service,
		blobs:   blobs,
		logger:  log.WithFields(map[string]interface{}{"component": "job-listing-handlers"}),
	}
}

type createListingRequest struct {
	Title          string                 `json:"title" binding:"required"`
	Description    string                 `json:"description" binding:"required"`
	Role           string                 `json:"role" binding:"required"`
	Slug           string                 `json:"slug"`
	EmploymentType models.EmploymentType  `json:"employmentType"`
	Tags           []string               `json:"tags"`
	Qualifications []string               `json:"qualifications"`
	Notes          string                 `json:"notes"`
	Company        models.CompanyInfo     `json:"company"`
	Location       models.Location        `json:"location"`
	Salary         models.SalaryRange     `json:"salary"`
	Experience     models.ExperienceRange `json:"experience"`
	CustomSections []models.FormSection   `json:"customSections"`
	ExpiresAt      *time.Time             `json:"expiresAt"`
}

func (h *JobListingHandlers) Create(c *gin.Context) {
	var req createListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	listing, err := h.service.Create(c.Request.Context(), joblistings.CreateListing{
		Title:          req.Title,
		Description:    req.Description,
		Role:           req.Role,
		Slug:           req.Slug,
		EmploymentType: req.EmploymentType,
		Tags:           req.Tags,
		Qualifications: req.Qualifications,
		Notes:          req.Notes,
		Company:        req.Company,
		Location:       req.Location,
		Salary:         req.Salary,
		Experience:     req.Experience,
		CustomSections: req.CustomSections,
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

type listListingsRequest struct {
	pageQuery
	dateRangeQuery
	Search         string `form:"search"`
	Status         string `form:"status"`
	EmploymentType string `form:"employmentType"`
	City           string `form:"city"`
	State          string `form:"state"`
	Country        string `form:"country"`
	Remote         *bool  `form:"remote"`
	Tags           string `form:"tags"` // comma-separated
}

func (r listListingsRequest) toFilter() (query.ListingFilter, error) {
	from, to, err := r.bounds()
	if err != nil {
		return query.ListingFilter{}, err
	}
	f := query.ListingFilter{
		SearchTerm:     r.Search,
		Status:         models.JobStatus(r.Status),
		EmploymentType: models.EmploymentType(r.EmploymentType),
		City:           r.City,
		State:          r.State,
		Country:        r.Country,
		IsRemote:       r.Remote,
		CreatedFrom:    from,
		CreatedTo:      to,
	}
	if r.Tags != "" {
		f.Tags = strings.Split(r.Tags, ",")
	}
	return f, nil
}

func (h *JobListingHandlers) List(c *gin.Context) {
	var req listListingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}
	filter, err := req.toFilter()
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := h.service.List(c.Request.Context(), filter, req.toPage())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *JobListingHandlers) ListPublished(c *gin.Context) {
	var req listListingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}
	filter, err := req.toFilter()
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := h.service.ListPublished(c.Request.Context(), filter, req.toPage())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *JobListingHandlers) Search(c *gin.Context) {
	var req struct {
		pageQuery
		Term string `form:"q"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	result, err := h.service.Search(c.Request.Context(), req.Term, req.toPage())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *JobListingHandlers) ListByLocation(c *gin.Context) {
	var req struct {
		pageQuery
		City    string `form:"city"`
		State   string `form:"state"`
		Country string `form:"country"`
		Remote  *bool  `form:"remote"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	result, err := h.service.ListByLocation(c.Request.Context(), req.City, req.State, req.Country, req.Remote, req.toPage())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *JobListingHandlers) ListByEmploymentType(c *gin.Context) {
	var req pageQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	result, err := h.service.ListByEmploymentType(c.Request.Context(),
		models.EmploymentType(c.Param("type")), req.toPage())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *JobListingHandlers) ListByDateRange(c *gin.Context) {
	var req struct {
		pageQuery
		dateRangeQuery
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}
	from, to, err := req.bounds()
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := h.service.ListByDateRange(c.Request.Context(), from, to, req.toPage())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *JobListingHandlers) ListExpired(c *gin.Context) {
	var req pageQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	result, err := h.service.ListExpired(c.Request.Context(), req.toPage())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *JobListingHandlers) CloseExpired(c *gin.Context) {
	n, err := h.service.CloseExpired(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": n})
}

func (h *JobListingHandlers) GetByID(c *gin.Context) {
	incrementViews := c.Query("incrementViews") == "true"
	listing, err := h.service.GetByID(c.Request.Context(), c.Param("id"), incrementViews)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *JobListingHandlers) GetBySlug(c *gin.Context) {
	incrementViews := c.Query("incrementViews") == "true"
	listing, err := h.service.GetBySlug(c.Request.Context(), c.Param("slug"), incrementViews)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

type updateListingRequest struct {
	Title          *string                 `json:"title"`
	Description    *string                 `json:"description"`
	Role           *string                 `json:"role"`
	Slug           *string                 `json:"slug"`
	EmploymentType *models.EmploymentType  `json:"employmentType"`
	Notes          *string                 `json:"notes"`
	Qualifications *[]string               `json:"qualifications"`
	Company        *models.CompanyInfo     `json:"company"`
	Location       *models.Location        `json:"location"`
	Salary         *models.SalaryRange     `json:"salary"`
	Experience     *models.ExperienceRange `json:"experience"`
	ExpiresAt      *time.Time              `json:"expiresAt"`
}

func (h *JobListingHandlers) Update(c *gin.Context) {
	var req updateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	listing, err := h.service.Update(c.Request.Context(), c.Param("id"), joblistings.UpdateListing{
		Title:          req.Title,
		Description:    req.Description,
		Role:           req.Role,
		Slug:           req.Slug,
		EmploymentType: req.EmploymentType,
		Notes:          req.Notes,
		Qualifications: req.Qualifications,
		Company:        req.Company,
		Location:       req.Location,
		Salary:         req.Salary,
		Experience:     req.Experience,
		ExpiresAt:      req.ExpiresAt,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *JobListingHandlers) UpdateStatus(c *gin.Context) {
	var req struct {
		Status models.JobStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	listing, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *JobListingHandlers) Publish(c *gin.Context) {
	listing, err := h.service.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *JobListingHandlers) Unpublish(c *gin.Context) {
	listing, err := h.service.Unpublish(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

type addMediaRequest struct {
	URL      string           `json:"url" binding:"required"`
	Type     models.MediaType `json:"type" binding:"required"`
	Filename string           `json:"filename"`
	Size     int64            `json:"size"`
	MimeType string           `json:"mimeType"`
	Caption  string           `json:"caption"`
	Order    int              `json:"order"`
}

func (h *JobListingHandlers) AddMedia(c *gin.Context) {
	var req addMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	listing, err := h.service.AddMedia(c.Request.Context(), c.Param("id"), models.MediaItem{
		URL:      req.URL,
		Type:     req.Type,
		Filename: req.Filename,
		Size:     req.Size,
		MimeType: req.MimeType,
		Caption:  req.Caption,
		Order:    req.Order,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

// UploadMedia accepts raw bytes, stores them through the blob store, then
// attaches the resulting URL as a media entry.
func (h *JobListingHandlers) UploadMedia(c *gin.Context) {
	if h.blobs == nil {
		writeError(c, apperrors.NewValidationError("media upload is not enabled"))
		return
	}

	mediaType := models.MediaType(c.Query("type"))
	if mediaType == "" {
		mediaType = models.MediaTypeImage
	}
	filename := c.Query("filename")
	if filename == "" {
		writeError(c, apperrors.NewValidationError("filename query parameter is required"))
		return
	}
	contentType := c.ContentType()
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil || len(payload) == 0 {
		writeError(c, apperrors.NewValidationError("request body must contain the media payload"))
		return
	}

	id := c.Param("id")
	key := fmt.Sprintf("listings/%s/%s%s", id, uuid.NewString(), path.Ext(filename))
	url, err := h.blobs.Upload(c.Request.Context(), key, payload, contentType)
	if err != nil {
		writeError(c, apperrors.NewMediaUploadFailedError(err))
		return
	}

	listing, err := h.service.AddMedia(c.Request.Context(), id, models.MediaItem{
		URL:      url,
		Type:     mediaType,
		Filename: filename,
		Size:     int64(len(payload)),
		MimeType: contentType,
		Caption:  c.Query("caption"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

type updateMediaRequest struct {
	URL      *string           `json:"url"`
	Type     *models.MediaType `json:"type"`
	Filename *string           `json:"filename"`
	Caption  *string           `json:"caption"`
	Order    *int              `json:"order"`
}

func (h *JobListingHandlers) UpdateMedia(c *gin.Context) {
	var req updateMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	listing, err := h.service.UpdateMedia(c.Request.Context(), c.Param("id"), c.Param("mediaId"),
		joblistings.UpdateMediaItem{
			URL:      req.URL,
			Type:     req.Type,
			Filename: req.Filename,
			Caption:  req.Caption,
			Order:    req.Order,
		})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *JobListingHandlers) RemoveMedia(c *gin.Context) {
	listing, err := h.service.RemoveMedia(c.Request.Context(), c.Param("id"), c.Param("mediaId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *JobListingHandlers) AddSection(c *gin.Context) {
	var section models.FormSection
	if err := c.ShouldBindJSON(&section); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	listing, err := h.service.AddSection(c.Request.Context(), c.Param("id"), section)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, listing)
}

func (h *JobListingHandlers) UpdateSection(c *gin.Context) {
	var section models.FormSection
	if err := c.ShouldBindJSON(&section); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	listing, err := h.service.UpdateSection(c.Request.Context(), c.Param("id"), c.Param("sectionId"), section)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *JobListingHandlers) RemoveSection(c *gin.Context) {
	listing, err := h.service.RemoveSection(c.Request.Context(), c.Param("id"), c.Param("sectionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

type tagsRequest struct {
	Tags []string `json:"tags" binding:"required"`
}

func (h *JobListingHandlers) AddTags(c *gin.Context) {
	var req tagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	listing, err := h.service.AddTags(c.Request.Context(), c.Param("id"), req.Tags)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *JobListingHandlers) RemoveTags(c *gin.Context) {
	var req tagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	listing, err := h.service.RemoveTags(c.Request.Context(), c.Param("id"), req.Tags)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *JobListingHandlers) IncrementApplications(c *gin.Context) {
	if err := h.service.IncrementApplications(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *JobListingHandlers) DecrementApplications(c *gin.Context) {
	if err := h.service.DecrementApplications(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *JobListingHandlers) BulkUpdateStatus(c *gin.Context) {
	var req struct {
		IDs    []string         `json:"ids" binding:"required"`
		Status models.JobStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	n, err := h.service.BulkUpdateStatus(c.Request.Context(), req.IDs, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"modified": n})
}

func (h *JobListingHandlers) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
