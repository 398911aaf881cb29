// internal/server/applications.go
package server

import (
	"context"
	"net/http"
	"strconv"

	"jobboard-backend/internal/applications"
	apperrors "jobboard-backend/internal/common/errors"
	"jobboard-backend/internal/common/logger"
	"jobboard-backend/internal/models"

	"github.com/gin-gonic/gin"
)

// ListingDirectory is the slice of the listing service that submissions need:
// resolving the target listing and bumping its applications counter.
type ListingDirectory interface {
	GetByID(ctx context.Context, id string, incrementViews bool) (*models.JobListing, error)
	IncrementApplications(ctx context.Context, id string) error
}

// ApplicationHandlers exposes the application operation surface over HTTP.
type ApplicationHandlers struct {
	service  *applications.Service
	listings ListingDirectory
	logger   logger.Logger
}

func NewApplicationHandlers(service *applications.Service, listings ListingDirectory, log logger.Logger) *ApplicationHandlers {
	return &ApplicationHandlers{
		service:  service,
		listings: listings,
		logger:   log.WithFields(map[string]interface{}{"component": "application-handlers"}),
	}
}

type submitApplicationRequest struct {
	JobListingID string                       `json:"jobListingId" binding:"required"`
	Candidate    models.Candidate             `json:"candidate" binding:"required"`
	Responses    []models.ApplicationResponse `json:"responses" binding:"required"`
}

// snapshotSections deep-copies the listing's custom sections so later edits
// to the live listing can never reinterpret a stored application.
func snapshotSections(sections []models.FormSection) []models.FormSection {
	out := make([]models.FormSection, len(sections))
	for i, s := range sections {
		cs := s
		cs.Fields = make([]models.FormField, len(s.Fields))
		for j, f := range s.Fields {
			cf := f
			if f.Options != nil {
				cf.Options = append([]models.FieldOption(nil), f.Options...)
			}
			if f.Validation != nil {
				v := *f.Validation
				cf.Validation = &v
			}
			if f.RecordingConfig != nil {
				rc := *f.RecordingConfig
				cf.RecordingConfig = &rc
			}
			cs.Fields[j] = cf
		}
		out[i] = cs
	}
	return out
}

// Submit resolves the target listing, snapshots its form, validates and
// stores the application, then bumps the listing's applications counter.
// The counter bump is best-effort; a stored application is never rolled back
// over it.
func (h *ApplicationHandlers) Submit(c *gin.Context) {
	var req submitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	listing, err := h.listings.GetByID(c.Request.Context(), req.JobListingID, false)
	if err != nil {
		writeError(c, err)
		return
	}

	app, err := h.service.Submit(c.Request.Context(), applications.SubmitApplication{
		JobListingID: listing.ID,
		Candidate:    req.Candidate,
		Responses:    req.Responses,
		FormSnapshot: models.FormSnapshot{CustomSections: snapshotSections(listing.CustomSections)},
	})
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.listings.IncrementApplications(c.Request.Context(), listing.ID); err != nil {
		h.logger.WithError(err).Warn("applications counter increment failed", map[string]interface{}{
			"jobListingId": listing.ID,
		})
	}
	c.JSON(http.StatusCreated, app)
}

func (h *ApplicationHandlers) GetByID(c *gin.Context) {
	app, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *ApplicationHandlers) ListByJobListing(c *gin.Context) {
	var req struct {
		pageQuery
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	result, err := h.service.ListByJobListing(c.Request.Context(), c.Param("id"), applications.ListOptions{
		Status: models.ApplicationStatus(req.Status),
		Page:   req.toPage(),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ApplicationHandlers) ListByCandidateEmail(c *gin.Context) {
	var req pageQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	result, err := h.service.ListByCandidateEmail(c.Request.Context(), c.Param("email"), req.toPage())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ApplicationHandlers) ListRecent(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(c, apperrors.NewValidationError("limit must be a positive integer"))
			return
		}
		limit = n
	}

	result, err := h.service.ListRecent(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ApplicationHandlers) ListByDateRange(c *gin.Context) {
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

func (h *ApplicationHandlers) SearchByResponseField(c *gin.Context) {
	var req struct {
		pageQuery
		JobListingID string `form:"jobListingId"`
		Field        string `form:"field"`
		Value        string `form:"value"`
	}
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	result, err := h.service.SearchByResponseField(c.Request.Context(),
		req.JobListingID, req.Field, req.Value, req.toPage())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ApplicationHandlers) Exists(c *gin.Context) {
	email := c.Query("email")
	jobListingID := c.Query("jobListingId")
	if email == "" || jobListingID == "" {
		writeError(c, apperrors.NewValidationError("email and jobListingId query parameters are required"))
		return
	}

	exists, err := h.service.Exists(c.Request.Context(), email, jobListingID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

func (h *ApplicationHandlers) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *ApplicationHandlers) Count(c *gin.Context) {
	id := c.Param("id")
	var (
		count int64
		err   error
	)
	if status := c.Query("status"); status != "" {
		count, err = h.service.CountByStatus(c.Request.Context(), id, models.ApplicationStatus(status))
	} else {
		count, err = h.service.Count(c.Request.Context(), id)
	}
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *ApplicationHandlers) UpdateStatus(c *gin.Context) {
	var req struct {
		Status models.ApplicationStatus `json:"status" binding:"required"`
		Notes  *string                  `json:"notes"`
		Rating *int                     `json:"rating"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	app, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, req.Notes, req.Rating)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *ApplicationHandlers) AddNotes(c *gin.Context) {
	var req struct {
		Notes string `json:"notes" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	app, err := h.service.AddNotes(c.Request.Context(), c.Param("id"), req.Notes)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *ApplicationHandlers) Rate(c *gin.Context) {
	var req struct {
		Rating int `json:"rating" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperrors.NewValidationError(err.Error()))
		return
	}

	app, err := h.service.Rate(c.Request.Context(), c.Param("id"), req.Rating)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

func (h *ApplicationHandlers) BulkUpdateStatus(c *gin.Context) {
	var req struct {
		IDs    []string                 `json:"ids" binding:"required"`
		Status models.ApplicationStatus `json:"status" binding:"required"`
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

func (h *ApplicationHandlers) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
