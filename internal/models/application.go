// internal/models/application.go
package models

import "time"

type ApplicationStatus string

const (
	ApplicationStatusSubmitted   ApplicationStatus = "submitted"
	ApplicationStatusUnderReview ApplicationStatus = "under_review"
	ApplicationStatusShortlisted ApplicationStatus = "shortlisted"
	ApplicationStatusRejected    ApplicationStatus = "rejected"
	ApplicationStatusAccepted    ApplicationStatus = "accepted"
)

func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationStatusSubmitted, ApplicationStatusUnderReview,
		ApplicationStatusShortlisted, ApplicationStatusRejected, ApplicationStatusAccepted:
		return true
	}
	return false
}

// AllApplicationStatuses returns the five review states in workflow order.
func AllApplicationStatuses() []ApplicationStatus {
	return []ApplicationStatus{
		ApplicationStatusSubmitted,
		ApplicationStatusUnderReview,
		ApplicationStatusShortlisted,
		ApplicationStatusRejected,
		ApplicationStatusAccepted,
	}
}

type Candidate struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// FileAttachment is an uploaded file answer for file/image field types.
type FileAttachment struct {
	URL        string     `json:"url"`
	Filename   string     `json:"filename,omitempty"`
	Size       int64      `json:"size,omitempty"`
	MimeType   string     `json:"mimeType,omitempty"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
}

// Recording is an uploaded audio/video clip answer. Duration is in seconds.
type Recording struct {
	URL        string     `json:"url"`
	Duration   float64    `json:"duration"`
	Format     string     `json:"format,omitempty"`
	Filename   string     `json:"filename,omitempty"`
	Size       int64      `json:"size,omitempty"`
	MimeType   string     `json:"mimeType,omitempty"`
	UploadedAt *time.Time `json:"uploadedAt,omitempty"`
}

// ApplicationResponse is one answered form field. FieldName/FieldLabel/FieldType
// are denormalized copies from the schema field, not live references.
type ApplicationResponse struct {
	FieldName      string           `json:"fieldName"`
	FieldLabel     string           `json:"fieldLabel,omitempty"`
	FieldType      FieldType        `json:"fieldType,omitempty"`
	Value          interface{}      `json:"value,omitempty"`
	Files          []FileAttachment `json:"files,omitempty"`
	VoiceRecording *Recording       `json:"voiceRecording,omitempty"`
	VideoRecording *Recording       `json:"videoRecording,omitempty"`
}

// FormSnapshot is the deep copy of the listing's custom sections captured at
// submission time. Later edits to the live listing never reinterpret it.
type FormSnapshot struct {
	CustomSections []FormSection `json:"customSections"`
}

type Application struct {
	ID           string                `json:"id"`
	JobListingID string                `json:"jobListingId"`
	Candidate    Candidate             `json:"candidate"`
	Responses    []ApplicationResponse `json:"responses"`
	FormSnapshot FormSnapshot          `json:"formSnapshot"`
	Status       ApplicationStatus     `json:"status"`
	Notes        string                `json:"notes,omitempty"`
	Rating       *int                  `json:"rating,omitempty"`
	SubmittedAt  time.Time             `json:"submittedAt"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// ApplicationStatistics is an eventual-consistency reading: the per-status
// counts are independent queries, not a transactional snapshot, so Total may
// briefly disagree with their sum under concurrent status changes.
type ApplicationStatistics struct {
	Total    int64                       `json:"total"`
	ByStatus map[ApplicationStatus]int64 `json:"byStatus"`
}
