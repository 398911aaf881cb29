// internal/models/joblisting.go
package models

import "time"

type JobStatus string

const (
	JobStatusDraft    JobStatus = "draft"
	JobStatusActive   JobStatus = "active"
	JobStatusClosed   JobStatus = "closed"
	JobStatusArchived JobStatus = "archived"
)

// IsValid reports whether s is one of the four listing statuses.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusDraft, JobStatusActive, JobStatusClosed, JobStatusArchived:
		return true
	}
	return false
}

type EmploymentType string

const (
	EmploymentFullTime   EmploymentType = "full_time"
	EmploymentPartTime   EmploymentType = "part_time"
	EmploymentContract   EmploymentType = "contract"
	EmploymentTemporary  EmploymentType = "temporary"
	EmploymentInternship EmploymentType = "internship"
)

func (t EmploymentType) IsValid() bool {
	switch t {
	case EmploymentFullTime, EmploymentPartTime, EmploymentContract, EmploymentTemporary, EmploymentInternship:
		return true
	}
	return false
}

type MediaType string

const (
	MediaTypeImage    MediaType = "image"
	MediaTypeVideo    MediaType = "video"
	MediaTypeDocument MediaType = "document"
)

func (t MediaType) IsValid() bool {
	switch t {
	case MediaTypeImage, MediaTypeVideo, MediaTypeDocument:
		return true
	}
	return false
}

type CompanyInfo struct {
	Name    string `json:"name,omitempty"`
	Logo    string `json:"logo,omitempty"`
	Website string `json:"website,omitempty"`
}

type Location struct {
	City     string `json:"city,omitempty"`
	State    string `json:"state,omitempty"`
	Country  string `json:"country,omitempty"`
	IsRemote bool   `json:"isRemote"`
}

type SalaryPeriod string

const (
	SalaryPeriodHourly  SalaryPeriod = "hourly"
	SalaryPeriodMonthly SalaryPeriod = "monthly"
	SalaryPeriodYearly  SalaryPeriod = "yearly"
)

type SalaryRange struct {
	Min          int          `json:"min,omitempty"`
	Max          int          `json:"max,omitempty"`
	Currency     string       `json:"currency,omitempty"`
	Period       SalaryPeriod `json:"period,omitempty"`
	IsNegotiable bool         `json:"isNegotiable"`
}

type ExperienceUnit string

const (
	ExperienceYears  ExperienceUnit = "years"
	ExperienceMonths ExperienceUnit = "months"
)

type ExperienceRange struct {
	Min  int            `json:"min,omitempty"`
	Max  int            `json:"max,omitempty"`
	Unit ExperienceUnit `json:"unit,omitempty"`
}

// MediaItem is an embedded gallery entry owned by its JobListing.
type MediaItem struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Type      MediaType `json:"type"`
	Filename  string    `json:"filename,omitempty"`
	Size      int64     `json:"size,omitempty"`
	MimeType  string    `json:"mimeType,omitempty"`
	Caption   string    `json:"caption,omitempty"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// JobListing is the aggregate root owning its form schema and media gallery.
type JobListing struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Role           string          `json:"role"`
	Slug           string          `json:"slug,omitempty"`
	Status         JobStatus       `json:"status"`
	EmploymentType EmploymentType  `json:"employmentType"`
	IsPublished    bool            `json:"isPublished"`
	PublishedAt    *time.Time      `json:"publishedAt,omitempty"`
	ExpiresAt      *time.Time      `json:"expiresAt,omitempty"`
	Views          int64           `json:"views"`
	Applications   int64           `json:"applications"`
	Tags           []string        `json:"tags"`
	Qualifications []string        `json:"qualifications"`
	Notes          string          `json:"notes,omitempty"`
	Company        CompanyInfo     `json:"company"`
	Location       Location        `json:"location"`
	Salary         SalaryRange     `json:"salary"`
	Experience     ExperienceRange `json:"experience"`
	CustomSections []FormSection   `json:"customSections"`
	Media          []MediaItem     `json:"media"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}
