// internal/applications/validator.go
package applications

import (
	"fmt"
	"time"

	apperrors "jobboard-backend/internal/common/errors"
	"jobboard-backend/internal/models"
)

// Validator decides whether submitted responses are admissible against the
// form snapshot the application carries. It is defense-in-depth on top of
// upload-time checks done by the blob storage collaborator, not a replacement
// for them.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate walks every field declared in the snapshot and checks the matching
// response. Dispatch is over the field's closed type union, so each variant
// only sees the attributes meaningful to it.
func (v *Validator) Validate(responses []models.ApplicationResponse, snapshot models.FormSnapshot) error {
	byName := make(map[string]*models.ApplicationResponse, len(responses))
	for i := range responses {
		byName[responses[i].FieldName] = &responses[i]
	}

	for _, section := range snapshot.CustomSections {
		for _, field := range section.Fields {
			resp := byName[field.FieldName]

			if resp == nil {
				if field.IsRequired {
					return apperrors.NewApplicationValidationFailedError(
						fmt.Sprintf("required field missing: %s", field.FieldLabel))
				}
				continue
			}

			switch spec := field.Variant().(type) {
			case models.RecordingField:
				if err := validateRecording(field, spec, resp); err != nil {
					return err
				}
			case models.ScalarField, models.SelectionField, models.UploadField:
				// Required-presence only; per-type content checks are done
				// client-side and at upload time.
			}
		}
	}
	return nil
}

func validateRecording(field models.FormField, spec models.RecordingField, resp *models.ApplicationResponse) error {
	kind := "voice recording"
	rec := resp.VoiceRecording
	if spec.Kind == models.FieldTypeVideoRecording {
		kind = "video recording"
		rec = resp.VideoRecording
	}

	if rec == nil || rec.URL == "" {
		if field.IsRequired {
			return apperrors.NewApplicationValidationFailedError(
				fmt.Sprintf("%s required for %s", kind, field.FieldLabel))
		}
		return nil
	}

	if spec.Config != nil {
		if spec.Config.MinDuration != nil && rec.Duration < *spec.Config.MinDuration {
			return apperrors.NewApplicationValidationFailedError(
				fmt.Sprintf("%s for %s is shorter than the minimum duration of %.0f seconds",
					kind, field.FieldLabel, *spec.Config.MinDuration))
		}
		if spec.Config.MaxDuration != nil && rec.Duration > *spec.Config.MaxDuration {
			return apperrors.NewApplicationValidationFailedError(
				fmt.Sprintf("%s for %s exceeds the maximum duration of %.0f seconds",
					kind, field.FieldLabel, *spec.Config.MaxDuration))
		}
	}
	return nil
}

// StampUploadTimes fills in uploadedAt on accepted recordings that arrived
// without one, normalizing client-supplied payloads before persistence.
func (v *Validator) StampUploadTimes(responses []models.ApplicationResponse, now time.Time) {
	for i := range responses {
		if rec := responses[i].VoiceRecording; rec != nil && rec.UploadedAt == nil {
			t := now
			rec.UploadedAt = &t
		}
		if rec := responses[i].VideoRecording; rec != nil && rec.UploadedAt == nil {
			t := now
			rec.UploadedAt = &t
		}
	}
}
