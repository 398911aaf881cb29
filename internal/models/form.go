// internal/models/form.go
package models

// FieldType is the closed set of custom form field kinds.
type FieldType string

const (
	FieldTypeText           FieldType = "text"
	FieldTypeTextarea       FieldType = "textarea"
	FieldTypeNumber         FieldType = "number"
	FieldTypeEmail          FieldType = "email"
	FieldTypePhone          FieldType = "phone"
	FieldTypeDate           FieldType = "date"
	FieldTypeSelect         FieldType = "select"
	FieldTypeMultiSelect    FieldType = "multi_select"
	FieldTypeCheckbox       FieldType = "checkbox"
	FieldTypeRadio          FieldType = "radio"
	FieldTypeFile           FieldType = "file"
	FieldTypeImage          FieldType = "image"
	FieldTypeVideo          FieldType = "video"
	FieldTypeURL            FieldType = "url"
	FieldTypeVoiceRecording FieldType = "voice_recording"
	FieldTypeVideoRecording FieldType = "video_recording"
)

func (t FieldType) IsValid() bool {
	switch t {
	case FieldTypeText, FieldTypeTextarea, FieldTypeNumber, FieldTypeEmail,
		FieldTypePhone, FieldTypeDate, FieldTypeSelect, FieldTypeMultiSelect,
		FieldTypeCheckbox, FieldTypeRadio, FieldTypeFile, FieldTypeImage,
		FieldTypeVideo, FieldTypeURL, FieldTypeVoiceRecording, FieldTypeVideoRecording:
		return true
	}
	return false
}

type FieldOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type FieldValidation struct {
	MinLength *int     `json:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty"`
	Min       *float64 `json:"min,omitempty"`
	Max       *float64 `json:"max,omitempty"`
	Pattern   string   `json:"pattern,omitempty"`
}

type RecordingFormat string

const (
	RecordingFormatWebM RecordingFormat = "webm"
	RecordingFormatMP4  RecordingFormat = "mp4"
	RecordingFormatWAV  RecordingFormat = "wav"
	RecordingFormatMP3  RecordingFormat = "mp3"
)

// RecordingConfig bounds are in seconds; nil means unbounded.
type RecordingConfig struct {
	MaxDuration *float64        `json:"maxDuration,omitempty"`
	MinDuration *float64        `json:"minDuration,omitempty"`
	AllowRetake bool            `json:"allowRetake"`
	Format      RecordingFormat `json:"format,omitempty"`
}

// FormField is the persisted shape of one custom form field. The optional
// attribute groups (options, validation, recordingConfig) are only meaningful
// for their matching field kinds; Variant() exposes that as a closed union.
type FormField struct {
	FieldName       string           `json:"fieldName"`
	FieldLabel      string           `json:"fieldLabel"`
	FieldType       FieldType        `json:"fieldType"`
	IsRequired      bool             `json:"isRequired"`
	Placeholder     string           `json:"placeholder,omitempty"`
	Options         []FieldOption    `json:"options,omitempty"`
	Validation      *FieldValidation `json:"validation,omitempty"`
	RecordingConfig *RecordingConfig `json:"recordingConfig,omitempty"`
	Order           int              `json:"order"`
}

// FormSection is an embedded section of a job listing's application form.
type FormSection struct {
	ID                 string      `json:"id"`
	SectionTitle       string      `json:"sectionTitle"`
	SectionDescription string      `json:"sectionDescription,omitempty"`
	Order              int         `json:"order"`
	Fields             []FormField `json:"fields"`
}

// FieldVariant is the closed union of field kinds. Each variant carries only
// the attributes meaningful to it; validation dispatches over the variant
// instead of probing optional properties.
type FieldVariant interface {
	isFieldVariant()
}

// ScalarField covers text, textarea, number, email, phone, date and url.
type ScalarField struct {
	Validation *FieldValidation
}

// SelectionField covers select, multi_select, checkbox and radio.
type SelectionField struct {
	Options []FieldOption
}

// UploadField covers file, image and video.
type UploadField struct{}

// RecordingField covers voice_recording and video_recording.
type RecordingField struct {
	Kind   FieldType
	Config *RecordingConfig
}

func (ScalarField) isFieldVariant()    {}
func (SelectionField) isFieldVariant() {}
func (UploadField) isFieldVariant()    {}
func (RecordingField) isFieldVariant() {}

// Variant returns the union member for this field's type.
func (f FormField) Variant() FieldVariant {
	switch f.FieldType {
	case FieldTypeVoiceRecording, FieldTypeVideoRecording:
		return RecordingField{Kind: f.FieldType, Config: f.RecordingConfig}
	case FieldTypeSelect, FieldTypeMultiSelect, FieldTypeCheckbox, FieldTypeRadio:
		return SelectionField{Options: f.Options}
	case FieldTypeFile, FieldTypeImage, FieldTypeVideo:
		return UploadField{}
	default:
		return ScalarField{Validation: f.Validation}
	}
}
