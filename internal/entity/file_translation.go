package entity

import (
	"time"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/constants"
)

// FileTranslation is one row of file_translation_logs. The file name is the
// join key across the upload, translation and watermark facets.
type FileTranslation struct {
	FileName        string `json:"file_name"`
	LandingZonePath string `json:"landing_zone_path"`
	FileType        string `json:"file_type"`

	UploadDate     *time.Time       `json:"upload_date,omitempty"`
	UploadDatetime *time.Time       `json:"upload_datetime,omitempty"`
	UploadStatus   constants.Status `json:"upload_status"`
	UploadedBy     string           `json:"uploaded_by"`
	FromLanguage   string           `json:"fromLanguage"`
	ToLanguage     string           `json:"toLanguage"`
	ExclusionText  string           `json:"exclusion_text"`
	PromptID       *int64           `json:"prompt_id,omitempty"`

	TranslationDate          *time.Time       `json:"translation_date,omitempty"`
	TranslationDatetime      *time.Time       `json:"translation_datetime,omitempty"`
	TranslationStatus        constants.Status `json:"translation_status,omitempty"`
	TranslatedZonePath       *string          `json:"translated_zone_path,omitempty"`
	GlossaryZonePath         *string          `json:"glossary_zone_path,omitempty"`
	GlossaryProcessingStatus constants.Status `json:"glossary_processing_status,omitempty"`
	GlossaryContent          *string          `json:"glossary_content,omitempty"`

	WatermarkDate     *time.Time       `json:"watermark_date,omitempty"`
	WatermarkDatetime *time.Time       `json:"watermark_datetime,omitempty"`
	WatermarkStatus   constants.Status `json:"watermark_status,omitempty"`
	WatermarkZonePath *string          `json:"watermark_zone_path,omitempty"`
}

// UploadFacet is written once when the record is created.
type UploadFacet struct {
	FileName        string
	LandingZonePath string
	FileType        string
	UploadedAt      time.Time
	Status          constants.Status
	UploadedBy      string
	FromLanguage    string
	ToLanguage      string
	ExclusionText   string
	PromptID        *int64
}

// TranslationFacet is the translate stage's view of a record. Nil pointers
// are stored as NULL.
type TranslationFacet struct {
	At              time.Time
	Status          constants.Status
	TranslatedPath  *string
	GlossaryPath    *string
	GlossaryStatus  constants.Status
	GlossaryContent *string
}

// WatermarkFacet is the watermark stage's view of a record.
type WatermarkFacet struct {
	At     time.Time
	Status constants.Status
	Path   *string
}

// Metadata is what the translate stage needs from the upload facet.
type Metadata struct {
	FromLanguage  string
	ToLanguage    string
	ExclusionText string
	PromptID      *int64
}
