package constants

// Default blob layout. Every artifact lives in one container under a prefix.
const (
	DefaultContainer        = "translation-service"
	DefaultLandingPrefix    = "landing-zone"
	DefaultTranslatedPrefix = "translated-zone"
	DefaultGlossaryPrefix   = "glossaries"
	DefaultWatermarkPrefix  = "watermark"
)

// DefaultWatermarkText is stamped on every translated PDF.
const DefaultWatermarkText = "AI Translated"

// UnknownUploader is recorded when the upload form omits uploaded_by.
const UnknownUploader = "unknown"
