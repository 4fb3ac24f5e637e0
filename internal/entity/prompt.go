package entity

import "time"

// Prompt is a named system instruction for the entity extractor.
type Prompt struct {
	ID         int64     `json:"id"`
	PromptName string    `json:"prompt_name"`
	PromptText string    `json:"prompt_text"`
	UpdatedAt  time.Time `json:"-"`
}
