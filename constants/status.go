package constants

// Status is the per-facet progress value stored in file_translation_logs
// (upload_status, translation_status, glossary_processing_status, watermark_status).
type Status string

// Stable values (store these exact strings in DB).
const (
	StatusInProgress Status = "in progress"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// JobState is the lifecycle of one batch translation job.
type JobState string

const (
	JobStateNotStarted JobState = "NOT_STARTED"
	JobStateSubmitted  JobState = "SUBMITTED"
	JobStateSucceeded  JobState = "SUCCEEDED" // terminal
	JobStateFailed     JobState = "FAILED"    // terminal
)

// Terminal reports whether no further transition is possible.
func (s JobState) Terminal() bool {
	return s == JobStateSucceeded || s == JobStateFailed
}
