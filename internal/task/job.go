package task

import (
	"fmt"

	"github.com/google/uuid"
)

// Type identifies the kind of work a queued job requests.
type Type string

const (
	// TypeTattooApplication is the primary AI compositing pipeline.
	TypeTattooApplication Type = "tattoo_application"
	// TypeImageProcessing is the legacy thumbnail pipeline, kept for
	// backward compatibility with older producers.
	TypeImageProcessing Type = "image_processing"
)

// StatusCompleted is the only terminal status reported via webhook.
const StatusCompleted = "completed"

// ImageInfo describes an uploaded image as extracted at intake time.
type ImageInfo struct {
	Filename    string `json:"filename"`
	Resolution  string `json:"resolution"`
	Format      string `json:"format"`
	SizeBytes   int    `json:"size_bytes"`
	ContentType string `json:"content_type"`
}

// Metadata carries correlation data and per-image details through the queue.
type Metadata struct {
	JobID       string     `json:"jobId,omitempty"`
	SocketID    string     `json:"socketId,omitempty"`
	BodyImage   *ImageInfo `json:"body_image,omitempty"`
	TattooImage *ImageInfo `json:"tattoo_image,omitempty"`
	// ContentType is only set on legacy image_processing jobs.
	ContentType string `json:"content_type,omitempty"`
}

// Job is the message published to the queue at intake and consumed by the
// worker. It is immutable once published.
type Job struct {
	TaskType       Type   `json:"task_type"`
	BodyFilename   string `json:"body_filename,omitempty"`
	TattooFilename string `json:"tattoo_filename,omitempty"`

	// Filename and Folder are used by legacy image_processing jobs.
	Filename string `json:"filename,omitempty"`
	Folder   string `json:"folder,omitempty"`

	InputFolder  string `json:"input_folder,omitempty"`
	OutputFolder string `json:"output_folder,omitempty"`

	Styles      []string `json:"styles,omitempty"`
	Colors      []string `json:"colors,omitempty"`
	Description string   `json:"description,omitempty"`

	Metadata Metadata `json:"metadata,omitempty"`
}

// Validate checks the fields required for the job's task type.
func (j *Job) Validate() error {
	switch j.TaskType {
	case "":
		return fmt.Errorf("%w: task_type", ErrMissingField)
	case TypeTattooApplication:
		if j.BodyFilename == "" {
			return fmt.Errorf("%w: body_filename", ErrMissingField)
		}
		if j.TattooFilename == "" {
			return fmt.Errorf("%w: tattoo_filename", ErrMissingField)
		}
		return nil
	case TypeImageProcessing:
		if j.Filename == "" {
			return fmt.Errorf("%w: filename", ErrMissingField)
		}
		if j.Folder == "" {
			return fmt.Errorf("%w: folder", ErrMissingField)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTaskType, j.TaskType)
	}
}

// Result is the completion payload handed to the webhook notifier. It is not
// persisted by this system; durability of the outcome belongs to the
// callback receiver.
type Result struct {
	ResultURL              string  `json:"result_url"`
	ProcessingTime         float64 `json:"processing_time"`
	Status                 string  `json:"status"`
	OriginalBodyFilename   string  `json:"original_body_filename"`
	OriginalTattooFilename string  `json:"original_tattoo_filename"`
}

// NewBodyFilename generates a unique storage key for an uploaded body image.
func NewBodyFilename() string {
	return "body_" + uuid.NewString()
}

// NewTattooFilename generates a unique storage key for an uploaded tattoo design.
func NewTattooFilename() string {
	return "tattoo_" + uuid.NewString()
}

// ResultFilename derives the deterministic output key for a job. Reusing the
// body filename makes redeliveries overwrite rather than duplicate.
func ResultFilename(bodyFilename string) string {
	return "result_" + bodyFilename
}

// ProcessedFilename derives the output key for legacy thumbnail jobs.
func ProcessedFilename(filename string) string {
	return "processed_" + filename
}
