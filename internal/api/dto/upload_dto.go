package dto

import "github.com/inkforge/tattoo-pipeline/internal/task"

// UploadResponse is returned by POST /upload/ when both images were stored
// and the compositing task was queued.
type UploadResponse struct {
	Status      string         `json:"status"`
	Message     string         `json:"message"`
	JobID       string         `json:"jobId"`
	BodyImage   task.ImageInfo `json:"body_image"`
	TattooImage task.ImageInfo `json:"tattoo_image"`
	Storage     StorageInfo    `json:"storage"`
	Queue       QueueInfo      `json:"queue"`
}

// StorageInfo describes where the uploads landed.
type StorageInfo struct {
	Bucket       string `json:"bucket"`
	InputFolder  string `json:"input_folder"`
	OutputFolder string `json:"output_folder"`
}

// QueueInfo confirms the enqueued task.
type QueueInfo struct {
	TaskQueued     bool   `json:"task_queued"`
	QueueName      string `json:"queue_name"`
	ExpectedOutput string `json:"expected_output"`
}

// FileListResponse is returned by GET /files/.
type FileListResponse struct {
	Folder string   `json:"folder"`
	Count  int      `json:"count"`
	Files  []string `json:"files"`
}

// FileURLResponse is returned by GET /files/:folder/:filename.
type FileURLResponse struct {
	Folder    string `json:"folder"`
	Filename  string `json:"filename"`
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

// QueueStatusResponse is returned by GET /queue/status.
type QueueStatusResponse struct {
	QueueName string `json:"queue_name"`
	Pending   int    `json:"pending_messages"`
	Connected bool   `json:"connected"`
}

// WebhookPreviewRequest is the completion payload shape accepted by the
// development receiver at POST /preview/webhook.
type WebhookPreviewRequest struct {
	JobID    string      `json:"jobId" binding:"required"`
	Data     task.Result `json:"data"`
	SocketID string      `json:"socketId"`
}
