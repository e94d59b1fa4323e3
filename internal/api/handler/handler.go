package handler

import (
	"context"
	"log/slog"
	"time"
)

// ObjectStore is the storage surface the HTTP handlers need.
type ObjectStore interface {
	Upload(ctx context.Context, folder, name string, content []byte, contentType string) error
	Exists(ctx context.Context, folder, name string) (bool, error)
	List(ctx context.Context, folder, prefix string) ([]string, error)
	Delete(ctx context.Context, folder, name string) error
	PresignedURL(ctx context.Context, folder, name string, expires time.Duration) (string, error)
	Healthy(ctx context.Context) error
	Bucket() string
}

// TaskQueue is the queue surface the HTTP handlers need.
type TaskQueue interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
	PendingMessages() (int, error)
	Purge() (int, error)
	QueueName() string
	IsConnected() bool
}

// Dependencies holds everything the handlers need, injected by main.
type Dependencies struct {
	Logger       *slog.Logger
	Store        ObjectStore
	Queue        TaskQueue
	InputFolder  string
	OutputFolder string
}

// Handler serves all HTTP endpoints of the intake service.
type Handler struct {
	logger       *slog.Logger
	store        ObjectStore
	queue        TaskQueue
	inputFolder  string
	outputFolder string
}

// NewHandler creates a new Handler instance
func NewHandler(deps *Dependencies) *Handler {
	return &Handler{
		logger:       deps.Logger,
		store:        deps.Store,
		queue:        deps.Queue,
		inputFolder:  deps.InputFolder,
		outputFolder: deps.OutputFolder,
	}
}
