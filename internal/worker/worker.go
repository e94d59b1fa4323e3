package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/inkforge/tattoo-pipeline/internal/task"
	"github.com/inkforge/tattoo-pipeline/internal/telemetry"
	"github.com/inkforge/tattoo-pipeline/shared/rabbitmq"
	"github.com/inkforge/tattoo-pipeline/shared/reveai"
)

// ObjectStore is the blob storage surface the worker needs.
type ObjectStore interface {
	Download(ctx context.Context, folder, name string) ([]byte, error)
	Upload(ctx context.Context, folder, name string, content []byte, contentType string) error
	PublicURL(folder, name string) string
}

// Compositor performs the AI tattoo compositing call.
type Compositor interface {
	ApplyTattoo(ctx context.Context, bodyImage, tattooImage []byte, opts reveai.Options) ([]byte, error)
}

// Notifier delivers best-effort completion callbacks.
type Notifier interface {
	NotifyCompleted(ctx context.Context, jobID string, result task.Result, socketID string) error
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Queue         *rabbitmq.Client
	Store         ObjectStore
	Compositor    Compositor
	Notifier      Notifier
	WorkerID      string
	PrefetchCount int
	InputFolder   string
	OutputFolder  string
}

// Worker consumes jobs from the queue one at a time and drives each through
// its pipeline. One delivery is in flight per worker process; horizontal
// scaling happens by running more processes against the same queue.
type Worker struct {
	logger       *slog.Logger
	queue        *rabbitmq.Client
	store        ObjectStore
	compositor   Compositor
	notifier     Notifier
	workerID     string
	prefetch     int
	inputFolder  string
	outputFolder string
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Worker{
		logger:       cfg.Logger,
		queue:        cfg.Queue,
		store:        cfg.Store,
		compositor:   cfg.Compositor,
		notifier:     cfg.Notifier,
		workerID:     cfg.WorkerID,
		prefetch:     prefetch,
		inputFolder:  cfg.InputFolder,
		outputFolder: cfg.OutputFolder,
	}
}

// Start consumes deliveries until the context is canceled or the delivery
// channel closes. Every delivery is settled exactly once: the dispatcher
// returns an outcome and this loop is the only place that acks or nacks.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.queue.SetPrefetch(w.prefetch); err != nil {
		return fmt.Errorf("failed to configure prefetch: %w", err)
	}

	deliveries, err := w.queue.Consume(w.workerID)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("Worker started",
		slog.String("worker_id", w.workerID),
		slog.String("queue", w.queue.QueueName()),
		slog.Int("prefetch", w.prefetch),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker stopping - context canceled",
				slog.String("worker_id", w.workerID),
			)
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}

			outcome := w.dispatch(ctx, delivery.Body)
			w.settle(delivery, outcome)
		}
	}
}

// dispatch routes a raw message body to the pipeline for its task type and
// maps every exit path to an explicit outcome.
func (w *Worker) dispatch(ctx context.Context, body []byte) Outcome {
	var job task.Job
	if err := json.Unmarshal(body, &job); err != nil {
		w.logger.Error("Dropping malformed message body",
			slog.String("error", err.Error()),
			slog.String("body", string(body)),
		)
		telemetry.JobsDropped.WithLabelValues("unknown").Inc()
		return OutcomeDrop
	}

	switch job.TaskType {
	case task.TypeTattooApplication:
		return w.processTattoo(ctx, &job)
	case task.TypeImageProcessing:
		return w.processThumbnail(ctx, &job)
	default:
		// Unknown task types are skipped; acknowledging keeps them from
		// blocking the queue forever.
		w.logger.Warn("Skipping message with unrecognized task type",
			slog.String("task_type", string(job.TaskType)),
		)
		return OutcomeAck
	}
}

// settle performs the single acknowledgment decision for a delivery.
func (w *Worker) settle(delivery amqp.Delivery, outcome Outcome) {
	var err error
	switch outcome {
	case OutcomeAck:
		err = delivery.Ack(false)
	case OutcomeRequeue:
		err = delivery.Nack(false, true)
	case OutcomeDrop:
		err = delivery.Nack(false, false)
	}

	if err != nil {
		w.logger.Error("Failed to settle delivery",
			slog.String("outcome", outcome.String()),
			slog.Uint64("delivery_tag", delivery.DeliveryTag),
			slog.String("error", err.Error()),
		)
		return
	}

	w.logger.Debug("Delivery settled",
		slog.String("outcome", outcome.String()),
		slog.Uint64("delivery_tag", delivery.DeliveryTag),
	)
}
