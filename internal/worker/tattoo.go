package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"time"

	"github.com/inkforge/tattoo-pipeline/internal/task"
	"github.com/inkforge/tattoo-pipeline/internal/telemetry"
	"github.com/inkforge/tattoo-pipeline/shared/objectstore"
	"github.com/inkforge/tattoo-pipeline/shared/reveai"
)

// processTattoo drives the primary pipeline: download both inputs, call the
// compositing API, validate and store the result, then notify the callback.
// The AI call dominates latency and blocks the worker by design.
func (w *Worker) processTattoo(ctx context.Context, job *task.Job) Outcome {
	start := time.Now()
	taskType := string(task.TypeTattooApplication)

	log := w.logger.With(
		slog.String("task_type", taskType),
		slog.String("job_id", job.Metadata.JobID),
		slog.String("body_filename", job.BodyFilename),
		slog.String("tattoo_filename", job.TattooFilename),
	)

	if err := job.Validate(); err != nil {
		log.Error("Dropping job with missing required fields",
			slog.String("error", err.Error()),
		)
		countOutcome(taskType, OutcomeDrop)
		return OutcomeDrop
	}

	inputFolder := job.InputFolder
	if inputFolder == "" {
		inputFolder = w.inputFolder
	}
	outputFolder := job.OutputFolder
	if outputFolder == "" {
		outputFolder = w.outputFolder
	}

	bodyImage, outcome := w.downloadInput(ctx, log, inputFolder, job.BodyFilename)
	if outcome != OutcomeAck {
		countOutcome(taskType, outcome)
		return outcome
	}

	tattooImage, outcome := w.downloadInput(ctx, log, inputFolder, job.TattooFilename)
	if outcome != OutcomeAck {
		countOutcome(taskType, outcome)
		return outcome
	}

	log.Info("Applying tattoo with AI compositor",
		slog.Int("body_bytes", len(bodyImage)),
		slog.Int("tattoo_bytes", len(tattooImage)),
	)

	resultBytes, err := w.compositor.ApplyTattoo(ctx, bodyImage, tattooImage, reveai.Options{
		Styles:      job.Styles,
		Colors:      job.Colors,
		Description: job.Description,
	})
	if err != nil {
		return w.classifyCompositeError(log, taskType, err)
	}

	// The generated bytes must decode as an image before they count as a
	// result; storing garbage and acking would lose the job silently.
	cfg, format, err := image.DecodeConfig(bytes.NewReader(resultBytes))
	if err != nil {
		log.Error("Dropping job: generated output is not a decodable image",
			slog.String("error", err.Error()),
			slog.Int("result_bytes", len(resultBytes)),
		)
		countOutcome(taskType, OutcomeDrop)
		return OutcomeDrop
	}

	log.Info("Generated image validated",
		slog.String("resolution", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height)),
		slog.String("format", format),
	)

	resultFilename := task.ResultFilename(job.BodyFilename)
	if err := w.store.Upload(ctx, outputFolder, resultFilename, resultBytes, "image/png"); err != nil {
		log.Error("Requeueing job: failed to store result",
			slog.String("error", err.Error()),
		)
		countOutcome(taskType, OutcomeRequeue)
		return OutcomeRequeue
	}

	resultURL := w.store.PublicURL(outputFolder, resultFilename)
	processingTime := time.Since(start)

	log.Info("Tattoo application completed",
		slog.String("result", objectstore.Key(outputFolder, resultFilename)),
		slog.String("result_url", resultURL),
		slog.Duration("processing_time", processingTime),
	)

	// Notification is best-effort: a failed callback never retries the job.
	if job.Metadata.JobID != "" {
		result := task.Result{
			ResultURL:              resultURL,
			ProcessingTime:         processingTime.Seconds(),
			Status:                 task.StatusCompleted,
			OriginalBodyFilename:   job.BodyFilename,
			OriginalTattooFilename: job.TattooFilename,
		}
		if err := w.notifier.NotifyCompleted(ctx, job.Metadata.JobID, result, job.Metadata.SocketID); err != nil {
			log.Warn("Completion webhook failed",
				slog.String("error", err.Error()),
			)
		}
	} else {
		log.Debug("Skipping webhook: no jobId in metadata")
	}

	countOutcome(taskType, OutcomeAck)
	telemetry.JobDuration.Observe(processingTime.Seconds())

	return OutcomeAck
}

// downloadInput fetches one input image. Absence is permanent: inputs are
// written before the job is published, so a missing key will not appear on
// retry.
func (w *Worker) downloadInput(ctx context.Context, log *slog.Logger, folder, name string) ([]byte, Outcome) {
	content, err := w.store.Download(ctx, folder, name)
	if err != nil {
		if errors.Is(err, objectstore.ErrObjectNotFound) {
			log.Error("Dropping job: input image not found in store",
				slog.String("key", objectstore.Key(folder, name)),
			)
			return nil, OutcomeDrop
		}
		log.Error("Requeueing job: store download failed",
			slog.String("key", objectstore.Key(folder, name)),
			slog.String("error", err.Error()),
		)
		return nil, OutcomeRequeue
	}

	log.Debug("Input image downloaded",
		slog.String("key", objectstore.Key(folder, name)),
		slog.Int("size_bytes", len(content)),
	)

	return content, OutcomeAck
}

// classifyCompositeError maps compositing failures to outcomes. A response
// with no usable image is permanent; everything else (HTTP errors, timeouts,
// network failures, content-policy rejections) is retried via requeue.
func (w *Worker) classifyCompositeError(log *slog.Logger, taskType string, err error) Outcome {
	var outcome Outcome
	switch {
	case errors.Is(err, reveai.ErrNoImage):
		log.Error("Dropping job: compositor returned no usable image",
			slog.String("error", err.Error()),
		)
		outcome = OutcomeDrop

	case errors.Is(err, reveai.ErrContentPolicy):
		log.Warn("Requeueing job: compositor rejected on content policy grounds",
			slog.String("error", err.Error()),
		)
		outcome = OutcomeRequeue

	default:
		log.Error("Requeueing job: compositing call failed",
			slog.String("error", err.Error()),
		)
		outcome = OutcomeRequeue
	}

	countOutcome(taskType, outcome)
	return outcome
}

// countOutcome updates the per-outcome job counters.
func countOutcome(taskType string, outcome Outcome) {
	switch outcome {
	case OutcomeAck:
		telemetry.JobsAcked.WithLabelValues(taskType).Inc()
	case OutcomeRequeue:
		telemetry.JobsRequeued.WithLabelValues(taskType).Inc()
	case OutcomeDrop:
		telemetry.JobsDropped.WithLabelValues(taskType).Inc()
	}
}
