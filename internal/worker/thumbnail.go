package worker

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/disintegration/imaging"

	"github.com/inkforge/tattoo-pipeline/internal/task"
)

// thumbnailMaxSide bounds the longest side of legacy thumbnails.
const thumbnailMaxSide = 300

// processThumbnail handles the legacy image_processing task: download one
// image, shrink it to a bounded thumbnail, and re-upload it with a
// processed_ prefix. No AI call, no webhook.
func (w *Worker) processThumbnail(ctx context.Context, job *task.Job) Outcome {
	taskType := string(task.TypeImageProcessing)

	log := w.logger.With(
		slog.String("task_type", taskType),
		slog.String("filename", job.Filename),
		slog.String("folder", job.Folder),
	)

	if err := job.Validate(); err != nil {
		log.Error("Dropping legacy job with missing required fields",
			slog.String("error", err.Error()),
		)
		countOutcome(taskType, OutcomeDrop)
		return OutcomeDrop
	}

	content, outcome := w.downloadInput(ctx, log, job.Folder, job.Filename)
	if outcome != OutcomeAck {
		countOutcome(taskType, outcome)
		return outcome
	}

	img, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		log.Error("Dropping legacy job: stored object is not a decodable image",
			slog.String("error", err.Error()),
		)
		countOutcome(taskType, OutcomeDrop)
		return OutcomeDrop
	}

	// Fit keeps aspect ratio and never upscales.
	thumb := imaging.Fit(img, thumbnailMaxSide, thumbnailMaxSide, imaging.Lanczos)

	encodeFormat, err := imaging.FormatFromExtension(format)
	if err != nil {
		encodeFormat = imaging.PNG
	}

	buf := &bytes.Buffer{}
	if err := imaging.Encode(buf, thumb, encodeFormat); err != nil {
		log.Error("Dropping legacy job: failed to encode thumbnail",
			slog.String("error", err.Error()),
		)
		countOutcome(taskType, OutcomeDrop)
		return OutcomeDrop
	}

	contentType := job.Metadata.ContentType
	if contentType == "" {
		contentType = "image/png"
	}

	processedName := task.ProcessedFilename(job.Filename)
	if err := w.store.Upload(ctx, job.Folder, processedName, buf.Bytes(), contentType); err != nil {
		log.Error("Requeueing legacy job: failed to store thumbnail",
			slog.String("error", err.Error()),
		)
		countOutcome(taskType, OutcomeRequeue)
		return OutcomeRequeue
	}

	bounds := thumb.Bounds()
	log.Info("Legacy thumbnail task completed",
		slog.String("result", processedName),
		slog.String("resolution", fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy())),
	)

	countOutcome(taskType, OutcomeAck)
	return OutcomeAck
}
