package task

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobValidate(t *testing.T) {
	tests := []struct {
		name      string
		job       Job
		wantErr   error
		errString string
	}{
		{
			name: "valid tattoo application job",
			job: Job{
				TaskType:       TypeTattooApplication,
				BodyFilename:   "body_abc",
				TattooFilename: "tattoo_def",
			},
		},
		{
			name: "valid legacy job",
			job: Job{
				TaskType: TypeImageProcessing,
				Filename: "photo.png",
				Folder:   "input",
			},
		},
		{
			name:      "missing task type",
			job:       Job{BodyFilename: "body_abc"},
			wantErr:   ErrMissingField,
			errString: "task_type",
		},
		{
			name: "missing body filename",
			job: Job{
				TaskType:       TypeTattooApplication,
				TattooFilename: "tattoo_def",
			},
			wantErr:   ErrMissingField,
			errString: "body_filename",
		},
		{
			name: "missing tattoo filename",
			job: Job{
				TaskType:     TypeTattooApplication,
				BodyFilename: "body_abc",
			},
			wantErr:   ErrMissingField,
			errString: "tattoo_filename",
		},
		{
			name: "legacy job missing filename",
			job: Job{
				TaskType: TypeImageProcessing,
				Folder:   "input",
			},
			wantErr:   ErrMissingField,
			errString: "filename",
		},
		{
			name:    "unknown task type",
			job:     Job{TaskType: "video_processing"},
			wantErr: ErrUnknownTaskType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.job.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			if tt.errString != "" {
				assert.Contains(t, err.Error(), tt.errString)
			}
		})
	}
}

func TestFilenameGeneration(t *testing.T) {
	body := NewBodyFilename()
	tattoo := NewTattooFilename()

	assert.True(t, strings.HasPrefix(body, "body_"))
	assert.True(t, strings.HasPrefix(tattoo, "tattoo_"))
	assert.NotEqual(t, NewBodyFilename(), body, "filenames must be unique")

	assert.Equal(t, "result_"+body, ResultFilename(body))
	assert.Equal(t, "processed_photo.png", ProcessedFilename("photo.png"))
}

func TestJobRoundTrip(t *testing.T) {
	job := Job{
		TaskType:       TypeTattooApplication,
		BodyFilename:   "body_abc",
		TattooFilename: "tattoo_def",
		InputFolder:    "input",
		OutputFolder:   "output",
		Styles:         []string{"minimalist"},
		Colors:         []string{"black"},
		Description:    "small and subtle",
		Metadata: Metadata{
			JobID:    "7f9b9a0e-6d6f-4de1-a723-2f1a2cf2b9f1",
			SocketID: "sock-1",
			BodyImage: &ImageInfo{
				Filename:    "body_abc",
				Resolution:  "512x512",
				Format:      "jpeg",
				SizeBytes:   40000,
				ContentType: "image/jpeg",
			},
		},
	}

	raw, err := json.Marshal(job)
	require.NoError(t, err)

	var decoded Job
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, job, decoded)
}
