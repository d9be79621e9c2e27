package slide

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/feichai0017/slide-deidentifier/internal/models"
	"github.com/feichai0017/slide-deidentifier/pkg/queue"
)

// SlideProcessor is the service surface for slide deidentification.
type SlideProcessor interface {
	// ProcessSlide accepts an uploaded slide, stores it and enqueues a
	// deidentification task.
	ProcessSlide(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*models.ProcessingTask, error)
	// ProcessBatch accepts several uploads concurrently.
	ProcessBatch(ctx context.Context, files []*multipart.FileHeader) ([]*models.ProcessingTask, error)
	// HandleSlide runs on the worker: it streams the stored slide
	// through the deidentifier into the output location.
	HandleSlide(ctx context.Context, task *queue.Task) error
	// GetProcessingStatus reports task progress.
	GetProcessingStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error)
	// GetDeidReport returns the audit report of a completed task.
	GetDeidReport(ctx context.Context, taskID string) (*models.DeidReport, error)
	// OpenDeidentified opens the deidentified slide for download.
	OpenDeidentified(ctx context.Context, taskID string) (io.ReadCloser, error)
	// CancelTask cancels a pending task.
	CancelTask(ctx context.Context, taskID string) error
	// CleanupTasks removes slides past the retention period.
	CleanupTasks(ctx context.Context) error
}
