package slide

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	cfg "github.com/feichai0017/slide-deidentifier/config"
	"github.com/feichai0017/slide-deidentifier/internal/isyntax"
	"github.com/feichai0017/slide-deidentifier/internal/models"
	"github.com/feichai0017/slide-deidentifier/internal/utils/validator"
	"github.com/feichai0017/slide-deidentifier/pkg/logger"
	"github.com/feichai0017/slide-deidentifier/pkg/queue"
	"github.com/feichai0017/slide-deidentifier/pkg/storage"
)

type SlideService struct {
	queue     queue.Queue
	storage   storage.Storage
	validator *validator.SlideValidator
	logger    logger.Logger
	config    *ServiceConfig
}

type ServiceConfig struct {
	MaxFileSize     int64
	QueuePriority   int
	RetentionPeriod time.Duration
}

func NewService(
	q queue.Queue,
	store storage.Storage,
	log logger.Logger,
	sc *ServiceConfig,
) SlideProcessor {
	if sc == nil {
		sc = &ServiceConfig{
			MaxFileSize:     8 << 30,
			QueuePriority:   2,
			RetentionPeriod: 24 * time.Hour,
		}
	}

	return &SlideService{
		queue:   q,
		storage: store,
		validator: validator.NewSlideValidator(&validator.ValidatorConfig{
			MaxFileSize:       sc.MaxFileSize,
			AllowedExtensions: []string{".isyntax", ".i2syntax"},
		}),
		logger: log,
		config: sc,
	}
}

// GetService wires the service from the configured queue and storage.
func GetService(log logger.Logger, serviceCfg *cfg.ServiceConfig) (SlideProcessor, error) {
	store, err := storage.NewStorage(storage.StorageType(serviceCfg.Storage.Type), log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	q, err := queue.GetQueue()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize queue: %w", err)
	}

	return NewService(q, store, log, &ServiceConfig{
		MaxFileSize:     serviceCfg.Slides.MaxUploadSize,
		QueuePriority:   2,
		RetentionPeriod: serviceCfg.Slides.RetentionPeriod,
	}), nil
}

func slideKey(taskID, filename string) string {
	return fmt.Sprintf("slides/%s%s", taskID, filepath.Ext(filename))
}

func outputKey(taskID, filename string) string {
	return fmt.Sprintf("deid/%s%s", taskID, filepath.Ext(filename))
}

func reportKey(taskID string) string {
	return fmt.Sprintf("reports/%s.json", taskID)
}

// ProcessSlide stores an uploaded slide and enqueues its task.
func (s *SlideService) ProcessSlide(
	ctx context.Context,
	file multipart.File,
	header *multipart.FileHeader,
) (*models.ProcessingTask, error) {
	s.logger.Info("Accepting slide upload",
		logger.String("filename", header.Filename),
		logger.Int64("size", header.Size),
	)

	if err := s.validator.ValidateUpload(header); err != nil {
		s.logger.Error("Slide validation failed",
			logger.String("filename", header.Filename),
			logger.Error(err),
		)
		return nil, err
	}

	taskID := uuid.New().String()

	task := &models.ProcessingTask{
		ID:        taskID,
		Status:    models.StatusPending,
		Type:      queue.TaskTypeSlideDeidentify,
		Priority:  s.config.QueuePriority,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Metadata: map[string]string{
			"filename": header.Filename,
			"size":     fmt.Sprintf("%d", header.Size),
		},
	}

	key, err := s.storage.Store(ctx, file, slideKey(taskID, header.Filename))
	if err != nil {
		s.logger.Error("Failed to store slide",
			logger.String("filename", header.Filename),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to store slide: %w", err)
	}

	queueTask := &queue.Task{
		ID:       taskID,
		Type:     task.Type,
		Priority: task.Priority,
		Payload: map[string]interface{}{
			"slideKey":  key,
			"outputKey": outputKey(taskID, header.Filename),
			"size":      header.Size,
		},
		Metadata:  task.Metadata,
		CreatedAt: task.CreatedAt,
	}

	if err := s.queue.Enqueue(ctx, queueTask); err != nil {
		s.logger.Error("Failed to enqueue task",
			logger.String("taskId", taskID),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	if err := s.queue.SaveFinalStatus(ctx, &queue.TaskStatus{
		TaskID:    taskID,
		Status:    "pending",
		StartedAt: time.Now(),
	}); err != nil {
		s.logger.Error("Failed to save initial status",
			logger.String("taskId", taskID),
			logger.Error(err),
		)
	}

	s.logger.Info("Slide task created",
		logger.String("taskId", taskID),
		logger.String("slideKey", key),
	)

	return task, nil
}

// ProcessBatch accepts several uploads concurrently.
func (s *SlideService) ProcessBatch(ctx context.Context, files []*multipart.FileHeader) ([]*models.ProcessingTask, error) {
	tasks := make([]*models.ProcessingTask, 0, len(files))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, header := range files {
		header := header
		g.Go(func() error {
			file, err := header.Open()
			if err != nil {
				return fmt.Errorf("failed to open file %s: %w", header.Filename, err)
			}
			defer file.Close()

			task, err := s.ProcessSlide(ctx, file, header)
			if err != nil {
				return fmt.Errorf("failed to process slide %s: %w", header.Filename, err)
			}

			mu.Lock()
			tasks = append(tasks, task)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return tasks, err
	}
	return tasks, nil
}

// HandleSlide streams the stored slide through the deidentifier into
// the output location. The header is validated and rewritten fully
// before the first output byte is uploaded, so a rejected slide leaves
// no partial output behind.
func (s *SlideService) HandleSlide(ctx context.Context, task *queue.Task) error {
	srcKey, _ := task.Payload["slideKey"].(string)
	dstKey, _ := task.Payload["outputKey"].(string)
	if srcKey == "" || dstKey == "" {
		return fmt.Errorf("invalid task: missing slide or output key")
	}

	s.logger.Info("Deidentifying slide",
		logger.String("taskId", task.ID),
		logger.String("slideKey", srcKey),
	)

	reader, err := s.storage.Get(ctx, srcKey)
	if err != nil {
		return fmt.Errorf("failed to get slide: %w", err)
	}
	defer reader.Close()

	source := isyntax.NewReaderSource(reader, isyntax.DefaultChunkSize)
	res, err := isyntax.Deidentify(ctx, source, isyntax.Options{})
	if err != nil {
		s.saveFailedStatus(ctx, task, err)
		return err
	}

	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)
	var written int64
	g.Go(func() error {
		n, err := isyntax.Copy(gctx, pw, res.Stream)
		written = n
		pw.CloseWithError(err)
		return err
	})
	g.Go(func() error {
		if _, err := s.storage.Store(gctx, pr, dstKey); err != nil {
			pr.CloseWithError(err)
			return err
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to write deidentified slide: %w", err)
	}

	report := &models.DeidReport{
		TaskID:         task.ID,
		SlideKey:       srcKey,
		OutputKey:      dstKey,
		SlideSize:      written,
		HeaderSize:     res.HeaderSize,
		ChunkSize:      res.ChunkSize,
		BarcodeCleared: true,
		LabelRemoved:   true,
		ProcessedAt:    time.Now(),
	}
	reportData, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if _, err := s.storage.Store(ctx, bytes.NewReader(reportData), reportKey(task.ID)); err != nil {
		return fmt.Errorf("failed to store report: %w", err)
	}

	s.logger.Info("Slide deidentified",
		logger.String("taskId", task.ID),
		logger.String("outputKey", dstKey),
		logger.Int64("size", written),
		logger.Int("headerSize", res.HeaderSize),
	)

	if err := s.queue.SaveFinalStatus(ctx, &queue.TaskStatus{
		TaskID:     task.ID,
		Status:     "completed",
		Progress:   1.0,
		StartedAt:  task.CreatedAt,
		FinishedAt: time.Now(),
	}); err != nil {
		s.logger.Error("Failed to save final status",
			logger.String("taskId", task.ID),
			logger.Error(err),
		)
	}

	return nil
}

func (s *SlideService) saveFailedStatus(ctx context.Context, task *queue.Task, cause error) {
	if err := s.queue.SaveFinalStatus(ctx, &queue.TaskStatus{
		TaskID:     task.ID,
		Status:     "failed",
		Error:      cause.Error(),
		StartedAt:  task.CreatedAt,
		FinishedAt: time.Now(),
	}); err != nil {
		s.logger.Error("Failed to save failed status",
			logger.String("taskId", task.ID),
			logger.Error(err),
		)
	}
}

// GetProcessingStatus reports task progress.
func (s *SlideService) GetProcessingStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error) {
	status, err := s.queue.GetTaskStatus(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task status: %w", err)
	}

	var taskStatus models.ProcessingStatus
	switch status.Status {
	case "pending":
		taskStatus = models.StatusPending
	case "running", "active":
		taskStatus = models.StatusRunning
	case "completed":
		taskStatus = models.StatusCompleted
	case "failed":
		taskStatus = models.StatusFailed
	default:
		taskStatus = models.StatusPending
	}

	return &models.ProcessingTask{
		ID:        status.TaskID,
		Status:    taskStatus,
		Type:      queue.TaskTypeSlideDeidentify,
		Progress:  status.Progress,
		Error:     status.Error,
		Metadata:  make(map[string]string),
		CreatedAt: status.StartedAt,
		UpdatedAt: status.FinishedAt,
	}, nil
}

// GetDeidReport returns the audit report of a completed task.
func (s *SlideService) GetDeidReport(ctx context.Context, taskID string) (*models.DeidReport, error) {
	status, err := s.GetProcessingStatus(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if status.Status != models.StatusCompleted {
		return nil, fmt.Errorf("task is not completed: %s", status.Status)
	}

	reader, err := s.storage.Get(ctx, reportKey(taskID))
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	defer reader.Close()

	var report models.DeidReport
	if err := json.NewDecoder(reader).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}

// OpenDeidentified opens the deidentified slide for download.
func (s *SlideService) OpenDeidentified(ctx context.Context, taskID string) (io.ReadCloser, error) {
	report, err := s.GetDeidReport(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return s.storage.Get(ctx, report.OutputKey)
}

// CancelTask cancels a pending task.
func (s *SlideService) CancelTask(ctx context.Context, taskID string) error {
	if err := s.queue.CancelTask(ctx, taskID); err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}

	s.logger.Info("Task cancelled",
		logger.String("taskId", taskID),
	)
	return nil
}

// CleanupTasks removes slides past the retention period.
func (s *SlideService) CleanupTasks(ctx context.Context) error {
	threshold := time.Now().Add(-s.config.RetentionPeriod)

	if err := s.storage.CleanupBefore(ctx, threshold); err != nil {
		return fmt.Errorf("failed to cleanup storage: %w", err)
	}

	s.logger.Info("Completed tasks cleanup",
		logger.Time("threshold", threshold),
	)
	return nil
}
