package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/slide-deidentifier/internal/isyntax"
	"github.com/feichai0017/slide-deidentifier/internal/service/slide"
	"github.com/feichai0017/slide-deidentifier/pkg/logger"
	"github.com/feichai0017/slide-deidentifier/pkg/queue"
)

type SlideWorker struct {
	BaseWorker
	slideService slide.SlideProcessor
}

func NewSlideWorker(wc *Config, slideService slide.SlideProcessor, logger logger.Logger) (*SlideWorker, error) {
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: wc.RedisAddr, Password: wc.RedisPassword, DB: wc.RedisDB},
		asynq.Config{
			Concurrency: wc.Concurrency,
			Queues:      wc.Queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * time.Minute
			},
		},
	)

	w := &SlideWorker{
		BaseWorker: BaseWorker{
			server:   server,
			mux:      asynq.NewServeMux(),
			logger:   logger,
			stopChan: make(chan struct{}),
		},
		slideService: slideService,
	}

	w.registerHandlers()
	return w, nil
}

func (w *SlideWorker) registerHandlers() {
	w.mux.HandleFunc(queue.TaskTypeSlideDeidentify, w.handleSlideDeidentify)
}

func (w *SlideWorker) handleSlideDeidentify(ctx context.Context, t *asynq.Task) error {
	var task queue.Task
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		w.logger.Error("Failed to unmarshal task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		return fmt.Errorf("failed to unmarshal task: %w", err)
	}

	w.logger.Info("Processing slide task",
		logger.String("taskId", task.ID),
		logger.Any("metadata", task.Metadata),
	)

	if task.ID == "" || task.Metadata == nil || task.Payload == nil {
		return fmt.Errorf("invalid task data: missing required fields")
	}

	if err := w.slideService.HandleSlide(ctx, &task); err != nil {
		if isTerminal(err) {
			// A malformed or ambiguous header will not fix itself;
			// retrying would reprocess gigabytes for nothing.
			w.logger.Error("Slide rejected",
				logger.String("taskId", task.ID),
				logger.Error(err),
			)
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	return nil
}

// isTerminal reports whether err is one of the deidentification error
// kinds, all of which are non-retryable.
func isTerminal(err error) bool {
	var (
		formatErr  *isyntax.FormatError
		barcodeErr *isyntax.BarcodeError
		imagesErr  *isyntax.ImagesError
		labelErr   *isyntax.LabelError
	)
	return errors.As(err, &formatErr) ||
		errors.As(err, &barcodeErr) ||
		errors.As(err, &imagesErr) ||
		errors.As(err, &labelErr)
}

func (w *SlideWorker) Start(ctx context.Context) error {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			w.logger.Error("Worker server stopped", logger.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}
