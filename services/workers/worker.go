package workers

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/Raman369AI/fileProcessor/config"
	"github.com/Raman369AI/fileProcessor/dto"
	"github.com/Raman369AI/fileProcessor/interfaces"
	"github.com/Raman369AI/fileProcessor/internal/logger"
	"github.com/Raman369AI/fileProcessor/internal/tracing"
	"github.com/Raman369AI/fileProcessor/internal/utils"
	"github.com/Raman369AI/fileProcessor/services/results"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ResultSink receives every finished task result, completed or failed.
// Hook point for downstream analysis pipelines.
type ResultSink func(ctx context.Context, result *dto.WorkerResult)

// Worker consumes attachment records from the queue and runs them
// through the extraction pipeline. Failed tasks are retried with
// exponential backoff; after the retry budget is spent a terminal
// failed result is written and the task is not re-enqueued.
type Worker struct {
	id        string
	queue     interfaces.AttachmentQueue
	extractor interfaces.ContentExtractor
	store     *results.Store
	deps      *Dependencies
	cfg       *config.WorkerConfig
	log       logger.Logger

	pollInterval time.Duration
	retryBase    time.Duration

	heartbeat atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
}

func newWorker(id string, deps *Dependencies, cfg *config.WorkerConfig, log logger.Logger) *Worker {
	poll := time.Duration(cfg.LivenessPoll) * time.Second
	if poll <= 0 {
		poll = 10 * time.Second
	}
	retryBase := time.Duration(cfg.RetryBaseDelay) * time.Second
	if retryBase <= 0 {
		retryBase = 2 * time.Second
	}
	w := &Worker{
		id:           id,
		queue:        deps.Queue,
		extractor:    deps.Extractor,
		store:        deps.Store,
		deps:         deps,
		cfg:          cfg,
		log:          log,
		pollInterval: poll,
		retryBase:    retryBase,
	}
	w.beat()
	return w
}

func (w *Worker) ID() string { return w.id }

// Run blocks until ctx is cancelled. Every loop iteration refreshes the
// heartbeat so the manager can tell a slow worker from a dead one.
func (w *Worker) Run(ctx context.Context) {
	w.log.Infof("worker %s started", w.id)

	for {
		select {
		case <-ctx.Done():
			w.log.Infof("worker %s stopping", w.id)
			return
		default:
		}

		w.beat()

		record, err := w.queue.DequeueBlocking(ctx, w.pollInterval)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Errorf("worker %s dequeue error: %v", w.id, err)
			time.Sleep(time.Second)
			continue
		}
		if record == nil {
			continue
		}

		w.processTask(ctx, record)
	}
}

// processTask runs the pipeline with retries. The record was already
// popped, so exhaustion means the task is lost from the queue; the
// terminal result artifact is the only trace left.
func (w *Worker) processTask(ctx context.Context, record *dto.AttachmentRecord) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Worker.processTask")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagTaskId, record.TaskID)

	maxRetries := w.cfg.MaxRetries
	baseDelay := w.retryBase

	var extracted *dto.ExtractedContent
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay << (attempt - 1)
			w.log.Warnf("worker %s retrying %s in %s (attempt %d/%d): %v",
				w.id, record.TaskID, delay, attempt+1, maxRetries+1, lastErr)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}

		attempts = attempt + 1
		w.beat()

		extracted, lastErr = w.runPipeline(ctx, record)
		if lastErr == nil {
			break
		}
	}

	if lastErr != nil {
		tracing.TraceErr(span, lastErr)
		w.failed.Add(1)
		w.finishFailed(ctx, record, attempts, lastErr)
		return
	}

	w.processed.Add(1)
	w.finishCompleted(ctx, record, attempts, extracted)
}

// runPipeline materializes the attachment to a temp file, extracts its
// content and reports extraction failures as errors so the retry loop
// can take over. The temp file is removed whatever happens.
func (w *Worker) runPipeline(ctx context.Context, record *dto.AttachmentRecord) (*dto.ExtractedContent, error) {
	path, err := w.materialize(record)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read materialized attachment")
	}

	extracted := w.extractor.Extract(ctx, content, record.Filename, map[string]any{
		"email_id":      record.EmailID,
		"email_subject": record.EmailSubject,
		"task_id":       record.TaskID,
		"worker_id":     w.id,
	})

	if msg, ok := extracted.Metadata["error"].(string); ok {
		return nil, errors.Errorf("extraction failed: %s", msg)
	}

	return extracted, nil
}

func (w *Worker) materialize(record *dto.AttachmentRecord) (string, error) {
	f, err := os.CreateTemp("", "task-*"+filepath.Ext(record.Filename))
	if err != nil {
		return "", errors.Wrap(err, "failed to create temp file")
	}
	if _, err := f.Write(record.Content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", errors.Wrap(err, "failed to write temp file")
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrap(err, "failed to close temp file")
	}
	return f.Name(), nil
}

func (w *Worker) finishCompleted(ctx context.Context, record *dto.AttachmentRecord, attempts int, extracted *dto.ExtractedContent) {
	result := &dto.WorkerResult{
		TaskID:       record.TaskID,
		EmailID:      record.EmailID,
		EmailSubject: record.EmailSubject,
		Filename:     record.Filename,
		MimeType:     record.MimeType,
		Size:         record.Size,
		Status:       StatusCompleted,
		Attempts:     attempts,
		Content:      extracted,
		ProcessedAt:  utils.Now(),
		WorkerID:     w.id,
	}
	w.saveResult(ctx, result)

	if w.deps.Repos != nil {
		if err := w.deps.Repos.AttachmentRepository.MarkProcessed(ctx, record.TaskID, attempts); err != nil {
			w.log.Errorf("worker %s failed to mark %s processed: %v", w.id, record.TaskID, err)
		}
	}

	w.publish(ctx, record, extracted.FileType, StatusCompleted)
	w.sink(ctx, result)

	w.log.Infof("worker %s completed %s (%s, %d attempts)", w.id, record.TaskID, record.Filename, attempts)
}

func (w *Worker) finishFailed(ctx context.Context, record *dto.AttachmentRecord, attempts int, cause error) {
	result := &dto.WorkerResult{
		TaskID:       record.TaskID,
		EmailID:      record.EmailID,
		EmailSubject: record.EmailSubject,
		Filename:     record.Filename,
		MimeType:     record.MimeType,
		Size:         record.Size,
		Status:       StatusFailed,
		Attempts:     attempts,
		Error:        cause.Error(),
		ProcessedAt:  utils.Now(),
		WorkerID:     w.id,
	}
	w.saveResult(ctx, result)

	if w.deps.Repos != nil {
		if err := w.deps.Repos.AttachmentRepository.MarkFailed(ctx, record.TaskID, attempts, cause.Error()); err != nil {
			w.log.Errorf("worker %s failed to mark %s failed: %v", w.id, record.TaskID, err)
		}
	}

	w.publish(ctx, record, utils.FileExtension(record.Filename), StatusFailed)
	w.sink(ctx, result)

	w.log.Errorf("worker %s gave up on %s after %d attempts: %v", w.id, record.TaskID, attempts, cause)
}

func (w *Worker) saveResult(ctx context.Context, result *dto.WorkerResult) {
	if err := w.store.SaveWorkerResult(ctx, result); err != nil {
		w.log.Errorf("worker %s failed to save result for %s: %v", w.id, result.TaskID, err)
	}
}

func (w *Worker) publish(ctx context.Context, record *dto.AttachmentRecord, fileType, status string) {
	if w.deps.Publisher == nil {
		return
	}
	err := w.deps.Publisher.PublishAttachmentProcessedEvent(ctx, dto.AttachmentProcessed{
		TaskID:   record.TaskID,
		EmailID:  record.EmailID,
		Filename: record.Filename,
		FileType: fileType,
		Status:   status,
		WorkerID: w.id,
	})
	if err != nil {
		w.log.Errorf("worker %s failed to publish event for %s: %v", w.id, record.TaskID, err)
	}
}

func (w *Worker) sink(ctx context.Context, result *dto.WorkerResult) {
	if w.deps.Sink != nil {
		w.deps.Sink(ctx, result)
	}
}

func (w *Worker) beat() {
	w.heartbeat.Store(time.Now().UnixNano())
}

func (w *Worker) lastBeat() time.Time {
	return time.Unix(0, w.heartbeat.Load())
}
