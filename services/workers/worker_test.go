package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raman369AI/fileProcessor/config"
	"github.com/Raman369AI/fileProcessor/dto"
	"github.com/Raman369AI/fileProcessor/interfaces"
	"github.com/Raman369AI/fileProcessor/internal/logger"
	"github.com/Raman369AI/fileProcessor/services/extractor"
	"github.com/Raman369AI/fileProcessor/services/queue"
	"github.com/Raman369AI/fileProcessor/services/results"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []dto.AttachmentProcessed
}

func (p *capturePublisher) PublishEmailIngestedEvent(ctx context.Context, event dto.EmailIngested) error {
	return nil
}

func (p *capturePublisher) PublishAttachmentProcessedEvent(ctx context.Context, event dto.AttachmentProcessed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) captured() []dto.AttachmentProcessed {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]dto.AttachmentProcessed(nil), p.events...)
}

type testHarness struct {
	deps      *Dependencies
	queue     interfaces.AttachmentQueue
	store     *results.Store
	publisher *capturePublisher
	sink      chan *dto.WorkerResult
	log       logger.Logger
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	log := logger.NewAppLogger(&logger.Config{LogLevel: "error"})
	log.InitLogger()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	q := queue.NewRedisQueueWithClient(client, &config.QueueConfig{
		QueueName:   "email_attachments",
		MaxLength:   100,
		MaxItemSize: 52428800,
	}, log)

	store, err := results.NewStore(t.TempDir(), log)
	require.NoError(t, err)

	h := &testHarness{
		queue:     q,
		store:     store,
		publisher: &capturePublisher{},
		sink:      make(chan *dto.WorkerResult, 16),
		log:       log,
	}
	h.deps = &Dependencies{
		Queue:     q,
		Extractor: extractor.NewExtractorService(log),
		Store:     store,
		Publisher: h.publisher,
		Sink: func(ctx context.Context, result *dto.WorkerResult) {
			h.sink <- result
		},
	}
	return h
}

func textRecord(taskID string) *dto.AttachmentRecord {
	return &dto.AttachmentRecord{
		TaskID:       taskID,
		EmailID:      "msg-1",
		EmailSubject: "Report",
		Filename:     "report.txt",
		Content:      []byte("quarterly numbers"),
		MimeType:     "text/plain",
		Size:         17,
		Source:       dto.SourceEmail,
	}
}

func TestWorker_CompletesTask(t *testing.T) {
	h := newHarness(t)
	w := newWorker("worker-test-1", h.deps, &config.WorkerConfig{MaxRetries: 3}, h.log)

	w.processTask(context.Background(), textRecord("task-ok"))

	result, err := h.store.GetWorkerResult(context.Background(), "task-ok")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, "worker-test-1", result.WorkerID)
	require.NotNil(t, result.Content)
	assert.Equal(t, "quarterly numbers", result.Content.Text)

	events := h.publisher.captured()
	require.Len(t, events, 1)
	assert.Equal(t, "task-ok", events[0].TaskID)
	assert.Equal(t, StatusCompleted, events[0].Status)

	assert.Equal(t, int64(1), w.processed.Load())
	assert.Zero(t, w.failed.Load())
}

func TestWorker_RetryExhaustion(t *testing.T) {
	h := newHarness(t)
	w := newWorker("worker-test-1", h.deps, &config.WorkerConfig{MaxRetries: 3}, h.log)
	w.retryBase = time.Millisecond

	record := textRecord("task-bad")
	record.Filename = "blob.bin"
	record.Content = []byte{0xff, 0xfe, 0x00, 0x01}

	w.processTask(context.Background(), record)

	result, err := h.store.GetWorkerResult(context.Background(), "task-bad")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, StatusFailed, result.Status)
	// initial attempt plus MaxRetries retries
	assert.Equal(t, 4, result.Attempts)
	assert.Contains(t, result.Error, "unsupported file format")
	assert.Nil(t, result.Content)

	events := h.publisher.captured()
	require.Len(t, events, 1)
	assert.Equal(t, StatusFailed, events[0].Status)

	// the record was popped before processing, exhaustion does not
	// put it back
	length, err := h.queue.Length(context.Background())
	require.NoError(t, err)
	assert.Zero(t, length)

	assert.Equal(t, int64(1), w.failed.Load())
}

// failingExtractor records when each attempt lands and always reports an
// extraction failure so the retry loop runs to exhaustion.
type failingExtractor struct {
	mu       sync.Mutex
	attempts []time.Time
}

func (e *failingExtractor) Extract(ctx context.Context, content []byte, filename string, contextMeta map[string]any) *dto.ExtractedContent {
	e.mu.Lock()
	e.attempts = append(e.attempts, time.Now())
	e.mu.Unlock()
	return &dto.ExtractedContent{Metadata: map[string]any{"error": "induced failure"}}
}

func (e *failingExtractor) SupportedFormats() []string { return nil }

func (e *failingExtractor) timestamps() []time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]time.Time(nil), e.attempts...)
}

func TestWorker_RetryBackoffIncreases(t *testing.T) {
	h := newHarness(t)
	ext := &failingExtractor{}
	h.deps.Extractor = ext

	w := newWorker("worker-test-1", h.deps, &config.WorkerConfig{MaxRetries: 3}, h.log)
	w.retryBase = 25 * time.Millisecond

	w.processTask(context.Background(), textRecord("task-backoff"))

	stamps := ext.timestamps()
	require.Len(t, stamps, 4)

	// delays double per retry, so each gap must exceed the previous one
	var prev time.Duration
	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		assert.Greater(t, gap, prev, "attempt %d delay did not grow", i)
		prev = gap
	}
}

func TestWorker_DequeuedTaskLostOnCrash(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.queue.Enqueue(context.Background(), textRecord("task-doomed")))

	// a worker that dies after the pop never commits a result and the
	// record is not redelivered
	record, err := h.queue.DequeueBlocking(context.Background(), time.Second)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "task-doomed", record.TaskID)

	length, err := h.queue.Length(context.Background())
	require.NoError(t, err)
	assert.Zero(t, length)

	result, err := h.store.GetWorkerResult(context.Background(), "task-doomed")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestWorker_RunConsumesQueue(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.queue.Enqueue(context.Background(), textRecord("task-run")))

	w := newWorker("worker-test-1", h.deps, &config.WorkerConfig{MaxRetries: 1, LivenessPoll: 1}, h.log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case result := <-h.sink:
		assert.Equal(t, "task-run", result.TaskID)
		assert.Equal(t, StatusCompleted, result.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not process the queued task")
	}

	length, err := h.queue.Length(context.Background())
	require.NoError(t, err)
	assert.Zero(t, length)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}

type panicOnceQueue struct {
	interfaces.AttachmentQueue
	mu       sync.Mutex
	panicked bool
}

func (q *panicOnceQueue) DequeueBlocking(ctx context.Context, timeout time.Duration) (*dto.AttachmentRecord, error) {
	q.mu.Lock()
	first := !q.panicked
	q.panicked = true
	q.mu.Unlock()
	if first {
		panic("injected dequeue panic")
	}
	return q.AttachmentQueue.DequeueBlocking(ctx, timeout)
}

func TestManager_ReplacesPanickedWorker(t *testing.T) {
	h := newHarness(t)
	h.deps.Queue = &panicOnceQueue{AttachmentQueue: h.queue}

	m := NewManager(&config.WorkerConfig{Count: 1, MaxRetries: 1, LivenessPoll: 1}, h.deps, h.log)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop(2 * time.Second)

	// the replacement worker should still drain the queue
	require.NoError(t, h.queue.Enqueue(context.Background(), textRecord("task-after-panic")))

	select {
	case result := <-h.sink:
		assert.Equal(t, "task-after-panic", result.TaskID)
	case <-time.After(10 * time.Second):
		t.Fatal("pool did not recover from worker panic")
	}

	stats := m.Stats()
	require.Len(t, stats.Workers, 1)
	assert.GreaterOrEqual(t, stats.Workers[0].Restarts, 1)
}

func TestManager_StartStop(t *testing.T) {
	h := newHarness(t)
	m := NewManager(&config.WorkerConfig{Count: 2, LivenessPoll: 1}, h.deps, h.log)

	require.NoError(t, m.Start(context.Background()))
	assert.True(t, m.Running())
	assert.True(t, m.Healthy())

	stats := m.Stats()
	assert.Equal(t, 2, stats.WorkerCount)

	assert.Error(t, m.Start(context.Background()), "second start must be rejected")

	m.Stop(2 * time.Second)
	assert.False(t, m.Running())
	assert.False(t, m.Healthy())
}

func TestManager_RequiresQueue(t *testing.T) {
	h := newHarness(t)
	h.deps.Queue = nil
	m := NewManager(&config.WorkerConfig{Count: 1}, h.deps, h.log)
	assert.Error(t, m.Start(context.Background()))
}
