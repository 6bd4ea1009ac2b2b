package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Raman369AI/fileProcessor/config"
	"github.com/Raman369AI/fileProcessor/dto"
	fileprocessor_errors "github.com/Raman369AI/fileProcessor/errors"
	"github.com/Raman369AI/fileProcessor/internal/logger"
)

func newTestQueue(t *testing.T, cfg *config.QueueConfig) *RedisQueue {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	if cfg == nil {
		cfg = &config.QueueConfig{
			QueueName:   "email_attachments",
			MaxLength:   1000,
			MaxItemSize: 52428800,
		}
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	log := logger.NewAppLogger(&logger.Config{LogLevel: "error"})
	log.InitLogger()

	return NewRedisQueueWithClient(client, cfg, log)
}

func testRecord(taskID string, size int) *dto.AttachmentRecord {
	return &dto.AttachmentRecord{
		TaskID:       taskID,
		EmailID:      "msg-1",
		EmailSubject: "Invoice March",
		AttachmentID: "att-1",
		Filename:     "invoice.pdf",
		Content:      make([]byte, size),
		MimeType:     "application/pdf",
		Size:         int64(size),
		Source:       dto.SourceEmail,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestRedisQueue_EnqueueDequeueFIFO(t *testing.T) {
	q := newTestQueue(t, nil)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, testRecord("task-1", 10)))
	require.NoError(t, q.Enqueue(ctx, testRecord("task-2", 10)))
	require.NoError(t, q.Enqueue(ctx, testRecord("task-3", 10)))

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), length)

	for _, want := range []string{"task-1", "task-2", "task-3"} {
		record, err := q.DequeueBlocking(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, want, record.TaskID)
	}
}

func TestRedisQueue_DequeueTimeoutReturnsNil(t *testing.T) {
	q := newTestQueue(t, nil)

	record, err := q.DequeueBlocking(context.Background(), 50*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestRedisQueue_RejectsWhenFull(t *testing.T) {
	q := newTestQueue(t, &config.QueueConfig{
		QueueName:   "email_attachments",
		MaxLength:   2,
		MaxItemSize: 52428800,
	})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, testRecord("task-1", 10)))
	require.NoError(t, q.Enqueue(ctx, testRecord("task-2", 10)))

	err := q.Enqueue(ctx, testRecord("task-3", 10))
	assert.ErrorIs(t, err, fileprocessor_errors.ErrQueueFull)

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), length)
}

func TestRedisQueue_RejectsOversizedItem(t *testing.T) {
	q := newTestQueue(t, &config.QueueConfig{
		QueueName:   "email_attachments",
		MaxLength:   1000,
		MaxItemSize: 1024,
	})

	err := q.Enqueue(context.Background(), testRecord("task-big", 4096))
	assert.ErrorIs(t, err, fileprocessor_errors.ErrItemTooLarge)
}

func TestRedisQueue_ItemSizeBoundaryIsExact(t *testing.T) {
	q := newTestQueue(t, &config.QueueConfig{
		QueueName:   "email_attachments",
		MaxLength:   1000,
		MaxItemSize: 1024,
	})
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, testRecord("task-at-limit", 1024)))

	err := q.Enqueue(ctx, testRecord("task-over-limit", 1025))
	assert.ErrorIs(t, err, fileprocessor_errors.ErrItemTooLarge)

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)
}

func TestRedisQueue_RoundTripPreservesContent(t *testing.T) {
	q := newTestQueue(t, nil)
	ctx := context.Background()

	content := make([]byte, 256)
	for i := range content {
		content[i] = byte(i)
	}
	record := testRecord("task-binary", 0)
	record.Filename = "payload.bin"
	record.MimeType = "application/octet-stream"
	record.Content = content
	record.Size = int64(len(content))

	require.NoError(t, q.Enqueue(ctx, record))

	got, err := q.DequeueBlocking(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, record.TaskID, got.TaskID)
	assert.Equal(t, record.EmailID, got.EmailID)
	assert.Equal(t, record.Filename, got.Filename)
	assert.Equal(t, record.Size, got.Size)
	assert.Equal(t, content, got.Content)
	assert.WithinDuration(t, record.CreatedAt, got.CreatedAt, time.Second)
}

func TestRedisQueue_RoundTripEmptyContent(t *testing.T) {
	q := newTestQueue(t, nil)
	ctx := context.Background()

	record := testRecord("task-empty", 0)

	require.NoError(t, q.Enqueue(ctx, record))

	got, err := q.DequeueBlocking(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "task-empty", got.TaskID)
	assert.Empty(t, got.Content)
	assert.Zero(t, got.Size)
}

func TestRedisQueue_EnqueueBatchAdmitsIndependently(t *testing.T) {
	q := newTestQueue(t, &config.QueueConfig{
		QueueName:   "email_attachments",
		MaxLength:   1000,
		MaxItemSize: 1024,
	})
	ctx := context.Background()

	records := []*dto.AttachmentRecord{
		testRecord("task-ok-1", 10),
		testRecord("task-big", 4096),
		testRecord("task-ok-2", 10),
	}

	admitted := q.EnqueueBatch(ctx, records)
	assert.Equal(t, 2, admitted)

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), length)
}

func TestRedisQueue_PeekDoesNotConsume(t *testing.T) {
	q := newTestQueue(t, nil)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, testRecord("task-1", 100)))
	require.NoError(t, q.Enqueue(ctx, testRecord("task-2", 100)))

	previews, err := q.Peek(ctx, 5)
	require.NoError(t, err)
	require.Len(t, previews, 2)
	assert.Equal(t, "task-1", previews[0].TaskID)
	assert.Equal(t, fmt.Sprintf("<%d bytes>", 100), previews[0].ContentNote)

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), length)
}

func TestRedisQueue_Clear(t *testing.T) {
	q := newTestQueue(t, nil)
	ctx := context.Background()

	require.NoError(t, q.Enqueue(ctx, testRecord("task-1", 10)))
	require.NoError(t, q.Enqueue(ctx, testRecord("task-2", 10)))

	cleared, err := q.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cleared)

	length, err := q.Length(ctx)
	require.NoError(t, err)
	assert.Zero(t, length)
}

func TestRedisQueue_Stats(t *testing.T) {
	q := newTestQueue(t, nil)
	ctx := context.Background()

	pdf := testRecord("task-1", 100)
	xlsx := testRecord("task-2", 300)
	xlsx.Filename = "report.xlsx"

	require.NoError(t, q.Enqueue(ctx, pdf))
	require.NoError(t, q.Enqueue(ctx, xlsx))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, "email_attachments", stats.QueueName)
	assert.Equal(t, int64(2), stats.Length)
	assert.Equal(t, int64(1000), stats.MaxLength)
	assert.InDelta(t, 0.2, stats.UtilizationPercent, 0.001)
	assert.Equal(t, 2, stats.SampledItems)
	assert.Equal(t, int64(200), stats.AvgItemSizeBytes)
	assert.Equal(t, 1, stats.FileTypes[".pdf"])
	assert.Equal(t, 1, stats.FileTypes[".xlsx"])
}

func TestRedisQueue_StatsEmptyQueue(t *testing.T) {
	q := newTestQueue(t, nil)

	stats, err := q.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Length)
	assert.Zero(t, stats.SampledItems)
	assert.Empty(t, stats.FileTypes)
}

func TestRedisQueue_HealthCheck(t *testing.T) {
	q := newTestQueue(t, nil)

	health := q.HealthCheck(context.Background())
	assert.True(t, health.Connected)
	assert.True(t, health.Accessible)
	assert.Zero(t, health.Length)
	assert.Empty(t, health.Errors)
}

func TestRedisQueue_HealthCheckDisconnected(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { client.Close() })

	log := logger.NewAppLogger(&logger.Config{LogLevel: "error"})
	log.InitLogger()

	q := NewRedisQueueWithClient(client, &config.QueueConfig{QueueName: "email_attachments", MaxLength: 10, MaxItemSize: 1024}, log)

	health := q.HealthCheck(context.Background())
	assert.False(t, health.Connected)
	assert.NotEmpty(t, health.Errors)
}
