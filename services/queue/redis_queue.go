package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/Raman369AI/fileProcessor/config"
	"github.com/Raman369AI/fileProcessor/dto"
	fileprocessor_errors "github.com/Raman369AI/fileProcessor/errors"
	"github.com/Raman369AI/fileProcessor/interfaces"
	"github.com/Raman369AI/fileProcessor/internal/logger"
	"github.com/Raman369AI/fileProcessor/internal/tracing"
	"github.com/Raman369AI/fileProcessor/internal/utils"
)

const statsSampleSize = 10

// RedisQueue is a bounded FIFO backed by a Redis list. Producers LPUSH,
// consumers BRPOP, so the rightmost element is always the next one out.
// A popped item that is never finished is lost, there is no redelivery.
type RedisQueue struct {
	client      *redis.Client
	queueName   string
	maxLength   int64
	maxItemSize int64
	log         logger.Logger
}

func NewRedisQueue(cfg *config.QueueConfig, log logger.Logger) (interfaces.AttachmentQueue, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, errors.Wrap(err, "invalid redis url")
	}

	return &RedisQueue{
		client:      redis.NewClient(opts),
		queueName:   cfg.QueueName,
		maxLength:   cfg.MaxLength,
		maxItemSize: cfg.MaxItemSize,
		log:         log,
	}, nil
}

// NewRedisQueueWithClient is used by tests to inject a miniredis-backed client.
func NewRedisQueueWithClient(client *redis.Client, cfg *config.QueueConfig, log logger.Logger) *RedisQueue {
	return &RedisQueue{
		client:      client,
		queueName:   cfg.QueueName,
		maxLength:   cfg.MaxLength,
		maxItemSize: cfg.MaxItemSize,
		log:         log,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, record *dto.AttachmentRecord) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RedisQueue.Enqueue")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag(tracing.SpanTagTaskId, record.TaskID)

	if record.Size > q.maxItemSize {
		err := errors.Wrapf(fileprocessor_errors.ErrItemTooLarge,
			"attachment %d bytes exceeds limit %d", record.Size, q.maxItemSize)
		tracing.TraceErr(span, err)
		return err
	}

	payload, err := json.Marshal(record)
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to serialize attachment record")
	}

	length, err := q.client.LLen(ctx, q.queueName).Result()
	if err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to check queue length")
	}
	if length >= q.maxLength {
		err = errors.Wrapf(fileprocessor_errors.ErrQueueFull,
			"queue %s at %d items", q.queueName, length)
		tracing.TraceErr(span, err)
		return err
	}

	if err := q.client.LPush(ctx, q.queueName, payload).Err(); err != nil {
		tracing.TraceErr(span, err)
		return errors.Wrap(err, "failed to enqueue attachment")
	}

	q.log.Debugf("enqueued task %s (%s, %d bytes)", record.TaskID, record.Filename, record.Size)
	return nil
}

// EnqueueBatch admits each record independently so one oversized
// attachment never blocks the rest of a message's files.
func (q *RedisQueue) EnqueueBatch(ctx context.Context, records []*dto.AttachmentRecord) int {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RedisQueue.EnqueueBatch")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	admitted := 0
	for _, record := range records {
		if err := q.Enqueue(ctx, record); err != nil {
			q.log.Warnf("skipping attachment %s: %v", record.Filename, err)
			continue
		}
		admitted++
	}

	span.LogKV("result.admitted", admitted, "result.total", len(records))
	return admitted
}

func (q *RedisQueue) DequeueBlocking(ctx context.Context, timeout time.Duration) (*dto.AttachmentRecord, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to dequeue attachment")
	}

	// BRPop returns [key, value]
	if len(result) < 2 {
		return nil, errors.New("unexpected BRPOP reply shape")
	}

	var record dto.AttachmentRecord
	if err := json.Unmarshal([]byte(result[1]), &record); err != nil {
		return nil, errors.Wrap(err, "failed to deserialize attachment record")
	}

	return &record, nil
}

// Peek returns up to count items in dequeue order with content elided.
func (q *RedisQueue) Peek(ctx context.Context, count int) ([]interfaces.QueueItemPreview, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RedisQueue.Peek")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	if count <= 0 {
		count = 5
	}

	items, err := q.client.LRange(ctx, q.queueName, int64(-count), -1).Result()
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to peek queue")
	}

	previews := make([]interfaces.QueueItemPreview, 0, len(items))
	// rightmost list element leaves first
	for i := len(items) - 1; i >= 0; i-- {
		var record dto.AttachmentRecord
		if err := json.Unmarshal([]byte(items[i]), &record); err != nil {
			q.log.Warnf("skipping malformed queue item: %v", err)
			continue
		}
		previews = append(previews, interfaces.QueueItemPreview{
			TaskID:       record.TaskID,
			EmailSubject: record.EmailSubject,
			Filename:     record.Filename,
			MimeType:     record.MimeType,
			Size:         record.Size,
			ContentNote:  fmt.Sprintf("<%d bytes>", record.Size),
			CreatedAt:    record.CreatedAt,
		})
	}

	return previews, nil
}

func (q *RedisQueue) Clear(ctx context.Context) (int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RedisQueue.Clear")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	length, err := q.client.LLen(ctx, q.queueName).Result()
	if err != nil {
		tracing.TraceErr(span, err)
		return 0, errors.Wrap(err, "failed to read queue length")
	}

	if err := q.client.Del(ctx, q.queueName).Err(); err != nil {
		tracing.TraceErr(span, err)
		return 0, errors.Wrap(err, "failed to clear queue")
	}

	q.log.Infof("cleared %d items from queue %s", length, q.queueName)
	return length, nil
}

func (q *RedisQueue) Length(ctx context.Context) (int64, error) {
	length, err := q.client.LLen(ctx, q.queueName).Result()
	if err != nil {
		return 0, errors.Wrap(err, "failed to read queue length")
	}
	return length, nil
}

// Stats samples the tail of the queue rather than walking every item,
// large queues would make a full scan too expensive for a status endpoint.
func (q *RedisQueue) Stats(ctx context.Context) (*interfaces.QueueStats, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RedisQueue.Stats")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	length, err := q.client.LLen(ctx, q.queueName).Result()
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to read queue length")
	}

	stats := &interfaces.QueueStats{
		QueueName: q.queueName,
		Length:    length,
		MaxLength: q.maxLength,
		FileTypes: map[string]int{},
	}
	if q.maxLength > 0 {
		stats.UtilizationPercent = float64(length) / float64(q.maxLength) * 100
	}

	if length == 0 {
		return stats, nil
	}

	sample := statsSampleSize
	if length < int64(sample) {
		sample = int(length)
	}

	items, err := q.client.LRange(ctx, q.queueName, int64(-sample), -1).Result()
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to sample queue")
	}

	var totalSize int64
	for _, item := range items {
		var record dto.AttachmentRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			continue
		}
		totalSize += record.Size
		ext := strings.ToLower(utils.FileExtension(record.Filename))
		if ext == "" {
			ext = "unknown"
		}
		stats.FileTypes[ext]++
		stats.SampledItems++
	}
	if stats.SampledItems > 0 {
		stats.AvgItemSizeBytes = totalSize / int64(stats.SampledItems)
	}

	return stats, nil
}

func (q *RedisQueue) HealthCheck(ctx context.Context) *interfaces.QueueHealth {
	health := &interfaces.QueueHealth{}

	if err := q.client.Ping(ctx).Err(); err != nil {
		health.Errors = append(health.Errors, fmt.Sprintf("redis ping failed: %v", err))
		return health
	}
	health.Connected = true

	length, err := q.client.LLen(ctx, q.queueName).Result()
	if err != nil {
		health.Errors = append(health.Errors, fmt.Sprintf("queue not accessible: %v", err))
		return health
	}
	health.Accessible = true
	health.Length = length

	return health
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
