package repository

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/Raman369AI/fileProcessor/interfaces"
	"github.com/Raman369AI/fileProcessor/internal/enum"
	"github.com/Raman369AI/fileProcessor/internal/models"
	"github.com/Raman369AI/fileProcessor/internal/tracing"
	"github.com/Raman369AI/fileProcessor/internal/utils"
)

type attachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) interfaces.AttachmentRepository {
	return &attachmentRepository{db: db}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *models.Attachment) (*models.Attachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "attachmentRepository.Create")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag(tracing.SpanTagTaskId, attachment.TaskID)

	if attachment.Status == "" {
		attachment.Status = enum.AttachmentStatusQueued
	}

	result := r.db.WithContext(ctx).Create(attachment)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to create attachment: %w", result.Error)
	}

	return attachment, nil
}

func (r *attachmentRepository) GetByTaskID(ctx context.Context, taskID string) (*models.Attachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "attachmentRepository.GetByTaskID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag(tracing.SpanTagTaskId, taskID)

	var attachment models.Attachment
	result := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		First(&attachment)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get attachment: %w", result.Error)
	}

	return &attachment, nil
}

func (r *attachmentRepository) MarkProcessed(ctx context.Context, taskID string, attempts int) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "attachmentRepository.MarkProcessed")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag(tracing.SpanTagTaskId, taskID)

	now := utils.Now()
	result := r.db.WithContext(ctx).
		Model(&models.Attachment{}).
		Where("task_id = ?", taskID).
		Updates(map[string]interface{}{
			"status":       enum.AttachmentStatusProcessed,
			"attempts":     attempts,
			"last_error":   "",
			"processed_at": &now,
			"updated_at":   now,
		})

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to mark attachment processed: %w", result.Error)
	}

	return nil
}

func (r *attachmentRepository) MarkFailed(ctx context.Context, taskID string, attempts int, lastError string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "attachmentRepository.MarkFailed")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag(tracing.SpanTagTaskId, taskID)

	result := r.db.WithContext(ctx).
		Model(&models.Attachment{}).
		Where("task_id = ?", taskID).
		Updates(map[string]interface{}{
			"status":     enum.AttachmentStatusFailed,
			"attempts":   attempts,
			"last_error": utils.Truncate(lastError, 2000),
			"updated_at": utils.Now(),
		})

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to mark attachment failed: %w", result.Error)
	}

	return nil
}

func (r *attachmentRepository) ListByEmail(ctx context.Context, emailID string) ([]*models.Attachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "attachmentRepository.ListByEmail")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var attachments []*models.Attachment
	result := r.db.WithContext(ctx).
		Where("email_id = ?", emailID).
		Order("created_at ASC").
		Find(&attachments)

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to list attachments: %w", result.Error)
	}

	return attachments, nil
}

func (r *attachmentRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "attachmentRepository.CountByStatus")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	type row struct {
		Status string
		Count  int64
	}

	var rows []row
	result := r.db.WithContext(ctx).
		Model(&models.Attachment{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows)

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to count attachments: %w", result.Error)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}

	return counts, nil
}
