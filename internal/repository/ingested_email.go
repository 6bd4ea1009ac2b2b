package repository

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"

	"github.com/Raman369AI/fileProcessor/interfaces"
	"github.com/Raman369AI/fileProcessor/internal/models"
	"github.com/Raman369AI/fileProcessor/internal/tracing"
	"github.com/Raman369AI/fileProcessor/internal/utils"
)

type emailRepository struct {
	db *gorm.DB
}

func NewEmailRepository(db *gorm.DB) interfaces.EmailRepository {
	return &emailRepository{db: db}
}

// Upsert inserts the email record, or refreshes metadata when the same
// Graph message was delivered again (delta resends on change).
func (r *emailRepository) Upsert(ctx context.Context, email *models.IngestedEmail) (*models.IngestedEmail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Upsert")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag(tracing.SpanTagMessageId, email.MessageID)

	existing, err := r.GetByMessageID(ctx, email.MessageID)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		result := r.db.WithContext(ctx).
			Model(&models.IngestedEmail{}).
			Where("message_id = ?", email.MessageID).
			Updates(map[string]interface{}{
				"subject":          email.Subject,
				"sender_name":      email.SenderName,
				"sender_address":   email.SenderAddress,
				"body_preview":     email.BodyPreview,
				"attachment_count": email.AttachmentCount,
				"updated_at":       utils.Now(),
			})
		if result.Error != nil {
			tracing.TraceErr(span, result.Error)
			return nil, fmt.Errorf("failed to update email: %w", result.Error)
		}
		existing.Subject = email.Subject
		existing.SenderName = email.SenderName
		existing.SenderAddress = email.SenderAddress
		existing.BodyPreview = email.BodyPreview
		existing.AttachmentCount = email.AttachmentCount
		return existing, nil
	}

	result := r.db.WithContext(ctx).Create(email)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to create email: %w", result.Error)
	}

	return email, nil
}

func (r *emailRepository) GetByMessageID(ctx context.Context, messageID string) (*models.IngestedEmail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.GetByMessageID")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)
	span.SetTag(tracing.SpanTagMessageId, messageID)

	var email models.IngestedEmail
	result := r.db.WithContext(ctx).
		Where("message_id = ?", messageID).
		First(&email)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get email: %w", result.Error)
	}

	return &email, nil
}

func (r *emailRepository) Recent(ctx context.Context, limit int) ([]*models.IngestedEmail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "emailRepository.Recent")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if limit <= 0 {
		limit = 20
	}

	var emails []*models.IngestedEmail
	result := r.db.WithContext(ctx).
		Order("received_at DESC").
		Limit(limit).
		Find(&emails)

	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to list recent emails: %w", result.Error)
	}

	return emails, nil
}
