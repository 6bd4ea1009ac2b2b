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

type checkpointRepository struct {
	db *gorm.DB
}

func NewCheckpointRepository(db *gorm.DB) interfaces.CheckpointRepository {
	return &checkpointRepository{db: db}
}

func (r *checkpointRepository) Record(ctx context.Context, checkpoint *models.SyncCheckpoint) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "checkpointRepository.Record")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	if checkpoint.RanAt.IsZero() {
		checkpoint.RanAt = utils.Now()
	}

	result := r.db.WithContext(ctx).Create(checkpoint)
	if result.Error != nil {
		tracing.TraceErr(span, result.Error)
		return fmt.Errorf("failed to record sync checkpoint: %w", result.Error)
	}

	return nil
}

func (r *checkpointRepository) Latest(ctx context.Context) (*models.SyncCheckpoint, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "checkpointRepository.Latest")
	defer span.Finish()
	tracing.TagComponentPostgresRepository(span)

	var checkpoint models.SyncCheckpoint
	result := r.db.WithContext(ctx).
		Order("ran_at DESC").
		First(&checkpoint)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		tracing.TraceErr(span, result.Error)
		return nil, fmt.Errorf("failed to get latest sync checkpoint: %w", result.Error)
	}

	return &checkpoint, nil
}
