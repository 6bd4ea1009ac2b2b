package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/Raman369AI/fileProcessor/internal/enum"
	"github.com/Raman369AI/fileProcessor/internal/utils"
)

// Attachment tracks a single attachment through the pipeline, from ingestion
// to processed or failed.
type Attachment struct {
	ID          string `gorm:"type:varchar(50);primaryKey"`
	TaskID      string `gorm:"column:task_id;type:varchar(50);uniqueIndex;not null"`
	EmailID     string `gorm:"column:email_id;type:varchar(50);index"`
	Filename    string `gorm:"type:varchar(500)"`
	ContentType string `gorm:"type:varchar(255)"`
	Size        int    `gorm:"default:0"`

	Source enum.Source           `gorm:"type:varchar(20);index"`
	Status enum.AttachmentStatus `gorm:"type:varchar(20);index"`

	// Storage options
	StorageService string `gorm:"type:varchar(50)"`
	StorageBucket  string `gorm:"type:varchar(255)"`
	StorageKey     string `gorm:"type:varchar(1000)"`

	ContentHash string `gorm:"type:varchar(64);index"` // SHA-256 hash of content

	Attempts  int    `gorm:"default:0"`
	LastError string `gorm:"column:last_error;type:text"`

	ProcessedAt *time.Time `gorm:"column:processed_at;type:timestamp"`
	CreatedAt   time.Time  `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (Attachment) TableName() string {
	return "attachments"
}

func (a *Attachment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = utils.GenerateNanoIDWithPrefix("file", 12)
	}
	a.CreatedAt = utils.Now()
	return nil
}
