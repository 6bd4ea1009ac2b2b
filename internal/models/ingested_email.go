package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/Raman369AI/fileProcessor/internal/utils"
)

// IngestedEmail is a message observed during a polling cycle. One row per
// Graph message ID, upserted on re-delivery.
type IngestedEmail struct {
	ID            string    `gorm:"type:varchar(50);primaryKey"`
	MessageID     string    `gorm:"column:message_id;type:varchar(255);uniqueIndex;not null"`
	Subject       string    `gorm:"type:varchar(1000)"`
	SenderName    string    `gorm:"column:sender_name;type:varchar(500)"`
	SenderAddress string    `gorm:"column:sender_address;type:varchar(500);index"`
	BodyPreview   string    `gorm:"column:body_preview;type:text"`
	ReceivedAt    time.Time `gorm:"column:received_at;type:timestamp"`

	AttachmentCount int `gorm:"column:attachment_count;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamp;default:current_timestamp"`
}

func (IngestedEmail) TableName() string {
	return "ingested_emails"
}

func (e *IngestedEmail) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = utils.GenerateNanoIDWithPrefix("email", 12)
	}
	e.CreatedAt = utils.Now()
	return nil
}
