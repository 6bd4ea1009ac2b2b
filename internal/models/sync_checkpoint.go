package models

import (
	"time"
)

// SyncCheckpoint records the outcome of a completed polling cycle together
// with the delta cursor that ended it.
type SyncCheckpoint struct {
	ID        string    `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	Cursor    string    `gorm:"column:cursor;type:text;not null"`
	Messages  int       `gorm:"column:messages;default:0"`
	Queued    int       `gorm:"column:queued;default:0"`
	Errors    int       `gorm:"column:errors;default:0"`
	RanAt     time.Time `gorm:"column:ran_at;type:timestamp;not null"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamp;default:current_timestamp"`
}

func (SyncCheckpoint) TableName() string {
	return "sync_checkpoints"
}
