package repository

import (
	"gorm.io/gorm"

	"github.com/Raman369AI/fileProcessor/interfaces"
	"github.com/Raman369AI/fileProcessor/internal/models"
)

type Repositories struct {
	EmailRepository      interfaces.EmailRepository
	AttachmentRepository interfaces.AttachmentRepository
	CheckpointRepository interfaces.CheckpointRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		EmailRepository:      NewEmailRepository(db),
		AttachmentRepository: NewAttachmentRepository(db),
		CheckpointRepository: NewCheckpointRepository(db),
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.IngestedEmail{},
		&models.Attachment{},
		&models.SyncCheckpoint{},
	)
}
