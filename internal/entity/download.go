package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Download tracks one retrieval of a published study's file. DownloaderID is
// nil for anonymous visitors.
type Download struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StudyID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"study_id"`
	Study        Study      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	DownloaderID *uuid.UUID `gorm:"type:uuid" json:"downloader_id,omitempty"`
	DownloadedAt time.Time  `gorm:"autoCreateTime" json:"downloaded_at"`
}

func (d *Download) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == uuid.Nil {
		d.ID, err = uuid.NewV7()
	}
	return
}
