package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Validation is an immutable audit record of a single review decision.
// Multiple rows may exist per study; the newest one reflects the study's
// current status.
type Validation struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StudyID    uuid.UUID `gorm:"type:uuid;not null;index" json:"study_id"`
	Study      Study     `gorm:"constraint:OnDelete:CASCADE" json:"study,omitempty"`
	FacultyID  uuid.UUID `gorm:"type:uuid;not null" json:"faculty_id"`
	Faculty    User      `gorm:"foreignKey:FacultyID;constraint:OnDelete:CASCADE" json:"faculty,omitempty"`
	Status     string    `gorm:"size:30;not null" json:"status"`
	Notes      *string   `gorm:"type:text" json:"notes,omitempty"`
	ReviewedAt time.Time `gorm:"autoCreateTime" json:"reviewed_at"`
}

func (v *Validation) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == uuid.Nil {
		v.ID, err = uuid.NewV7()
	}
	return
}
