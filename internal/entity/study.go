package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

const (
	StatusPending           = "pending"
	StatusApproved          = "approved"
	StatusRejected          = "rejected"
	StatusRevisionRequested = "revision_requested"
)

// ValidStatusTarget reports whether s is a status a reviewer may decide on.
// "pending" is the initial state only; it is never a decision target.
func ValidStatusTarget(s string) bool {
	return s == StatusApproved || s == StatusRejected || s == StatusRevisionRequested
}

type Study struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string         `gorm:"size:300;not null" json:"title"`
	Abstract      string         `gorm:"type:text;not null" json:"abstract"`
	AuthorID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"author_id"`
	Author        User           `gorm:"constraint:OnDelete:CASCADE" json:"author,omitempty"`
	CoAuthors     pq.StringArray `gorm:"type:text[]" json:"co_authors,omitempty"`
	Adviser       string         `gorm:"size:150;not null" json:"adviser"`
	DateCompleted time.Time      `gorm:"type:date;not null" json:"date_completed"`
	Keywords      pq.StringArray `gorm:"type:text[];not null" json:"keywords"`
	Citation      *string        `gorm:"type:text" json:"citation,omitempty"`
	Course        *string        `gorm:"size:150" json:"course,omitempty"`
	Department    *string        `gorm:"size:150" json:"department,omitempty"`
	CategoryID    *uuid.UUID     `gorm:"type:uuid" json:"category_id,omitempty"`
	Category      Category       `gorm:"constraint:OnDelete:SET NULL" json:"category"`
	FileURL       *string        `gorm:"type:text" json:"file_url,omitempty"`
	FileName      *string        `gorm:"size:255" json:"file_name,omitempty"`
	FileSizeBytes *int64         `json:"file_size_bytes,omitempty"`
	Status        string         `gorm:"size:30;not null;default:pending;index" json:"status"`
	IsPublished   bool           `gorm:"not null;default:false;index" json:"is_published"`
	SubmittedAt   time.Time      `gorm:"autoCreateTime" json:"submitted_at"`
	PublishedAt   *time.Time     `json:"published_at,omitempty"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (s *Study) BeforeCreate(tx *gorm.DB) (err error) {
	if s.ID == uuid.Nil {
		s.ID, err = uuid.NewV7()
	}
	return
}
