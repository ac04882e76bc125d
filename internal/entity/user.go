package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleStudent = "student"
	RoleFaculty = "faculty"
	RoleAdmin   = "admin"
)

type Role struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type User struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email           string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash    string     `gorm:"size:255;not null" json:"-"`
	RoleID          *uint      `json:"role_id"`
	Role            Role       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"role"`
	FullName        string     `gorm:"size:150;not null" json:"full_name"`
	Department      *string    `gorm:"size:150" json:"department,omitempty"`
	StudentID       *string    `gorm:"size:50" json:"student_id,omitempty"`
	AvatarURL       *string    `gorm:"type:text" json:"avatar_url,omitempty"`
	GoogleID        *string    `gorm:"size:100;index" json:"-"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsValidator reports whether the user may review submissions.
func (u *User) IsValidator() bool {
	return u.Role.Name == RoleFaculty || u.Role.Name == RoleAdmin
}
