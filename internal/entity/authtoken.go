package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	TokenTypeSignup   = "signup"
	TokenTypeRecovery = "recovery"
)

// AuthToken backs the email-link flows (account confirmation and password
// recovery). Only the bcrypt hash of the emailed token is stored.
type AuthToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	TokenHash string    `gorm:"size:255;not null" json:"-"`
	TokenType string    `gorm:"size:20;not null;index" json:"token_type"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	IsRevoked bool      `gorm:"not null;default:false" json:"is_revoked"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
