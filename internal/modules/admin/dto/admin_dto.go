package dto

import (
	"time"

	"github.com/google/uuid"
)

type ChangeRoleInput struct {
	Role string `json:"role" binding:"required,oneof=student faculty admin"`
}

type PublishInput struct {
	Publish *bool `json:"publish" binding:"required"`
}

type AdminUserResponse struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Role       string    `json:"role"`
	Department *string   `json:"department,omitempty"`
	StudentID  *string   `json:"student_id,omitempty"`
	Verified   bool      `json:"verified"`
	CreatedAt  time.Time `json:"created_at"`
}
