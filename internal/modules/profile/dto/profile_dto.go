package dto

import (
	"time"

	"github.com/google/uuid"
)

type UpdateProfileInput struct {
	FullName   *string `form:"full_name" binding:"omitempty,min=2,max=150"`
	Department *string `form:"department" binding:"omitempty,max=150"`
	StudentID  *string `form:"student_id" binding:"omitempty,max=50"`
	Password   *string `form:"password" binding:"omitempty,min=8"`
}

type ProfileResponse struct {
	ID         uuid.UUID `json:"id"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	Role       string    `json:"role"`
	Department *string   `json:"department,omitempty"`
	StudentID  *string   `json:"student_id,omitempty"`
	AvatarURL  *string   `json:"avatar_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
