package dto

import "github.com/spark-repository/spark-api/internal/entity"

type RegisterInput struct {
	FullName   string  `json:"full_name" binding:"required,min=2,max=150"`
	Email      string  `json:"email" binding:"required,email"`
	Password   string  `json:"password" binding:"required,min=8"`
	Department string  `json:"department" binding:"required"`
	StudentID  *string `json:"student_id"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type ForgotPasswordInput struct {
	Email string `json:"email" binding:"required,email"`
}

type ResetPasswordInput struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	SearchToken string       `json:"search_token,omitempty"`
	User        *entity.User `json:"user"`
}

// CallbackResult tells the HTTP layer where to send the browser after an
// email-link or OAuth exchange.
type CallbackResult struct {
	RedirectTo string
}
