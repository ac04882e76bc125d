package dto

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// UploadFile carries one uploaded file through the service layer.
type UploadFile struct {
	Reader      io.Reader
	FileName    string
	Size        int64
	ContentType string
}

type AuthorResponse struct {
	ID         uuid.UUID `json:"id"`
	FullName   string    `json:"full_name"`
	Department *string   `json:"department,omitempty"`
	StudentID  *string   `json:"student_id,omitempty"`
}

type CategoryResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
}

// CatalogFilter is the public catalog's query surface: free-text substring
// search, category slug, inclusive calendar-year bounds and publication-date
// ordering.
type CatalogFilter struct {
	Query    string `form:"query"`
	Category string `form:"category"`
	YearFrom int    `form:"year_from" binding:"omitempty,min=1900,max=2100"`
	YearTo   int    `form:"year_to" binding:"omitempty,min=1900,max=2100"`
	Sort     string `form:"sort" binding:"omitempty,oneof=date_desc date_asc"`
}

type StudyResponse struct {
	ID            uuid.UUID         `json:"id"`
	Title         string            `json:"title"`
	Abstract      string            `json:"abstract"`
	Adviser       string            `json:"adviser"`
	CoAuthors     []string          `json:"co_authors,omitempty"`
	Keywords      []string          `json:"keywords"`
	Citation      *string           `json:"citation,omitempty"`
	Course        *string           `json:"course,omitempty"`
	Department    *string           `json:"department,omitempty"`
	DateCompleted string            `json:"date_completed"`
	Status        string            `json:"status"`
	IsPublished   bool              `json:"is_published"`
	SubmittedAt   time.Time         `json:"submitted_at"`
	PublishedAt   *time.Time        `json:"published_at,omitempty"`
	FileURL       *string           `json:"file_url,omitempty"`
	FileName      *string           `json:"file_name,omitempty"`
	FileSizeBytes *int64            `json:"file_size_bytes,omitempty"`
	Author        *AuthorResponse   `json:"author,omitempty"`
	Category      *CategoryResponse `json:"category,omitempty"`
	CommentCount  int64             `json:"comment_count,omitempty"`
	DownloadCount int64             `json:"download_count,omitempty"`
}

type ValidationResponse struct {
	ID         uuid.UUID       `json:"id"`
	StudyID    uuid.UUID       `json:"study_id"`
	Status     string          `json:"status"`
	Notes      *string         `json:"notes,omitempty"`
	ReviewedAt time.Time       `json:"reviewed_at"`
	Faculty    *AuthorResponse `json:"faculty,omitempty"`
}

type CommentResponse struct {
	ID        uuid.UUID         `json:"id"`
	Body      string            `json:"body"`
	ParentID  *uuid.UUID        `json:"parent_id,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Author    *AuthorResponse   `json:"author,omitempty"`
	Replies   []CommentResponse `json:"replies,omitempty"`
}

type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	TotalItems  int64 `json:"total_items"`
	Limit       int   `json:"limit"`
}
