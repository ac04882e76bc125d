package dto

import (
	"time"

	"github.com/google/uuid"
	commonDto "github.com/spark-repository/spark-api/pkg/dto"
)

// SubmitStudyInput is the multipart metadata half of a submission. Keywords
// and co-authors arrive as comma-separated strings from the form.
type SubmitStudyInput struct {
	Title         string `form:"title" binding:"required,min=5,max=300"`
	Abstract      string `form:"abstract" binding:"required,min=100,max=5000"`
	CoAuthors     string `form:"co_authors"`
	Adviser       string `form:"adviser" binding:"required,min=2,max=150"`
	DateCompleted string `form:"date_completed" binding:"required,datetime=2006-01-02"`
	Keywords      string `form:"keywords" binding:"required"`
	Citation      string `form:"citation"`
	Course        string `form:"course" binding:"max=150"`
	Department    string `form:"department" binding:"required,max=150"`
	CategoryID    string `form:"category_id" binding:"required,uuid"`
}

// MySubmissionResponse pairs a study with the latest reviewer decision so the
// author sees status and feedback in one row.
type MySubmissionResponse struct {
	commonDto.StudyResponse
	LatestValidation *commonDto.ValidationResponse `json:"latest_validation,omitempty"`
}

type DownloadResponse struct {
	StudyID  uuid.UUID `json:"study_id"`
	FileURL  string    `json:"file_url"`
	FileName string    `json:"file_name"`
}

type YearsResponse struct {
	Years []int `json:"years"`
}

// ParsedDate is a convenience for handlers that already bound the string form.
func (i SubmitStudyInput) ParsedDate() (time.Time, error) {
	return time.Parse("2006-01-02", i.DateCompleted)
}
