package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spark-repository/spark-api/internal/entity"
	notification "github.com/spark-repository/spark-api/internal/modules/notification/service"
	search "github.com/spark-repository/spark-api/internal/modules/search/service"
	studyRepo "github.com/spark-repository/spark-api/internal/modules/study/repository"
	validationDto "github.com/spark-repository/spark-api/internal/modules/validation/dto"
	repo "github.com/spark-repository/spark-api/internal/modules/validation/repository"
	"github.com/spark-repository/spark-api/pkg/apperror"
	commonDto "github.com/spark-repository/spark-api/pkg/dto"
	"gorm.io/gorm"
)

type ValidationService interface {
	GetPendingSubmissions(ctx context.Context) ([]commonDto.StudyResponse, error)
	Decide(ctx context.Context, facultyID, studyID uuid.UUID, input validationDto.DecideInput) (*commonDto.ValidationResponse, error)
	GetHistory(ctx context.Context, studyID uuid.UUID) ([]commonDto.ValidationResponse, error)
}

type validationService struct {
	validationRepo repo.ValidationRepository
	studyRepo      studyRepo.StudyRepository
	indexer        search.StudyIndexer
	notifier       notification.Notifier
}

func NewValidationService(
	validationRepo repo.ValidationRepository,
	studyRepo studyRepo.StudyRepository,
	indexer search.StudyIndexer,
	notifier notification.Notifier,
) ValidationService {
	return &validationService{
		validationRepo: validationRepo,
		studyRepo:      studyRepo,
		indexer:        indexer,
		notifier:       notifier,
	}
}

func (s *validationService) GetPendingSubmissions(ctx context.Context) ([]commonDto.StudyResponse, error) {
	studies, err := s.studyRepo.FindByStatus(ctx, entity.StatusPending)
	if err != nil {
		return nil, err
	}

	responses := make([]commonDto.StudyResponse, 0, len(studies))
	for i := range studies {
		responses = append(responses, toStudyResponse(&studies[i]))
	}
	return responses, nil
}

// Decide is the review transition: it writes the audit row and the study's
// new state atomically. approved is the only status that publishes.
func (s *validationService) Decide(ctx context.Context, facultyID, studyID uuid.UUID, input validationDto.DecideInput) (*commonDto.ValidationResponse, error) {
	if !entity.ValidStatusTarget(input.Status) {
		return nil, fmt.Errorf("invalid status target: %w", apperror.ErrBadRequest)
	}

	notes := strings.TrimSpace(input.Notes)
	if notes == "" && input.Status != entity.StatusApproved {
		return nil, fmt.Errorf("notes are required when rejecting or requesting a revision: %w", apperror.ErrBadRequest)
	}

	study, err := s.studyRepo.FindByID(ctx, studyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("study not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	validation := &entity.Validation{
		StudyID:   study.ID,
		FacultyID: facultyID,
		Status:    input.Status,
	}
	if notes != "" {
		validation.Notes = &notes
	}

	isPublished := input.Status == entity.StatusApproved
	var publishedAt *time.Time
	if isPublished {
		now := time.Now().UTC()
		publishedAt = &now
	}

	if err := s.validationRepo.Apply(ctx, validation, isPublished, publishedAt); err != nil {
		return nil, err
	}

	// Keep the in-memory study consistent for the side effects below.
	study.Status = input.Status
	study.IsPublished = isPublished
	study.PublishedAt = publishedAt

	if s.indexer != nil {
		if isPublished {
			if err := s.indexer.IndexStudy(study); err != nil {
				log.Printf("failed to index study %s: %v", study.ID, err)
			}
		} else {
			if err := s.indexer.RemoveStudy(study.ID.String()); err != nil {
				log.Printf("failed to deindex study %s: %v", study.ID, err)
			}
		}
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, study.AuthorID, entity.NotificationValidation, &study.ID,
			decisionMessage(study.Title, input.Status))
	}

	return toValidationResponse(validation), nil
}

func (s *validationService) GetHistory(ctx context.Context, studyID uuid.UUID) ([]commonDto.ValidationResponse, error) {
	if _, err := s.studyRepo.FindByID(ctx, studyID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("study not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	validations, err := s.validationRepo.FindByStudy(ctx, studyID)
	if err != nil {
		return nil, err
	}

	responses := make([]commonDto.ValidationResponse, 0, len(validations))
	for i := range validations {
		responses = append(responses, *toValidationResponse(&validations[i]))
	}
	return responses, nil
}

func decisionMessage(title, status string) string {
	switch status {
	case entity.StatusApproved:
		return fmt.Sprintf("Your study %q was approved and is now published.", title)
	case entity.StatusRejected:
		return fmt.Sprintf("Your study %q was rejected. See the reviewer notes.", title)
	default:
		return fmt.Sprintf("A revision was requested for your study %q.", title)
	}
}

func toStudyResponse(study *entity.Study) commonDto.StudyResponse {
	resp := commonDto.StudyResponse{
		ID:            study.ID,
		Title:         study.Title,
		Abstract:      study.Abstract,
		Adviser:       study.Adviser,
		CoAuthors:     study.CoAuthors,
		Keywords:      study.Keywords,
		Citation:      study.Citation,
		Course:        study.Course,
		Department:    study.Department,
		DateCompleted: study.DateCompleted.Format("2006-01-02"),
		Status:        study.Status,
		IsPublished:   study.IsPublished,
		SubmittedAt:   study.SubmittedAt,
		PublishedAt:   study.PublishedAt,
		FileURL:       study.FileURL,
		FileName:      study.FileName,
		FileSizeBytes: study.FileSizeBytes,
	}

	if study.Author.ID != uuid.Nil {
		resp.Author = &commonDto.AuthorResponse{
			ID:         study.Author.ID,
			FullName:   study.Author.FullName,
			Department: study.Author.Department,
			StudentID:  study.Author.StudentID,
		}
	}
	if study.CategoryID != nil && study.Category.ID != uuid.Nil {
		resp.Category = &commonDto.CategoryResponse{
			ID:          study.Category.ID,
			Name:        study.Category.Name,
			Slug:        study.Category.Slug,
			Description: study.Category.Description,
			Color:       study.Category.Color,
		}
	}
	return resp
}

func toValidationResponse(v *entity.Validation) *commonDto.ValidationResponse {
	resp := &commonDto.ValidationResponse{
		ID:         v.ID,
		StudyID:    v.StudyID,
		Status:     v.Status,
		Notes:      v.Notes,
		ReviewedAt: v.ReviewedAt,
	}
	if v.Faculty.ID != uuid.Nil {
		resp.Faculty = &commonDto.AuthorResponse{
			ID:         v.Faculty.ID,
			FullName:   v.Faculty.FullName,
			Department: v.Faculty.Department,
		}
	}
	return resp
}
