package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/spark-repository/spark-api/internal/entity"
	adminDto "github.com/spark-repository/spark-api/internal/modules/admin/dto"
	notification "github.com/spark-repository/spark-api/internal/modules/notification/service"
	search "github.com/spark-repository/spark-api/internal/modules/search/service"
	studyRepo "github.com/spark-repository/spark-api/internal/modules/study/repository"
	userRepo "github.com/spark-repository/spark-api/internal/modules/user/repository"
	"github.com/spark-repository/spark-api/pkg/apperror"
	commonDto "github.com/spark-repository/spark-api/pkg/dto"
	"github.com/spark-repository/spark-api/pkg/storage"
	"gorm.io/gorm"
)

type AdminService interface {
	GetAllUsers(ctx context.Context) ([]adminDto.AdminUserResponse, error)
	ChangeUserRole(ctx context.Context, adminID, targetID uuid.UUID, roleName string) error
	GetAllStudies(ctx context.Context) ([]commonDto.StudyResponse, error)
	SetPublishState(ctx context.Context, studyID uuid.UUID, publish bool) (*commonDto.StudyResponse, error)
	DeleteStudy(ctx context.Context, studyID uuid.UUID) error
}

type adminService struct {
	userRepo    userRepo.UserRepository
	studyRepo   studyRepo.StudyRepository
	fileStorage storage.FileStorage
	indexer     search.StudyIndexer
	notifier    notification.Notifier
}

func NewAdminService(
	userRepo userRepo.UserRepository,
	studyRepo studyRepo.StudyRepository,
	fileStorage storage.FileStorage,
	indexer search.StudyIndexer,
	notifier notification.Notifier,
) AdminService {
	return &adminService{
		userRepo:    userRepo,
		studyRepo:   studyRepo,
		fileStorage: fileStorage,
		indexer:     indexer,
		notifier:    notifier,
	}
}

func (s *adminService) GetAllUsers(ctx context.Context) ([]adminDto.AdminUserResponse, error) {
	users, err := s.userRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]adminDto.AdminUserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, adminDto.AdminUserResponse{
			ID:         user.ID,
			Email:      user.Email,
			FullName:   user.FullName,
			Role:       user.Role.Name,
			Department: user.Department,
			StudentID:  user.StudentID,
			Verified:   user.EmailVerifiedAt != nil,
			CreatedAt:  user.CreatedAt,
		})
	}
	return responses, nil
}

func (s *adminService) ChangeUserRole(ctx context.Context, adminID, targetID uuid.UUID, roleName string) error {
	// An admin revoking their own admin role would lock the account set; the
	// change must come from another admin.
	if adminID == targetID {
		return fmt.Errorf("you cannot change your own role: %w", apperror.ErrForbidden)
	}

	if _, err := s.userRepo.FindByID(ctx, targetID.String()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user not found: %w", apperror.ErrNotFound)
		}
		return err
	}

	role, err := s.userRepo.FindRoleByName(ctx, roleName)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("unknown role %q: %w", roleName, apperror.ErrBadRequest)
		}
		return err
	}

	if err := s.userRepo.ChangeRole(ctx, targetID, role.ID); err != nil {
		return err
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, targetID, entity.NotificationSystem, nil,
			fmt.Sprintf("Your account role was changed to %s.", roleName))
	}
	return nil
}

func (s *adminService) GetAllStudies(ctx context.Context) ([]commonDto.StudyResponse, error) {
	studies, err := s.studyRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]commonDto.StudyResponse, 0, len(studies))
	for i := range studies {
		responses = append(responses, toStudyResponse(&studies[i]))
	}
	return responses, nil
}

// SetPublishState is the admin override. Publishing forces status=approved so
// a published study can never carry a non-approved status; unpublishing
// leaves the status alone and only withdraws the study from the catalog.
func (s *adminService) SetPublishState(ctx context.Context, studyID uuid.UUID, publish bool) (*commonDto.StudyResponse, error) {
	study, err := s.studyRepo.FindByID(ctx, studyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("study not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	status := study.Status
	var publishedAt *time.Time
	if publish {
		status = entity.StatusApproved
		now := time.Now().UTC()
		publishedAt = &now
	}

	if err := s.studyRepo.UpdatePublishState(ctx, studyID, status, publish, publishedAt); err != nil {
		return nil, err
	}

	study.Status = status
	study.IsPublished = publish
	study.PublishedAt = publishedAt

	if s.indexer != nil {
		if publish {
			if err := s.indexer.IndexStudy(study); err != nil {
				log.Printf("failed to index study %s: %v", study.ID, err)
			}
		} else {
			if err := s.indexer.RemoveStudy(study.ID.String()); err != nil {
				log.Printf("failed to deindex study %s: %v", study.ID, err)
			}
		}
	}

	resp := toStudyResponse(study)
	return &resp, nil
}

func (s *adminService) DeleteStudy(ctx context.Context, studyID uuid.UUID) error {
	study, err := s.studyRepo.FindByID(ctx, studyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("study not found: %w", apperror.ErrNotFound)
		}
		return err
	}

	if err := s.studyRepo.Delete(ctx, studyID); err != nil {
		return err
	}

	if study.FileURL != nil && s.fileStorage != nil {
		if err := s.fileStorage.DeleteFile(ctx, *study.FileURL); err != nil {
			log.Printf("failed to delete file for study %s: %v", studyID, err)
		}
	}
	if s.indexer != nil {
		if err := s.indexer.RemoveStudy(studyID.String()); err != nil {
			log.Printf("failed to deindex study %s: %v", studyID, err)
		}
	}
	return nil
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
