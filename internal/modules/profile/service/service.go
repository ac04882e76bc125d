package profile

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spark-repository/spark-api/internal/entity"
	profileDto "github.com/spark-repository/spark-api/internal/modules/profile/dto"
	userRepo "github.com/spark-repository/spark-api/internal/modules/user/repository"
	"github.com/spark-repository/spark-api/pkg/apperror"
	commonDto "github.com/spark-repository/spark-api/pkg/dto"
	"github.com/spark-repository/spark-api/pkg/storage"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type ProfileService interface {
	GetCurrentProfile(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput, avatar *commonDto.UploadFile) (*profileDto.ProfileResponse, error)
}

type profileService struct {
	repo        userRepo.UserRepository
	fileStorage storage.FileStorage
}

func NewProfileService(repo userRepo.UserRepository, fileStorage storage.FileStorage) ProfileService {
	return &profileService{
		repo:        repo,
		fileStorage: fileStorage,
	}
}

func (s *profileService) GetCurrentProfile(ctx context.Context, userID uuid.UUID) (*profileDto.ProfileResponse, error) {
	user, err := s.repo.FindByID(ctx, userID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	return toProfileResponse(user), nil
}

// UpdateProfile changes the user's own fields. Role is deliberately absent
// from the input type; only the admin role endpoint can touch it.
func (s *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, input profileDto.UpdateProfileInput, avatar *commonDto.UploadFile) (*profileDto.ProfileResponse, error) {
	user, err := s.repo.FindByID(ctx, userID.String())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	if input.FullName != nil && *input.FullName != "" {
		user.FullName = *input.FullName
	}
	if input.Department != nil {
		user.Department = normalizeOptional(input.Department)
	}
	if input.StudentID != nil {
		user.StudentID = normalizeOptional(input.StudentID)
	}

	if input.Password != nil && *input.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hashed)
	}

	if avatar != nil && avatar.Reader != nil && s.fileStorage != nil {
		objectPath := storage.ObjectPath(user.ID, avatar.FileName)
		url, err := s.fileStorage.UploadFile(ctx, avatar.Reader, objectPath)
		if err != nil {
			return nil, err
		}
		user.AvatarURL = &url
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}

	return toProfileResponse(user), nil
}

// normalizeOptional maps empty strings to nil so cleared fields store NULL.
func normalizeOptional(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func toProfileResponse(user *entity.User) *profileDto.ProfileResponse {
	return &profileDto.ProfileResponse{
		ID:         user.ID,
		Email:      user.Email,
		FullName:   user.FullName,
		Role:       user.Role.Name,
		Department: user.Department,
		StudentID:  user.StudentID,
		AvatarURL:  user.AvatarURL,
		CreatedAt:  user.CreatedAt,
	}
}
