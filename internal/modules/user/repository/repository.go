package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spark-repository/spark-api/internal/entity"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*entity.User, error)
	FindAll(ctx context.Context) ([]*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	MarkEmailVerified(ctx context.Context, userID uuid.UUID, at time.Time) error
	ChangeRole(ctx context.Context, userID uuid.UUID, roleID uint) error
	FindRoleByName(ctx context.Context, name string) (*entity.Role, error)
	CountUsers(ctx context.Context) (int64, error)

	CreateToken(ctx context.Context, token *entity.AuthToken) error
	FindActiveTokens(ctx context.Context, tokenType string, now time.Time) ([]entity.AuthToken, error)
	RevokeToken(ctx context.Context, tokenID uint, now time.Time) error
	RevokeUserTokens(ctx context.Context, userID uuid.UUID, tokenType string, now time.Time) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).
		Preload("Role").
		Where("id = ?", id).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).
		Preload("Role").
		Where("email = ?", email).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByGoogleID(ctx context.Context, googleID string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).
		Preload("Role").
		Where("google_id = ?", googleID).
		First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindAll(ctx context.Context) ([]*entity.User, error) {
	var users []*entity.User
	if err := r.db.WithContext(ctx).
		Preload("Role").
		Order("created_at DESC").
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) Update(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	return r.db.WithContext(ctx).Model(&entity.User{}).
		Where("id = ?", userID).
		Update("password_hash", passwordHash).Error
}

func (r *userRepository) MarkEmailVerified(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.User{}).
		Where("id = ?", userID).
		Update("email_verified_at", at).Error
}

func (r *userRepository) ChangeRole(ctx context.Context, userID uuid.UUID, roleID uint) error {
	return r.db.WithContext(ctx).Model(&entity.User{}).
		Where("id = ?", userID).
		Update("role_id", roleID).Error
}

func (r *userRepository) FindRoleByName(ctx context.Context, name string) (*entity.Role, error) {
	var role entity.Role
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *userRepository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.User{}).Count(&count).Error
	return count, err
}

func (r *userRepository) CreateToken(ctx context.Context, token *entity.AuthToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *userRepository) FindActiveTokens(ctx context.Context, tokenType string, now time.Time) ([]entity.AuthToken, error) {
	var tokens []entity.AuthToken
	err := r.db.WithContext(ctx).
		Where("token_type = ? AND is_revoked = ? AND expires_at > ?", tokenType, false, now).
		Order("created_at DESC").
		Find(&tokens).Error
	return tokens, err
}

func (r *userRepository) RevokeToken(ctx context.Context, tokenID uint, now time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.AuthToken{}).
		Where("id = ?", tokenID).
		Updates(map[string]interface{}{
			"is_revoked": true,
			"expires_at": now,
		}).Error
}

func (r *userRepository) RevokeUserTokens(ctx context.Context, userID uuid.UUID, tokenType string, now time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.AuthToken{}).
		Where("user_id = ? AND token_type = ? AND is_revoked = ?", userID, tokenType, false).
		Updates(map[string]interface{}{
			"is_revoked": true,
			"expires_at": now,
		}).Error
}
