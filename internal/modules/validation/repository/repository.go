package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spark-repository/spark-api/internal/entity"
	"gorm.io/gorm"
)

type ValidationRepository interface {
	// Apply records the decision and moves the study in one transaction:
	// either both rows change or neither does.
	Apply(ctx context.Context, validation *entity.Validation, isPublished bool, publishedAt *time.Time) error
	FindByStudy(ctx context.Context, studyID uuid.UUID) ([]entity.Validation, error)
}

type validationRepository struct {
	db *gorm.DB
}

func NewValidationRepository(db *gorm.DB) ValidationRepository {
	return &validationRepository{db: db}
}

func (r *validationRepository) Apply(ctx context.Context, validation *entity.Validation, isPublished bool, publishedAt *time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(validation).Error; err != nil {
			return err
		}

		return tx.Model(&entity.Study{}).
			Where("id = ?", validation.StudyID).
			Updates(map[string]any{
				"status":       validation.Status,
				"is_published": isPublished,
				"published_at": publishedAt,
				"updated_at":   time.Now().UTC(),
			}).Error
	})
}

func (r *validationRepository) FindByStudy(ctx context.Context, studyID uuid.UUID) ([]entity.Validation, error) {
	var validations []entity.Validation
	if err := r.db.WithContext(ctx).
		Preload("Faculty").
		Where("study_id = ?", studyID).
		Order("reviewed_at DESC").
		Find(&validations).Error; err != nil {
		return nil, err
	}
	return validations, nil
}
