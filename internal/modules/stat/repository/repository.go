package repository

import (
	"context"

	"github.com/spark-repository/spark-api/internal/entity"
	"gorm.io/gorm"
)

type StatRepository interface {
	CountStudiesByStatus(ctx context.Context, status string) (int64, error)
	CountPublishedStudies(ctx context.Context) (int64, error)
}

type statRepository struct {
	db *gorm.DB
}

func NewStatRepository(db *gorm.DB) StatRepository {
	return &statRepository{db: db}
}

func (r *statRepository) CountStudiesByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Study{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

func (r *statRepository) CountPublishedStudies(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Study{}).
		Where("is_published = ?", true).
		Count(&count).Error
	return count, err
}
