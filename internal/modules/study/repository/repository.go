package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spark-repository/spark-api/internal/entity"
	"gorm.io/gorm"
)

// CatalogQuery is the fully resolved public catalog filter: the category slug
// has already been mapped to an ID, year bounds are calendar years.
type CatalogQuery struct {
	Search     string
	CategoryID *uuid.UUID
	YearFrom   int
	YearTo     int
	SortAsc    bool
}

type StudyRepository interface {
	Create(ctx context.Context, study *entity.Study) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Study, error)
	Catalog(ctx context.Context, q CatalogQuery) ([]entity.Study, error)
	FindByAuthor(ctx context.Context, authorID uuid.UUID) ([]entity.Study, error)
	FindByStatus(ctx context.Context, status string) ([]entity.Study, error)
	FindAll(ctx context.Context) ([]entity.Study, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpdatePublishState(ctx context.Context, id uuid.UUID, status string, isPublished bool, publishedAt *time.Time) error
	DistinctPublishedYears(ctx context.Context) ([]int, error)
	CountComments(ctx context.Context, studyID uuid.UUID) (int64, error)
	CountDownloads(ctx context.Context, studyID uuid.UUID) (int64, error)
	CreateDownload(ctx context.Context, download *entity.Download) error
	LatestValidation(ctx context.Context, studyID uuid.UUID) (*entity.Validation, error)
}

type studyRepository struct {
	db *gorm.DB
}

func NewStudyRepository(db *gorm.DB) StudyRepository {
	return &studyRepository{db: db}
}

func (r *studyRepository) Create(ctx context.Context, study *entity.Study) error {
	return r.db.WithContext(ctx).Create(study).Error
}

func (r *studyRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Study, error) {
	var study entity.Study
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Category").
		Where("id = ?", id).
		First(&study).Error; err != nil {
		return nil, err
	}
	return &study, nil
}

// Catalog composes the public listing query. Empty filter fields contribute no
// clause; the is_published guard is unconditional.
func (r *studyRepository) Catalog(ctx context.Context, q CatalogQuery) ([]entity.Study, error) {
	tx := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Category").
		Where("is_published = ?", true)

	if q.Search != "" {
		like := "%" + q.Search + "%"
		tx = tx.Where("title ILIKE ? OR abstract ILIKE ? OR adviser ILIKE ?", like, like, like)
	}
	if q.CategoryID != nil {
		tx = tx.Where("category_id = ?", *q.CategoryID)
	}
	if q.YearFrom > 0 {
		tx = tx.Where("date_completed >= ?", fmt.Sprintf("%d-01-01", q.YearFrom))
	}
	if q.YearTo > 0 {
		tx = tx.Where("date_completed <= ?", fmt.Sprintf("%d-12-31", q.YearTo))
	}

	order := "published_at DESC"
	if q.SortAsc {
		order = "published_at ASC"
	}

	var studies []entity.Study
	if err := tx.Order(order).Find(&studies).Error; err != nil {
		return nil, err
	}
	return studies, nil
}

func (r *studyRepository) FindByAuthor(ctx context.Context, authorID uuid.UUID) ([]entity.Study, error) {
	var studies []entity.Study
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Where("author_id = ?", authorID).
		Order("submitted_at DESC").
		Find(&studies).Error; err != nil {
		return nil, err
	}
	return studies, nil
}

func (r *studyRepository) FindByStatus(ctx context.Context, status string) ([]entity.Study, error) {
	var studies []entity.Study
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Category").
		Where("status = ?", status).
		Order("submitted_at ASC").
		Find(&studies).Error; err != nil {
		return nil, err
	}
	return studies, nil
}

func (r *studyRepository) FindAll(ctx context.Context) ([]entity.Study, error) {
	var studies []entity.Study
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Category").
		Order("submitted_at DESC").
		Find(&studies).Error; err != nil {
		return nil, err
	}
	return studies, nil
}

func (r *studyRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&entity.Study{}).Error
}

func (r *studyRepository) UpdatePublishState(ctx context.Context, id uuid.UUID, status string, isPublished bool, publishedAt *time.Time) error {
	return r.db.WithContext(ctx).
		Model(&entity.Study{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":       status,
			"is_published": isPublished,
			"published_at": publishedAt,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (r *studyRepository) DistinctPublishedYears(ctx context.Context) ([]int, error) {
	var years []int
	err := r.db.WithContext(ctx).
		Raw("SELECT DISTINCT EXTRACT(YEAR FROM date_completed)::int AS year FROM studies WHERE is_published = true ORDER BY year DESC").
		Scan(&years).Error
	return years, err
}

func (r *studyRepository) CountComments(ctx context.Context, studyID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Comment{}).
		Where("study_id = ?", studyID).
		Count(&count).Error
	return count, err
}

func (r *studyRepository) CountDownloads(ctx context.Context, studyID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Download{}).
		Where("study_id = ?", studyID).
		Count(&count).Error
	return count, err
}

func (r *studyRepository) CreateDownload(ctx context.Context, download *entity.Download) error {
	return r.db.WithContext(ctx).Create(download).Error
}

func (r *studyRepository) LatestValidation(ctx context.Context, studyID uuid.UUID) (*entity.Validation, error) {
	var validation entity.Validation
	if err := r.db.WithContext(ctx).
		Preload("Faculty").
		Where("study_id = ?", studyID).
		Order("reviewed_at DESC").
		First(&validation).Error; err != nil {
		return nil, err
	}
	return &validation, nil
}
