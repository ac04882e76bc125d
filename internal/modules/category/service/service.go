package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/spark-repository/spark-api/internal/entity"
	"github.com/spark-repository/spark-api/internal/modules/category/dto"
	"github.com/spark-repository/spark-api/internal/modules/category/repository"
	"github.com/spark-repository/spark-api/pkg/apperror"
	commonDto "github.com/spark-repository/spark-api/pkg/dto"
	"gorm.io/gorm"
)

type CategoryService interface {
	CreateCategory(ctx context.Context, input dto.CreateCategoryInput) (*commonDto.CategoryResponse, error)
	GetAllCategories(ctx context.Context) ([]commonDto.CategoryResponse, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, input dto.UpdateCategoryInput) (*commonDto.CategoryResponse, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type categoryService struct {
	repo repository.CategoryRepository
}

func NewCategoryService(repo repository.CategoryRepository) CategoryService {
	return &categoryService{repo: repo}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases the name and collapses every non-alphanumeric run into a
// single hyphen.
func Slugify(name string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

func (s *categoryService) CreateCategory(ctx context.Context, input dto.CreateCategoryInput) (*commonDto.CategoryResponse, error) {
	slug := Slugify(input.Name)
	if slug == "" {
		return nil, fmt.Errorf("category name must contain letters or digits: %w", apperror.ErrBadRequest)
	}

	if _, err := s.repo.FindBySlug(ctx, slug); err == nil {
		return nil, fmt.Errorf("category %q already exists: %w", slug, apperror.ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	category := &entity.Category{
		Name:        input.Name,
		Slug:        slug,
		Description: input.Description,
	}
	if input.Color != "" {
		category.Color = input.Color
	}

	if err := s.repo.Create(ctx, category); err != nil {
		return nil, err
	}

	resp := toCategoryResponse(category)
	return &resp, nil
}

func (s *categoryService) GetAllCategories(ctx context.Context) ([]commonDto.CategoryResponse, error) {
	categories, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]commonDto.CategoryResponse, 0, len(categories))
	for i := range categories {
		responses = append(responses, toCategoryResponse(&categories[i]))
	}
	return responses, nil
}

func (s *categoryService) UpdateCategory(ctx context.Context, id uuid.UUID, input dto.UpdateCategoryInput) (*commonDto.CategoryResponse, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("category not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}

	if input.Name != nil {
		slug := Slugify(*input.Name)
		if slug == "" {
			return nil, fmt.Errorf("category name must contain letters or digits: %w", apperror.ErrBadRequest)
		}
		if slug != category.Slug {
			if existing, err := s.repo.FindBySlug(ctx, slug); err == nil && existing.ID != category.ID {
				return nil, fmt.Errorf("category %q already exists: %w", slug, apperror.ErrConflict)
			} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
		category.Name = *input.Name
		category.Slug = slug
	}
	if input.Description != nil {
		category.Description = *input.Description
	}
	if input.Color != nil {
		category.Color = *input.Color
	}

	if err := s.repo.Update(ctx, category); err != nil {
		return nil, err
	}

	resp := toCategoryResponse(category)
	return &resp, nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("category not found: %w", apperror.ErrNotFound)
		}
		return err
	}
	// Studies keep existing with category_id set to NULL by the FK constraint.
	return s.repo.Delete(ctx, id)
}

func toCategoryResponse(c *entity.Category) commonDto.CategoryResponse {
	return commonDto.CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Color:       c.Color,
	}
}
