package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/spark-repository/spark-api/internal/entity"
	"github.com/spark-repository/spark-api/internal/modules/category/dto"
	"github.com/spark-repository/spark-api/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeCategoryRepo struct {
	byID   map[uuid.UUID]*entity.Category
	bySlug map[string]*entity.Category
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{
		byID:   map[uuid.UUID]*entity.Category{},
		bySlug: map[string]*entity.Category{},
	}
}

func (f *fakeCategoryRepo) add(c *entity.Category) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	f.byID[c.ID] = c
	f.bySlug[c.Slug] = c
}

func (f *fakeCategoryRepo) Create(ctx context.Context, category *entity.Category) error {
	f.add(category)
	return nil
}

func (f *fakeCategoryRepo) FindAll(ctx context.Context) ([]entity.Category, error) {
	var out []entity.Category
	for _, c := range f.byID {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeCategoryRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Category, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (f *fakeCategoryRepo) FindBySlug(ctx context.Context, slug string) (*entity.Category, error) {
	c, ok := f.bySlug[slug]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (f *fakeCategoryRepo) Update(ctx context.Context, category *entity.Category) error {
	f.add(category)
	return nil
}

func (f *fakeCategoryRepo) Delete(ctx context.Context, id uuid.UUID) error {
	c, ok := f.byID[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.bySlug, c.Slug)
	delete(f.byID, id)
	return nil
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"Computer Science", "computer-science"},
		{"  AI & Machine Learning  ", "ai-machine-learning"},
		{"Économie", "conomie"},
		{"---", ""},
		{"Already-Slugged", "already-slugged"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Slugify(tc.name), "Slugify(%q)", tc.name)
	}
}

func TestCreateCategoryRejectsDuplicateSlug(t *testing.T) {
	repo := newFakeCategoryRepo()
	repo.add(&entity.Category{Name: "Computer Science", Slug: "computer-science"})

	svc := NewCategoryService(repo)

	_, err := svc.CreateCategory(context.Background(), dto.CreateCategoryInput{
		Name: "computer SCIENCE",
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestCreateCategoryRejectsEmptySlug(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())

	_, err := svc.CreateCategory(context.Background(), dto.CreateCategoryInput{Name: "!!!"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))
}

func TestUpdateCategoryRenameRegeneratesSlug(t *testing.T) {
	repo := newFakeCategoryRepo()
	category := &entity.Category{Name: "Old Name", Slug: "old-name"}
	repo.add(category)

	svc := NewCategoryService(repo)

	newName := "New Name"
	resp, err := svc.UpdateCategory(context.Background(), category.ID, dto.UpdateCategoryInput{
		Name: &newName,
	})

	require.NoError(t, err)
	assert.Equal(t, "new-name", resp.Slug)
}

func TestUpdateCategoryRejectsSlugCollision(t *testing.T) {
	repo := newFakeCategoryRepo()
	repo.add(&entity.Category{Name: "Taken", Slug: "taken"})
	category := &entity.Category{Name: "Mine", Slug: "mine"}
	repo.add(category)

	svc := NewCategoryService(repo)

	newName := "Taken"
	_, err := svc.UpdateCategory(context.Background(), category.ID, dto.UpdateCategoryInput{
		Name: &newName,
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestDeleteCategoryUnknownID(t *testing.T) {
	svc := NewCategoryService(newFakeCategoryRepo())

	err := svc.DeleteCategory(context.Background(), uuid.New())

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}
