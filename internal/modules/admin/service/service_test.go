package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spark-repository/spark-api/internal/entity"
	studyRepo "github.com/spark-repository/spark-api/internal/modules/study/repository"
	"github.com/spark-repository/spark-api/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeUserStore struct {
	users       map[uuid.UUID]*entity.User
	roles       map[string]*entity.Role
	roleChanges map[uuid.UUID]uint
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:       map[uuid.UUID]*entity.User{},
		roles:       map[string]*entity.Role{},
		roleChanges: map[uuid.UUID]uint{},
	}
}

func (f *fakeUserStore) Create(ctx context.Context, user *entity.User) error { return nil }

func (f *fakeUserStore) FindByID(ctx context.Context, id string) (*entity.User, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	user, ok := f.users[parsed]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeUserStore) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserStore) FindByGoogleID(ctx context.Context, googleID string) (*entity.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserStore) FindAll(ctx context.Context) ([]*entity.User, error) {
	var out []*entity.User
	for _, u := range f.users {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUserStore) Update(ctx context.Context, user *entity.User) error { return nil }

func (f *fakeUserStore) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	return nil
}

func (f *fakeUserStore) MarkEmailVerified(ctx context.Context, userID uuid.UUID, at time.Time) error {
	return nil
}

func (f *fakeUserStore) ChangeRole(ctx context.Context, userID uuid.UUID, roleID uint) error {
	f.roleChanges[userID] = roleID
	return nil
}

func (f *fakeUserStore) FindRoleByName(ctx context.Context, name string) (*entity.Role, error) {
	role, ok := f.roles[name]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return role, nil
}

func (f *fakeUserStore) CountUsers(ctx context.Context) (int64, error) { return 0, nil }

func (f *fakeUserStore) CreateToken(ctx context.Context, token *entity.AuthToken) error { return nil }

func (f *fakeUserStore) FindActiveTokens(ctx context.Context, tokenType string, now time.Time) ([]entity.AuthToken, error) {
	return nil, nil
}

func (f *fakeUserStore) RevokeToken(ctx context.Context, tokenID uint, now time.Time) error {
	return nil
}

func (f *fakeUserStore) RevokeUserTokens(ctx context.Context, userID uuid.UUID, tokenType string, now time.Time) error {
	return nil
}

type publishCall struct {
	status      string
	isPublished bool
	publishedAt *time.Time
}

type fakeStudyStore struct {
	studies map[uuid.UUID]*entity.Study
	publish map[uuid.UUID]publishCall
	deleted []uuid.UUID
}

func newFakeStudyStore() *fakeStudyStore {
	return &fakeStudyStore{
		studies: map[uuid.UUID]*entity.Study{},
		publish: map[uuid.UUID]publishCall{},
	}
}

func (f *fakeStudyStore) Create(ctx context.Context, study *entity.Study) error { return nil }

func (f *fakeStudyStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.Study, error) {
	study, ok := f.studies[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return study, nil
}

func (f *fakeStudyStore) Catalog(ctx context.Context, q studyRepo.CatalogQuery) ([]entity.Study, error) {
	return nil, nil
}

func (f *fakeStudyStore) FindByAuthor(ctx context.Context, authorID uuid.UUID) ([]entity.Study, error) {
	return nil, nil
}

func (f *fakeStudyStore) FindByStatus(ctx context.Context, status string) ([]entity.Study, error) {
	return nil, nil
}

func (f *fakeStudyStore) FindAll(ctx context.Context) ([]entity.Study, error) { return nil, nil }

func (f *fakeStudyStore) Delete(ctx context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	delete(f.studies, id)
	return nil
}

func (f *fakeStudyStore) UpdatePublishState(ctx context.Context, id uuid.UUID, status string, isPublished bool, publishedAt *time.Time) error {
	f.publish[id] = publishCall{status, isPublished, publishedAt}
	return nil
}

func (f *fakeStudyStore) DistinctPublishedYears(ctx context.Context) ([]int, error) {
	return nil, nil
}

func (f *fakeStudyStore) CountComments(ctx context.Context, studyID uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeStudyStore) CountDownloads(ctx context.Context, studyID uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeStudyStore) CreateDownload(ctx context.Context, download *entity.Download) error {
	return nil
}

func (f *fakeStudyStore) LatestValidation(ctx context.Context, studyID uuid.UUID) (*entity.Validation, error) {
	return nil, gorm.ErrRecordNotFound
}

type recordingStorage struct {
	deletes []string
}

func (s *recordingStorage) UploadFile(ctx context.Context, r io.Reader, objectPath string) (string, error) {
	return "", nil
}

func (s *recordingStorage) DeleteFile(ctx context.Context, fileURL string) error {
	s.deletes = append(s.deletes, fileURL)
	return nil
}

type recordingIndexer struct {
	indexed []string
	removed []string
}

func (r *recordingIndexer) IndexStudy(study *entity.Study) error {
	r.indexed = append(r.indexed, study.ID.String())
	return nil
}

func (r *recordingIndexer) RemoveStudy(id string) error {
	r.removed = append(r.removed, id)
	return nil
}

func (r *recordingIndexer) GenerateSearchToken() (string, error) { return "", nil }

func TestChangeUserRoleRejectsSelf(t *testing.T) {
	users := newFakeUserStore()
	adminID := uuid.New()
	users.users[adminID] = &entity.User{ID: adminID}
	users.roles[entity.RoleFaculty] = &entity.Role{ID: 2, Name: entity.RoleFaculty}

	svc := NewAdminService(users, newFakeStudyStore(), nil, nil, nil)

	err := svc.ChangeUserRole(context.Background(), adminID, adminID, entity.RoleFaculty)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))
	assert.Empty(t, users.roleChanges)
}

func TestChangeUserRoleAppliesKnownRole(t *testing.T) {
	users := newFakeUserStore()
	adminID := uuid.New()
	targetID := uuid.New()
	users.users[targetID] = &entity.User{ID: targetID}
	users.roles[entity.RoleFaculty] = &entity.Role{ID: 2, Name: entity.RoleFaculty}

	svc := NewAdminService(users, newFakeStudyStore(), nil, nil, nil)

	require.NoError(t, svc.ChangeUserRole(context.Background(), adminID, targetID, entity.RoleFaculty))
	assert.Equal(t, uint(2), users.roleChanges[targetID])
}

func TestPublishForcesApprovedStatus(t *testing.T) {
	studies := newFakeStudyStore()
	indexer := &recordingIndexer{}
	study := &entity.Study{
		ID:            uuid.New(),
		Status:        entity.StatusPending,
		DateCompleted: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	studies.studies[study.ID] = study

	svc := NewAdminService(newFakeUserStore(), studies, nil, indexer, nil)

	updated, err := svc.SetPublishState(context.Background(), study.ID, true)

	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, updated.Status)
	assert.True(t, updated.IsPublished)
	require.NotNil(t, updated.PublishedAt)

	call := studies.publish[study.ID]
	assert.Equal(t, entity.StatusApproved, call.status)
	assert.True(t, call.isPublished)
	require.NotNil(t, call.publishedAt)

	require.Len(t, indexer.indexed, 1)
}

func TestUnpublishKeepsStatus(t *testing.T) {
	studies := newFakeStudyStore()
	indexer := &recordingIndexer{}
	publishedAt := time.Now().UTC()
	study := &entity.Study{
		ID:            uuid.New(),
		Status:        entity.StatusApproved,
		IsPublished:   true,
		PublishedAt:   &publishedAt,
		DateCompleted: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	studies.studies[study.ID] = study

	svc := NewAdminService(newFakeUserStore(), studies, nil, indexer, nil)

	updated, err := svc.SetPublishState(context.Background(), study.ID, false)

	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, updated.Status, "unpublishing does not change status")
	assert.False(t, updated.IsPublished)
	assert.Nil(t, updated.PublishedAt)

	call := studies.publish[study.ID]
	assert.Equal(t, entity.StatusApproved, call.status)
	assert.False(t, call.isPublished)
	assert.Nil(t, call.publishedAt)

	require.Len(t, indexer.removed, 1)
}

func TestDeleteStudyCleansUpFileAndIndex(t *testing.T) {
	studies := newFakeStudyStore()
	files := &recordingStorage{}
	indexer := &recordingIndexer{}
	fileURL := "https://files.example/doc.pdf"
	study := &entity.Study{
		ID:            uuid.New(),
		Status:        entity.StatusApproved,
		IsPublished:   true,
		FileURL:       &fileURL,
		DateCompleted: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
	}
	studies.studies[study.ID] = study

	svc := NewAdminService(newFakeUserStore(), studies, files, indexer, nil)

	require.NoError(t, svc.DeleteStudy(context.Background(), study.ID))
	assert.Equal(t, []uuid.UUID{study.ID}, studies.deleted)
	assert.Equal(t, []string{fileURL}, files.deletes)
	assert.Equal(t, []string{study.ID.String()}, indexer.removed)
}
