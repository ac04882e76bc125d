package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spark-repository/spark-api/internal/entity"
	studyDto "github.com/spark-repository/spark-api/internal/modules/study/dto"
	repo "github.com/spark-repository/spark-api/internal/modules/study/repository"
	"github.com/spark-repository/spark-api/pkg/apperror"
	commonDto "github.com/spark-repository/spark-api/pkg/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeStudyRepo struct {
	studies      map[uuid.UUID]*entity.Study
	createErr    error
	created      []*entity.Study
	downloads    []*entity.Download
	lastCatalogQ repo.CatalogQuery
	catalogOut   []entity.Study
	deleted      []uuid.UUID
}

func newFakeStudyRepo() *fakeStudyRepo {
	return &fakeStudyRepo{studies: map[uuid.UUID]*entity.Study{}}
}

func (f *fakeStudyRepo) Create(ctx context.Context, study *entity.Study) error {
	if f.createErr != nil {
		return f.createErr
	}
	if study.ID == uuid.Nil {
		study.ID = uuid.New()
	}
	f.created = append(f.created, study)
	f.studies[study.ID] = study
	return nil
}

func (f *fakeStudyRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Study, error) {
	study, ok := f.studies[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return study, nil
}

func (f *fakeStudyRepo) Catalog(ctx context.Context, q repo.CatalogQuery) ([]entity.Study, error) {
	f.lastCatalogQ = q
	return f.catalogOut, nil
}

func (f *fakeStudyRepo) FindByAuthor(ctx context.Context, authorID uuid.UUID) ([]entity.Study, error) {
	var out []entity.Study
	for _, s := range f.studies {
		if s.AuthorID == authorID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStudyRepo) FindByStatus(ctx context.Context, status string) ([]entity.Study, error) {
	return nil, nil
}

func (f *fakeStudyRepo) FindAll(ctx context.Context) ([]entity.Study, error) { return nil, nil }

func (f *fakeStudyRepo) Delete(ctx context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	delete(f.studies, id)
	return nil
}

func (f *fakeStudyRepo) UpdatePublishState(ctx context.Context, id uuid.UUID, status string, isPublished bool, publishedAt *time.Time) error {
	return nil
}

func (f *fakeStudyRepo) DistinctPublishedYears(ctx context.Context) ([]int, error) {
	return []int{2025, 2024}, nil
}

func (f *fakeStudyRepo) CountComments(ctx context.Context, studyID uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeStudyRepo) CountDownloads(ctx context.Context, studyID uuid.UUID) (int64, error) {
	return 0, nil
}

func (f *fakeStudyRepo) CreateDownload(ctx context.Context, download *entity.Download) error {
	f.downloads = append(f.downloads, download)
	return nil
}

func (f *fakeStudyRepo) LatestValidation(ctx context.Context, studyID uuid.UUID) (*entity.Validation, error) {
	return nil, gorm.ErrRecordNotFound
}

type fakeCategoryRepo struct {
	bySlug map[string]*entity.Category
	byID   map[uuid.UUID]*entity.Category
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{bySlug: map[string]*entity.Category{}, byID: map[uuid.UUID]*entity.Category{}}
}

func (f *fakeCategoryRepo) Create(ctx context.Context, c *entity.Category) error { return nil }

func (f *fakeCategoryRepo) FindAll(ctx context.Context) ([]entity.Category, error) {
	return nil, nil
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

func (f *fakeCategoryRepo) Update(ctx context.Context, c *entity.Category) error { return nil }
func (f *fakeCategoryRepo) Delete(ctx context.Context, id uuid.UUID) error       { return nil }

type recordingStorage struct {
	uploads   []string
	deletes   []string
	uploadErr error
}

func (s *recordingStorage) UploadFile(ctx context.Context, r io.Reader, objectPath string) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.uploads = append(s.uploads, objectPath)
	return "https://files.example/" + objectPath, nil
}

func (s *recordingStorage) DeleteFile(ctx context.Context, fileURL string) error {
	s.deletes = append(s.deletes, fileURL)
	return nil
}

type recordingNotifier struct {
	calls []string
}

func (n *recordingNotifier) Notify(ctx context.Context, userID uuid.UUID, notifType string, studyID *uuid.UUID, message string) {
	n.calls = append(n.calls, notifType)
}

func validInput() studyDto.SubmitStudyInput {
	return studyDto.SubmitStudyInput{
		Title:         "A Study of Catalog Query Composition",
		Abstract:      strings.Repeat("a", 150),
		Adviser:       "Dr. Reyes",
		DateCompleted: "2025-03-15",
		Keywords:      "databases, indexing, catalogs",
	}
}

func validFile() commonDto.UploadFile {
	return commonDto.UploadFile{
		Reader:      strings.NewReader("%PDF-1.7"),
		FileName:    "final thesis.pdf",
		Size:        1024,
		ContentType: "application/pdf",
	}
}

func newTestService(studies *fakeStudyRepo, categories *fakeCategoryRepo, files *recordingStorage, notifier *recordingNotifier) StudyService {
	if notifier == nil {
		return NewStudyService(studies, categories, files, nil, nil)
	}
	return NewStudyService(studies, categories, files, nil, notifier)
}

func TestSubmitStudyRejectsTooFewKeywords(t *testing.T) {
	studies := newFakeStudyRepo()
	files := &recordingStorage{}
	svc := newTestService(studies, newFakeCategoryRepo(), files, nil)

	input := validInput()
	input.Keywords = "databases, indexing"

	_, err := svc.SubmitStudy(context.Background(), uuid.New(), input, validFile())

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))
	assert.Empty(t, files.uploads, "rejected submission must not touch storage")
	assert.Empty(t, studies.created)
}

func TestSubmitStudyAcceptsThreeKeywords(t *testing.T) {
	studies := newFakeStudyRepo()
	files := &recordingStorage{}
	svc := newTestService(studies, newFakeCategoryRepo(), files, nil)

	created, err := svc.SubmitStudy(context.Background(), uuid.New(), validInput(), validFile())

	require.NoError(t, err)
	assert.Len(t, created.Keywords, 3)
	assert.Equal(t, entity.StatusPending, created.Status)
	assert.False(t, created.IsPublished)
	require.Len(t, files.uploads, 1)
}

func TestSubmitStudyRejectsNonPDF(t *testing.T) {
	studies := newFakeStudyRepo()
	files := &recordingStorage{}
	svc := newTestService(studies, newFakeCategoryRepo(), files, nil)

	file := validFile()
	file.FileName = "thesis.docx"
	file.ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	_, err := svc.SubmitStudy(context.Background(), uuid.New(), validInput(), file)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))
	assert.Empty(t, files.uploads)
}

func TestSubmitStudyRejectsOversizeFile(t *testing.T) {
	studies := newFakeStudyRepo()
	files := &recordingStorage{}
	svc := newTestService(studies, newFakeCategoryRepo(), files, nil)

	file := validFile()
	file.Size = 20*1024*1024 + 1

	_, err := svc.SubmitStudy(context.Background(), uuid.New(), validInput(), file)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrBadRequest))
	assert.Empty(t, files.uploads)
}

func TestSubmitStudyAcceptsFileAtSizeLimit(t *testing.T) {
	studies := newFakeStudyRepo()
	files := &recordingStorage{}
	svc := newTestService(studies, newFakeCategoryRepo(), files, nil)

	file := validFile()
	file.Size = 20 * 1024 * 1024

	_, err := svc.SubmitStudy(context.Background(), uuid.New(), validInput(), file)
	require.NoError(t, err)
}

func TestSubmitStudyCompensatesFailedInsert(t *testing.T) {
	studies := newFakeStudyRepo()
	studies.createErr = errors.New("insert failed")
	files := &recordingStorage{}
	svc := newTestService(studies, newFakeCategoryRepo(), files, nil)

	_, err := svc.SubmitStudy(context.Background(), uuid.New(), validInput(), validFile())

	require.Error(t, err)
	require.Len(t, files.uploads, 1, "file was uploaded before the insert")
	require.Len(t, files.deletes, 1, "orphan file must be removed after a failed insert")
}

func TestCatalogUnknownCategorySlugDropsFilter(t *testing.T) {
	studies := newFakeStudyRepo()
	svc := newTestService(studies, newFakeCategoryRepo(), &recordingStorage{}, nil)

	_, err := svc.GetCatalog(context.Background(), commonDto.CatalogFilter{Category: "no-such-slug"})

	require.NoError(t, err)
	assert.Nil(t, studies.lastCatalogQ.CategoryID)
}

func TestCatalogResolvesCategorySlug(t *testing.T) {
	studies := newFakeStudyRepo()
	categories := newFakeCategoryRepo()
	cat := &entity.Category{ID: uuid.New(), Name: "Engineering", Slug: "engineering"}
	categories.bySlug[cat.Slug] = cat

	svc := newTestService(studies, categories, &recordingStorage{}, nil)

	_, err := svc.GetCatalog(context.Background(), commonDto.CatalogFilter{
		Category: "engineering",
		YearFrom: 2023,
	})

	require.NoError(t, err)
	require.NotNil(t, studies.lastCatalogQ.CategoryID)
	assert.Equal(t, cat.ID, *studies.lastCatalogQ.CategoryID)
	assert.Equal(t, 2023, studies.lastCatalogQ.YearFrom)
}

func TestCatalogDefaultsToNewestFirst(t *testing.T) {
	studies := newFakeStudyRepo()
	svc := newTestService(studies, newFakeCategoryRepo(), &recordingStorage{}, nil)

	_, err := svc.GetCatalog(context.Background(), commonDto.CatalogFilter{})
	require.NoError(t, err)
	assert.False(t, studies.lastCatalogQ.SortAsc)

	_, err = svc.GetCatalog(context.Background(), commonDto.CatalogFilter{Sort: "date_asc"})
	require.NoError(t, err)
	assert.True(t, studies.lastCatalogQ.SortAsc)
}

func TestGetPublishedStudyHidesUnpublished(t *testing.T) {
	studies := newFakeStudyRepo()
	study := &entity.Study{ID: uuid.New(), Status: entity.StatusPending, IsPublished: false}
	studies.studies[study.ID] = study

	svc := newTestService(studies, newFakeCategoryRepo(), &recordingStorage{}, nil)

	_, err := svc.GetPublishedStudy(context.Background(), study.ID)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestDeleteOwnStudyRejectsOtherAuthors(t *testing.T) {
	studies := newFakeStudyRepo()
	author := uuid.New()
	study := &entity.Study{ID: uuid.New(), AuthorID: author, Status: entity.StatusPending}
	studies.studies[study.ID] = study

	svc := newTestService(studies, newFakeCategoryRepo(), &recordingStorage{}, nil)

	err := svc.DeleteOwnStudy(context.Background(), uuid.New(), study.ID)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrForbidden))
	assert.Empty(t, studies.deleted)
}

func TestDeleteOwnStudyOnlyWhilePending(t *testing.T) {
	studies := newFakeStudyRepo()
	author := uuid.New()
	study := &entity.Study{ID: uuid.New(), AuthorID: author, Status: entity.StatusApproved}
	studies.studies[study.ID] = study

	svc := newTestService(studies, newFakeCategoryRepo(), &recordingStorage{}, nil)

	err := svc.DeleteOwnStudy(context.Background(), author, study.ID)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrConflict))
}

func TestRecordDownloadNotifiesAuthor(t *testing.T) {
	studies := newFakeStudyRepo()
	notifier := &recordingNotifier{}
	fileURL := "https://files.example/study.pdf"
	study := &entity.Study{
		ID:          uuid.New(),
		AuthorID:    uuid.New(),
		Title:       "Indexed Structures",
		Status:      entity.StatusApproved,
		IsPublished: true,
		FileURL:     &fileURL,
	}
	studies.studies[study.ID] = study

	svc := newTestService(studies, newFakeCategoryRepo(), &recordingStorage{}, notifier)

	downloader := uuid.New()
	result, err := svc.RecordDownload(context.Background(), study.ID, &downloader)

	require.NoError(t, err)
	assert.Equal(t, fileURL, result.FileURL)
	require.Len(t, studies.downloads, 1)
	assert.Equal(t, &downloader, studies.downloads[0].DownloaderID)
	require.Len(t, notifier.calls, 1)
	assert.Equal(t, entity.NotificationDownload, notifier.calls[0])
}

func TestRecordDownloadSkipsSelfNotification(t *testing.T) {
	studies := newFakeStudyRepo()
	notifier := &recordingNotifier{}
	fileURL := "https://files.example/study.pdf"
	study := &entity.Study{
		ID:          uuid.New(),
		AuthorID:    uuid.New(),
		Status:      entity.StatusApproved,
		IsPublished: true,
		FileURL:     &fileURL,
	}
	studies.studies[study.ID] = study

	svc := newTestService(studies, newFakeCategoryRepo(), &recordingStorage{}, notifier)

	_, err := svc.RecordDownload(context.Background(), study.ID, &study.AuthorID)

	require.NoError(t, err)
	assert.Empty(t, notifier.calls)
}

func TestSubmitStudyRejectsMismatchedContentType(t *testing.T) {
	studies := newFakeStudyRepo()
	files := &recordingStorage{}
	svc := newTestService(studies, newFakeCategoryRepo(), files, nil)

	file := validFile()
	file.FileName = "thesis.pdf"
	file.ContentType = "text/plain"

	_, err := svc.SubmitStudy(context.Background(), uuid.New(), validInput(), file)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrBadRequest), "a .pdf name does not override the declared type")
	assert.Empty(t, files.uploads)
}

func TestSubmitStudyFallsBackToExtensionWithoutContentType(t *testing.T) {
	studies := newFakeStudyRepo()
	files := &recordingStorage{}
	svc := newTestService(studies, newFakeCategoryRepo(), files, nil)

	file := validFile()
	file.ContentType = ""

	_, err := svc.SubmitStudy(context.Background(), uuid.New(), validInput(), file)

	require.NoError(t, err)
	require.Len(t, files.uploads, 1)
}

func TestSubmitStudyRateLimitsRepeatSubmissions(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	studies := newFakeStudyRepo()
	files := &recordingStorage{}
	svc := NewStudyService(studies, newFakeCategoryRepo(), files, client, nil)
	userID := uuid.New()

	_, err := svc.SubmitStudy(context.Background(), userID, validInput(), validFile())
	require.NoError(t, err)

	_, err = svc.SubmitStudy(context.Background(), userID, validInput(), validFile())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrRateLimitExceeded))
	assert.Contains(t, err.Error(), "please wait", "the denial names the remaining wait")

	mr.FastForward(6 * time.Minute)
	_, err = svc.SubmitStudy(context.Background(), userID, validInput(), validFile())
	require.NoError(t, err)
	assert.Len(t, studies.created, 2)
}

func TestSubmitStudyReleasesRateSlotOnFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	studies := newFakeStudyRepo()
	files := &recordingStorage{uploadErr: errors.New("cloud down")}
	svc := NewStudyService(studies, newFakeCategoryRepo(), files, client, nil)
	userID := uuid.New()

	_, err := svc.SubmitStudy(context.Background(), userID, validInput(), validFile())
	require.Error(t, err)

	files.uploadErr = nil
	_, err = svc.SubmitStudy(context.Background(), userID, validInput(), validFile())
	require.NoError(t, err, "a failed submission must not hold the rate slot")
}
