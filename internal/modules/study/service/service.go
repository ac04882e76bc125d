package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spark-repository/spark-api/internal/entity"
	categoryRepo "github.com/spark-repository/spark-api/internal/modules/category/repository"
	notification "github.com/spark-repository/spark-api/internal/modules/notification/service"
	studyDto "github.com/spark-repository/spark-api/internal/modules/study/dto"
	repo "github.com/spark-repository/spark-api/internal/modules/study/repository"
	"github.com/spark-repository/spark-api/pkg/apperror"
	commonDto "github.com/spark-repository/spark-api/pkg/dto"
	"github.com/spark-repository/spark-api/pkg/ratelimit"
	"github.com/spark-repository/spark-api/pkg/storage"
	"gorm.io/gorm"
)

const (
	maxFileSize    = 20 * 1024 * 1024
	minKeywords    = 3
	submitAction   = "submit_study"
	pdfContentType = "application/pdf"
)

type StudyService interface {
	SubmitStudy(ctx context.Context, userID uuid.UUID, input studyDto.SubmitStudyInput, file commonDto.UploadFile) (*commonDto.StudyResponse, error)
	GetCatalog(ctx context.Context, filter commonDto.CatalogFilter) ([]commonDto.StudyResponse, error)
	GetPublishedYears(ctx context.Context) ([]int, error)
	GetPublishedStudy(ctx context.Context, id uuid.UUID) (*commonDto.StudyResponse, error)
	GetMySubmissions(ctx context.Context, userID uuid.UUID) ([]studyDto.MySubmissionResponse, error)
	DeleteOwnStudy(ctx context.Context, userID, studyID uuid.UUID) error
	RecordDownload(ctx context.Context, studyID uuid.UUID, downloaderID *uuid.UUID) (*studyDto.DownloadResponse, error)
}

type studyService struct {
	studyRepo    repo.StudyRepository
	categoryRepo categoryRepo.CategoryRepository
	fileStorage  storage.FileStorage
	redisClient  *redis.Client
	notifier     notification.Notifier
	submitLimit  time.Duration
}

func NewStudyService(
	studyRepo repo.StudyRepository,
	categoryRepo categoryRepo.CategoryRepository,
	fileStorage storage.FileStorage,
	redisClient *redis.Client,
	notifier notification.Notifier,
) StudyService {
	submitLimit := 5 * time.Minute
	if raw := os.Getenv("RATE_LIMIT_SUBMIT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			submitLimit = parsed
		}
	}

	return &studyService{
		studyRepo:    studyRepo,
		categoryRepo: categoryRepo,
		fileStorage:  fileStorage,
		redisClient:  redisClient,
		notifier:     notifier,
		submitLimit:  submitLimit,
	}
}

// splitCSV turns a comma-separated form field into trimmed, non-empty parts.
func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// isPDF trusts the declared content type; the extension only decides when the
// client sent no type at all.
func isPDF(file commonDto.UploadFile) bool {
	if file.ContentType != "" {
		return file.ContentType == pdfContentType
	}
	return strings.HasSuffix(strings.ToLower(file.FileName), ".pdf")
}

func (s *studyService) SubmitStudy(ctx context.Context, userID uuid.UUID, input studyDto.SubmitStudyInput, file commonDto.UploadFile) (*commonDto.StudyResponse, error) {
	// Everything below must fail before the first storage or insert call so a
	// rejected submission leaves no orphan file behind.
	keywords := splitCSV(input.Keywords)
	if len(keywords) < minKeywords {
		return nil, fmt.Errorf("at least %d keywords are required: %w", minKeywords, apperror.ErrBadRequest)
	}

	if file.Reader == nil || file.FileName == "" {
		return nil, fmt.Errorf("a PDF file is required: %w", apperror.ErrBadRequest)
	}
	if !isPDF(file) {
		return nil, fmt.Errorf("only PDF files are accepted: %w", apperror.ErrBadRequest)
	}
	if file.Size > maxFileSize {
		return nil, fmt.Errorf("file exceeds the 20MB limit: %w", apperror.ErrBadRequest)
	}

	dateCompleted, err := input.ParsedDate()
	if err != nil {
		return nil, fmt.Errorf("invalid date_completed: %w", apperror.ErrBadRequest)
	}

	var categoryID *uuid.UUID
	var category *entity.Category
	if input.CategoryID != "" {
		parsed, err := uuid.Parse(input.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("invalid category id format: %w", apperror.ErrBadRequest)
		}
		category, err = s.categoryRepo.FindByID(ctx, parsed)
		if err != nil {
			return nil, fmt.Errorf("invalid category id: %w", apperror.ErrBadRequest)
		}
		categoryID = &category.ID
	}

	allowed, err := ratelimit.CheckAndSet(ctx, s.redisClient, userID, submitAction, s.submitLimit)
	if err != nil {
		return nil, err
	}
	if !allowed {
		msg := "please wait before submitting another study"
		if wait, err := ratelimit.TTL(ctx, s.redisClient, userID, submitAction); err == nil && wait > 0 {
			msg = fmt.Sprintf("please wait %s before submitting another study", wait.Round(time.Second))
		}
		return nil, fmt.Errorf("%s: %w", msg, apperror.ErrRateLimitExceeded)
	}
	submissionFailed := true
	defer func() {
		if submissionFailed {
			if clearErr := ratelimit.Clear(ctx, s.redisClient, userID, submitAction); clearErr != nil {
				log.Printf("failed to clear submit rate limit for %s: %v", userID, clearErr)
			}
		}
	}()

	objectPath := storage.ObjectPath(userID, file.FileName)
	fileURL, err := s.fileStorage.UploadFile(ctx, file.Reader, objectPath)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	fileName := storage.SanitizeFilename(file.FileName)
	study := &entity.Study{
		Title:         input.Title,
		Abstract:      input.Abstract,
		AuthorID:      userID,
		CoAuthors:     splitCSV(input.CoAuthors),
		Adviser:       input.Adviser,
		DateCompleted: dateCompleted,
		Keywords:      keywords,
		CategoryID:    categoryID,
		FileURL:       &fileURL,
		FileName:      &fileName,
		FileSizeBytes: &file.Size,
		Status:        entity.StatusPending,
	}
	if input.Citation != "" {
		study.Citation = &input.Citation
	}
	if input.Course != "" {
		study.Course = &input.Course
	}
	if input.Department != "" {
		study.Department = &input.Department
	}

	if err := s.studyRepo.Create(ctx, study); err != nil {
		// The file is already in storage; remove it so the failed insert
		// leaves nothing behind.
		if delErr := s.fileStorage.DeleteFile(ctx, fileURL); delErr != nil {
			log.Printf("failed to delete orphan file %s: %v", fileURL, delErr)
		}
		return nil, err
	}
	submissionFailed = false

	if category != nil {
		study.Category = *category
	}
	resp := toStudyResponse(study, 0, 0)
	return &resp, nil
}

func (s *studyService) GetCatalog(ctx context.Context, filter commonDto.CatalogFilter) ([]commonDto.StudyResponse, error) {
	q := repo.CatalogQuery{
		Search:   strings.TrimSpace(filter.Query),
		YearFrom: filter.YearFrom,
		YearTo:   filter.YearTo,
		SortAsc:  filter.Sort == "date_asc",
	}

	if filter.Category != "" {
		category, err := s.categoryRepo.FindBySlug(ctx, filter.Category)
		if err == nil {
			q.CategoryID = &category.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		// An unknown slug drops the category filter rather than erroring.
	}

	studies, err := s.studyRepo.Catalog(ctx, q)
	if err != nil {
		return nil, err
	}

	responses := make([]commonDto.StudyResponse, 0, len(studies))
	for i := range studies {
		responses = append(responses, toStudyResponse(&studies[i], 0, 0))
	}
	return responses, nil
}

func (s *studyService) GetPublishedYears(ctx context.Context) ([]int, error) {
	return s.studyRepo.DistinctPublishedYears(ctx)
}

func (s *studyService) GetPublishedStudy(ctx context.Context, id uuid.UUID) (*commonDto.StudyResponse, error) {
	study, err := s.studyRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("study not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	if !study.IsPublished {
		return nil, fmt.Errorf("study not found: %w", apperror.ErrNotFound)
	}

	comments, err := s.studyRepo.CountComments(ctx, study.ID)
	if err != nil {
		return nil, err
	}
	downloads, err := s.studyRepo.CountDownloads(ctx, study.ID)
	if err != nil {
		return nil, err
	}

	resp := toStudyResponse(study, comments, downloads)
	return &resp, nil
}

func (s *studyService) GetMySubmissions(ctx context.Context, userID uuid.UUID) ([]studyDto.MySubmissionResponse, error) {
	studies, err := s.studyRepo.FindByAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]studyDto.MySubmissionResponse, 0, len(studies))
	for i := range studies {
		item := studyDto.MySubmissionResponse{
			StudyResponse: toStudyResponse(&studies[i], 0, 0),
		}

		validation, err := s.studyRepo.LatestValidation(ctx, studies[i].ID)
		if err == nil {
			item.LatestValidation = toValidationResponse(validation)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		responses = append(responses, item)
	}
	return responses, nil
}

func (s *studyService) DeleteOwnStudy(ctx context.Context, userID, studyID uuid.UUID) error {
	study, err := s.studyRepo.FindByID(ctx, studyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("study not found: %w", apperror.ErrNotFound)
		}
		return err
	}

	if study.AuthorID != userID {
		return fmt.Errorf("only the author can delete a submission: %w", apperror.ErrForbidden)
	}
	if study.Status != entity.StatusPending {
		return fmt.Errorf("only pending submissions can be deleted: %w", apperror.ErrConflict)
	}

	if err := s.studyRepo.Delete(ctx, studyID); err != nil {
		return err
	}

	if study.FileURL != nil {
		if err := s.fileStorage.DeleteFile(ctx, *study.FileURL); err != nil {
			log.Printf("failed to delete file for study %s: %v", studyID, err)
		}
	}
	return nil
}

func (s *studyService) RecordDownload(ctx context.Context, studyID uuid.UUID, downloaderID *uuid.UUID) (*studyDto.DownloadResponse, error) {
	study, err := s.studyRepo.FindByID(ctx, studyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("study not found: %w", apperror.ErrNotFound)
		}
		return nil, err
	}
	if !study.IsPublished || study.FileURL == nil {
		return nil, fmt.Errorf("study not found: %w", apperror.ErrNotFound)
	}

	download := &entity.Download{
		StudyID:      study.ID,
		DownloaderID: downloaderID,
	}
	if err := s.studyRepo.CreateDownload(ctx, download); err != nil {
		return nil, err
	}

	if s.notifier != nil && (downloaderID == nil || *downloaderID != study.AuthorID) {
		s.notifier.Notify(ctx, study.AuthorID, entity.NotificationDownload, &study.ID,
			fmt.Sprintf("Your study %q was downloaded.", study.Title))
	}

	fileName := ""
	if study.FileName != nil {
		fileName = *study.FileName
	}
	return &studyDto.DownloadResponse{
		StudyID:  study.ID,
		FileURL:  *study.FileURL,
		FileName: fileName,
	}, nil
}

func toStudyResponse(study *entity.Study, commentCount, downloadCount int64) commonDto.StudyResponse {
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
		CommentCount:  commentCount,
		DownloadCount: downloadCount,
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

func toValidationResponse(v *entity.Validation) *commonDto.ValidationResponse {
	resp := &commonDto.ValidationResponse{
		ID:         v.ID,
		StudyID:    v.StudyID,
		Status:     v.Status,
		Notes:      v.Notes,
		ReviewedAt: v.ReviewedAt,
	}
	if v.Faculty.ID != uuid.Nil {
		resp.Faculty = &commonDto.AuthorResponse{
			ID:         v.Faculty.ID,
			FullName:   v.Faculty.FullName,
			Department: v.Faculty.Department,
		}
	}
	return resp
}
