package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	studyDto "github.com/spark-repository/spark-api/internal/modules/study/dto"
	commonDto "github.com/spark-repository/spark-api/pkg/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubStudyService struct {
	submitted []studyDto.SubmitStudyInput
}

func (s *stubStudyService) SubmitStudy(ctx context.Context, userID uuid.UUID, input studyDto.SubmitStudyInput, file commonDto.UploadFile) (*commonDto.StudyResponse, error) {
	s.submitted = append(s.submitted, input)
	return &commonDto.StudyResponse{ID: uuid.New(), Title: input.Title}, nil
}

func (s *stubStudyService) GetCatalog(ctx context.Context, filter commonDto.CatalogFilter) ([]commonDto.StudyResponse, error) {
	return nil, nil
}

func (s *stubStudyService) GetPublishedYears(ctx context.Context) ([]int, error) { return nil, nil }

func (s *stubStudyService) GetPublishedStudy(ctx context.Context, id uuid.UUID) (*commonDto.StudyResponse, error) {
	return nil, nil
}

func (s *stubStudyService) GetMySubmissions(ctx context.Context, userID uuid.UUID) ([]studyDto.MySubmissionResponse, error) {
	return nil, nil
}

func (s *stubStudyService) DeleteOwnStudy(ctx context.Context, userID, studyID uuid.UUID) error {
	return nil
}

func (s *stubStudyService) RecordDownload(ctx context.Context, studyID uuid.UUID, downloaderID *uuid.UUID) (*studyDto.DownloadResponse, error) {
	return nil, nil
}

func newSubmitRouter(svc *stubStudyService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewStudyHandler(svc)
	router := gin.New()
	router.POST("/api/studies", func(c *gin.Context) {
		c.Set("user_id", uuid.New().String())
		handler.SubmitStudy(c)
	})
	return router
}

func validSubmitFields() map[string]string {
	return map[string]string{
		"title":          "Indexing Strategies for Research Catalogs",
		"abstract":       strings.Repeat("a", 100),
		"adviser":        "Dr. Example",
		"date_completed": "2025-01-10",
		"keywords":       "databases, indexing, catalogs",
		"department":     "Computer Science",
		"category_id":    uuid.New().String(),
	}
}

func postSubmission(t *testing.T, router *gin.Engine, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="thesis.pdf"`)
	header.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.7"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/studies", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	router.ServeHTTP(rec, req)
	return rec
}

func TestSubmitStudyAbstractLengthBoundary(t *testing.T) {
	svc := &stubStudyService{}
	router := newSubmitRouter(svc)

	fields := validSubmitFields()
	fields["abstract"] = strings.Repeat("a", 99)
	rec := postSubmission(t, router, fields)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "99-char abstract is below the minimum")
	assert.Empty(t, svc.submitted)

	fields["abstract"] = strings.Repeat("a", 100)
	rec = postSubmission(t, router, fields)
	assert.Equal(t, http.StatusCreated, rec.Code, "100-char abstract is the minimum")
	assert.Len(t, svc.submitted, 1)
}

func TestSubmitStudyTitleLengthBounds(t *testing.T) {
	svc := &stubStudyService{}
	router := newSubmitRouter(svc)

	fields := validSubmitFields()
	fields["title"] = "abcd"
	rec := postSubmission(t, router, fields)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "4-char title is below the minimum")

	fields["title"] = strings.Repeat("t", 5)
	rec = postSubmission(t, router, fields)
	assert.Equal(t, http.StatusCreated, rec.Code)

	fields["title"] = strings.Repeat("t", 300)
	rec = postSubmission(t, router, fields)
	assert.Equal(t, http.StatusCreated, rec.Code, "300-char title is the maximum")

	fields["title"] = strings.Repeat("t", 301)
	rec = postSubmission(t, router, fields)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Len(t, svc.submitted, 2)
}

func TestSubmitStudyRequiresDepartmentAndCategory(t *testing.T) {
	svc := &stubStudyService{}
	router := newSubmitRouter(svc)

	fields := validSubmitFields()
	delete(fields, "department")
	rec := postSubmission(t, router, fields)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	fields = validSubmitFields()
	delete(fields, "category_id")
	rec = postSubmission(t, router, fields)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	fields = validSubmitFields()
	fields["category_id"] = "not-a-uuid"
	rec = postSubmission(t, router, fields)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, svc.submitted)
}
