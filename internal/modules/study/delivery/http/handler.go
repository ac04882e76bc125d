package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	studyDto "github.com/spark-repository/spark-api/internal/modules/study/dto"
	study "github.com/spark-repository/spark-api/internal/modules/study/service"
	commonDto "github.com/spark-repository/spark-api/pkg/dto"
	"github.com/spark-repository/spark-api/pkg/response"
	"github.com/spark-repository/spark-api/pkg/validator"
)

type StudyHandler struct {
	service study.StudyService
}

func NewStudyHandler(service study.StudyService) *StudyHandler {
	return &StudyHandler{service: service}
}

func (h *StudyHandler) SubmitStudy(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req studyDto.SubmitStudyInput
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a PDF file is required"})
		return
	}

	opened, err := fileHeader.Open()
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	defer opened.Close()

	file := commonDto.UploadFile{
		Reader:      opened,
		FileName:    fileHeader.Filename,
		Size:        fileHeader.Size,
		ContentType: fileHeader.Header.Get("Content-Type"),
	}

	created, err := h.service.SubmitStudy(c.Request.Context(), userID, req, file)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": created})
}

func (h *StudyHandler) GetCatalog(c *gin.Context) {
	var filter commonDto.CatalogFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	studies, err := h.service.GetCatalog(c.Request.Context(), filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": studies})
}

func (h *StudyHandler) GetYears(c *gin.Context) {
	years, err := h.service.GetPublishedYears(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, studyDto.YearsResponse{Years: years})
}

func (h *StudyHandler) GetStudy(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return
	}

	found, err := h.service.GetPublishedStudy(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": found})
}

func (h *StudyHandler) GetMySubmissions(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	submissions, err := h.service.GetMySubmissions(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": submissions})
}

func (h *StudyHandler) DeleteStudy(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return
	}

	if err := h.service.DeleteOwnStudy(c.Request.Context(), userID, id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "study deleted successfully"})
}

func (h *StudyHandler) Download(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return
	}

	// Downloads work logged-in or anonymous; the downloader is recorded when known.
	var downloaderID *uuid.UUID
	if userID, err := response.GetUserID(c); err == nil {
		downloaderID = &userID
	}

	result, err := h.service.RecordDownload(c.Request.Context(), id, downloaderID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
