package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	validationDto "github.com/spark-repository/spark-api/internal/modules/validation/dto"
	validation "github.com/spark-repository/spark-api/internal/modules/validation/service"
	"github.com/spark-repository/spark-api/pkg/response"
	"github.com/spark-repository/spark-api/pkg/validator"
)

type ValidationHandler struct {
	service validation.ValidationService
}

func NewValidationHandler(service validation.ValidationService) *ValidationHandler {
	return &ValidationHandler{service: service}
}

func (h *ValidationHandler) GetPendingSubmissions(c *gin.Context) {
	studies, err := h.service.GetPendingSubmissions(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": studies})
}

func (h *ValidationHandler) Decide(c *gin.Context) {
	facultyID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	studyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return
	}

	var req validationDto.DecideInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	decision, err := h.service.Decide(c.Request.Context(), facultyID, studyID, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": decision})
}

func (h *ValidationHandler) GetHistory(c *gin.Context) {
	studyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid uuid format"})
		return
	}

	history, err := h.service.GetHistory(c.Request.Context(), studyID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": history})
}
