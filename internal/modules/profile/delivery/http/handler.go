package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	profileDto "github.com/spark-repository/spark-api/internal/modules/profile/dto"
	profile "github.com/spark-repository/spark-api/internal/modules/profile/service"
	commonDto "github.com/spark-repository/spark-api/pkg/dto"
	"github.com/spark-repository/spark-api/pkg/response"
	"github.com/spark-repository/spark-api/pkg/validator"
)

type ProfileHandler struct {
	service profile.ProfileService
}

func NewProfileHandler(service profile.ProfileService) *ProfileHandler {
	return &ProfileHandler{service: service}
}

func (h *ProfileHandler) GetMe(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	me, err := h.service.GetCurrentProfile(c.Request.Context(), userID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": me})
}

func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, err := response.GetUserID(c)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req profileDto.UpdateProfileInput
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err)})
		return
	}

	// Avatar is an optional multipart part.
	var avatar *commonDto.UploadFile
	if fileHeader, err := c.FormFile("avatar"); err == nil {
		opened, err := fileHeader.Open()
		if err != nil {
			response.ResponseError(c, err)
			return
		}
		defer opened.Close()

		avatar = &commonDto.UploadFile{
			Reader:      opened,
			FileName:    fileHeader.Filename,
			Size:        fileHeader.Size,
			ContentType: fileHeader.Header.Get("Content-Type"),
		}
	}

	updated, err := h.service.UpdateProfile(c.Request.Context(), userID, req, avatar)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": updated})
}
