package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	statService "github.com/spark-repository/spark-api/internal/modules/stat/service"
	"github.com/spark-repository/spark-api/pkg/response"
)

type StatHandler struct {
	service statService.StatService
}

func NewStatHandler(service statService.StatService) *StatHandler {
	return &StatHandler{service: service}
}

func (h *StatHandler) GetReviewStats(c *gin.Context) {
	stats, err := h.service.GetReviewStats(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": stats})
}
