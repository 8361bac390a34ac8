package handlers

import (
	"errors"
	"net/http"

	"waitwith/internal/models"
	"waitwith/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type DDayHandler struct {
	service *services.DDayService
	logger  *logrus.Logger
}

func NewDDayHandler(service *services.DDayService, logger *logrus.Logger) *DDayHandler {
	return &DDayHandler{service: service, logger: logger}
}

type ddayRequest struct {
	Query string `json:"query"`
}

type confirmRequest struct {
	Source     string `json:"source"`
	ExternalID string `json:"external_id"`
	Query      string `json:"query"`
}

// Register handles POST /dday: resolve the query and subscribe the user,
// or return the existing entry when the user already waits on the title.
func (h *DDayHandler) Register(c *gin.Context) {
	var req ddayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid request body"})
		return
	}

	view, err := h.service.Register(c.Request.Context(), currentUser(c), req.Query)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// List handles GET /dday: the user's entries with freshly computed labels.
func (h *DDayHandler) List(c *gin.Context) {
	views, err := h.service.ListMine(c.Request.Context(), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if views == nil {
		views = []models.DDayView{}
	}
	c.JSON(http.StatusOK, views)
}

// Longest handles GET /dday/longest: the furthest future release among the
// user's entries.
func (h *DDayHandler) Longest(c *gin.Context) {
	view, err := h.service.Longest(c.Request.Context(), currentUser(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Confirm handles POST /dday/confirm: the explicit create step after a
// streaming preview.
func (h *DDayHandler) Confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Source == "" || req.ExternalID == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "source and external_id are required"})
		return
	}

	view, err := h.service.Confirm(c.Request.Context(), currentUser(c), req.Source, req.ExternalID, req.Query)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *DDayHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyQuery):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "query must not be empty"})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "영화를 찾지 못했습니다. 제목이나 연도를 다시 알려주세요."})
	case errors.Is(err, services.ErrNoUpcomingRelease):
		c.JSON(http.StatusBadRequest, gin.H{"error": "예정된 개봉일이 없어 D-Day를 만들 수 없어요."})
	case errors.Is(err, services.ErrUpstream):
		c.JSON(http.StatusBadGateway, gin.H{"error": "영화 정보를 불러오는 중 문제가 발생했습니다."})
	default:
		h.logger.WithError(err).Error("Unhandled error in dday handler")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
