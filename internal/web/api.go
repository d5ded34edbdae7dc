package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/spacesedan/tweetsense/config"
	"github.com/spacesedan/tweetsense/internal/analysis"
	"github.com/spacesedan/tweetsense/internal/feed"
	"github.com/spacesedan/tweetsense/internal/models"
)

type sentimentRequest struct {
	Text string `json:"text"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) analyzeTextJSON(c *gin.Context) {
	var req sentimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	a, err := s.svc.AnalyzeText(c.Request.Context(), req.Text)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (s *Server) analyzeUserJSON(c *gin.Context) {
	count, err := strconv.Atoi(c.DefaultQuery("count", strconv.Itoa(config.DefaultPostCount)))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "count must be an integer"})
		return
	}

	report, err := s.svc.AnalyzeUser(c.Request.Context(), c.Param("username"), count)
	if errors.Is(err, feed.ErrNoPosts) {
		c.JSON(http.StatusOK, gin.H{"report": report, "message": err.Error()})
		return
	}
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": report})
}

func (s *Server) recentJSON(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(recentOnPage)))
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "limit must be a positive integer"})
		return
	}

	analyses, err := s.svc.Recent(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if analyses == nil {
		analyses = []models.Analysis{}
	}
	c.JSON(http.StatusOK, gin.H{"analyses": analyses})
}

// writeError maps service errors onto status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case isInputError(err):
		status = http.StatusBadRequest
	case errors.Is(err, feed.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, analysis.ErrFeedDisabled):
		status = http.StatusServiceUnavailable
	case isFetchError(err):
		status = http.StatusBadGateway
	default:
		_ = c.Error(err)
	}
	c.JSON(status, errorResponse{Error: err.Error()})
}
