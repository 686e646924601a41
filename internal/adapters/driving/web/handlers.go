package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/taskbridge/internal/core/domain"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

func (s *Server) handleDashboard(c *gin.Context) {
	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"baseTopic": s.baseTopic,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.health.Health())
}

func (s *Server) handleTokenStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.tokens.Status())
}

func (s *Server) handleHistory(c *gin.Context) {
	taskID := c.DefaultQuery("task", domain.TaskIDTaskSync)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if limit < 1 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	if s.history == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "results": []domain.TaskRunResult{}})
		return
	}

	results, err := s.history.GetTaskHistory(c.Request.Context(), taskID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if results == nil {
		results = []domain.TaskRunResult{}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "results": results})
}

func (s *Server) handleSyncTasks(c *gin.Context) {
	result, err := s.syncOrch.Run(c.Request.Context())
	if err != nil {
		c.JSON(statusForError(err), gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// refreshTokenRequest is the optional body for the refresh endpoint. With a
// refresh_token present the call re-authorizes; without a body it forces a
// normal refresh round-trip.
type refreshTokenRequest struct {
	RefreshToken     string `json:"refresh_token"`
	RefreshExpiresIn int64  `json:"refresh_expires_in"`
}

func (s *Server) handleRefreshToken(c *gin.Context) {
	var req refreshTokenRequest
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
	}

	var err error
	if req.RefreshToken != "" {
		err = s.tokens.Reauthorize(c.Request.Context(), req.RefreshToken, req.RefreshExpiresIn)
	} else {
		err = s.tokens.Refresh(c.Request.Context())
	}
	if err != nil {
		c.JSON(statusForError(err), gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "status": s.tokens.Status()})
}

// publishRequest is the body for the raw publish endpoint.
type publishRequest struct {
	Topic   string `json:"topic" binding:"required"`
	Message string `json:"message" binding:"required"`
}

func (s *Server) handlePublish(c *gin.Context) {
	var req publishRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "topic and message are required"})
		return
	}

	if err := s.publisher.Publish(c.Request.Context(), req.Topic, []byte(req.Message)); err != nil {
		c.JSON(statusForError(err), gin.H{"success": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrCredentialsInvalid),
		errors.Is(err, domain.ErrAuthRejected),
		domain.IsTerminalCredentialError(err):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotConnected):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
