package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/culturemap/internal/jobs"
	"github.com/timmy/culturemap/internal/service"
)

// FeedHandler handles feed synchronisation runs.
type FeedHandler struct {
	feed *service.FeedService
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(feed *service.FeedService) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// Submit handles POST /api/v1/feed/runs.
func (h *FeedHandler) Submit(c *gin.Context) {
	run, err := h.feed.Submit(c.Request.Context())
	if err != nil {
		if errors.Is(err, jobs.ErrAlreadyQueued) || errors.Is(err, jobs.ErrQueueFull) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "run": run})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, run)
}

// List handles GET /api/v1/feed/runs.
func (h *FeedHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	runs, err := h.feed.List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

// Get handles GET /api/v1/feed/runs/:id.
func (h *FeedHandler) Get(c *gin.Context) {
	run, err := h.feed.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}
