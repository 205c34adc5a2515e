package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/txlink/internal/models"
)

// SearchHandler serves background searches.
type SearchHandler struct {
	queue SearchQueue
	log   *logrus.Logger
}

// NewSearchHandler creates a SearchHandler with the given queue and logger.
func NewSearchHandler(queue SearchQueue, log *logrus.Logger) *SearchHandler {
	return &SearchHandler{queue: queue, log: log}
}

// createSearchRequest is the body of POST /api/v1/searches.
type createSearchRequest struct {
	Source      string `json:"source" binding:"required"`
	Target      string `json:"target" binding:"required"`
	MaxDepth    int    `json:"max_depth"`
	Direction   string `json:"direction"`
	Deadline    string `json:"deadline"`
	Workers     int    `json:"workers"`
	ProbeTarget bool   `json:"probe_target"`
}

// createSearchResponse acknowledges a queued search.
type createSearchResponse struct {
	ID     string          `json:"id"`
	Status models.JobState `json:"status"`
}

// Create handles POST /api/v1/searches.
func (h *SearchHandler) Create(c *gin.Context) {
	var body createSearchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	params := searchParams{
		Depth:       body.MaxDepth,
		Direction:   body.Direction,
		Deadline:    body.Deadline,
		Workers:     body.Workers,
		ProbeTarget: body.ProbeTarget,
	}

	req, err := params.request(body.Source, body.Target)
	if err != nil {
		respondSearchError(c, h.log, err)

		return
	}

	job, err := h.queue.Submit(req)
	if err != nil {
		respondSearchError(c, h.log, err)

		return
	}

	c.Set("search_id", job.ID)
	c.Header("Location", fmt.Sprintf("%s/%s", c.FullPath(), job.ID))
	c.JSON(http.StatusAccepted, createSearchResponse{ID: job.ID, Status: job.State})
}

// Get handles GET /api/v1/searches/:id.
func (h *SearchHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "search id must be a UUID")

		return
	}

	job, err := h.queue.GetJob(id)
	if err != nil {
		respondSearchError(c, h.log, err)

		return
	}

	c.Set("search_id", job.ID)
	c.JSON(http.StatusOK, job)
}
