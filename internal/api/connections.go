package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/persistorai/txlink/internal/models"
)

// ConnectionHandler serves synchronous connection lookups.
type ConnectionHandler struct {
	finder ConnectionFinder
	log    *logrus.Logger
}

// NewConnectionHandler creates a ConnectionHandler with the given finder and logger.
func NewConnectionHandler(finder ConnectionFinder, log *logrus.Logger) *ConnectionHandler {
	return &ConnectionHandler{finder: finder, log: log}
}

// Find handles GET /api/v1/connections/:source/:target.
//
// Both found and not-found outcomes are 200; the body's status and reason
// tell them apart. Deadlines are capped for requests held open by the server.
func (h *ConnectionHandler) Find(c *gin.Context) {
	params, err := parseSearchQuery(c)
	if err != nil {
		respondSearchError(c, h.log, err)

		return
	}

	req, err := params.request(c.Param("source"), c.Param("target"))
	if err != nil {
		respondSearchError(c, h.log, err)

		return
	}

	if req.Deadline == 0 || req.Deadline > maxSyncDeadline {
		req.Deadline = maxSyncDeadline
	}

	res, err := h.finder.FindConnection(c.Request.Context(), req)
	if err != nil {
		respondSearchError(c, h.log, err)

		return
	}

	c.Set("search_id", res.ID)
	c.JSON(http.StatusOK, res)
}

func parseSearchQuery(c *gin.Context) (searchParams, error) {
	var (
		p   searchParams
		err error
	)

	if p.Depth, err = queryInt(c.Query("depth"), "depth"); err != nil {
		return p, err
	}

	if p.Workers, err = queryInt(c.Query("workers"), "workers"); err != nil {
		return p, err
	}

	if v := c.Query("probe_target"); v != "" {
		if p.ProbeTarget, err = strconv.ParseBool(v); err != nil {
			return p, fmt.Errorf("%w: probe_target must be a boolean", models.ErrInvalidInput)
		}
	}

	p.Direction = c.Query("direction")
	p.Deadline = c.Query("deadline")

	return p, nil
}
