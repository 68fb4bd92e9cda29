package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const defaultEventLimit = 100

// ListEvents returns undelivered workflow events, oldest first
func (h *Handler) ListEvents(c *gin.Context) {
	limit := defaultEventLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	events, err := h.Outbox.PendingEvents(c.Request.Context(), limit)
	if err != nil {
		h.Log.Error("list events failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not list events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// AckEvents marks events as delivered to the workflow system
func (h *Handler) AckEvents(c *gin.Context) {
	var req struct {
		IDs []uint `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Outbox.MarkDelivered(c.Request.Context(), req.IDs...); err != nil {
		h.Log.Error("ack events failed", "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not acknowledge events"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"acknowledged": len(req.IDs)})
}
