package handler

import (
	"errors"
	"net/http"

	"agentcoord/internal/coordinator"

	"github.com/gin-gonic/gin"
)

// writeError maps coordinator errors to HTTP status codes
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, coordinator.ErrInvalidDescriptor),
		errors.Is(err, coordinator.ErrInvalidTask):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, coordinator.ErrUnknownAgent),
		errors.Is(err, coordinator.ErrUnknownTask):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, coordinator.ErrOutcomeMismatch):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, coordinator.ErrHasActiveTasks):
		// Drain accepted, retirement completes asynchronously.
		c.JSON(http.StatusAccepted, gin.H{"message": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
