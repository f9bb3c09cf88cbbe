package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// queryLimit reads the optional "limit" query parameter. Zero means the
// service default; services clamp larger values to their own maximum.
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return limit, true
}
