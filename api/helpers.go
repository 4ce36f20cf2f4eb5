package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// currentUserID reads the authenticated user from the X-User-ID header.
// Authentication itself is delegated to the managed backend fronting
// this service; the header is the identity it forwards.
func currentUserID(c *gin.Context) (uint, bool) {
	raw := c.GetHeader("X-User-ID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid X-User-ID"})
		return 0, false
	}
	return uint(id), true
}
