package handlers

import "github.com/gin-gonic/gin"

// getBusinessID returns the authenticated business ID from the request
// context, or zero when unauthenticated.
func getBusinessID(c *gin.Context) uint64 {
	value, ok := c.Get("businessID")
	if !ok {
		return 0
	}
	id, ok := value.(uint64)
	if !ok {
		return 0
	}
	return id
}
