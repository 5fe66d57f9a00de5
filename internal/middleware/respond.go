package middleware

import "github.com/gin-gonic/gin"

// abortWithError stops the chain and writes the standard error envelope.
// It mirrors internal/errors, which cannot be imported from here.
func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":       code,
			"message":    message,
			"request_id": GetRequestID(c),
		},
	})
}
