package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader - заголовок с идентификатором запроса
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
)

// RequestID берет идентификатор из заголовка или генерирует новый
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)
		c.Next()
	}
}

// GetRequestID возвращает ID запроса из контекста
func GetRequestID(c *gin.Context) (string, bool) {
	requestID, exists := c.Get(requestIDKey)
	if !exists {
		return "", false
	}
	id, ok := requestID.(string)
	return id, ok
}
