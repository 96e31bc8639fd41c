package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apikeydomain "github.com/salestext/dtax-crm/internal/apikey/domain"
)

const (
	headerAPIKey  = "X-API-Key"
	contextAPIKey = "api_key"
)

// DialerAuth authenticates the external dialer API with an API key and
// the given permission. Every authenticated call is recorded after the
// handler runs, whatever its status.
func (s *Server) DialerAuth(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		key, err := s.apiKeySvc.Validate(c.Request.Context(), c.GetHeader(headerAPIKey), permission)
		if err != nil {
			status, message := dialerAuthFailure(err)
			c.AbortWithStatusJSON(status, dialerError(message))
			return
		}

		c.Set(contextAPIKey, key)
		c.Next()

		s.apiKeySvc.LogCall(c.Request.Context(), apikeydomain.LogEntry{
			APIKeyID:       key.ID,
			Endpoint:       c.FullPath(),
			Method:         c.Request.Method,
			StatusCode:     c.Writer.Status(),
			IPAddress:      c.ClientIP(),
			UserAgent:      c.Request.UserAgent(),
			ResponseTimeMs: time.Since(start).Milliseconds(),
		})
	}
}

func dialerAuthFailure(err error) (int, string) {
	switch {
	case err == apikeydomain.ErrMissingKey:
		return http.StatusUnauthorized, "API key required"
	case err == apikeydomain.ErrUnknownKey:
		return http.StatusUnauthorized, "invalid API key"
	case err == apikeydomain.ErrInactiveKey:
		return http.StatusUnauthorized, "API key is inactive"
	case err == apikeydomain.ErrExpiredKey:
		return http.StatusUnauthorized, "API key has expired"
	}
	if permErr, ok := err.(*apikeydomain.PermissionError); ok {
		return http.StatusUnauthorized, "missing permission: " + permErr.Permission
	}
	return http.StatusInternalServerError, "authentication failed"
}

// Dialer responses use a {success, data|error} envelope.
func dialerOK(data interface{}) gin.H {
	return gin.H{"success": true, "data": data}
}

func dialerError(message string) gin.H {
	return gin.H{"success": false, "error": message}
}
