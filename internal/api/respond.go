package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nazm-contest-api/internal/apperror"
	"github.com/nazm-contest-api/internal/auth"
	"github.com/rs/zerolog"
)

const principalKey = "principal"

// principalFrom returns the caller resolved by authMiddleware; anonymous callers get the zero principal
func principalFrom(c *gin.Context) auth.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(auth.Principal); ok {
			return p
		}
	}
	return auth.Principal{}
}

// statusFor maps an engine error kind to its HTTP status
func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindPermissionDenied:
		return http.StatusForbidden
	case apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindTransport:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as JSON. Anonymous callers denied access get 401.
func writeError(c *gin.Context, log zerolog.Logger, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unclassified error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	status := statusFor(appErr.Kind)
	if appErr.Kind == apperror.KindPermissionDenied && !principalFrom(c).Authenticated() {
		status = http.StatusUnauthorized
	}
	if appErr.Kind == apperror.KindTransport {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Collaborator failure")
	}

	body := gin.H{
		"error": appErr.Error(),
		"kind":  appErr.Kind,
	}
	if appErr.Field != "" {
		body["field"] = appErr.Field
	}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	c.JSON(status, body)
}

// requireRole writes the authorization error and returns false when the
// caller lacks role. Handlers that parse a body call it first.
func requireRole(c *gin.Context, log zerolog.Logger, role auth.Role) bool {
	if err := auth.Authorize(principalFrom(c), role); err != nil {
		writeError(c, log, err)
		return false
	}
	return true
}

// badRequest reports a malformed request that never reached the engine
func badRequest(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": field + ": " + message,
		"kind":  apperror.KindValidation,
		"field": field,
	})
}
