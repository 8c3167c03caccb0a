package http

import (
	"errors"
	"net/http"

	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var ErrForeignPeer = errors.New("peer is not a live connection of the caller")

func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrAuth):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForeignPeer), errors.Is(err, orch.ErrNotInChannel):
		return http.StatusForbidden
	case errors.Is(err, core.ErrProviderTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrCannotConsume), errors.Is(err, core.ErrInvalid):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
