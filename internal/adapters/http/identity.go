package http

import (
	"net/http"
	"strings"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const (
	sessionTokenKey = "token"
	userKey         = "user"
)

// tokenFrom looks for a bearer token in the Authorization header, then the
// token query parameter (browsers cannot set headers on a WS upgrade), then
// the cookie session.
func tokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	if tok := c.Query("token"); tok != "" {
		return tok
	}
	if tok, ok := sessions.Default(c).Get(sessionTokenKey).(string); ok {
		return tok
	}
	return ""
}

// Authenticate rejects the request with 401 unless it carries a valid token.
func Authenticate(v core.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := v.Verify(c.Request.Context(), tokenFrom(c))
		if err != nil {
			log.Info().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("unauthenticated")
			abortWithError(c, err)
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

// CurrentUser is the user Authenticate stored on the context.
func CurrentUser(c *gin.Context) *domain.User {
	if u, ok := c.Get(userKey); ok {
		if user, ok := u.(*domain.User); ok {
			return user
		}
	}
	return nil
}

type sessionRequest struct {
	Token string `json:"token"`
}

// createSession trades a bearer token for a cookie session.
func createSession(v core.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sessionRequest
		_ = c.ShouldBindJSON(&req)
		tok := req.Token
		if tok == "" {
			tok = tokenFrom(c)
		}
		user, err := v.Verify(c.Request.Context(), tok)
		if err != nil {
			abortWithError(c, err)
			return
		}
		s := sessions.Default(c)
		s.Set(sessionTokenKey, tok)
		if err := s.Save(); err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("save session")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session not saved"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}
