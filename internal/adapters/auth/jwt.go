// Package auth verifies the bearer tokens issued by the account service.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	nameClaim   = "name"
	defaultSkew = 5 * time.Second
)

var ErrNoSecret = errors.New("auth secret is empty")

// JWTVerifier checks HS256 tokens. The subject is the user id; the optional
// name claim carries the display name.
type JWTVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewJWTVerifier(secret, issuer string) (*JWTVerifier, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

var _ core.Verifier = (*JWTVerifier)(nil)

func (v *JWTVerifier) Verify(_ context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", core.ErrAuth)
	}
	opts := []jwt.ParseOption{
		jwt.WithKey(jwa.HS256, v.secret),
		jwt.WithValidate(true),
		jwt.WithRequiredClaim(jwt.ExpirationKey),
		jwt.WithAcceptableSkew(defaultSkew),
		jwt.WithClock(jwt.ClockFunc(v.now)),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	parsed, err := jwt.ParseString(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrAuth, err)
	}
	var name string
	if raw, ok := parsed.Get(nameClaim); ok {
		name, _ = raw.(string)
	}
	user, err := domain.NewUser(domain.UserID(parsed.Subject()), name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrAuth, err)
	}
	return user, nil
}

// Issue signs a token for user valid for ttl. Used by the dev token tool
// and tests; production tokens come from the account service.
func (v *JWTVerifier) Issue(user domain.User, ttl time.Duration) (string, error) {
	now := v.now()
	b := jwt.NewBuilder().
		Subject(string(user.ID)).
		IssuedAt(now).
		Expiration(now.Add(ttl))
	if v.issuer != "" {
		b = b.Issuer(v.issuer)
	}
	if user.Username != "" {
		b = b.Claim(nameClaim, user.Username)
	}
	tok, err := b.Build()
	if err != nil {
		return "", err
	}
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, v.secret))
	if err != nil {
		return "", err
	}
	return string(signed), nil
}
