package auth

import (
	"context"
	"testing"
	"time"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/stretchr/testify/require"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	t.Parallel()
	v, err := NewJWTVerifier("s3cret", "huddle")
	require.NoError(t, err)

	tok, err := v.Issue(domain.User{ID: "u-42", Username: "Ada"}, time.Hour)
	require.NoError(t, err)

	user, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	require.Equal(t, domain.UserID("u-42"), user.ID)
	require.Equal(t, "Ada", user.Username)
}

func TestVerifyNameFallsBackToSubject(t *testing.T) {
	t.Parallel()
	v, err := NewJWTVerifier("s3cret", "")
	require.NoError(t, err)
	tok, err := v.Issue(domain.User{ID: "u-7"}, time.Minute)
	require.NoError(t, err)

	user, err := v.Verify(context.Background(), tok)
	require.NoError(t, err)
	require.Equal(t, "u-7", user.Username)
}

func TestVerifyRejects(t *testing.T) {
	t.Parallel()
	v, err := NewJWTVerifier("s3cret", "huddle")
	require.NoError(t, err)
	other, err := NewJWTVerifier("different", "huddle")
	require.NoError(t, err)
	foreign, err := NewJWTVerifier("s3cret", "someone-else")
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	expired, err := NewJWTVerifier("s3cret", "huddle")
	require.NoError(t, err)
	expired.now = func() time.Time { return past }

	wrongKey, err := other.Issue(domain.User{ID: "u1"}, time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := foreign.Issue(domain.User{ID: "u1"}, time.Hour)
	require.NoError(t, err)
	stale, err := expired.Issue(domain.User{ID: "u1"}, time.Minute)
	require.NoError(t, err)
	noSubject, err := v.Issue(domain.User{}, time.Hour)
	require.NoError(t, err)

	cases := map[string]string{
		"empty":        "",
		"garbage":      "not.a.jwt",
		"wrong key":    wrongKey,
		"wrong issuer": wrongIssuer,
		"expired":      stale,
		"no subject":   noSubject,
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), tok)
			require.ErrorIs(t, err, core.ErrAuth)
		})
	}
}

func TestNewJWTVerifierNeedsSecret(t *testing.T) {
	t.Parallel()
	_, err := NewJWTVerifier("", "")
	require.ErrorIs(t, err, ErrNoSecret)
}
