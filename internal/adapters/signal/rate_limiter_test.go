package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRoomRateLimiterWindow(t *testing.T) {
	t.Parallel()
	now := time.Unix(1_700_000_000, 0)
	rl := NewRoomRateLimiter(2, 10*time.Second)
	rl.now = func() time.Time { return now }

	require.True(t, rl.Allow("alice"))
	require.True(t, rl.Allow("alice"))
	require.False(t, rl.Allow("alice"))
	require.True(t, rl.Allow("bob"))

	now = now.Add(11 * time.Second)
	require.True(t, rl.Allow("alice"))
}

func TestRoomRateLimiterForget(t *testing.T) {
	t.Parallel()
	rl := NewRoomRateLimiter(1, time.Minute)
	require.True(t, rl.Allow("alice"))
	require.False(t, rl.Allow("alice"))
	rl.Forget("alice")
	require.True(t, rl.Allow("alice"))
}
