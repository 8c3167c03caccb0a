package app

import (
	"sync/atomic"
	"testing"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/core/coretest"
	"github.com/stretchr/testify/require"
)

func TestRegistryBindUnbind(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	alice := coretest.User("alice")

	s1, _ := coretest.Session("s1", alice)
	s2, _ := coretest.Session("s2", alice)
	require.True(t, reg.Bind("s1", s1, nil))
	require.False(t, reg.Bind("s2", s2, nil))
	require.ElementsMatch(t, []core.SessionID{"s1", "s2"}, reg.ConnectionsFor("alice"))
	require.True(t, reg.Owns("alice", "s2"))
	require.False(t, reg.Owns("bob", "s2"))

	user, offline, ok := reg.Unbind("s1")
	require.True(t, ok)
	require.False(t, offline)
	require.Equal(t, alice, user)
	require.True(t, reg.Online("alice"))

	_, offline, ok = reg.Unbind("s2")
	require.True(t, ok)
	require.True(t, offline)
	require.False(t, reg.Online("alice"))
	require.Empty(t, reg.ConnectionsFor("alice"))
	require.Zero(t, reg.UserCount())

	// Repeated unbinds are no-ops.
	_, offline, ok = reg.Unbind("s2")
	require.False(t, ok)
	require.False(t, offline)
}

func TestRegistryCancel(t *testing.T) {
	t.Parallel()
	reg := NewRegistry()
	sess, _ := coretest.Session("s1", coretest.User("alice"))

	var canceled atomic.Int32
	reg.Bind("s1", sess, func() { canceled.Add(1) })

	require.True(t, reg.Cancel("s1"))
	require.EqualValues(t, 1, canceled.Load())
	require.False(t, reg.Cancel("missing"))
}
