package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorClasses(t *testing.T) {
	t.Parallel()
	for _, err := range []error{ErrRoomNotFound, ErrPeerNotFound, ErrTransportNotFound, ErrProducerNotFound, ErrConsumerNotFound, ErrProducerGone, ErrRoomClosed} {
		require.ErrorIs(t, err, ErrNotFound, err.Error())
		require.True(t, IsCallerError(err))
	}
	for _, err := range []error{ErrTransportNotConnected, ErrWrongDirection, ErrNotOwner, ErrRoomNotEmpty} {
		require.ErrorIs(t, err, ErrConflict, err.Error())
	}
	require.ErrorIs(t, ErrProviderTimeout, ErrProviderFailure)
	require.False(t, IsCallerError(ErrProviderTimeout))
	require.False(t, IsCallerError(errors.New("boom")))
}
