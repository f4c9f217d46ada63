package network

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPendingRequestsResolveDeliversResponse(t *testing.T) {
	pr := NewPendingRequests()
	id, ch, err := pr.Register()
	require.NoError(t, err)
	defer pr.Release(id)

	pr.Resolve(id, []byte("pong"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := pr.Await(ctx, ch)
	require.NoError(t, err)
	require.Equal(t, []byte("pong"), got)
}

func TestPendingRequestsAwaitRespectsContextDeadline(t *testing.T) {
	pr := NewPendingRequests()
	_, ch, err := pr.Register()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	_, err = pr.Await(ctx, ch)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPendingRequestsShutdownCancelsOutstandingAwaits(t *testing.T) {
	pr := NewPendingRequests()
	_, ch, err := pr.Register()
	require.NoError(t, err)

	pr.Shutdown()

	_, err = pr.Await(context.Background(), ch)
	require.ErrorIs(t, err, ErrRequestCancelled)

	_, _, err = pr.Register()
	require.ErrorIs(t, err, ErrNetworkClosed)
}
