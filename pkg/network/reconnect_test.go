package network_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZentaChain/wasocket/pkg/network"
)

func TestNextBackoff(t *testing.T) {
	tests := []struct {
		current time.Duration
		limit   time.Duration
		want    time.Duration
	}{
		{time.Second, 30 * time.Second, 2 * time.Second},
		{16 * time.Second, 30 * time.Second, 30 * time.Second},
		{30 * time.Second, 30 * time.Second, 30 * time.Second},
		{time.Duration(1 << 62), time.Hour, time.Hour},
	}
	for _, tt := range tests {
		if got := network.NextBackoff(tt.current, tt.limit); got != tt.want {
			t.Errorf("NextBackoff(%v, %v) = %v, want %v", tt.current, tt.limit, got, tt.want)
		}
	}
}

// instantAfter records the requested delays and fires immediately.
func instantAfter(delays *[]time.Duration) func(time.Duration) <-chan time.Time {
	return func(d time.Duration) <-chan time.Time {
		*delays = append(*delays, d)
		ch := make(chan time.Time, 1)
		ch <- time.Time{}
		return ch
	}
}

func TestReconnectorBacksOffUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := 0
	r := &network.Reconnector{
		Initial: time.Second,
		Max:     4 * time.Second,
		Log:     zerolog.Nop(),
		Connect: func(context.Context) (*network.Session, error) {
			attempts++
			if attempts == 5 {
				cancel()
			}
			return nil, errors.New("dial refused")
		},
	}
	var delays []time.Duration
	network.SetAfter(r, instantAfter(&delays))

	err := r.Run(ctx, func(context.Context, *network.Session) error {
		t.Fatal("handler must not run without a session")
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 5, attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second}, delays)
}

func TestReconnectorStartsNewSessionAfterFailure(t *testing.T) {
	attempts := 0
	r := &network.Reconnector{
		Initial: time.Second,
		Max:     time.Minute,
		Log:     zerolog.Nop(),
		Connect: func(context.Context) (*network.Session, error) {
			attempts++
			if attempts == 2 {
				return nil, errors.New("dial refused")
			}
			session, _ := mustConnect(t)
			return session, nil
		},
	}
	var delays []time.Duration
	network.SetAfter(r, instantAfter(&delays))

	var sessions []*network.Session
	err := r.Run(context.Background(), func(_ context.Context, s *network.Session) error {
		sessions = append(sessions, s)
		if len(sessions) == 1 {
			return errors.New("connection lost")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	require.Len(t, sessions, 2)
	assert.NotSame(t, sessions[0], sessions[1])
	// Both sessions were closed by the reconnector.
	for _, s := range sessions {
		assert.ErrorIs(t, s.Err(), network.ErrSessionClosed)
	}
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
}
