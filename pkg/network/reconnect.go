package network

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Reconnector keeps a session alive for callers that want one. A failed
// session is never repaired: every attempt runs a fresh handshake.
type Reconnector struct {
	// Connect establishes a new session.
	Connect func(ctx context.Context) (*Session, error)
	// Initial and Max bound the exponential backoff between attempts.
	Initial time.Duration
	Max     time.Duration
	Log     zerolog.Logger

	// after is replaced in tests.
	after func(time.Duration) <-chan time.Time
}

// Run connects and calls handle with each session until handle returns nil
// or ctx is cancelled. The session is closed after handle returns. An error
// from handle or from Connect schedules another attempt.
func (r *Reconnector) Run(ctx context.Context, handle func(context.Context, *Session) error) error {
	initial := r.Initial
	if initial <= 0 {
		initial = time.Second
	}
	maxBackoff := max(r.Max, initial)
	backoff := initial
	after := r.after
	if after == nil {
		after = time.After
	}

	for {
		session, err := r.Connect(ctx)
		if err == nil {
			backoff = initial
			err = handle(ctx, session)
			_ = session.Close()
			if err == nil {
				r.Log.Info().Msg("Session handler finished, not reconnecting")
				return nil
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		r.Log.Warn().Err(err).Dur("backoff", backoff).Msg("Connection lost, reconnecting")
		select {
		case <-after(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit || next <= 0 {
		return limit
	}
	return next
}
