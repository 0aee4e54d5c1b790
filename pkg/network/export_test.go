package network

import "time"

var NextBackoff = nextBackoff

func SetAfter(r *Reconnector, after func(time.Duration) <-chan time.Time) {
	r.after = after
}
