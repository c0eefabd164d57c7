package netman

import "time"

const (
	DefaultReconnectBaseInterval = time.Second * 1
	DefaultReconnectMaxAttempts  = 5
)

// ReconnectConfig bounds the automatic station reconnect loop. MaxAttempts
// below zero retries forever.
type ReconnectConfig struct {
	BaseInterval time.Duration
	MaxAttempts  int
}

func (rc ReconnectConfig) withDefaults() ReconnectConfig {
	if rc.BaseInterval <= 0 {
		rc.BaseInterval = DefaultReconnectBaseInterval
	}
	return rc
}

// reconnectDelay decides whether a retry may happen after `attempts` failed
// reconnects and returns the backoff to wait before it. The delay doubles
// with every attempt, starting at twice the base interval: the counter is
// incremented before the wait, so attempt k waits base << k.
func reconnectDelay(attempts, max int, base time.Duration) (time.Duration, bool) {
	if max >= 0 && attempts >= max {
		return 0, false
	}
	return base << uint(attempts+1), true
}

// retryState tracks reconnect attempts since the last successful address
// acquisition for a single interface.
type retryState struct {
	attempts int
}

func (r *retryState) reset() {
	r.attempts = 0
}
