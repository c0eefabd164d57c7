package netman

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconnectDelay(t *testing.T) {
	base := time.Second

	// The counter advances before the wait, so the first delay is 2x base
	// and every later one doubles.
	d, ok := reconnectDelay(0, 3, base)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, d)

	d, ok = reconnectDelay(1, 3, base)
	assert.True(t, ok)
	assert.Equal(t, 4*time.Second, d)

	d, ok = reconnectDelay(2, 3, base)
	assert.True(t, ok)
	assert.Equal(t, 8*time.Second, d)

	// Budget spent
	_, ok = reconnectDelay(3, 3, base)
	assert.False(t, ok)
	_, ok = reconnectDelay(10, 3, base)
	assert.False(t, ok)
}

func TestReconnectDelayUnlimited(t *testing.T) {
	// A negative budget never gives up
	for _, attempts := range []int{0, 5, 20} {
		_, ok := reconnectDelay(attempts, -1, time.Millisecond)
		assert.True(t, ok, "attempt %d", attempts)
	}
}

func TestReconnectDelayZeroBudget(t *testing.T) {
	_, ok := reconnectDelay(0, 0, time.Second)
	assert.False(t, ok)
}

func TestReconnectConfigDefaults(t *testing.T) {
	rc := ReconnectConfig{MaxAttempts: -1}.withDefaults()
	assert.Equal(t, DefaultReconnectBaseInterval, rc.BaseInterval)
	assert.Equal(t, -1, rc.MaxAttempts)

	rc = ReconnectConfig{BaseInterval: time.Minute, MaxAttempts: 2}.withDefaults()
	assert.Equal(t, time.Minute, rc.BaseInterval)
	assert.Equal(t, 2, rc.MaxAttempts)
}
