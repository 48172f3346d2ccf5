package rate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNoLimiter(t *testing.T) {
	l := &NoLimiter{}
	for i := 0; i < 10000; i++ {
		allowed, err := l.Allow("")
		assert.NoError(t, err)
		assert.True(t, allowed)
	}
}

func TestLocalRateLimiter(t *testing.T) {
	l, err := NewLocalRateLimiter(rate.Every(1<<62), 2, 0)
	require.NoError(t, err)

	assertBudget := func(key string, expected int) {
		for i := 0; i < expected; i++ {
			allowed, err := l.Allow(key)
			assert.NoError(t, err)
			assert.True(t, allowed)
		}

		allowed, err := l.Allow(key)
		assert.NoError(t, err)
		assert.False(t, allowed)
	}

	assertBudget("a", 2)

	// Keys are limited independently
	assertBudget("b", 2)
}

func TestLocalRateLimiter_MinimumBurst(t *testing.T) {
	l, err := NewLocalRateLimiter(rate.Every(1<<62), 0, 0)
	require.NoError(t, err)

	allowed, err := l.Allow("a")
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = l.Allow("a")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestLocalRateLimiter_EvictsLeastRecentlyUsed(t *testing.T) {
	l, err := NewLocalRateLimiter(rate.Every(1<<62), 1, 1)
	require.NoError(t, err)

	allowed, _ := l.Allow("a")
	assert.True(t, allowed)
	allowed, _ = l.Allow("a")
	assert.False(t, allowed)

	allowed, _ = l.Allow("b")
	assert.True(t, allowed)

	// "a" was evicted by "b", so its budget starts over
	allowed, _ = l.Allow("a")
	assert.True(t, allowed)
}
