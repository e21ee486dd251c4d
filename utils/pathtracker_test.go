package utils

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathTracker_Claim(t *testing.T) {
	t.Parallel()

	tr := NewPathTracker()
	assert.True(t, tr.Claim("maps/Floor 1.jpeg", "map-a"))
	assert.True(t, tr.Claim("maps/Floor 1.jpeg", "map-a"), "same owner may claim again")
	assert.False(t, tr.Claim("maps/Floor 1.jpeg", "map-b"))
	assert.True(t, tr.Claim("maps/Floor 2.jpeg", "map-b"))
	assert.Equal(t, 2, tr.Count())
}

func TestPathTracker_ConcurrentClaims(t *testing.T) {
	t.Parallel()

	tr := NewPathTracker()
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if tr.Claim("shared", fmt.Sprintf("owner-%d", i)) {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestRateLimiter_Disabled(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(0)
	assert.Zero(t, rl.Delay())

	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, rl.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestRateLimiter_CancelledContext(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(60_000)
	require.NoError(t, rl.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, rl.Wait(ctx))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"debug", "debug"},
		{"WARN", "warn"},
		{"warning", "warn"},
		{"error", "error"},
		{"", "info"},
		{"bogus", "info"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in).String())
		})
	}
}
