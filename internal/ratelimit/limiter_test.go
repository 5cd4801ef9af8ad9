package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterval_EnforcesMinimumDelay(t *testing.T) {
	g := NewInterval("free", 50*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, g.Wait(ctx))
	require.NoError(t, g.Wait(ctx))
	require.NoError(t, g.Wait(ctx))

	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Equal(t, "free", g.Name())
}

func TestInterval_ContextCancelled(t *testing.T) {
	g := NewInterval("premium", time.Hour)
	require.NoError(t, g.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, g.Wait(ctx))
}

func TestInterval_ZeroDelayNeverBlocks(t *testing.T) {
	g := NewInterval("none", 0)
	for i := 0; i < 100; i++ {
		require.NoError(t, g.Wait(context.Background()))
	}
}

func TestUnlimited(t *testing.T) {
	assert.NoError(t, Unlimited{}.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, Unlimited{}.Wait(ctx))
}
