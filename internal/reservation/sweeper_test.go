package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepExpiredLeases(t *testing.T) {
	ctx := context.Background()
	svc, f, clock, slotID := newTestEnv(5)

	_, err := svc.AcquireLease(ctx, slotID, "sess-a", 2, time.Minute)
	require.NoError(t, err)
	_, err = svc.AcquireLease(ctx, slotID, "sess-b", 1, 10*time.Minute)
	require.NoError(t, err)

	// Nothing is expired yet.
	removed, err := svc.SweepExpiredLeases(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)

	clock.Advance(2 * time.Minute)

	removed, err = svc.SweepExpiredLeases(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, f.leaseCount())

	// Sweeping again finds nothing.
	removed, err = svc.SweepExpiredLeases(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestStartSweeper(t *testing.T) {
	svc, _, _, _ := newTestEnv(5)

	sched, err := svc.StartSweeper(time.Minute)
	require.NoError(t, err)
	require.NotNil(t, sched)
	assert.NoError(t, sched.Shutdown())
}
