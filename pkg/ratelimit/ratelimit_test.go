package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestNilClientDisablesLimiting(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	allowed, err := CheckAndSet(ctx, nil, userID, "submit_study", time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	wait, err := TTL(ctx, nil, userID, "submit_study")
	require.NoError(t, err)
	assert.Zero(t, wait)

	require.NoError(t, Clear(ctx, nil, userID, "submit_study"))
}

func TestSecondAcquireWithinWindowDenied(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()
	userID := uuid.New()

	allowed, err := CheckAndSet(ctx, client, userID, "submit_study", time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = CheckAndSet(ctx, client, userID, "submit_study", time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestSlotsAreScopedPerUserAndAction(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()
	userID := uuid.New()

	allowed, err := CheckAndSet(ctx, client, userID, "submit_study", time.Minute)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = CheckAndSet(ctx, client, userID, "create_comment", time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "different action, different slot")

	allowed, err = CheckAndSet(ctx, client, uuid.New(), "submit_study", time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed, "different user, different slot")
}

func TestTTLReportsRemainingWindow(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := CheckAndSet(ctx, client, userID, "submit_study", 5*time.Minute)
	require.NoError(t, err)

	wait, err := TTL(ctx, client, userID, "submit_study")
	require.NoError(t, err)
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, 5*time.Minute)
}

func TestClearReleasesSlot(t *testing.T) {
	_, client := newTestClient(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := CheckAndSet(ctx, client, userID, "submit_study", time.Minute)
	require.NoError(t, err)

	require.NoError(t, Clear(ctx, client, userID, "submit_study"))

	allowed, err := CheckAndSet(ctx, client, userID, "submit_study", time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestWindowExpires(t *testing.T) {
	mr, client := newTestClient(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := CheckAndSet(ctx, client, userID, "submit_study", time.Minute)
	require.NoError(t, err)

	mr.FastForward(61 * time.Second)

	allowed, err := CheckAndSet(ctx, client, userID, "submit_study", time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}
