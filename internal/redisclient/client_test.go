package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversationChannel(t *testing.T) {
	assert.Equal(t, "conversation:c-42", ConversationChannel("c-42"))
}

func TestKeyPrefixes(t *testing.T) {
	assert.Equal(t, "idempotency:alice:k1", idempotencyKey("alice:k1"))
	assert.Equal(t, "lock:kyc:u1", lockKey("kyc:u1"))
}

func TestLockIsExclusive(t *testing.T) {
	t.Skip("Integration test - requires redis")

	c, err := NewClient("localhost:6379", "", 15)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	ok, err := c.AcquireLock(ctx, "kyc:u1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireLock(ctx, "kyc:u1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.ReleaseLock(ctx, "kyc:u1"))
}

func TestIdempotencyRoundTrip(t *testing.T) {
	t.Skip("Integration test - requires redis")

	c, err := NewClient("localhost:6379", "", 15)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	val, err := c.GetIdempotencyKey(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, val)

	require.NoError(t, c.SetIdempotencyKey(ctx, "k1", "txn-1", time.Minute))
	val, err = c.GetIdempotencyKey(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "txn-1", val)
}
