package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestHandleWithRetryRecoversFromTransientFailure(t *testing.T) {
	calls := 0
	handler := func(context.Context, kafka.Message) error {
		calls++
		if calls < 3 {
			return errors.New("postgres restarting")
		}
		return nil
	}

	err := handleWithRetry(context.Background(), handler, kafka.Message{}, 3, time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestHandleWithRetryGivesUpAfterAttempts(t *testing.T) {
	calls := 0
	handler := func(context.Context, kafka.Message) error {
		calls++
		return errors.New("malformed payload")
	}

	err := handleWithRetry(context.Background(), handler, kafka.Message{}, 3, time.Millisecond)
	assert.EqualError(t, err, "malformed payload")
	assert.Equal(t, 3, calls)
}

func TestHandleWithRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	handler := func(context.Context, kafka.Message) error {
		calls++
		cancel()
		return errors.New("provider down")
	}

	err := handleWithRetry(ctx, handler, kafka.Message{}, 5, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
