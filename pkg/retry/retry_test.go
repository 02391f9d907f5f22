package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicyDo(t *testing.T) {
	errFlaky := errors.New("flaky")

	t.Run("Succeeds After Retries", func(t *testing.T) {
		calls := 0
		err := Policy{MaxAttempts: 3, Backoff: NoDelay}.Do(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return errFlaky
			}
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("Gives Up", func(t *testing.T) {
		calls := 0
		err := Policy{MaxAttempts: 2, Backoff: NoDelay}.Do(context.Background(), func(context.Context) error {
			calls++
			return errFlaky
		})

		assert.ErrorIs(t, err, errFlaky)
		assert.Equal(t, 2, calls)
	})

	t.Run("Permanent Stops", func(t *testing.T) {
		calls := 0
		err := Policy{MaxAttempts: 5, Backoff: NoDelay}.Do(context.Background(), func(context.Context) error {
			calls++
			return Permanent(errFlaky)
		})

		assert.Equal(t, errFlaky, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("Canceled Context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Policy{MaxAttempts: 3, Backoff: func(int) time.Duration { return time.Hour }}.Do(ctx, func(context.Context) error {
			return errFlaky
		})

		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestExponential(t *testing.T) {
	b := Exponential(100*time.Millisecond, time.Second)

	assert.Equal(t, 100*time.Millisecond, b(1))
	assert.Equal(t, 400*time.Millisecond, b(3))
	assert.Equal(t, time.Second, b(10))
}
