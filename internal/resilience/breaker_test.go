package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreaker(threshold int, reset time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: threshold,
		ResetTimeout:     reset,
	})
}

func failing(ctx context.Context) error { return eris.New("down") }
func succeeding(ctx context.Context) error { return nil }

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := testBreaker(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.Error(t, cb.Execute(ctx, failing))
	}
	assert.Equal(t, CircuitOpen, cb.State())

	// Calls are now rejected without executing fn.
	called := false
	err := cb.Execute(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	cb := testBreaker(3, time.Minute)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failing))
	require.Error(t, cb.Execute(ctx, failing))
	require.NoError(t, cb.Execute(ctx, succeeding))
	require.Error(t, cb.Execute(ctx, failing))
	require.Error(t, cb.Execute(ctx, failing))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	cb := testBreaker(1, 10*time.Millisecond)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failing))
	require.Equal(t, CircuitOpen, cb.State())

	// After the reset timeout a probe is allowed; success closes the
	// circuit again.
	cb.nowFunc = func() time.Time { return time.Now().Add(time.Second) }
	require.NoError(t, cb.Execute(ctx, succeeding))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	cb := testBreaker(1, 10*time.Millisecond)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failing))
	cb.nowFunc = func() time.Time { return time.Now().Add(time.Second) }
	require.Error(t, cb.Execute(ctx, failing))

	cb.nowFunc = time.Now
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestBreakerShouldTripFilter(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		ShouldTrip:       IsTransient,
	})
	ctx := context.Background()

	// Permanent errors pass through without tripping the breaker.
	assert.Error(t, cb.Execute(ctx, failing))
	assert.Equal(t, CircuitClosed, cb.State())

	assert.Error(t, cb.Execute(ctx, func(ctx context.Context) error {
		return NewTransientError(eris.New("socket gone"))
	}))
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestBreakerReset(t *testing.T) {
	cb := testBreaker(1, time.Minute)
	require.Error(t, cb.Execute(context.Background(), failing))
	require.Equal(t, CircuitOpen, cb.State())

	cb.Reset()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestExecuteValPassesValue(t *testing.T) {
	cb := testBreaker(3, time.Minute)
	val, err := ExecuteVal(context.Background(), cb, func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
}
