package frontier

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRetryer(sleeps *[]time.Duration) *Retryer {
	r := NewRetryer(zap.NewNop())
	r.Sleep = func(d time.Duration) {
		*sleeps = append(*sleeps, d)
	}
	return r
}

func TestRetryerStopsAfterTenAttempts(t *testing.T) {
	var sleeps []time.Duration
	r := newTestRetryer(&sleeps)

	attempts := 0
	ok := r.Do("read", func() error {
		attempts++
		return Transient("read", errors.New("timeout"))
	})
	require.False(t, ok)
	require.Equal(t, 10, attempts)
	require.Len(t, sleeps, 10)
}

func TestRetryerLinearBackoff(t *testing.T) {
	require.Equal(t, 60*time.Second, LinearBackoff(0))
	require.Equal(t, 120*time.Second, LinearBackoff(1))
	require.Equal(t, 600*time.Second, LinearBackoff(9))

	var sleeps []time.Duration
	r := newTestRetryer(&sleeps)
	r.Do("read", func() error { return Transient("read", errors.New("boom")) })
	require.Equal(t, 60*time.Second, sleeps[0])
	require.Equal(t, 120*time.Second, sleeps[1])
	require.Equal(t, 600*time.Second, sleeps[9])
}

func TestRetryerSucceedsMidway(t *testing.T) {
	var sleeps []time.Duration
	r := newTestRetryer(&sleeps)

	attempts := 0
	ok := r.Do("read", func() error {
		attempts++
		if attempts < 3 {
			return Transient("read", errors.New("flaky"))
		}
		return nil
	})
	require.True(t, ok)
	require.Equal(t, 3, attempts)
	require.Len(t, sleeps, 2)
}

func TestRetryerStopsOnFatalError(t *testing.T) {
	var sleeps []time.Duration
	r := newTestRetryer(&sleeps)

	attempts := 0
	ok := r.Do("read", func() error {
		attempts++
		return Fatal("read", errors.New("bad request"))
	})
	require.False(t, ok)
	require.Equal(t, 1, attempts)
	require.Empty(t, sleeps)
}

func TestErrorTagging(t *testing.T) {
	cause := errors.New("connection refused")
	err := Transient("read slot", cause)
	require.True(t, IsTransient(err))
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "read slot")

	require.False(t, IsTransient(Fatal("decode", cause)))
	require.False(t, IsTransient(cause))
	require.False(t, IsTransient(nil))
}
