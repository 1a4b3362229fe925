// internal/query/executor_test.go
package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) RefreshSession(ctx context.Context) error {
	f.calls++
	return f.err
}

func fastOptions() *Options {
	return &Options{MaxRetries: 2, RetryDelay: time.Millisecond}
}

func TestExecuteReturnsDataOnFirstSuccess(t *testing.T) {
	exec := NewExecutor(nil)

	data, err := exec.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return "ok", nil
	}, fastOptions())

	assert.NoError(t, err)
	assert.Equal(t, "ok", data)
}

func TestExecuteRetriesAuthErrorAfterRefresh(t *testing.T) {
	refresher := &fakeRefresher{}
	exec := NewExecutor(refresher)

	attempts := 0
	data, err := exec.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		attempts++
		if attempts == 1 {
			return nil, &QueryError{Status: 401, Code: "PGRST301", Message: "JWT expired"}
		}
		return "recovered", nil
	}, fastOptions())

	assert.NoError(t, err)
	assert.Equal(t, "recovered", data)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, refresher.calls)
}

func TestExecuteSurfacesOriginalErrorWhenRefreshFails(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("refresh failed")}
	exec := NewExecutor(refresher)

	original := &QueryError{Status: 401, Message: "JWT expired"}
	attempts := 0
	data, err := exec.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		attempts++
		return nil, original
	}, fastOptions())

	assert.Nil(t, data)
	// The surfaced error is the query's own, not the refresh failure.
	assert.Same(t, original, err)
	assert.Equal(t, 1, attempts)
}

func TestExecuteDoesNotRetryNonAuthQueryError(t *testing.T) {
	refresher := &fakeRefresher{}
	exec := NewExecutor(refresher)

	attempts := 0
	_, err := exec.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		attempts++
		return nil, &QueryError{Status: 400, Code: "22P02", Message: "invalid input syntax"}
	}, fastOptions())

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.Zero(t, refresher.calls)
}

func TestExecuteRetriesTransportFailuresThenPropagates(t *testing.T) {
	exec := NewExecutor(nil)

	attempts := 0
	boom := errors.New("connection refused")
	_, err := exec.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		attempts++
		return nil, boom
	}, fastOptions())

	assert.ErrorIs(t, err, boom)
	// Initial attempt plus MaxRetries.
	assert.Equal(t, 3, attempts)
}

func TestExecuteRecoversFromTransientTransportFailure(t *testing.T) {
	exec := NewExecutor(nil)

	attempts := 0
	data, err := exec.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("connection reset")
		}
		return []string{"row"}, nil
	}, fastOptions())

	assert.NoError(t, err)
	assert.Equal(t, []string{"row"}, data)
	assert.Equal(t, 3, attempts)
}

func TestExecuteSwallowsCancellation(t *testing.T) {
	exec := NewExecutor(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data, err := exec.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, ctx.Err()
	}, fastOptions())

	assert.Nil(t, data)
	assert.NoError(t, err)
}

func TestExecuteSwallowsCancellationDuringBackoff(t *testing.T) {
	exec := NewExecutor(nil)

	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	data, err := exec.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		attempts++
		cancel()
		return nil, errors.New("connection refused")
	}, &Options{MaxRetries: 2, RetryDelay: 50 * time.Millisecond})

	assert.Nil(t, data)
	assert.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestIsAuthErrorClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"status 401", &QueryError{Status: 401}, true},
		{"status 403", &QueryError{Status: 403}, true},
		{"known code", &QueryError{Status: 400, Code: "refresh_token_not_found"}, true},
		{"keyword in message", &QueryError{Status: 500, Message: "JWT malformed"}, true},
		{"plain result error", &QueryError{Status: 400, Message: "duplicate key"}, false},
		{"transport error", errors.New("jwt something"), false},
		{"nil", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsAuthError(tc.err))
		})
	}
}
