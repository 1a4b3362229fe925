// internal/query/executor.go
package query

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// QueryError is a result-level error carried back from the data service,
// as opposed to a transport failure raised while making the call.
type QueryError struct {
	Status  int
	Code    string
	Message string
}

func (e *QueryError) Error() string {
	return e.Message
}

// Auth-error codes returned by the platform for stale or missing sessions.
var authErrorCodes = map[string]bool{
	"PGRST301":                true,
	"PGRST303":                true,
	"invalid_grant":           true,
	"refresh_token_not_found": true,
}

var authErrorKeywords = []string{
	"jwt",
	"token",
	"session",
	"refresh_token",
	"not authenticated",
}

// IsAuthError classifies a result-level error as an authentication/session
// failure eligible for a refresh-and-retry cycle.
func IsAuthError(err error) bool {
	var qe *QueryError
	if !errors.As(err, &qe) {
		return false
	}
	if qe.Status == 401 || qe.Status == 403 {
		return true
	}
	if authErrorCodes[qe.Code] {
		return true
	}
	msg := strings.ToLower(qe.Message)
	for _, kw := range authErrorKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// SessionRefresher requests a session refresh from the session manager
// before an auth-failed query is retried.
type SessionRefresher interface {
	RefreshSession(ctx context.Context) error
}

// Thunk is one remote query attempt. A *QueryError return is a
// result-level error; any other error is a transport failure.
type Thunk func(ctx context.Context) (interface{}, error)

type Options struct {
	MaxRetries int
	RetryDelay time.Duration
}

func defaultOptions(opts *Options) Options {
	o := Options{MaxRetries: 2, RetryDelay: 500 * time.Millisecond}
	if opts != nil {
		if opts.MaxRetries > 0 {
			o.MaxRetries = opts.MaxRetries
		}
		if opts.RetryDelay > 0 {
			o.RetryDelay = opts.RetryDelay
		}
	}
	return o
}

// Executor is the single choke point for reads the UI depends on. It
// retries auth-classified failures once a session refresh succeeds, retries
// transport failures with linear backoff, and swallows cancellations.
type Executor struct {
	refresher SessionRefresher
}

func NewExecutor(refresher SessionRefresher) *Executor {
	return &Executor{refresher: refresher}
}

// Execute runs the thunk under the retry policy.
//
//   - auth-classified result errors: request a session refresh, wait
//     retryDelay*attempt, retry while attempts remain; if the refresh fails,
//     the original error is returned immediately
//   - other result errors: returned immediately, no retry
//   - transport failures: retried up to MaxRetries with retryDelay*attempt
//     backoff, then propagated
//   - cancellation: normalized to (nil, nil); a torn-down caller is not a
//     user-visible failure
func (e *Executor) Execute(ctx context.Context, thunk Thunk, opts *Options) (interface{}, error) {
	o := defaultOptions(opts)

	for attempt := 1; ; attempt++ {
		data, err := thunk(ctx)
		if err == nil {
			return data, nil
		}

		if isCancellation(err) {
			return nil, nil
		}

		var qe *QueryError
		if errors.As(err, &qe) {
			// Result-level error.
			if !IsAuthError(err) || attempt > o.MaxRetries {
				return nil, err
			}
			if e.refresher == nil {
				return nil, err
			}
			if refreshErr := e.refresher.RefreshSession(ctx); refreshErr != nil {
				logrus.WithError(refreshErr).Warn("session refresh failed, surfacing original query error")
				return nil, err
			}
			if !sleepCtx(ctx, o.RetryDelay*time.Duration(attempt)) {
				return nil, nil
			}
			continue
		}

		// Transport failure.
		if attempt > o.MaxRetries {
			return nil, err
		}
		logrus.WithError(err).WithField("attempt", attempt).Debug("query transport failure, retrying")
		if !sleepCtx(ctx, o.RetryDelay*time.Duration(attempt)) {
			return nil, nil
		}
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// sleepCtx waits for d unless the context is cancelled first. Returns false
// on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
