package httpx

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPStatusCoder is implemented by client errors that carry the response
// status.
type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// IsRetryableError treats timeouts and 408/429/5xx responses as transient.
// A cancelled caller context is never retried.
func IsRetryableError(err error) bool {
	var (
		netErr net.Error
		sc     HTTPStatusCoder
	)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.As(err, &netErr) && netErr.Timeout():
		return true
	case errors.As(err, &sc):
		code := sc.HTTPStatusCode()
		return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500 && code <= 599
	}
	return false
}

// Backoff schedules retries of an outbound call: Base doubled per attempt,
// replaced by a server Retry-After when present, capped at Max, then spread
// by +/-Jitter.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64
}

// DefaultBackoff is what the LLM client uses.
var DefaultBackoff = Backoff{Base: time.Second, Max: 10 * time.Second, Jitter: 0.2}

// Delay is the wait before retry number attempt (0-based). resp may be nil.
func (b Backoff) Delay(attempt int, resp *http.Response) time.Duration {
	d := b.Base
	for i := 0; i < attempt && (b.Max <= 0 || d < b.Max); i++ {
		d *= 2
	}
	if ra := retryAfter(resp); ra > 0 {
		d = ra
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	if d <= 0 || b.Jitter <= 0 {
		return d
	}
	spread := 1 - b.Jitter + rand.Float64()*2*b.Jitter
	return time.Duration(float64(d) * spread)
}

// Only the delay-seconds form is honoured.
func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(resp.Header.Get("Retry-After")))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
