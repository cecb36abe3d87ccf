package httpx

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"
)

type statusErr int

func (e statusErr) Error() string       { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) HTTPStatusCode() int { return int(e) }

func TestIsRetryableError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{context.Canceled, false},
		{context.DeadlineExceeded, true},
		{statusErr(408), true},
		{statusErr(429), true},
		{statusErr(503), true},
		{statusErr(400), false},
		{fmt.Errorf("wrapped: %w", statusErr(502)), true},
	}
	for _, tc := range cases {
		if got := IsRetryableError(tc.err); got != tc.want {
			t.Fatalf("IsRetryableError(%v): want=%v got=%v", tc.err, tc.want, got)
		}
	}
}

func TestBackoffDelay(t *testing.T) {
	b := Backoff{Base: time.Second, Max: 10 * time.Second}
	withRetryAfter := &http.Response{Header: http.Header{}}
	withRetryAfter.Header.Set("Retry-After", "30")
	badRetryAfter := &http.Response{Header: http.Header{}}
	badRetryAfter.Header.Set("Retry-After", "Wed, 21 Oct 2015 07:28:00 GMT")

	cases := []struct {
		name    string
		attempt int
		resp    *http.Response
		want    time.Duration
	}{
		{"first", 0, nil, time.Second},
		{"doubles", 2, nil, 4 * time.Second},
		{"capped", 10, nil, 10 * time.Second},
		{"retry-after capped", 0, withRetryAfter, 10 * time.Second},
		{"http-date ignored", 1, badRetryAfter, 2 * time.Second},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := b.Delay(tc.attempt, tc.resp); got != tc.want {
				t.Fatalf("Delay: want=%v got=%v", tc.want, got)
			}
		})
	}
}

func TestBackoffJitterBounds(t *testing.T) {
	for i := 0; i < 50; i++ {
		got := DefaultBackoff.Delay(0, nil)
		if got < 800*time.Millisecond || got > 1200*time.Millisecond {
			t.Fatalf("jitter out of range: %v", got)
		}
	}
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); err == nil {
		t.Fatalf("want context error")
	}
}
