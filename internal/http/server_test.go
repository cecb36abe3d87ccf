package http

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-roadmap/internal/platform/logger"
)

func TestServerShutdownBeforeRun(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewServer(RouterConfig{Log: logger.Nop()})
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- s.Run("127.0.0.1:0") }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run after Shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run kept serving after Shutdown")
	}
}

func TestServerRunStopsOnShutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewServer(RouterConfig{Log: logger.Nop()})
	done := make(chan error, 1)
	go func() { done <- s.Run("127.0.0.1:0") }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		s.mu.Lock()
		started := s.srv != nil
		s.mu.Unlock()
		if started || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return")
	}
}
