package api

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"arcade-book/internal/config"
)

func TestStopBeforeStartStopsHub(t *testing.T) {
	t.Parallel()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{Dashboard: config.DashboardConfig{Enabled: true, Port: 0}}
	s := NewServer(cfg, testProvider(), nil, logger)

	// Shutdown may race ahead of the goroutine running Start.
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start after Stop: %v", err)
	}

	select {
	case <-s.hub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("hub still running after Stop")
	}
}
