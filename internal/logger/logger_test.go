package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestSetLevel(t *testing.T) {
	ctx := context.Background()
	log := Get()

	tests := []struct {
		name         string
		level        string
		debugEnabled bool
		warnEnabled  bool
	}{
		{"debug enables everything", "debug", true, true},
		{"info drops debug", "info", false, true},
		{"error drops warn", "error", false, false},
		{"unknown falls back to info", "loud", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLevel(tt.level)
			if got := log.Enabled(ctx, slog.LevelDebug); got != tt.debugEnabled {
				t.Errorf("debug enabled = %v, want %v", got, tt.debugEnabled)
			}
			if got := log.Enabled(ctx, slog.LevelWarn); got != tt.warnEnabled {
				t.Errorf("warn enabled = %v, want %v", got, tt.warnEnabled)
			}
		})
	}
	SetLevel("info")
}
