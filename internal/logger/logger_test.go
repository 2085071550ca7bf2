package logger

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   []string
		want zerolog.Level
	}{
		{nil, zerolog.InfoLevel},
		{[]string{"debug"}, zerolog.DebugLevel},
		{[]string{"", "warn"}, zerolog.WarnLevel},
		{[]string{"loud", "error"}, zerolog.ErrorLevel},
		{[]string{"trace", "error"}, zerolog.TraceLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in...); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRequestID(t *testing.T) {
	id := NewRequestID()
	if len(id) != 8 {
		t.Errorf("NewRequestID() = %q, want 8 characters", id)
	}
	ctx := WithRequestID(context.Background(), id)
	if got := RequestIDFromContext(ctx); got != id {
		t.Errorf("RequestIDFromContext = %q, want %q", got, id)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("empty context gave %q", got)
	}
}
