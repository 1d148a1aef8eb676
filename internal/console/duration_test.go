package console

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		duration time.Duration
		want     []string
	}{
		{name: "zero", duration: 0, want: []string{"0ms"}},
		{name: "half millisecond", duration: 500 * time.Microsecond, want: []string{"0ms", "1ms"}},
		{name: "sub second", duration: 250 * time.Millisecond, want: []string{"250ms"}},
		{name: "just below one second", duration: 999 * time.Millisecond, want: []string{"999ms"}},
		{name: "exactly one second", duration: time.Second, want: []string{"1.00s"}},
		{name: "one and a half seconds", duration: 1500 * time.Millisecond, want: []string{"1.50s"}},
		{name: "minutes stay in seconds", duration: 2*time.Minute + 3*time.Second, want: []string{"123.00s"}},
		{name: "negative clamps", duration: -time.Second, want: []string{"0ms"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := FormatDuration(tt.duration)
			for _, want := range tt.want {
				if got == want {
					return
				}
			}
			t.Fatalf("FormatDuration(%s) = %q, want one of %v", tt.duration, got, tt.want)
		})
	}
}
