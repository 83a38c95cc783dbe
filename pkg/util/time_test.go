package util

import (
	"testing"
	"time"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "00:00:00.000"},
		{5 * time.Second, "00:00:05.000"},
		{time.Hour + 2*time.Minute + 3500*time.Millisecond, "01:02:03.500"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "5", want: 5 * time.Second},
		{in: "1:30", want: 90 * time.Second},
		{in: "01:00:02.5", want: time.Hour + 2500*time.Millisecond},
		{in: "abc", wantErr: true},
		{in: "1:2:3:4", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseTimestamp(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimestamp(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFrameRate(t *testing.T) {
	if got := ParseFrameRate("30000/1001"); got < 29.96 || got > 29.98 {
		t.Errorf("ParseFrameRate(30000/1001) = %v", got)
	}
	if got := ParseFrameRate("25/0"); got != 0 {
		t.Errorf("ParseFrameRate(25/0) = %v, want 0", got)
	}
}
