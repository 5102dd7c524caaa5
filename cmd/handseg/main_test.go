package main

import (
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/Furulango/handseg/internal/detector"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		debug     bool
		wantLevel logrus.Level
		wantJSON  bool
	}{
		{false, logrus.InfoLevel, true},
		{true, logrus.DebugLevel, false},
	}

	for _, tt := range tests {
		logger := initLogger(tt.debug)
		if logger.GetLevel() != tt.wantLevel {
			t.Errorf("debug=%v: level = %v, want %v", tt.debug, logger.GetLevel(), tt.wantLevel)
		}
		_, isJSON := logger.Formatter.(*logrus.JSONFormatter)
		if isJSON != tt.wantJSON {
			t.Errorf("debug=%v: JSON formatter = %v, want %v", tt.debug, isJSON, tt.wantJSON)
		}
	}
}

func TestBrowserURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":8000", "http://localhost:8000"},
		{"127.0.0.1:9000", "http://127.0.0.1:9000"},
	}
	for _, tt := range tests {
		if got := browserURL(tt.addr); got != tt.want {
			t.Errorf("browserURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestFixedHands(t *testing.T) {
	hands := fixedHands{detector.OpenPalmLandmarks()}

	got, err := hands.Detect(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Handedness != "Right" {
		t.Errorf("unexpected hands %+v", got)
	}
	if err := hands.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}
