package audio

import (
	"math"
	"testing"
)

func TestToneDurationRoundTrip(t *testing.T) {
	for _, seconds := range []float64{0.1, 0.25, 1.0} {
		payload, err := Tone(seconds, 8000, 440)
		if err != nil {
			t.Fatalf("tone %v: %v", seconds, err)
		}
		got, err := Duration(payload)
		if err != nil {
			t.Fatalf("duration %v: %v", seconds, err)
		}
		if math.Abs(got-seconds) > 0.01 {
			t.Fatalf("expected roughly %vs, got %vs", seconds, got)
		}
	}
}

func TestToneZeroLength(t *testing.T) {
	payload, err := Tone(0, 8000, 440)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := Duration(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0 {
		t.Fatalf("expected zero duration, got %v", got)
	}
}

func TestDurationRejectsGarbage(t *testing.T) {
	if _, err := Duration([]byte("not a wav payload")); err == nil {
		t.Fatal("expected an error for a non-WAV payload")
	}
}
