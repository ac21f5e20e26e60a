package clock

import (
	"testing"
	"time"
)

func TestNowIsFixedOffset(t *testing.T) {
	_, off := Now().Zone()
	if off != offsetSecond {
		t.Fatalf("expected offset %d, got %d", offsetSecond, off)
	}
}

func TestStartOfDayUsesLocalCivilDay(t *testing.T) {
	// 20:30 UTC del 9 ya es el 10 en Dhaka.
	utc := time.Date(2024, 1, 9, 20, 30, 0, 0, time.UTC)
	got := StartOfDay(utc)
	want := Date(2024, 1, 10)
	if !got.Equal(want) {
		t.Fatalf("StartOfDay=%v want %v", got, want)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-01")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !d.Equal(Date(2024, 3, 1)) {
		t.Fatalf("unexpected date %v", d)
	}
	if _, err := ParseDate("01/03/2024"); err == nil {
		t.Fatalf("expected error for non ISO date")
	}
}
