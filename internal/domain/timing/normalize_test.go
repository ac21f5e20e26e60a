package timing

import (
	"reflect"
	"testing"
)

func TestNormalizeDuration(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"3 days", 3},
		{"2 weeks", 14},
		{"1 month", 30},
		{"", 7},
		{"10 Days", 10},
		{"week", 7},
		{"a month", 30},
		{"for some days", 7},
		{"0 days", 7},
		{"until finished", 7},
		// todos los dígitos se concatenan, no sólo el primer número
		{"take 2 tablets for 5 days", 25},
		{"3650 days", 3650},
		{"11 years or 12 months", 3650},
		{"999999999999999999 months", 3650},
	}

	for _, tc := range cases {
		if got := NormalizeDuration(tc.in); got != tc.want {
			t.Fatalf("NormalizeDuration(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestDurationTooLong(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"5 days", false},
		{"3650 days", false},
		{"3651 days", true},
		{"122 months", true},
		{"999999999999999999 months", true},
		{"forever", false},
	}

	for _, tc := range cases {
		if got := DurationTooLong(tc.in); got != tc.want {
			t.Fatalf("DurationTooLong(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeFrequency(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"twice daily", []string{"09:00", "21:00"}},
		{"Twice a day after meals", []string{"09:00", "21:00"}},
		{"three times daily", []string{"08:00", "14:00", "20:00"}},
		{"every 8 hours", []string{"08:00", "16:00", "00:00"}},
		{"once daily in the morning", []string{"09:00"}},
		{"at bedtime", []string{"22:00"}},
		{"as needed", []string{"09:00"}},
		{"", []string{"09:00"}},
	}

	for _, tc := range cases {
		if got := NormalizeFrequency(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("NormalizeFrequency(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeFrequency_ReturnsCopy(t *testing.T) {
	got := NormalizeFrequency("twice daily")
	got[0] = "00:00"

	again := NormalizeFrequency("twice daily")
	if again[0] != "09:00" {
		t.Fatalf("table was mutated through returned slice: %v", again)
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("21:30")
	if err != nil || h != 21 || m != 30 {
		t.Fatalf("expected 21:30, got %d:%d err=%v", h, m, err)
	}

	for _, bad := range []string{"", "25:00", "12:60", "noon", "1:2:3"} {
		if _, _, err := ParseClock(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
