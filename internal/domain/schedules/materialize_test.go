package schedules

import (
	"testing"
	"time"

	"pharmabot/internal/domain/timing"
	"pharmabot/internal/platform/clock"
)

func TestMaterialize_TwiceDailyTwoDays(t *testing.T) {
	anchor := clock.Date(2024, 1, 1)
	now := anchor

	got := Materialize(MedicineTiming{ID: "med-1", Frequency: "twice daily", Duration: "2 days"}, "user-1", anchor, now)

	want := []time.Time{
		time.Date(2024, 1, 1, 9, 0, 0, 0, clock.Local),
		time.Date(2024, 1, 1, 21, 0, 0, 0, clock.Local),
		time.Date(2024, 1, 2, 9, 0, 0, 0, clock.Local),
		time.Date(2024, 1, 2, 21, 0, 0, 0, clock.Local),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d instances, got %d", len(want), len(got))
	}
	seen := map[string]struct{}{}
	for i, d := range got {
		if !d.ScheduledTime.Equal(want[i]) {
			t.Fatalf("instance %d: expected %s, got %s", i, want[i], d.ScheduledTime)
		}
		if d.MedicineID != "med-1" || d.OwnerUserID != "user-1" {
			t.Fatalf("instance %d: wrong medicine/owner %#v", i, d)
		}
		if d.State() != StatePending || d.TakenAt != nil {
			t.Fatalf("instance %d: expected pending, got %s", i, d.State())
		}
		if _, dup := seen[d.ID]; dup || d.ID == "" {
			t.Fatalf("instance %d: id missing or duplicated: %q", i, d.ID)
		}
		seen[d.ID] = struct{}{}
	}
}

func TestMaterialize_AnchorTimeOfDayIgnored(t *testing.T) {
	anchor := time.Date(2024, 3, 10, 17, 45, 0, 0, clock.Local)

	got := Materialize(MedicineTiming{ID: "m", Frequency: "once daily", Duration: "1 day"}, "u", anchor, anchor)
	if len(got) != 1 {
		t.Fatalf("expected 1 instance, got %d", len(got))
	}
	want := time.Date(2024, 3, 10, 9, 0, 0, 0, clock.Local)
	if !got[0].ScheduledTime.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got[0].ScheduledTime)
	}
}

func TestMaterialize_DefaultsNeverEmpty(t *testing.T) {
	anchor := clock.Date(2024, 1, 1)

	got := Materialize(MedicineTiming{ID: "m", Frequency: "", Duration: ""}, "u", anchor, anchor)
	// default: 7 días x 09:00
	if len(got) != 7 {
		t.Fatalf("expected 7 instances, got %d", len(got))
	}
}

func TestMaterialize_HugeDurationIsBounded(t *testing.T) {
	anchor := clock.Date(2024, 1, 1)
	got := Materialize(MedicineTiming{ID: "m", Frequency: "once daily", Duration: "999999999999999999 months"}, "u", anchor, anchor)
	if len(got) != timing.MaxDurationDays {
		t.Fatalf("expected %d instances, got %d", timing.MaxDurationDays, len(got))
	}
}

func TestMaterialize_DoubleInvocationDuplicates(t *testing.T) {
	anchor := clock.Date(2024, 1, 1)
	med := MedicineTiming{ID: "m", Frequency: "twice daily", Duration: "1 day"}

	a := Materialize(med, "u", anchor, anchor)
	b := Materialize(med, "u", anchor, anchor)
	if len(a)+len(b) != 4 {
		t.Fatalf("expected purely additive output, got %d + %d", len(a), len(b))
	}
}

func TestAnchorFor(t *testing.T) {
	now := time.Date(2024, 5, 5, 13, 0, 0, 0, clock.Local)

	if got := AnchorFor(nil, now); !got.Equal(clock.Date(2024, 5, 5)) {
		t.Fatalf("expected today midnight, got %s", got)
	}

	pd := time.Date(2024, 4, 1, 0, 0, 0, 0, clock.Local)
	if got := AnchorFor(&pd, now); !got.Equal(clock.Date(2024, 4, 1)) {
		t.Fatalf("expected prescription date, got %s", got)
	}
}
