package prescriptions

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	ok := ParsedMedicine{Name: "Amoxicillin", Dosage: "500mg", Frequency: "three times daily"}

	cases := []struct {
		name      string
		rec       ParsedRecord
		wantIndex int
		wantField string
	}{
		{"no medicines", ParsedRecord{}, -1, "medicines"},
		{"bad date", ParsedRecord{PrescriptionDate: "01/02/2024", Medicines: []ParsedMedicine{ok}}, -1, "prescription_date"},
		{"missing name", ParsedRecord{Medicines: []ParsedMedicine{ok, {Dosage: "1", Frequency: "daily"}}}, 1, "name"},
		{"missing dosage", ParsedRecord{Medicines: []ParsedMedicine{{Name: "X", Frequency: "daily"}}}, 0, "dosage"},
		{"missing frequency", ParsedRecord{Medicines: []ParsedMedicine{ok, ok, {Name: "X", Dosage: "1"}}}, 2, "frequency"},
		{"duration too long", ParsedRecord{Medicines: []ParsedMedicine{ok, {Name: "X", Dosage: "1", Frequency: "daily", Duration: "999999999999999999 months"}}}, 1, "duration"},
	}

	for _, tc := range cases {
		err := Validate(tc.rec)
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("%s: expected ErrValidation, got %v", tc.name, err)
		}
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("%s: expected *ValidationError, got %T", tc.name, err)
		}
		if ve.Index != tc.wantIndex || ve.Field != tc.wantField {
			t.Fatalf("%s: expected index=%d field=%s, got index=%d field=%s", tc.name, tc.wantIndex, tc.wantField, ve.Index, ve.Field)
		}
	}
}

func TestValidate_AcceptsNullDate(t *testing.T) {
	rec := ParsedRecord{
		PrescriptionDate: "null",
		Medicines:        []ParsedMedicine{{Name: "X", Dosage: "1 tab", Frequency: "once daily"}},
	}
	if err := Validate(rec); err != nil {
		t.Fatalf("expected valid record, got %v", err)
	}
}
