package schema

import (
	"errors"
	"testing"

	"github.com/yungbote/fincoach-backend/internal/faults"
)

func TestValidate_ParsesConversationalAmounts(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want int64
	}{
		{"plain", "300", 300},
		{"dollar sign and comma", "$1,200", 1200},
		{"about phrasing", "about 300", 300},
		{"per month suffix", "450 per month", 450},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Validate(FieldFood, tc.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %d got %d", tc.want, got)
			}
		})
	}
}

func TestValidate_RejectsNegativeAmount(t *testing.T) {
	_, err := Validate(FieldFood, "-50")
	var ve *faults.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Kind != faults.KindDomain {
		t.Fatalf("expected domain kind, got %q", ve.Kind)
	}
}

func TestValidate_RejectsAmountAboveMaximum(t *testing.T) {
	_, err := Validate(FieldHousing, "2000000")
	var ve *faults.ValidationError
	if !errors.As(err, &ve) || ve.Kind != faults.KindDomain {
		t.Fatalf("expected domain ValidationError, got %v", err)
	}
}

func TestValidate_AgeBounds(t *testing.T) {
	if _, err := Validate(FieldAge, "15"); err == nil {
		t.Fatalf("expected error for age below minimum")
	}
	if _, err := Validate(FieldAge, "101"); err == nil {
		t.Fatalf("expected error for age above maximum")
	}
	got, err := Validate(FieldAge, "21")
	if err != nil || got != 21 {
		t.Fatalf("expected 21, got %d err=%v", got, err)
	}
}

func TestValidate_EnumAcceptsIndexAndLabel(t *testing.T) {
	cases := []struct {
		field string
		raw   string
		want  int64
	}{
		{FieldYearInSchool, "2", 2},
		{FieldYearInSchool, "junior", 2},
		{FieldYearInSchool, "I'm a sophomore", 1},
		{FieldGender, "female", 1},
		{FieldGender, "male", 0},
		{FieldMajor, "computer science", 0},
		{FieldMajor, "psych major", 3},
		{FieldPreferredPaymentMethod, "mostly venmo", 3},
	}
	for _, tc := range cases {
		t.Run(tc.field+"/"+tc.raw, func(t *testing.T) {
			got, err := Validate(tc.field, tc.raw)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected code %d got %d", tc.want, got)
			}
		})
	}
}

func TestValidate_EnumRejectsOutOfRangeIndex(t *testing.T) {
	_, err := Validate(FieldYearInSchool, "9")
	var ve *faults.ValidationError
	if !errors.As(err, &ve) || ve.Kind != faults.KindDomain {
		t.Fatalf("expected domain ValidationError, got %v", err)
	}
}

func TestValidate_UnknownFieldRejected(t *testing.T) {
	_, err := Validate("favorite_color", "blue")
	var ve *faults.ValidationError
	if !errors.As(err, &ve) || ve.Kind != faults.KindUnknown {
		t.Fatalf("expected unknown-field ValidationError, got %v", err)
	}
}

func TestValidate_DerivedFieldRejected(t *testing.T) {
	_, err := Validate(FieldTotalIncome, "1500")
	var ve *faults.ValidationError
	if !errors.As(err, &ve) || ve.Kind != faults.KindDerived {
		t.Fatalf("expected derived-field ValidationError, got %v", err)
	}
}

func TestValidateNumber_RoundsCurrencyAndRejectsFractionalEnum(t *testing.T) {
	got, err := ValidateNumber(FieldFood, 299.6)
	if err != nil || got != 300 {
		t.Fatalf("expected 300, got %d err=%v", got, err)
	}

	_, err = ValidateNumber(FieldYearInSchool, 1.5)
	var ve *faults.ValidationError
	if !errors.As(err, &ve) || ve.Kind != faults.KindType {
		t.Fatalf("expected type ValidationError for fractional enum, got %v", err)
	}
}

func TestValidateNumber_DerivedFieldRejected(t *testing.T) {
	_, err := ValidateNumber(FieldTotalSpending, 900)
	var ve *faults.ValidationError
	if !errors.As(err, &ve) || ve.Kind != faults.KindDerived {
		t.Fatalf("expected derived-field ValidationError, got %v", err)
	}
}

func TestRequired_OmitsDerivableFields(t *testing.T) {
	for _, name := range Required() {
		spec, ok := Lookup(name)
		if !ok {
			t.Fatalf("required field %q missing from registry", name)
		}
		if spec.Derivable {
			t.Fatalf("derivable field %q listed as required input", name)
		}
	}
	if len(Required()) != 17 {
		t.Fatalf("expected 17 required fields, got %d", len(Required()))
	}
}

func TestLabel_RoundTripsEnumCodes(t *testing.T) {
	if got := Label(FieldYearInSchool, 4); got != "Graduate" {
		t.Fatalf("expected Graduate, got %q", got)
	}
	if got := Label(FieldYearInSchool, 9); got != "" {
		t.Fatalf("expected empty label out of range, got %q", got)
	}
	if got := Label(FieldFood, 1); got != "" {
		t.Fatalf("expected empty label for non-enum field, got %q", got)
	}
}
