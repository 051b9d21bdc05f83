package services

import (
	"errors"
	"reflect"
	"testing"

	"github.com/yungbote/fincoach-backend/internal/faults"
	"github.com/yungbote/fincoach-backend/internal/schema"
	"github.com/yungbote/fincoach-backend/internal/types"
)

func fullAnswerSet() []RawAnswer {
	return []RawAnswer{
		{FieldID: schema.FieldAge, Answer: "21"},
		{FieldID: schema.FieldGender, Answer: "female"},
		{FieldID: schema.FieldYearInSchool, Answer: "junior"},
		{FieldID: schema.FieldMajor, Answer: "computer science"},
		{FieldID: schema.FieldPreferredPaymentMethod, Answer: "debit"},
		{FieldID: schema.FieldMonthlyIncome, Answer: "$1,200"},
		{FieldID: schema.FieldFinancialAid, Answer: "300"},
		{FieldID: schema.FieldTuition, Answer: "400"},
		{FieldID: schema.FieldHousing, Answer: "600"},
		{FieldID: schema.FieldFood, Answer: "about 300"},
		{FieldID: schema.FieldTransportation, Answer: "0"},
		{FieldID: schema.FieldBooksSupplies, Answer: "0"},
		{FieldID: schema.FieldEntertainment, Answer: "0"},
		{FieldID: schema.FieldPersonalCare, Answer: "0"},
		{FieldID: schema.FieldTechnology, Answer: "0"},
		{FieldID: schema.FieldHealthWellness, Answer: "0"},
		{FieldID: schema.FieldMiscellaneous, Answer: "0"},
	}
}

func TestNormalize_BuildsCompleteProfileWithDerivedFields(t *testing.T) {
	svc := NewIntakeService(newTestLogger(t))

	profile, err := svc.Normalize(fullAnswerSet(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v := profile[schema.FieldMonthlyIncome]; v != 1200 {
		t.Fatalf("expected monthly_income 1200, got %d", v)
	}
	if v := profile[schema.FieldYearInSchool]; v != 2 {
		t.Fatalf("expected year_in_school code 2, got %d", v)
	}
	if v := profile[schema.FieldTotalIncome]; v != 1500 {
		t.Fatalf("expected total_income 1500, got %d", v)
	}
	if v := profile[schema.FieldTotalSpending]; v != 1300 {
		t.Fatalf("expected total_spending 1300, got %d", v)
	}
	if !profile.Complete() {
		t.Fatalf("expected complete profile, missing %v", profile.Missing())
	}
}

func TestNormalize_IsIdempotent(t *testing.T) {
	svc := NewIntakeService(newTestLogger(t))

	first, err := svc.Normalize(fullAnswerSet(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Normalize(fullAnswerSet(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical profiles, got %v vs %v", first, second)
	}
}

func TestNormalize_DuplicateAnswersLastWins(t *testing.T) {
	svc := NewIntakeService(newTestLogger(t))

	answers := append(fullAnswerSet(), RawAnswer{FieldID: schema.FieldFood, Answer: "450"})
	profile, err := svc.Normalize(answers, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := profile[schema.FieldFood]; v != 450 {
		t.Fatalf("expected food 450 from later answer, got %d", v)
	}
}

func TestNormalize_CollectsEveryFailure(t *testing.T) {
	svc := NewIntakeService(newTestLogger(t))

	answers := fullAnswerSet()
	answers[0].Answer = "twelve"      // age: unparseable
	answers[5].Answer = "-100"        // monthly_income: negative
	answers[2].Answer = "15th year"   // year_in_school: no match
	answers = answers[:len(answers)-1] // miscellaneous missing entirely

	_, err := svc.Normalize(answers, nil)
	var ie *faults.IntakeError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IntakeError, got %v", err)
	}
	if len(ie.Fields) != 4 {
		t.Fatalf("expected 4 failing fields, got %d: %v", len(ie.Fields), ie.Fields)
	}

	kinds := map[string]faults.ValidationKind{}
	for _, f := range ie.Fields {
		kinds[f.Field] = f.Kind
	}
	if kinds[schema.FieldAge] != faults.KindType {
		t.Fatalf("expected age failure kind type, got %q", kinds[schema.FieldAge])
	}
	if kinds[schema.FieldMonthlyIncome] != faults.KindDomain {
		t.Fatalf("expected monthly_income failure kind domain, got %q", kinds[schema.FieldMonthlyIncome])
	}
	if kinds[schema.FieldMiscellaneous] != faults.KindMissing {
		t.Fatalf("expected miscellaneous failure kind missing, got %q", kinds[schema.FieldMiscellaneous])
	}
}

func TestNormalize_StoredDemographicsOverrideAnswers(t *testing.T) {
	svc := NewIntakeService(newTestLogger(t))

	age, gender, year, major, payment := int64(24), int64(0), int64(4), int64(1), int64(1)
	user := &types.User{
		Age:                    &age,
		Gender:                 &gender,
		YearInSchool:           &year,
		Major:                  &major,
		PreferredPaymentMethod: &payment,
	}

	profile, err := svc.Normalize(fullAnswerSet(), user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := profile[schema.FieldAge]; v != 24 {
		t.Fatalf("expected stored age 24 to win, got %d", v)
	}
	if v := profile[schema.FieldYearInSchool]; v != 4 {
		t.Fatalf("expected stored year 4 to win, got %d", v)
	}
}

func TestNormalize_CheckInSkipsDemographicAnswers(t *testing.T) {
	svc := NewIntakeService(newTestLogger(t))

	age, gender, year, major, payment := int64(22), int64(1), int64(3), int64(0), int64(2)
	user := &types.User{
		Age:                    &age,
		Gender:                 &gender,
		YearInSchool:           &year,
		Major:                  &major,
		PreferredPaymentMethod: &payment,
	}

	// Financial fields only, the way a check-in submits them.
	var answers []RawAnswer
	for _, a := range fullAnswerSet() {
		switch a.FieldID {
		case schema.FieldAge, schema.FieldGender, schema.FieldYearInSchool, schema.FieldMajor, schema.FieldPreferredPaymentMethod:
			continue
		}
		answers = append(answers, a)
	}

	profile, err := svc.Normalize(answers, user)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v := profile[schema.FieldAge]; v != 22 {
		t.Fatalf("expected age from stored profile, got %d", v)
	}
	if !profile.Complete() {
		t.Fatalf("expected complete profile, missing %v", profile.Missing())
	}
}
