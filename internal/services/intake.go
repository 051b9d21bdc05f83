package services

import (
	"github.com/yungbote/fincoach-backend/internal/faults"
	"github.com/yungbote/fincoach-backend/internal/logger"
	"github.com/yungbote/fincoach-backend/internal/schema"
	"github.com/yungbote/fincoach-backend/internal/types"
)

// RawAnswer is one (field, answer text) pair from the intake survey.
type RawAnswer struct {
	FieldID string `json:"field_id"`
	Answer  string `json:"answer"`
}

// IntakeService turns raw conversational answers into a typed, validated
// profile. Normalization is deterministic and idempotent: the same
// answers always produce the same profile.
type IntakeService struct {
	log *logger.Logger
}

func NewIntakeService(baseLog *logger.Logger) *IntakeService {
	return &IntakeService{log: baseLog.With("service", "IntakeService")}
}

// Normalize validates every answer against the field schema, collecting
// every failure rather than stopping at the first, so the caller can
// present all problems at once. If the user already has stored
// demographic fields (a check-in), those override whatever was answered.
// On success all derivable fields are computed and merged in.
func (is *IntakeService) Normalize(rawAnswers []RawAnswer, user *types.User) (types.Profile, error) {
	profile := make(types.Profile, len(rawAnswers)+3)
	var failures []*faults.ValidationError

	for _, answer := range rawAnswers {
		v, err := schema.Validate(answer.FieldID, answer.Answer)
		if err != nil {
			if ve, ok := err.(*faults.ValidationError); ok {
				failures = append(failures, ve)
				continue
			}
			return nil, err
		}
		// Duplicate answers for one field: last wins, deterministically.
		profile[answer.FieldID] = v
	}

	if user != nil && user.HasProfile() {
		profile[schema.FieldAge] = *user.Age
		profile[schema.FieldGender] = *user.Gender
		profile[schema.FieldYearInSchool] = *user.YearInSchool
		profile[schema.FieldMajor] = *user.Major
		profile[schema.FieldPreferredPaymentMethod] = *user.PreferredPaymentMethod
	}

	for _, name := range profile.Missing() {
		if hasFailure(failures, name) {
			continue
		}
		failures = append(failures, &faults.ValidationError{
			Field:  name,
			Reason: "required field was not answered",
			Kind:   faults.KindMissing,
		})
	}

	if len(failures) > 0 {
		return nil, &faults.IntakeError{Fields: failures}
	}

	profile.Derive()
	return profile, nil
}

func hasFailure(failures []*faults.ValidationError, field string) bool {
	for _, f := range failures {
		if f.Field == field {
			return true
		}
	}
	return false
}
