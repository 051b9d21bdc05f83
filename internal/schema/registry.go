package schema

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/yungbote/fincoach-backend/internal/faults"
)

// Field names. The registry below is the single source of truth for
// validation everywhere in the system; nothing else may accept a field
// value.
const (
	FieldAge                    = "age"
	FieldGender                 = "gender"
	FieldYearInSchool           = "year_in_school"
	FieldMajor                  = "major"
	FieldPreferredPaymentMethod = "preferred_payment_method"

	FieldMonthlyIncome = "monthly_income"
	FieldFinancialAid  = "financial_aid"

	FieldTuition        = "tuition"
	FieldHousing        = "housing"
	FieldFood           = "food"
	FieldTransportation = "transportation"
	FieldBooksSupplies  = "books_supplies"
	FieldEntertainment  = "entertainment"
	FieldPersonalCare   = "personal_care"
	FieldTechnology     = "technology"
	FieldHealthWellness = "health_wellness"
	FieldMiscellaneous  = "miscellaneous"

	FieldTotalIncome           = "total_income"
	FieldTotalSpending         = "total_spending"
	FieldDiscretionarySpending = "discretionary_spending"
)

type FieldType int

const (
	TypeInteger FieldType = iota
	TypeDecimal
	TypeEnum
	TypeCurrency
)

func (t FieldType) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeDecimal:
		return "decimal"
	case TypeEnum:
		return "enum"
	case TypeCurrency:
		return "currency"
	}
	return "unknown"
}

// MaxCurrencyValue caps any monthly dollar amount.
const MaxCurrencyValue = 1_000_000

// FieldSpec declares one intake field. The slice order in registry defines
// the onboarding question order.
type FieldSpec struct {
	Name      string
	Type      FieldType
	Min       int64
	Max       int64
	Options   []string
	Required  bool
	Derivable bool
}

var registry = []FieldSpec{
	{Name: FieldAge, Type: TypeInteger, Min: 16, Max: 100, Required: true},
	{Name: FieldGender, Type: TypeEnum, Options: GenderLabels, Required: true},
	{Name: FieldYearInSchool, Type: TypeEnum, Options: YearLabels, Required: true},
	{Name: FieldMajor, Type: TypeEnum, Options: MajorLabels, Required: true},
	{Name: FieldMonthlyIncome, Type: TypeCurrency, Max: MaxCurrencyValue, Required: true},
	{Name: FieldFinancialAid, Type: TypeCurrency, Max: MaxCurrencyValue, Required: true},
	{Name: FieldTuition, Type: TypeCurrency, Max: MaxCurrencyValue, Required: true},
	{Name: FieldHousing, Type: TypeCurrency, Max: MaxCurrencyValue, Required: true},
	{Name: FieldFood, Type: TypeCurrency, Max: MaxCurrencyValue, Required: true},
	{Name: FieldTransportation, Type: TypeCurrency, Max: MaxCurrencyValue, Required: true},
	{Name: FieldBooksSupplies, Type: TypeCurrency, Max: MaxCurrencyValue, Required: true},
	{Name: FieldEntertainment, Type: TypeCurrency, Max: MaxCurrencyValue, Required: true},
	{Name: FieldPersonalCare, Type: TypeCurrency, Max: MaxCurrencyValue, Required: true},
	{Name: FieldTechnology, Type: TypeCurrency, Max: MaxCurrencyValue, Required: true},
	{Name: FieldHealthWellness, Type: TypeCurrency, Max: MaxCurrencyValue, Required: true},
	{Name: FieldMiscellaneous, Type: TypeCurrency, Max: MaxCurrencyValue, Required: true},
	{Name: FieldPreferredPaymentMethod, Type: TypeEnum, Options: PaymentMethodLabels, Required: true},
	{Name: FieldTotalIncome, Type: TypeCurrency, Max: 2 * MaxCurrencyValue, Derivable: true},
	{Name: FieldTotalSpending, Type: TypeCurrency, Max: 10 * MaxCurrencyValue, Derivable: true},
	{Name: FieldDiscretionarySpending, Type: TypeCurrency, Max: 3 * MaxCurrencyValue, Derivable: true},
}

var byName = func() map[string]FieldSpec {
	m := make(map[string]FieldSpec, len(registry))
	for _, spec := range registry {
		m[spec.Name] = spec
	}
	return m
}()

// Fields returns the ordered field specs.
func Fields() []FieldSpec {
	out := make([]FieldSpec, len(registry))
	copy(out, registry)
	return out
}

// Required returns the names of required, non-derivable fields in
// declaration order.
func Required() []string {
	var out []string
	for _, spec := range registry {
		if spec.Required && !spec.Derivable {
			out = append(out, spec.Name)
		}
	}
	return out
}

// ProfileFields returns the demographic fields collected once during
// onboarding and skipped on check-ins.
func ProfileFields() []string {
	return []string{FieldAge, FieldGender, FieldYearInSchool, FieldMajor, FieldPreferredPaymentMethod}
}

func Lookup(name string) (FieldSpec, bool) {
	spec, ok := byName[name]
	return spec, ok
}

// Validate coerces a raw answer to the field's declared type and checks
// its domain. Derivable fields are never accepted as direct input.
func Validate(field, raw string) (int64, error) {
	spec, ok := byName[field]
	if !ok {
		return 0, &faults.ValidationError{Field: field, Reason: "unknown field", Kind: faults.KindUnknown}
	}
	if spec.Derivable {
		return 0, &faults.ValidationError{Field: field, Reason: "derived field cannot be set directly", Kind: faults.KindDerived}
	}

	switch spec.Type {
	case TypeEnum:
		return validateEnum(spec, raw)
	default:
		v, err := parseAmount(raw)
		if err != nil {
			return 0, &faults.ValidationError{Field: field, Reason: err.Error(), Kind: faults.KindType}
		}
		return checkDomain(spec, v)
	}
}

// ValidateNumber validates an already-numeric proposed value, as produced
// by the coaching model. Fractional dollars are rounded to the nearest
// whole amount before the domain check.
func ValidateNumber(field string, value float64) (int64, error) {
	spec, ok := byName[field]
	if !ok {
		return 0, &faults.ValidationError{Field: field, Reason: "unknown field", Kind: faults.KindUnknown}
	}
	if spec.Derivable {
		return 0, &faults.ValidationError{Field: field, Reason: "derived field cannot be set directly", Kind: faults.KindDerived}
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, &faults.ValidationError{Field: field, Reason: "value is not a finite number", Kind: faults.KindType}
	}
	v := int64(math.Round(value))
	if spec.Type == TypeEnum {
		if float64(v) != value {
			return 0, &faults.ValidationError{Field: field, Reason: "enum value must be a whole index", Kind: faults.KindType}
		}
	}
	return checkDomain(spec, v)
}

func checkDomain(spec FieldSpec, v int64) (int64, error) {
	switch spec.Type {
	case TypeEnum:
		if v < 0 || v >= int64(len(spec.Options)) {
			return 0, &faults.ValidationError{
				Field:  spec.Name,
				Reason: fmt.Sprintf("must be one of 0..%d", len(spec.Options)-1),
				Kind:   faults.KindDomain,
			}
		}
	case TypeCurrency:
		if v < 0 {
			return 0, &faults.ValidationError{Field: spec.Name, Reason: "amount cannot be negative", Kind: faults.KindDomain}
		}
		if v > spec.Max {
			return 0, &faults.ValidationError{
				Field:  spec.Name,
				Reason: fmt.Sprintf("amount exceeds maximum of %d", spec.Max),
				Kind:   faults.KindDomain,
			}
		}
	default:
		if v < spec.Min || v > spec.Max {
			return 0, &faults.ValidationError{
				Field:  spec.Name,
				Reason: fmt.Sprintf("must be between %d and %d", spec.Min, spec.Max),
				Kind:   faults.KindDomain,
			}
		}
	}
	return v, nil
}

var amountPattern = regexp.MustCompile(`-?\d+`)

// parseAmount extracts a whole number from a conversational answer:
// "$1,200", "about 300", "120". Negative signs are preserved so the
// domain check can reject them with a clearer reason.
func parseAmount(raw string) (int64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if cleaned == "" {
		return 0, fmt.Errorf("empty answer")
	}
	if v, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
		return v, nil
	}
	match := amountPattern.FindString(cleaned)
	if match == "" {
		return 0, fmt.Errorf("no number found in %q", raw)
	}
	v, err := strconv.ParseInt(match, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q as a number", raw)
	}
	return v, nil
}

func validateEnum(spec FieldSpec, raw string) (int64, error) {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return 0, &faults.ValidationError{Field: spec.Name, Reason: "empty answer", Kind: faults.KindType}
	}
	if v, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
		return checkDomain(spec, v)
	}
	if idx, ok := matchEnumLabel(spec.Name, cleaned); ok {
		return idx, nil
	}
	return 0, &faults.ValidationError{
		Field:  spec.Name,
		Reason: fmt.Sprintf("%q does not match any option", raw),
		Kind:   faults.KindDomain,
	}
}
