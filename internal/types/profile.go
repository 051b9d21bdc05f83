package types

import (
	"github.com/yungbote/fincoach-backend/internal/schema"
)

// Profile maps field names to typed values for one user. It is partially
// populated during onboarding and mutated only through validated
// field-update operations.
type Profile map[string]int64

func (p Profile) Get(field string) (int64, bool) {
	v, ok := p[field]
	return v, ok
}

func (p Profile) Set(field string, v int64) {
	p[field] = v
}

func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Missing lists required non-derivable fields that have no value yet, in
// schema order.
func (p Profile) Missing() []string {
	var out []string
	for _, name := range schema.Required() {
		if _, ok := p[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// Complete reports whether every required non-derivable field is present.
func (p Profile) Complete() bool {
	return len(p.Missing()) == 0
}

// SpendingFields lists the ten spend categories that sum to
// total_spending.
var SpendingFields = []string{
	schema.FieldTuition,
	schema.FieldHousing,
	schema.FieldFood,
	schema.FieldTransportation,
	schema.FieldBooksSupplies,
	schema.FieldEntertainment,
	schema.FieldPersonalCare,
	schema.FieldTechnology,
	schema.FieldHealthWellness,
	schema.FieldMiscellaneous,
}

// Derive recomputes every derivable field from its source fields. Called
// after normalization and after any accepted field update.
func (p Profile) Derive() {
	p[schema.FieldTotalIncome] = p[schema.FieldMonthlyIncome] + p[schema.FieldFinancialAid]
	var spending int64
	for _, f := range SpendingFields {
		spending += p[f]
	}
	p[schema.FieldTotalSpending] = spending
	p[schema.FieldDiscretionarySpending] = p[schema.FieldEntertainment] + p[schema.FieldPersonalCare] + p[schema.FieldMiscellaneous]
}
