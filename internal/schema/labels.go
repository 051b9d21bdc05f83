package schema

import "strings"

// Display labels, indexed by the enum codes the risk models were trained
// on. Order matters and must never change.
var (
	GenderLabels = []string{"Male", "Female", "Non-binary", "Prefer not to say"}
	YearLabels   = []string{"Freshman", "Sophomore", "Junior", "Senior", "Graduate"}
	MajorLabels  = []string{
		"STEM (Science, Technology, Engineering, Math)",
		"Business",
		"Humanities",
		"Social Sciences",
		"Arts",
		"Health Sciences",
		"Education",
		"Law",
		"Other",
	}
	PaymentMethodLabels = []string{"Cash", "Credit Card", "Debit Card", "Mobile Payment (Venmo, Cash App, etc.)"}
)

// Label returns the display label for an enum field value, or an empty
// string for non-enum fields and out-of-range codes.
func Label(field string, code int64) string {
	spec, ok := byName[field]
	if !ok || spec.Type != TypeEnum {
		return ""
	}
	if code < 0 || code >= int64(len(spec.Options)) {
		return ""
	}
	return spec.Options[code]
}

// matchEnumLabel maps free-text answers onto enum codes. The synonym
// tables mirror the answer phrasings seen in real intake conversations:
// "CS" is a STEM major, "venmo" is a mobile payment, and so on.
func matchEnumLabel(field, raw string) (int64, bool) {
	text := strings.ToLower(strings.TrimSpace(raw))
	switch field {
	case FieldGender:
		return matchKeywords(text, [][]string{
			{"male", "man", "guy"},
			{"female", "woman"},
			{"non-binary", "nonbinary", "enby"},
			{"prefer not", "rather not", "skip"},
		})
	case FieldYearInSchool:
		return matchKeywords(text, [][]string{
			{"fresh", "first year", "1st"},
			{"soph", "second year", "2nd"},
			{"junior", "third year", "3rd"},
			{"senior", "fourth year", "4th"},
			{"grad", "master", "phd", "doctoral"},
		})
	case FieldMajor:
		return matchKeywords(text, [][]string{
			{"stem", "computer", "cs", "engineering", "math", "physics", "chemistry", "biology", "data science"},
			{"business", "finance", "accounting", "marketing", "econ", "mba"},
			{"humanities", "english", "history", "philosophy", "language", "literature"},
			{"social", "psych", "sociology", "political", "anthropology"},
			{"art", "music", "theater", "design", "film"},
			{"health", "nursing", "pre-med", "public health", "kinesiology"},
			{"education", "teaching"},
			{"law", "legal", "pre-law"},
			{"other", "undecided", "undeclared"},
		})
	case FieldPreferredPaymentMethod:
		return matchKeywords(text, [][]string{
			{"cash"},
			{"credit"},
			{"debit"},
			{"mobile", "venmo", "cash app", "apple pay", "zelle"},
		})
	}
	return 0, false
}

// matchKeywords returns the index of the first keyword group with a
// substring hit. "female" must be checked before "male" would match it,
// so ordering within the tables is deliberate where prefixes overlap.
func matchKeywords(text string, groups [][]string) (int64, bool) {
	// exact word "male" would substring-match "female"; scan longer
	// synonyms first by checking every group for a whole-answer match,
	// then fall back to substring matching.
	for i, group := range groups {
		for _, kw := range group {
			if text == kw {
				return int64(i), true
			}
		}
	}
	for i := len(groups) - 1; i >= 0; i-- {
		for _, kw := range groups[i] {
			if strings.Contains(text, kw) {
				return int64(i), true
			}
		}
	}
	return 0, false
}
