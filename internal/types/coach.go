package types

// LessonOutline is a mini financial-literacy lesson attached to a
// coaching response.
type LessonOutline struct {
	Title        string   `json:"title"`
	BulletPoints []string `json:"bullet_points"`
}

// FieldUpdate is a chat-proposed change to one profile field. Values
// arrive from the model as numbers and are only applied after passing
// schema validation.
type FieldUpdate struct {
	Field string  `json:"field"`
	Value float64 `json:"value"`
}

// AppliedUpdate records a field update that passed validation and was
// committed to the profile.
type AppliedUpdate struct {
	Field string `json:"field"`
	Value int64  `json:"value"`
}

// RejectedUpdate records a proposed update that failed validation. Kept
// for audit; never applied.
type RejectedUpdate struct {
	Field  string  `json:"field"`
	Value  float64 `json:"value"`
	Reason string  `json:"reason"`
}

// CoachOutput is the structured response of one coaching turn.
type CoachOutput struct {
	ResponseType    string           `json:"response_type"`
	PriorityIssues  []string         `json:"priority_issues"`
	Explanation     string           `json:"explanation"`
	ActionsForWeek  []string         `json:"actions_for_week"`
	LessonOutline   *LessonOutline   `json:"lesson_outline,omitempty"`
	FieldUpdates    []FieldUpdate    `json:"field_updates,omitempty"`
	AppliedUpdates  []AppliedUpdate  `json:"applied_updates,omitempty"`
	RejectedUpdates []RejectedUpdate `json:"rejected_updates,omitempty"`
}

const (
	ResponseTypeCoaching = "coaching"
	ResponseTypeFeedback = "feedback"
	ResponseTypeUpdate   = "update"
)
