package types

// Analytics is a derived, recomputed-from-scratch value object. Category
// shares are fractions of total spending, each in [0, 1].
type Analytics struct {
	TotalResources     int64 `json:"total_resources"`
	TotalSpending      int64 `json:"total_spending"`
	NetBalance         int64 `json:"net_balance"`
	IsOverspending     bool  `json:"is_overspending"`
	OverspendingAmount int64 `json:"overspending_amount"`
	SavingsPotential   int64 `json:"savings_potential"`

	FoodShare          float64 `json:"food_share"`
	HousingShare       float64 `json:"housing_share"`
	EntertainmentShare float64 `json:"entertainment_share"`
	DiscretionaryShare float64 `json:"discretionary_share"`
	TuitionShare       float64 `json:"tuition_share"`
}

// AnalyticsDeltas captures movement between two consecutive snapshots,
// used to give the coach before/after context.
type AnalyticsDeltas struct {
	TotalSpendingDelta      int64   `json:"total_spending_delta"`
	NetBalanceDelta         int64   `json:"net_balance_delta"`
	FoodShareDelta          float64 `json:"food_share_delta"`
	EntertainmentShareDelta float64 `json:"entertainment_share_delta"`
	DiscretionaryShareDelta float64 `json:"discretionary_share_delta"`
}

// RiskScores holds the calibrated model outputs, each in [0, 1]. Never
// hand-edited.
type RiskScores struct {
	OverspendingProb    float64 `json:"overspending_prob"`
	FinancialStressProb float64 `json:"financial_stress_prob"`
}

// SummaryOutput is the schema-validated narrative for one snapshot.
type SummaryOutput struct {
	SummaryParagraph string   `json:"summary_paragraph"`
	KeyPoints        []string `json:"key_points"`
}
