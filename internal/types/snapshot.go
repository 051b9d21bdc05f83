package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// FinancialSnapshot is an immutable record of one pipeline run: the full
// profile at creation time plus everything derived from it. Snapshots are
// only ever appended; the sole deletion path is a whole-history wipe.
type FinancialSnapshot struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index:idx_snapshot_user_created" json:"user_id"`

	Profile   datatypes.JSON `gorm:"not null" json:"profile"`
	Analytics datatypes.JSON `gorm:"not null" json:"analytics"`
	Summary   datatypes.JSON `gorm:"not null" json:"summary"`

	OverspendingProb    float64 `gorm:"not null" json:"overspending_prob"`
	FinancialStressProb float64 `gorm:"not null" json:"financial_stress_prob"`

	CreatedAt time.Time `gorm:"not null;index:idx_snapshot_user_created" json:"created_at"`
}

func (FinancialSnapshot) TableName() string {
	return "financial_snapshot"
}

// NewFinancialSnapshot freezes a pipeline result into a snapshot record.
func NewFinancialSnapshot(userID uuid.UUID, profile Profile, analytics Analytics, scores RiskScores, summary SummaryOutput) (*FinancialSnapshot, error) {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("marshal profile: %w", err)
	}
	analyticsJSON, err := json.Marshal(analytics)
	if err != nil {
		return nil, fmt.Errorf("marshal analytics: %w", err)
	}
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	return &FinancialSnapshot{
		ID:                  uuid.New(),
		UserID:              userID,
		Profile:             profileJSON,
		Analytics:           analyticsJSON,
		Summary:             summaryJSON,
		OverspendingProb:    scores.OverspendingProb,
		FinancialStressProb: scores.FinancialStressProb,
		CreatedAt:           time.Now().UTC(),
	}, nil
}

func (s *FinancialSnapshot) DecodeProfile() (Profile, error) {
	var p Profile
	if err := json.Unmarshal(s.Profile, &p); err != nil {
		return nil, fmt.Errorf("decode snapshot profile: %w", err)
	}
	return p, nil
}

func (s *FinancialSnapshot) DecodeAnalytics() (Analytics, error) {
	var a Analytics
	if err := json.Unmarshal(s.Analytics, &a); err != nil {
		return Analytics{}, fmt.Errorf("decode snapshot analytics: %w", err)
	}
	return a, nil
}

func (s *FinancialSnapshot) DecodeSummary() (SummaryOutput, error) {
	var out SummaryOutput
	if err := json.Unmarshal(s.Summary, &out); err != nil {
		return SummaryOutput{}, fmt.Errorf("decode snapshot summary: %w", err)
	}
	return out, nil
}

func (s *FinancialSnapshot) RiskScores() RiskScores {
	return RiskScores{
		OverspendingProb:    s.OverspendingProb,
		FinancialStressProb: s.FinancialStressProb,
	}
}
