package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/fincoach-backend/internal/logger"
	"github.com/yungbote/fincoach-backend/internal/types"
)

const maxKeyPoints = 5

// SummarizerService turns analytics + risk scores into a short structured
// narrative. It never fails: a malformed generation gets one stricter
// retry, then the deterministic template takes over. The arithmetic is
// always done here and embedded in the prompt; the model only phrases it.
type SummarizerService struct {
	ai    AIClient
	guard *SafetyGuard
	log   *logger.Logger
}

func NewSummarizerService(ai AIClient, guard *SafetyGuard, baseLog *logger.Logger) *SummarizerService {
	return &SummarizerService{
		ai:    ai,
		guard: guard,
		log:   baseLog.With("service", "SummarizerService"),
	}
}

func summarySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary_paragraph": map[string]any{"type": "string"},
			"key_points": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 1,
				"maxItems": maxKeyPoints,
			},
		},
		"required":             []string{"summary_paragraph", "key_points"},
		"additionalProperties": false,
	}
}

const summarizerSystemPrompt = `You are a friendly financial summarizer for college students. Give them a quick, warm snapshot of their situation.

FORMAT: "Glance and Go"
- summary_paragraph: ONE sentence, casual and warm, under 15 words, second person
- key_points: 3-4 short insightful observations (8-12 words each) that reveal patterns, using percentages, daily amounts or comparisons rather than echoing raw inputs

Interpretation only. NO advice. Neutral, non-judgmental. The numbers are computed for you; never recompute them.`

func (ss *SummarizerService) Summarize(ctx context.Context, analytics types.Analytics, scores types.RiskScores) types.SummaryOutput {
	if ss.ai == nil {
		return ss.fallback(analytics, scores)
	}

	userPrompt := ss.guard.WithSafetyContext(summaryContext(analytics, scores))

	out, err := ss.generateOnce(ctx, summarizerSystemPrompt, userPrompt)
	if err == nil {
		ss.guard.LogInteraction("summarizer", true)
		return out
	}
	ss.log.Warn("Summary generation invalid, retrying once", "error", err)

	correction := userPrompt + "\n\nYour previous answer was rejected: " + err.Error() +
		". Return ONLY the JSON object, with a non-empty summary_paragraph and 1-5 non-empty key_points."
	out, err = ss.generateOnce(ctx, summarizerSystemPrompt, correction)
	if err == nil {
		ss.guard.LogInteraction("summarizer", true)
		return out
	}

	ss.guard.LogInteraction("summarizer", false)
	ss.log.Warn("Summary generation failed, using deterministic fallback", "error", err)
	return ss.fallback(analytics, scores)
}

func (ss *SummarizerService) generateOnce(ctx context.Context, system, user string) (types.SummaryOutput, error) {
	raw, err := ss.ai.GenerateJSON(ctx, system, user, "snapshot_summary", summarySchema())
	if err != nil {
		return types.SummaryOutput{}, err
	}
	out, err := parseSummary(raw)
	if err != nil {
		return types.SummaryOutput{}, err
	}
	if ok, reason := ss.guard.CheckOutput(out.SummaryParagraph + " " + strings.Join(out.KeyPoints, " ")); !ok {
		return types.SummaryOutput{}, fmt.Errorf("unsafe output: %s", reason)
	}
	return out, nil
}

func parseSummary(raw map[string]any) (types.SummaryOutput, error) {
	paragraph, _ := raw["summary_paragraph"].(string)
	if strings.TrimSpace(paragraph) == "" {
		return types.SummaryOutput{}, fmt.Errorf("summary_paragraph is empty")
	}

	points, err := stringSlice(raw["key_points"])
	if err != nil {
		return types.SummaryOutput{}, fmt.Errorf("key_points: %w", err)
	}
	if len(points) == 0 || len(points) > maxKeyPoints {
		return types.SummaryOutput{}, fmt.Errorf("key_points must have 1..%d entries, got %d", maxKeyPoints, len(points))
	}
	for i, p := range points {
		if strings.TrimSpace(p) == "" {
			return types.SummaryOutput{}, fmt.Errorf("key point %d is empty", i)
		}
	}

	return types.SummaryOutput{
		SummaryParagraph: strings.TrimSpace(paragraph),
		KeyPoints:        points,
	}, nil
}

func stringSlice(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("not an array")
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("entry %d is not a string", i)
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out, nil
}

func summaryContext(a types.Analytics, scores types.RiskScores) string {
	return fmt.Sprintf(`Computed analytics:
- Total Resources: $%d/month
- Total Spending: $%d/month
- Net Balance: $%d/month
- Food Share: %.1f%% of spending
- Housing Share: %.1f%% of spending
- Entertainment Share: %.1f%% of spending
- Discretionary Share: %.1f%% of spending
- Tuition Share: %.1f%% of spending

Risk assessment:
- Overspending Probability: %.1f%%
- Financial Stress Probability: %.1f%%`,
		a.TotalResources, a.TotalSpending, a.NetBalance,
		a.FoodShare*100, a.HousingShare*100, a.EntertainmentShare*100,
		a.DiscretionaryShare*100, a.TuitionShare*100,
		scores.OverspendingProb*100, scores.FinancialStressProb*100)
}

// fallback is the deterministic safety net: built only from analytics and
// risk scores, never empty, never an error.
func (ss *SummarizerService) fallback(a types.Analytics, scores types.RiskScores) types.SummaryOutput {
	var paragraph string
	if a.IsOverspending {
		paragraph = fmt.Sprintf("You're spending $%d more than you're bringing in each month.", a.OverspendingAmount)
	} else {
		paragraph = fmt.Sprintf("You have a $%d monthly surplus.", a.NetBalance)
	}

	points := []string{
		largestSharePoint(a),
		fmt.Sprintf("Total income: $%d/month", a.TotalResources),
		fmt.Sprintf("Total spending: $%d/month", a.TotalSpending),
		fmt.Sprintf("Estimated financial stress risk: %.0f%%", scores.FinancialStressProb*100),
	}

	return types.SummaryOutput{
		SummaryParagraph: paragraph,
		KeyPoints:        points,
	}
}

func largestSharePoint(a types.Analytics) string {
	shares := []struct {
		label string
		value float64
	}{
		{"Food", a.FoodShare},
		{"Housing", a.HousingShare},
		{"Entertainment", a.EntertainmentShare},
		{"Tuition", a.TuitionShare},
	}
	sort.SliceStable(shares, func(i, j int) bool { return shares[i].value > shares[j].value })
	top := shares[0]
	if top.value <= 0 {
		return "No spending recorded this month"
	}
	return fmt.Sprintf("%s is your largest category at %.0f%% of spending", top.label, top.value*100)
}
