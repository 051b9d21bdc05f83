package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/fincoach-backend/internal/faults"
	"github.com/yungbote/fincoach-backend/internal/logger"
	"github.com/yungbote/fincoach-backend/internal/schema"
	"github.com/yungbote/fincoach-backend/internal/types"
	"github.com/yungbote/fincoach-backend/internal/utils"
)

// Feature vector layout. Both models consume the 17 raw profile features
// in this exact order; the overspending regressor additionally receives
// the three derived aggregates. The stress classifier deliberately gets
// no analytics-derived features: net balance and friends are direct
// functions of the overspending target and would leak the label.
const (
	featAge = iota
	featGender
	featYearInSchool
	featMajor
	featPreferredPaymentMethod
	featMonthlyIncome
	featFinancialAid
	featTuition
	featHousing
	featFood
	featTransportation
	featBooksSupplies
	featEntertainment
	featPersonalCare
	featTechnology
	featHealthWellness
	featMiscellaneous

	numProfileFeatures
)

const (
	featTotalResources = numProfileFeatures + iota
	featTotalSpending
	featDiscretionary
)

var profileFeatureOrder = []string{
	schema.FieldAge,
	schema.FieldGender,
	schema.FieldYearInSchool,
	schema.FieldMajor,
	schema.FieldPreferredPaymentMethod,
	schema.FieldMonthlyIncome,
	schema.FieldFinancialAid,
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

func stressFeatures(p types.Profile) []float64 {
	out := make([]float64, 0, numProfileFeatures)
	for _, name := range profileFeatureOrder {
		out = append(out, float64(p[name]))
	}
	return out
}

func overspendingFeatures(p types.Profile, a types.Analytics) []float64 {
	out := stressFeatures(p)
	out = append(out,
		float64(a.TotalResources),
		float64(a.TotalSpending),
		float64(p[schema.FieldEntertainment]+p[schema.FieldPersonalCare]+p[schema.FieldMiscellaneous]),
	)
	return out
}

// RiskModel is one black-box trained model. Deterministic for a fixed
// input.
type RiskModel interface {
	Name() string
	Predict(ctx context.Context, features []float64) (float64, error)
}

// Calibration of the overspending regressor: the model emits a dollar
// estimate which is squashed through a logistic sigmoid. Scale 400 keeps
// estimates conservative ($200 over -> ~62%, $800 over -> ~88%); the
// clamp avoids overstating either tail.
const (
	overspendingSigmoidScale = 400.0
	overspendingProbFloor    = 0.05
	overspendingProbCeil     = 0.85
)

// RiskScorer converts a profile + analytics into the two calibrated risk
// probabilities.
type RiskScorer struct {
	overspending RiskModel
	stress       RiskModel
	timeout      time.Duration
	log          *logger.Logger
}

// NewRiskScorer wires HTTP-served models when RISK_MODEL_URL is set and
// the in-process heuristic models otherwise.
func NewRiskScorer(baseLog *logger.Logger) *RiskScorer {
	serviceLog := baseLog.With("service", "RiskScorer")
	timeoutSec := utils.GetEnvAsInt("RISK_MODEL_TIMEOUT_SECONDS", 10, baseLog)

	var overspending, stress RiskModel
	if url := os.Getenv("RISK_MODEL_URL"); url != "" {
		serviceLog.Info("Using remote risk models", "url", url)
		overspending = newHTTPRiskModel("overspending", url, time.Duration(timeoutSec)*time.Second)
		stress = newHTTPRiskModel("financial_stress", url, time.Duration(timeoutSec)*time.Second)
	} else {
		serviceLog.Info("RISK_MODEL_URL not set, using local heuristic models")
		overspending = &localOverspendingModel{}
		stress = &localStressModel{}
	}

	return &RiskScorer{
		overspending: overspending,
		stress:       stress,
		timeout:      time.Duration(timeoutSec) * time.Second,
		log:          serviceLog,
	}
}

// NewRiskScorerWithModels is the injection point for tests and custom
// model backends.
func NewRiskScorerWithModels(overspending, stress RiskModel, baseLog *logger.Logger) *RiskScorer {
	return &RiskScorer{
		overspending: overspending,
		stress:       stress,
		timeout:      10 * time.Second,
		log:          baseLog.With("service", "RiskScorer"),
	}
}

// Score runs both models concurrently. An inference failure on either
// aborts the whole call with a ScoringError: an unscored snapshot is not
// useful, and model infra failures are not assumed transient, so there is
// no retry here.
func (rs *RiskScorer) Score(ctx context.Context, profile types.Profile, analytics types.Analytics) (types.RiskScores, error) {
	ctx, cancel := context.WithTimeout(ctx, rs.timeout)
	defer cancel()

	var overspendingRaw, stressRaw float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		raw, err := rs.overspending.Predict(gctx, overspendingFeatures(profile, analytics))
		if err != nil {
			return &faults.ScoringError{Model: rs.overspending.Name(), Cause: err}
		}
		overspendingRaw = raw
		return nil
	})
	g.Go(func() error {
		raw, err := rs.stress.Predict(gctx, stressFeatures(profile))
		if err != nil {
			return &faults.ScoringError{Model: rs.stress.Name(), Cause: err}
		}
		stressRaw = raw
		return nil
	})
	if err := g.Wait(); err != nil {
		return types.RiskScores{}, err
	}

	return types.RiskScores{
		OverspendingProb:    squashOverspending(overspendingRaw),
		FinancialStressProb: clamp(stressRaw, 0, 1),
	}, nil
}

func squashOverspending(dollars float64) float64 {
	p := 1.0 / (1.0 + math.Exp(-dollars/overspendingSigmoidScale))
	return clamp(p, overspendingProbFloor, overspendingProbCeil)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ---- HTTP-served models ----

type httpRiskModel struct {
	name       string
	url        string
	httpClient *http.Client
}

func newHTTPRiskModel(name, url string, timeout time.Duration) *httpRiskModel {
	return &httpRiskModel{
		name:       name,
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (m *httpRiskModel) Name() string { return m.name }

type predictRequest struct {
	Model    string    `json:"model"`
	Features []float64 `json:"features"`
}

type predictResponse struct {
	Prediction float64 `json:"prediction"`
}

func (m *httpRiskModel) Predict(ctx context.Context, features []float64) (float64, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(predictRequest{Model: m.name, Features: features}); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url+"/predict", &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("model server returned %d: %s", resp.StatusCode, string(raw))
	}

	var out predictResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("decode prediction: %w", err)
	}
	return out.Prediction, nil
}

// ---- Local heuristic models ----
//
// Rule-based stand-ins used when no model server is configured. Fully
// deterministic: same features, same score.

type localOverspendingModel struct{}

func (m *localOverspendingModel) Name() string { return "overspending" }

// Predict estimates monthly overspending in dollars: the raw gap between
// spending and resources, nudged up by heavy discretionary spending.
func (m *localOverspendingModel) Predict(_ context.Context, features []float64) (float64, error) {
	if len(features) <= featDiscretionary {
		return 0, fmt.Errorf("expected %d features, got %d", featDiscretionary+1, len(features))
	}
	gap := features[featTotalSpending] - features[featTotalResources]
	return gap + 0.25*features[featDiscretionary], nil
}

type localStressModel struct{}

func (m *localStressModel) Name() string { return "financial_stress" }

func (m *localStressModel) Predict(_ context.Context, features []float64) (float64, error) {
	if len(features) < numProfileFeatures {
		return 0, fmt.Errorf("expected %d features, got %d", numProfileFeatures, len(features))
	}

	totalIncome := features[featMonthlyIncome] + features[featFinancialAid]
	var totalSpending float64
	for i := featTuition; i <= featMiscellaneous; i++ {
		totalSpending += features[i]
	}

	var stress float64
	switch {
	case totalIncome < 800:
		stress = 0.7
	case totalIncome < 1200:
		stress = 0.5
	case totalIncome < 1800:
		stress = 0.35
	default:
		stress = 0.2
	}

	spendingRatio := 2.0
	if totalIncome > 0 {
		spendingRatio = totalSpending / totalIncome
	}
	switch {
	case spendingRatio > 1.0:
		stress += 0.2
	case spendingRatio > 0.95:
		stress += 0.1
	}

	// Seniors and grad students report more financial stress.
	if features[featYearInSchool] >= 3 {
		stress += 0.05
	}

	return clamp(stress, 0.05, 0.95), nil
}
