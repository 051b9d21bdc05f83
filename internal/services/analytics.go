package services

import (
	"github.com/yungbote/fincoach-backend/internal/faults"
	"github.com/yungbote/fincoach-backend/internal/logger"
	"github.com/yungbote/fincoach-backend/internal/schema"
	"github.com/yungbote/fincoach-backend/internal/types"
)

// AnalyticsService derives spending analytics from a profile. Compute is a
// pure function: no external calls, same input gives byte-identical
// output. The whole pipeline's reproducibility rests on that.
type AnalyticsService struct {
	log *logger.Logger
}

func NewAnalyticsService(baseLog *logger.Logger) *AnalyticsService {
	return &AnalyticsService{log: baseLog.With("service", "AnalyticsService")}
}

func (as *AnalyticsService) Compute(p types.Profile) (types.Analytics, error) {
	if missing := p.Missing(); len(missing) > 0 {
		return types.Analytics{}, &faults.IncompleteProfileError{Missing: missing}
	}

	totalResources := p[schema.FieldMonthlyIncome] + p[schema.FieldFinancialAid]

	var totalSpending int64
	for _, f := range types.SpendingFields {
		totalSpending += p[f]
	}
	discretionary := p[schema.FieldEntertainment] + p[schema.FieldPersonalCare] + p[schema.FieldMiscellaneous]

	netBalance := totalResources - totalSpending

	a := types.Analytics{
		TotalResources: totalResources,
		TotalSpending:  totalSpending,
		NetBalance:     netBalance,
		IsOverspending: netBalance < 0,
	}
	if netBalance < 0 {
		a.OverspendingAmount = -netBalance
	} else {
		a.SavingsPotential = netBalance
	}

	// Shares are fractions of total spending; zero spending means zero
	// shares rather than a division by zero.
	if totalSpending > 0 {
		ts := float64(totalSpending)
		a.FoodShare = float64(p[schema.FieldFood]) / ts
		a.HousingShare = float64(p[schema.FieldHousing]) / ts
		a.EntertainmentShare = float64(p[schema.FieldEntertainment]) / ts
		a.DiscretionaryShare = float64(discretionary) / ts
		a.TuitionShare = float64(p[schema.FieldTuition]) / ts
	}

	return a, nil
}

// Deltas compares two analytics snapshots, newest first.
func (as *AnalyticsService) Deltas(current, previous types.Analytics) types.AnalyticsDeltas {
	return types.AnalyticsDeltas{
		TotalSpendingDelta:      current.TotalSpending - previous.TotalSpending,
		NetBalanceDelta:         current.NetBalance - previous.NetBalance,
		FoodShareDelta:          current.FoodShare - previous.FoodShare,
		EntertainmentShareDelta: current.EntertainmentShare - previous.EntertainmentShare,
		DiscretionaryShareDelta: current.DiscretionaryShare - previous.DiscretionaryShare,
	}
}
