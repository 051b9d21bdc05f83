package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/yungbote/fincoach-backend/internal/logger"
	"github.com/yungbote/fincoach-backend/internal/repos"
	"github.com/yungbote/fincoach-backend/internal/types"
)

// PipelineService chains analytics, risk scoring, summary generation and
// the snapshot append. Runs for the same user are serialized so two
// concurrent submissions cannot interleave their latest-pointer updates.
type PipelineService struct {
	analytics  *AnalyticsService
	scorer     *RiskScorer
	summarizer *SummarizerService
	snapshots  repos.SnapshotRepo
	log        *logger.Logger

	locks sync.Map // uuid.UUID -> *sync.Mutex
}

func NewPipelineService(
	analytics *AnalyticsService,
	scorer *RiskScorer,
	summarizer *SummarizerService,
	snapshots repos.SnapshotRepo,
	baseLog *logger.Logger,
) *PipelineService {
	return &PipelineService{
		analytics:  analytics,
		scorer:     scorer,
		summarizer: summarizer,
		snapshots:  snapshots,
		log:        baseLog.With("service", "PipelineService"),
	}
}

func (ps *PipelineService) lockFor(userID uuid.UUID) *sync.Mutex {
	mu, _ := ps.locks.LoadOrStore(userID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// LockUser serializes a multi-step operation (like a chat turn) with any
// concurrent pipeline run for the same user. The returned func releases
// the lock.
func (ps *PipelineService) LockUser(userID uuid.UUID) func() {
	mu := ps.lockFor(userID)
	mu.Lock()
	return mu.Unlock
}

// Run executes the full pipeline for a complete profile and returns the
// newly appended snapshot.
func (ps *PipelineService) Run(ctx context.Context, userID uuid.UUID, profile types.Profile) (*types.FinancialSnapshot, error) {
	unlock := ps.LockUser(userID)
	defer unlock()
	return ps.RunLocked(ctx, userID, profile)
}

// RunLocked is Run for callers already holding the user lock. A scoring or
// persistence failure aborts the run with no snapshot written; a summary
// failure never aborts because the summarizer falls back internally.
func (ps *PipelineService) RunLocked(ctx context.Context, userID uuid.UUID, profile types.Profile) (*types.FinancialSnapshot, error) {
	snap, err := ps.Build(ctx, userID, profile)
	if err != nil {
		return nil, err
	}
	if err := ps.snapshots.Append(ctx, nil, snap); err != nil {
		return nil, err
	}

	analytics, _ := snap.DecodeAnalytics()
	ps.log.Info("Snapshot appended",
		"user_id", userID.String(),
		"snapshot_id", snap.ID.String(),
		"net_balance", analytics.NetBalance,
		"overspending", analytics.IsOverspending)
	return snap, nil
}

// Build runs analytics, scoring and summary generation and returns the
// assembled snapshot without persisting it. Callers that must append it
// together with other writes pass the result to the snapshot repo inside
// their own transaction.
func (ps *PipelineService) Build(ctx context.Context, userID uuid.UUID, profile types.Profile) (*types.FinancialSnapshot, error) {
	analytics, err := ps.analytics.Compute(profile)
	if err != nil {
		return nil, err
	}

	scores, err := ps.scorer.Score(ctx, profile, analytics)
	if err != nil {
		return nil, err
	}

	summary := ps.summarizer.Summarize(ctx, analytics, scores)

	return types.NewFinancialSnapshot(userID, profile, analytics, scores, summary)
}
