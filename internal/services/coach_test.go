package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/yungbote/fincoach-backend/internal/faults"
	"github.com/yungbote/fincoach-backend/internal/repos"
	"github.com/yungbote/fincoach-backend/internal/schema"
	"github.com/yungbote/fincoach-backend/internal/types"
)

type memSnapshotRepo struct {
	snaps []*types.FinancialSnapshot
}

func (r *memSnapshotRepo) Append(_ context.Context, _ *gorm.DB, snap *types.FinancialSnapshot) error {
	r.snaps = append(r.snaps, snap)
	return nil
}

func (r *memSnapshotRepo) Latest(_ context.Context, userID uuid.UUID) (*types.FinancialSnapshot, error) {
	for i := len(r.snaps) - 1; i >= 0; i-- {
		if r.snaps[i].UserID == userID {
			return r.snaps[i], nil
		}
	}
	return nil, nil
}

func (r *memSnapshotRepo) GetByID(_ context.Context, userID, snapshotID uuid.UUID) (*types.FinancialSnapshot, error) {
	for _, s := range r.snaps {
		if s.ID == snapshotID && s.UserID == userID {
			return s, nil
		}
	}
	return nil, faults.ErrSnapshotNotFound
}

func (r *memSnapshotRepo) History(_ context.Context, userID uuid.UUID, limit int) ([]*types.FinancialSnapshot, error) {
	var out []*types.FinancialSnapshot
	for i := len(r.snaps) - 1; i >= 0 && len(out) < limit; i-- {
		if r.snaps[i].UserID == userID {
			out = append(out, r.snaps[i])
		}
	}
	return out, nil
}

func (r *memSnapshotRepo) Wipe(_ context.Context, userID uuid.UUID) error {
	var kept []*types.FinancialSnapshot
	for _, s := range r.snaps {
		if s.UserID != userID {
			kept = append(kept, s)
		}
	}
	r.snaps = kept
	return nil
}

type memInteractionRepo struct {
	interactions []*types.ChatInteraction
}

func (r *memInteractionRepo) Create(_ context.Context, _ *gorm.DB, it *types.ChatInteraction) error {
	r.interactions = append(r.interactions, it)
	return nil
}

func (r *memInteractionRepo) Recent(_ context.Context, userID uuid.UUID, limit int) ([]*types.ChatInteraction, error) {
	var out []*types.ChatInteraction
	for i := len(r.interactions) - 1; i >= 0 && len(out) < limit; i-- {
		if r.interactions[i].UserID == userID {
			out = append(out, r.interactions[i])
		}
	}
	return out, nil
}

type coachFixture struct {
	svc      *CoachService
	ai       *fakeAIClient
	snaps    *memSnapshotRepo
	chats    *memInteractionRepo
	userID   uuid.UUID
	snapshot *types.FinancialSnapshot
}

func newCoachFixture(t *testing.T, ai *fakeAIClient) *coachFixture {
	t.Helper()
	log := newTestLogger(t)
	guard := NewSafetyGuard(log)
	snaps := &memSnapshotRepo{}
	chats := &memInteractionRepo{}

	analytics := NewAnalyticsService(log)
	scorer := NewRiskScorerWithModels(&localOverspendingModel{}, &localStressModel{}, log)
	summarizer := NewSummarizerService(nil, guard, log)
	pipeline := NewPipelineService(analytics, scorer, summarizer, snaps, log)

	userID := uuid.New()
	p := completeProfile()
	p[schema.FieldMonthlyIncome] = 1200
	p[schema.FieldFinancialAid] = 300
	p[schema.FieldTuition] = 400
	p[schema.FieldHousing] = 600
	p[schema.FieldFood] = 300
	p.Derive()

	snap, err := pipeline.Run(context.Background(), userID, p)
	if err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	return &coachFixture{
		svc:      NewCoachService(nil, ai, guard, pipeline, snaps, chats, log),
		ai:       ai,
		snaps:    snaps,
		chats:    chats,
		userID:   userID,
		snapshot: snap,
	}
}

func coachingResponse(updates []any) map[string]any {
	return map[string]any{
		"response_type":   "update",
		"priority_issues": []any{"progress_made"},
		"explanation":     "Got it, I've updated your food spending.",
		"actions_for_week": []any{},
		"lesson_outline":  nil,
		"field_updates":   updates,
	}
}

func TestChat_AcceptedUpdateAppendsNewSnapshot(t *testing.T) {
	ai := &fakeAIClient{responses: []map[string]any{
		coachingResponse([]any{map[string]any{"field": "food", "value": float64(600)}}),
	}}
	fx := newCoachFixture(t, ai)

	interaction, newSnap, err := fx.svc.Chat(context.Background(), fx.userID, "I spent $600 on food this month", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newSnap == nil {
		t.Fatalf("expected a new snapshot")
	}
	if newSnap.ID == fx.snapshot.ID {
		t.Fatalf("expected a fresh snapshot, old one was reused")
	}
	if len(fx.snaps.snaps) != 2 {
		t.Fatalf("expected 2 snapshots (append-only), got %d", len(fx.snaps.snaps))
	}

	profile, err := newSnap.DecodeProfile()
	if err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if v := profile[schema.FieldFood]; v != 600 {
		t.Fatalf("expected food 600 in new snapshot, got %d", v)
	}
	if v := profile[schema.FieldTotalSpending]; v != 1600 {
		t.Fatalf("expected total_spending recomputed to 1600, got %d", v)
	}

	out, err := interaction.DecodeOutput()
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(out.AppliedUpdates) != 1 || out.AppliedUpdates[0].Field != "food" || out.AppliedUpdates[0].Value != 600 {
		t.Fatalf("unexpected applied updates: %+v", out.AppliedUpdates)
	}
	if interaction.SnapshotID == nil || *interaction.SnapshotID != newSnap.ID {
		t.Fatalf("interaction must link to the new snapshot")
	}
}

func TestChat_OldSnapshotsUntouchedAfterUpdate(t *testing.T) {
	ai := &fakeAIClient{responses: []map[string]any{
		coachingResponse([]any{map[string]any{"field": "food", "value": float64(600)}}),
	}}
	fx := newCoachFixture(t, ai)

	if _, _, err := fx.svc.Chat(context.Background(), fx.userID, "food was 600", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	old, err := fx.snaps.GetByID(context.Background(), fx.userID, fx.snapshot.ID)
	if err != nil {
		t.Fatalf("old snapshot gone: %v", err)
	}
	profile, err := old.DecodeProfile()
	if err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if v := profile[schema.FieldFood]; v != 300 {
		t.Fatalf("old snapshot mutated: food=%d", v)
	}
}

func TestChat_RejectedUpdateIsAuditedNotApplied(t *testing.T) {
	ai := &fakeAIClient{responses: []map[string]any{
		coachingResponse([]any{
			map[string]any{"field": "total_spending", "value": float64(900)},
			map[string]any{"field": "food", "value": float64(-50)},
		}),
	}}
	fx := newCoachFixture(t, ai)

	interaction, newSnap, err := fx.svc.Chat(context.Background(), fx.userID, "update my numbers", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newSnap != nil {
		t.Fatalf("no update passed validation, no snapshot should exist")
	}
	if len(fx.snaps.snaps) != 1 {
		t.Fatalf("expected snapshot count unchanged, got %d", len(fx.snaps.snaps))
	}

	out, err := interaction.DecodeOutput()
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(out.AppliedUpdates) != 0 {
		t.Fatalf("expected no applied updates, got %+v", out.AppliedUpdates)
	}
	if len(out.RejectedUpdates) != 2 {
		t.Fatalf("expected 2 rejected updates, got %+v", out.RejectedUpdates)
	}
	for _, r := range out.RejectedUpdates {
		if r.Reason == "" {
			t.Fatalf("rejected update without reason: %+v", r)
		}
	}
}

func TestChat_LastProposalWinsPerField(t *testing.T) {
	ai := &fakeAIClient{responses: []map[string]any{
		coachingResponse([]any{
			map[string]any{"field": "food", "value": float64(500)},
			map[string]any{"field": "food", "value": float64(600)},
		}),
	}}
	fx := newCoachFixture(t, ai)

	interaction, newSnap, err := fx.svc.Chat(context.Background(), fx.userID, "food was 500, no wait, 600", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newSnap == nil {
		t.Fatalf("expected a new snapshot")
	}

	out, err := interaction.DecodeOutput()
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(out.AppliedUpdates) != 1 {
		t.Fatalf("expected a single applied update, got %+v", out.AppliedUpdates)
	}
	if out.AppliedUpdates[0].Value != 600 {
		t.Fatalf("expected last proposal (600) to win, got %d", out.AppliedUpdates[0].Value)
	}
}

func TestChat_InformationalTurnPersistsNoSnapshot(t *testing.T) {
	ai := &fakeAIClient{responses: []map[string]any{{
		"response_type":   "coaching",
		"priority_issues": []any{"tight_budget"},
		"explanation":     "Your food share is the biggest lever right now.",
		"actions_for_week": []any{"Plan three dinners at home"},
		"lesson_outline": map[string]any{
			"title":         "Small Amounts Add Up",
			"bullet_points": []any{"$5 a day is $150 a month", "Consistency beats intensity"},
		},
		"field_updates": []any{},
	}}}
	fx := newCoachFixture(t, ai)

	interaction, newSnap, err := fx.svc.Chat(context.Background(), fx.userID, "how can I spend less on food?", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newSnap != nil {
		t.Fatalf("informational turn must not append a snapshot")
	}
	if interaction.SnapshotID == nil || *interaction.SnapshotID != fx.snapshot.ID {
		t.Fatalf("interaction must link to the snapshot it was grounded on")
	}

	out, err := interaction.DecodeOutput()
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if out.LessonOutline == nil || out.LessonOutline.Title != "Small Amounts Add Up" {
		t.Fatalf("expected lesson outline, got %+v", out.LessonOutline)
	}
}

func TestChat_NoSnapshotYet(t *testing.T) {
	ai := &fakeAIClient{}
	log := newTestLogger(t)
	guard := NewSafetyGuard(log)
	snaps := &memSnapshotRepo{}
	chats := &memInteractionRepo{}
	pipeline := NewPipelineService(NewAnalyticsService(log),
		NewRiskScorerWithModels(&localOverspendingModel{}, &localStressModel{}, log),
		NewSummarizerService(nil, guard, log), snaps, log)
	svc := NewCoachService(nil, ai, guard, pipeline, snaps, chats, log)

	_, _, err := svc.Chat(context.Background(), uuid.New(), "hello", nil)
	if !errors.Is(err, faults.ErrNoSnapshot) {
		t.Fatalf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestChat_GenerationFailurePersistsNothing(t *testing.T) {
	ai := &fakeAIClient{errs: []error{fmt.Errorf("model down")}}
	fx := newCoachFixture(t, ai)

	_, _, err := fx.svc.Chat(context.Background(), fx.userID, "help me out", nil)
	var ge *faults.GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if len(fx.chats.interactions) != 0 {
		t.Fatalf("failed turn must not persist an interaction")
	}
	if len(fx.snaps.snaps) != 1 {
		t.Fatalf("failed turn must not append a snapshot")
	}
}

func TestChat_MalformedResponseRetriedOnce(t *testing.T) {
	ai := &fakeAIClient{responses: []map[string]any{
		{"response_type": "nonsense"},
		coachingResponse([]any{}),
	}}
	fx := newCoachFixture(t, ai)

	interaction, _, err := fx.svc.Chat(context.Background(), fx.userID, "thanks, I cooked at home all week", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ai.calls != 2 {
		t.Fatalf("expected retry, got %d calls", ai.calls)
	}
	if interaction == nil {
		t.Fatalf("expected persisted interaction")
	}
}

// downInteractionRepo delegates everything except Create, which always
// fails as if the interaction store were unreachable.
type downInteractionRepo struct {
	repos.InteractionRepo
}

func (r *downInteractionRepo) Create(context.Context, *gorm.DB, *types.ChatInteraction) error {
	return fmt.Errorf("interaction store down")
}

func TestChat_InteractionWriteFailureRollsBackSnapshot(t *testing.T) {
	log := newTestLogger(t)
	guard := NewSafetyGuard(log)

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := gdb.DB()
		_ = sqlDB.Close()
	})
	if err := gdb.AutoMigrate(&types.User{}, &types.FinancialSnapshot{}, &types.ChatInteraction{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	userID := uuid.New()
	if err := gdb.Create(&types.User{ID: userID, Subject: "rollback-" + userID.String()}).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}

	snaps := repos.NewSnapshotRepo(gdb, nil, log)
	chats := &downInteractionRepo{InteractionRepo: repos.NewInteractionRepo(gdb, log)}
	pipeline := NewPipelineService(NewAnalyticsService(log),
		NewRiskScorerWithModels(&localOverspendingModel{}, &localStressModel{}, log),
		NewSummarizerService(nil, guard, log), snaps, log)

	p := completeProfile()
	p[schema.FieldMonthlyIncome] = 1200
	p[schema.FieldFinancialAid] = 300
	p[schema.FieldTuition] = 400
	p[schema.FieldHousing] = 600
	p[schema.FieldFood] = 300
	p.Derive()
	seed, err := pipeline.Run(context.Background(), userID, p)
	if err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	ai := &fakeAIClient{responses: []map[string]any{
		coachingResponse([]any{map[string]any{"field": "food", "value": float64(600)}}),
	}}
	svc := NewCoachService(gdb, ai, guard, pipeline, snaps, chats, log)

	if _, _, err := svc.Chat(context.Background(), userID, "food was 600", nil); err == nil {
		t.Fatalf("expected error from failed interaction write")
	}

	history, err := snaps.History(context.Background(), userID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("failed turn must not append a snapshot, got %d", len(history))
	}
	latest, err := snaps.Latest(context.Background(), userID)
	if err != nil || latest == nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != seed.ID {
		t.Fatalf("latest snapshot changed after a failed turn")
	}

	var stored types.User
	if err := gdb.First(&stored, "id = ?", userID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if stored.LatestSnapshotID == nil || *stored.LatestSnapshotID != seed.ID {
		t.Fatalf("latest pointer moved after a failed turn")
	}
}

func TestChat_ReferencedSnapshotMustExist(t *testing.T) {
	ai := &fakeAIClient{}
	fx := newCoachFixture(t, ai)

	bogus := uuid.New()
	_, _, err := fx.svc.Chat(context.Background(), fx.userID, "about that old snapshot", &bogus)
	if !errors.Is(err, faults.ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
}
