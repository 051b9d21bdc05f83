package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/fincoach-backend/internal/faults"
	"github.com/yungbote/fincoach-backend/internal/logger"
	"github.com/yungbote/fincoach-backend/internal/repos"
	"github.com/yungbote/fincoach-backend/internal/schema"
	"github.com/yungbote/fincoach-backend/internal/types"
)

const chatHistoryWindow = 6

// CoachService runs one chat turn: build context from the referenced
// snapshot, generate a structured coaching response, validate any field
// updates the model proposed, re-run the pipeline when updates were
// accepted, and persist the interaction. The whole turn holds the user's
// pipeline lock so a concurrent intake cannot interleave, and its store
// writes commit together so a failed turn leaves nothing behind.
type CoachService struct {
	db           *gorm.DB
	ai           AIClient
	guard        *SafetyGuard
	pipeline     *PipelineService
	snapshots    repos.SnapshotRepo
	interactions repos.InteractionRepo
	log          *logger.Logger
}

// NewCoachService builds the chat orchestrator. db carries the transaction
// that covers the snapshot append and the interaction insert; when nil,
// each store call manages its own.
func NewCoachService(
	db *gorm.DB,
	ai AIClient,
	guard *SafetyGuard,
	pipeline *PipelineService,
	snapshots repos.SnapshotRepo,
	interactions repos.InteractionRepo,
	baseLog *logger.Logger,
) *CoachService {
	return &CoachService{
		db:           db,
		ai:           ai,
		guard:        guard,
		pipeline:     pipeline,
		snapshots:    snapshots,
		interactions: interactions,
		log:          baseLog.With("service", "CoachService"),
	}
}

func coachSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"response_type": map[string]any{
				"type": "string",
				"enum": []string{types.ResponseTypeCoaching, types.ResponseTypeFeedback, types.ResponseTypeUpdate},
			},
			"priority_issues": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 1,
				"maxItems": 3,
			},
			"explanation": map[string]any{"type": "string"},
			"actions_for_week": map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"maxItems": 3,
			},
			"lesson_outline": map[string]any{
				"type": []string{"object", "null"},
				"properties": map[string]any{
					"title":         map[string]any{"type": "string"},
					"bullet_points": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required":             []string{"title", "bullet_points"},
				"additionalProperties": false,
			},
			"field_updates": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"field": map[string]any{"type": "string"},
						"value": map[string]any{"type": "number"},
					},
					"required":             []string{"field", "value"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"response_type", "priority_issues", "explanation", "actions_for_week", "lesson_outline", "field_updates"},
		"additionalProperties": false,
	}
}

const coachSystemPrompt = `You are a supportive financial micro-coach for college students. You deliver bite-sized financial EDUCATION through personalized lessons that explain WHY concepts matter and HOW to apply them.

TONE: supportive and encouraging like a helpful peer, non-judgmental, practical, emotionally neutral, accessible. No shame or moralizing about spending choices.

BOUNDARIES: NO investment advice (stocks, crypto, retirement accounts). NO tax advice. NO legal claims or debt negotiation strategies. Focus on budgeting awareness, spending habits, savings, and basic financial literacy.

RESPONSE TYPES - detect the student's intent:
1. "coaching" - asking for help/advice: give actions plus an educational lesson
2. "feedback" - reporting what they did: encourage them, actions_for_week must be empty
3. "update" - reporting a specific number change: extract the update, give feedback

FIELD UPDATES - if the student states a specific spending or income change, extract it.
Valid fields: monthly_income, financial_aid, tuition, housing, food, transportation, books_supplies, entertainment, personal_care, technology, health_wellness, miscellaneous.
All values must be MONTHLY amounts. Convert: weekly x 4, yearly / 12, semester / 4. If the period is ambiguous, ask for clarification in your explanation and do NOT extract the update.

lesson_outline is required for coaching responses (a concept with 2-4 bullet points explaining why it matters), null otherwise. field_updates is an empty array when no specific numbers were mentioned.`

// Chat handles one user message against the referenced (or latest)
// snapshot. When the model proposes updates that pass validation, a new
// snapshot is appended and returned alongside the interaction; otherwise
// the snapshot return is nil.
func (cs *CoachService) Chat(ctx context.Context, userID uuid.UUID, message string, snapshotID *uuid.UUID) (*types.ChatInteraction, *types.FinancialSnapshot, error) {
	safeMessage := cs.guard.SanitizeInput(message)
	if strings.TrimSpace(safeMessage) == "" {
		return nil, nil, &faults.ValidationError{Field: "message", Reason: "message is empty", Kind: faults.KindType}
	}

	unlock := cs.pipeline.LockUser(userID)
	defer unlock()

	snap, err := cs.loadSnapshot(ctx, userID, snapshotID)
	if err != nil {
		return nil, nil, err
	}

	profile, err := snap.DecodeProfile()
	if err != nil {
		return nil, nil, err
	}
	analytics, err := snap.DecodeAnalytics()
	if err != nil {
		return nil, nil, err
	}

	history, err := cs.interactions.Recent(ctx, userID, chatHistoryWindow)
	if err != nil {
		return nil, nil, err
	}

	out, err := cs.generate(ctx, safeMessage, profile, analytics, snap.RiskScores(), history)
	if err != nil {
		cs.guard.LogInteraction("coach", false)
		return nil, nil, &faults.GenerationError{Stage: "coach", Cause: err}
	}
	cs.guard.LogInteraction("coach", true)

	newSnap, err := cs.applyUpdates(ctx, userID, profile, &out)
	if err != nil {
		return nil, nil, err
	}

	linkedSnapshotID := snap.ID
	if newSnap != nil {
		linkedSnapshotID = newSnap.ID
	}
	interaction, err := types.NewChatInteraction(userID, &linkedSnapshotID, safeMessage, out)
	if err != nil {
		return nil, nil, err
	}

	// The snapshot append and the interaction insert commit together: a
	// rejected turn must not move the latest pointer without its audit
	// record.
	persist := func(tx *gorm.DB) error {
		if newSnap != nil {
			if err := cs.snapshots.Append(ctx, tx, newSnap); err != nil {
				return err
			}
		}
		return cs.interactions.Create(ctx, tx, interaction)
	}
	if cs.db != nil {
		err = cs.db.Transaction(func(tx *gorm.DB) error {
			return persist(tx)
		})
	} else {
		err = persist(nil)
	}
	if err != nil {
		return nil, nil, err
	}

	if newSnap != nil {
		cs.log.Info("Snapshot appended from chat turn",
			"user_id", userID.String(),
			"snapshot_id", newSnap.ID.String())
	}
	return interaction, newSnap, nil
}

// History returns the most recent interactions, newest first.
func (cs *CoachService) History(ctx context.Context, userID uuid.UUID, limit int) ([]*types.ChatInteraction, error) {
	return cs.interactions.Recent(ctx, userID, limit)
}

func (cs *CoachService) loadSnapshot(ctx context.Context, userID uuid.UUID, snapshotID *uuid.UUID) (*types.FinancialSnapshot, error) {
	if snapshotID != nil {
		return cs.snapshots.GetByID(ctx, userID, *snapshotID)
	}
	snap, err := cs.snapshots.Latest(ctx, userID)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, faults.ErrNoSnapshot
	}
	return snap, nil
}

func (cs *CoachService) generate(
	ctx context.Context,
	message string,
	profile types.Profile,
	analytics types.Analytics,
	scores types.RiskScores,
	history []*types.ChatInteraction,
) (types.CoachOutput, error) {
	if cs.ai == nil {
		return types.CoachOutput{}, fmt.Errorf("coach model not configured")
	}

	prompt := cs.guard.WithSafetyContext(coachContext(message, profile, analytics, scores, history))

	raw, err := cs.ai.GenerateJSON(ctx, coachSystemPrompt, prompt, "coach_response", coachSchema())
	if err != nil {
		return types.CoachOutput{}, err
	}
	out, err := parseCoachOutput(raw)
	if err != nil {
		cs.log.Warn("Coach response invalid, retrying once", "error", err)
		correction := prompt + "\n\nYour previous answer was rejected: " + err.Error() +
			". Return ONLY the JSON object with all required fields."
		raw, err = cs.ai.GenerateJSON(ctx, coachSystemPrompt, correction, "coach_response", coachSchema())
		if err != nil {
			return types.CoachOutput{}, err
		}
		out, err = parseCoachOutput(raw)
		if err != nil {
			return types.CoachOutput{}, err
		}
	}

	checkText := out.Explanation + " " + strings.Join(out.ActionsForWeek, " ")
	if ok, reason := cs.guard.CheckOutput(checkText); !ok {
		return types.CoachOutput{}, fmt.Errorf("unsafe output: %s", reason)
	}
	return out, nil
}

func coachContext(message string, p types.Profile, a types.Analytics, scores types.RiskScores, history []*types.ChatInteraction) string {
	var b strings.Builder
	val := func(field string) int64 {
		v, _ := p.Get(field)
		return v
	}

	fmt.Fprintf(&b, "Current Financial Snapshot:\n")
	fmt.Fprintf(&b, "- Age: %d\n", val(schema.FieldAge))
	fmt.Fprintf(&b, "- Year: %s\n", schema.Label(schema.FieldYearInSchool, val(schema.FieldYearInSchool)))
	fmt.Fprintf(&b, "- Monthly Income: $%d\n", val(schema.FieldMonthlyIncome))
	fmt.Fprintf(&b, "- Financial Aid: $%d\n\n", val(schema.FieldFinancialAid))

	fmt.Fprintf(&b, "Monthly Expenses:\n")
	for _, field := range types.SpendingFields {
		fmt.Fprintf(&b, "- %s: $%d\n", strings.ReplaceAll(field, "_", " "), val(field))
	}

	fmt.Fprintf(&b, "\nAnalytics:\n")
	fmt.Fprintf(&b, "- Total Resources: $%d\n", a.TotalResources)
	fmt.Fprintf(&b, "- Total Spending: $%d\n", a.TotalSpending)
	fmt.Fprintf(&b, "- Net Balance: $%d\n", a.NetBalance)
	fmt.Fprintf(&b, "- Food Share: %.1f%%\n", a.FoodShare*100)
	fmt.Fprintf(&b, "- Entertainment Share: %.1f%%\n", a.EntertainmentShare*100)
	fmt.Fprintf(&b, "- Discretionary Share: %.1f%%\n\n", a.DiscretionaryShare*100)

	fmt.Fprintf(&b, "Risk Assessment:\n")
	fmt.Fprintf(&b, "- Overspending Probability: %.1f%%\n", scores.OverspendingProb*100)
	fmt.Fprintf(&b, "- Financial Stress Probability: %.1f%%\n", scores.FinancialStressProb*100)

	if len(history) > 0 {
		fmt.Fprintf(&b, "\nRecent conversation (newest first):\n")
		for _, it := range history {
			fmt.Fprintf(&b, "- student: %s\n", it.UserMessage)
			if out, err := it.DecodeOutput(); err == nil && out.Explanation != "" {
				fmt.Fprintf(&b, "  coach: %s\n", out.Explanation)
			}
		}
	}

	fmt.Fprintf(&b, "\nStudent's Message: %q", message)
	return b.String()
}

func parseCoachOutput(raw map[string]any) (types.CoachOutput, error) {
	out := types.CoachOutput{}

	rt, _ := raw["response_type"].(string)
	switch rt {
	case types.ResponseTypeCoaching, types.ResponseTypeFeedback, types.ResponseTypeUpdate:
		out.ResponseType = rt
	default:
		return out, fmt.Errorf("response_type %q is not valid", rt)
	}

	issues, err := stringSlice(raw["priority_issues"])
	if err != nil {
		return out, fmt.Errorf("priority_issues: %w", err)
	}
	if len(issues) == 0 {
		return out, fmt.Errorf("priority_issues is empty")
	}
	out.PriorityIssues = issues

	out.Explanation, _ = raw["explanation"].(string)
	if strings.TrimSpace(out.Explanation) == "" {
		return out, fmt.Errorf("explanation is empty")
	}

	if raw["actions_for_week"] != nil {
		actions, err := stringSlice(raw["actions_for_week"])
		if err != nil {
			return out, fmt.Errorf("actions_for_week: %w", err)
		}
		out.ActionsForWeek = actions
	}
	if out.ActionsForWeek == nil {
		out.ActionsForWeek = []string{}
	}

	if lessonRaw, ok := raw["lesson_outline"].(map[string]any); ok {
		title, _ := lessonRaw["title"].(string)
		points, err := stringSlice(lessonRaw["bullet_points"])
		if err != nil {
			return out, fmt.Errorf("lesson_outline.bullet_points: %w", err)
		}
		if strings.TrimSpace(title) != "" && len(points) > 0 {
			out.LessonOutline = &types.LessonOutline{Title: title, BulletPoints: points}
		}
	}

	if updatesRaw, ok := raw["field_updates"].([]any); ok {
		for i, u := range updatesRaw {
			m, ok := u.(map[string]any)
			if !ok {
				return out, fmt.Errorf("field_updates entry %d is not an object", i)
			}
			field, _ := m["field"].(string)
			value, ok := m["value"].(float64)
			if field == "" || !ok {
				return out, fmt.Errorf("field_updates entry %d is missing field or value", i)
			}
			out.FieldUpdates = append(out.FieldUpdates, types.FieldUpdate{Field: field, Value: value})
		}
	}
	if out.FieldUpdates == nil {
		out.FieldUpdates = []types.FieldUpdate{}
	}

	return out, nil
}

// applyUpdates validates the proposed field updates against the registry,
// records accepted and rejected outcomes on the output, and re-runs the
// pipeline when anything was accepted. The returned snapshot is built but
// not yet persisted; Chat appends it alongside the interaction. When the
// model proposes the same field more than once in a turn, the last
// proposal wins.
func (cs *CoachService) applyUpdates(ctx context.Context, userID uuid.UUID, profile types.Profile, out *types.CoachOutput) (*types.FinancialSnapshot, error) {
	out.AppliedUpdates = []types.AppliedUpdate{}
	out.RejectedUpdates = []types.RejectedUpdate{}
	if len(out.FieldUpdates) == 0 {
		return nil, nil
	}

	latest := make(map[string]types.FieldUpdate, len(out.FieldUpdates))
	var order []string
	for _, u := range out.FieldUpdates {
		if _, seen := latest[u.Field]; !seen {
			order = append(order, u.Field)
		}
		latest[u.Field] = u
	}

	next := profile.Clone()
	for _, field := range order {
		u := latest[field]
		v, err := schema.ValidateNumber(u.Field, u.Value)
		if err != nil {
			out.RejectedUpdates = append(out.RejectedUpdates, types.RejectedUpdate{
				Field:  u.Field,
				Value:  u.Value,
				Reason: err.Error(),
			})
			cs.log.Warn("Rejected proposed update",
				"user_id", userID.String(), "field", u.Field, "reason", err.Error())
			continue
		}
		next.Set(u.Field, v)
		out.AppliedUpdates = append(out.AppliedUpdates, types.AppliedUpdate{Field: u.Field, Value: v})
	}

	if len(out.AppliedUpdates) == 0 {
		return nil, nil
	}

	next.Derive()
	return cs.pipeline.Build(ctx, userID, next)
}
