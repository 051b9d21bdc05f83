package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fincoach-backend/internal/repos"
	"github.com/yungbote/fincoach-backend/internal/requestdata"
	"github.com/yungbote/fincoach-backend/internal/schema"
	"github.com/yungbote/fincoach-backend/internal/services"
	"github.com/yungbote/fincoach-backend/internal/types"
)

type IntakeHandler struct {
	intake   *services.IntakeService
	pipeline *services.PipelineService
	users    repos.UserRepo
}

func NewIntakeHandler(intake *services.IntakeService, pipeline *services.PipelineService, users repos.UserRepo) *IntakeHandler {
	return &IntakeHandler{intake: intake, pipeline: pipeline, users: users}
}

type intakeRequest struct {
	Answers []services.RawAnswer `json:"answers"`
}

// POST /api/intake
func (h *IntakeHandler) Submit(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req intakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if len(req.Answers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "answers are required"})
		return
	}

	ctx := c.Request.Context()
	user, err := h.users.GetByID(ctx, nil, rd.UserID)
	if err != nil {
		RespondError(c, err)
		return
	}

	profile, err := h.intake.Normalize(req.Answers, user)
	if err != nil {
		RespondError(c, err)
		return
	}

	// First complete intake fixes the one-time demographic fields on the
	// user record.
	if !user.HasProfile() {
		if err := h.saveDemographics(c, user, profile); err != nil {
			RespondError(c, err)
			return
		}
	}

	snap, err := h.pipeline.Run(ctx, user.ID, profile)
	if err != nil {
		RespondError(c, err)
		return
	}

	payload, err := snapshotPayload(snap)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, payload)
}

func (h *IntakeHandler) saveDemographics(c *gin.Context, user *types.User, profile types.Profile) error {
	get := func(field string) *int64 {
		v, _ := profile.Get(field)
		return &v
	}
	user.Age = get(schema.FieldAge)
	user.Gender = get(schema.FieldGender)
	user.YearInSchool = get(schema.FieldYearInSchool)
	user.Major = get(schema.FieldMajor)
	user.PreferredPaymentMethod = get(schema.FieldPreferredPaymentMethod)
	return h.users.SaveProfileFields(c.Request.Context(), nil, user)
}

// snapshotPayload flattens one snapshot's embedded documents into the
// response shape shared by intake, coach and dashboard.
func snapshotPayload(snap *types.FinancialSnapshot) (gin.H, error) {
	profile, err := snap.DecodeProfile()
	if err != nil {
		return nil, err
	}
	analytics, err := snap.DecodeAnalytics()
	if err != nil {
		return nil, err
	}
	summary, err := snap.DecodeSummary()
	if err != nil {
		return nil, err
	}
	return gin.H{
		"snapshot_id": snap.ID,
		"created_at":  snap.CreatedAt,
		"profile":     profile,
		"analytics":   analytics,
		"risk_scores": snap.RiskScores(),
		"summary":     summary,
	}, nil
}
