package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fincoach-backend/internal/repos"
	"github.com/yungbote/fincoach-backend/internal/requestdata"
	"github.com/yungbote/fincoach-backend/internal/services"
	"github.com/yungbote/fincoach-backend/internal/types"
)

const dashboardHistoryLimit = 10

type DashboardHandler struct {
	snapshots repos.SnapshotRepo
	analytics *services.AnalyticsService
}

func NewDashboardHandler(snapshots repos.SnapshotRepo, analytics *services.AnalyticsService) *DashboardHandler {
	return &DashboardHandler{snapshots: snapshots, analytics: analytics}
}

// GET /api/dashboard
func (h *DashboardHandler) Get(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	ctx := c.Request.Context()
	snaps, err := h.snapshots.History(ctx, rd.UserID, dashboardHistoryLimit)
	if err != nil {
		RespondError(c, err)
		return
	}
	if len(snaps) == 0 {
		RespondOK(c, gin.H{"user_id": rd.UserID, "has_data": false})
		return
	}

	latest := snaps[0]
	profile, err := latest.DecodeProfile()
	if err != nil {
		RespondError(c, err)
		return
	}
	analytics, err := latest.DecodeAnalytics()
	if err != nil {
		RespondError(c, err)
		return
	}
	summary, err := latest.DecodeSummary()
	if err != nil {
		RespondError(c, err)
		return
	}

	breakdown := make(gin.H, len(types.SpendingFields))
	for _, field := range types.SpendingFields {
		v, _ := profile.Get(field)
		breakdown[field] = v
	}

	payload := gin.H{
		"user_id":            rd.UserID,
		"has_data":           true,
		"latest_snapshot_id": latest.ID,
		"spending_breakdown": breakdown,
		"analytics":          analytics,
		"risk_scores":        latest.RiskScores(),
		"summary":            summary,
		"history":            historyPayload(snaps),
	}

	// Movement since the previous check-in, when there is one.
	if len(snaps) > 1 {
		previous, err := snaps[1].DecodeAnalytics()
		if err == nil {
			payload["deltas"] = h.analytics.Deltas(analytics, previous)
		}
	}

	RespondOK(c, payload)
}

// historyPayload returns chart points in chronological order.
func historyPayload(snaps []*types.FinancialSnapshot) []gin.H {
	out := make([]gin.H, 0, len(snaps))
	for i := len(snaps) - 1; i >= 0; i-- {
		s := snaps[i]
		point := gin.H{
			"snapshot_id":           s.ID,
			"created_at":            s.CreatedAt,
			"overspending_prob":     s.OverspendingProb,
			"financial_stress_prob": s.FinancialStressProb,
		}
		if a, err := s.DecodeAnalytics(); err == nil {
			point["total_spending"] = a.TotalSpending
			point["total_resources"] = a.TotalResources
		}
		out = append(out, point)
	}
	return out
}

// GET /api/snapshots?limit=
func (h *DashboardHandler) Snapshots(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	limit := parseLimit(c.Query("limit"), dashboardHistoryLimit)
	snaps, err := h.snapshots.History(c.Request.Context(), rd.UserID, limit)
	if err != nil {
		RespondError(c, err)
		return
	}

	items := make([]gin.H, 0, len(snaps))
	for _, s := range snaps {
		payload, err := snapshotPayload(s)
		if err != nil {
			RespondError(c, err)
			return
		}
		items = append(items, payload)
	}
	RespondOK(c, gin.H{"snapshots": items})
}

// DELETE /api/data
func (h *DashboardHandler) WipeData(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	if err := h.snapshots.Wipe(c.Request.Context(), rd.UserID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}
