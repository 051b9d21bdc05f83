package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/fincoach-backend/internal/requestdata"
	"github.com/yungbote/fincoach-backend/internal/services"
)

type CoachHandler struct {
	coach *services.CoachService
}

func NewCoachHandler(coach *services.CoachService) *CoachHandler {
	return &CoachHandler{coach: coach}
}

type chatRequest struct {
	Message    string `json:"message"`
	SnapshotID string `json:"snapshot_id"`
}

// POST /api/coach/chat
func (h *CoachHandler) Chat(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var snapshotID *uuid.UUID
	if req.SnapshotID != "" {
		id, err := uuid.Parse(req.SnapshotID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid snapshot id"})
			return
		}
		snapshotID = &id
	}

	interaction, newSnap, err := h.coach.Chat(c.Request.Context(), rd.UserID, req.Message, snapshotID)
	if err != nil {
		RespondError(c, err)
		return
	}

	out, err := interaction.DecodeOutput()
	if err != nil {
		RespondError(c, err)
		return
	}

	payload := gin.H{
		"interaction_id": interaction.ID,
		"created_at":     interaction.CreatedAt,
		"response":       out,
	}
	if newSnap != nil {
		snapPayload, err := snapshotPayload(newSnap)
		if err != nil {
			RespondError(c, err)
			return
		}
		payload["new_snapshot"] = snapPayload
	}
	RespondOK(c, payload)
}

// GET /api/coach/history?limit=
func (h *CoachHandler) History(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	limit := parseLimit(c.Query("limit"), 20)
	interactions, err := h.coach.History(c.Request.Context(), rd.UserID, limit)
	if err != nil {
		RespondError(c, err)
		return
	}

	items := make([]gin.H, 0, len(interactions))
	for _, it := range interactions {
		out, err := it.DecodeOutput()
		if err != nil {
			RespondError(c, err)
			return
		}
		items = append(items, gin.H{
			"interaction_id": it.ID,
			"snapshot_id":    it.SnapshotID,
			"user_message":   it.UserMessage,
			"response":       out,
			"created_at":     it.CreatedAt,
		})
	}
	RespondOK(c, gin.H{"interactions": items})
}

func parseLimit(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
