package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/fincoach-backend/internal/repos"
	"github.com/yungbote/fincoach-backend/internal/requestdata"
	"github.com/yungbote/fincoach-backend/internal/services"
)

type SurveyHandler struct {
	survey *services.SurveyService
	users  repos.UserRepo
}

func NewSurveyHandler(survey *services.SurveyService, users repos.UserRepo) *SurveyHandler {
	return &SurveyHandler{survey: survey, users: users}
}

type nextQuestionRequest struct {
	CollectedFields []string `json:"collected_fields"`
}

// POST /api/survey/next-question
func (h *SurveyHandler) NextQuestion(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
		return
	}

	var req nextQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), nil, rd.UserID)
	if err != nil {
		RespondError(c, err)
		return
	}

	// Returning users with stored demographics only answer check-in
	// questions.
	q, ok := h.survey.Next(req.CollectedFields, user.HasProfile())
	if !ok {
		RespondOK(c, gin.H{"is_complete": true, "progress": 1.0})
		return
	}
	RespondOK(c, gin.H{"is_complete": false, "next_question": q})
}
