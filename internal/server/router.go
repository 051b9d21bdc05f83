package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/fincoach-backend/internal/handlers"
	"github.com/yungbote/fincoach-backend/internal/middleware"
	"github.com/yungbote/fincoach-backend/internal/utils"
)

type RouterConfig struct {
	AuthMiddleware   *middleware.AuthMiddleware
	IntakeHandler    *handlers.IntakeHandler
	SurveyHandler    *handlers.SurveyHandler
	CoachHandler     *handlers.CoachHandler
	DashboardHandler *handlers.DashboardHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	allowOrigins := strings.Split(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000,http://localhost:5173", nil), ",")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	// Intake
	api.POST("/intake", cfg.IntakeHandler.Submit)
	// Survey
	api.POST("/survey/next-question", cfg.SurveyHandler.NextQuestion)
	// Coach
	api.POST("/coach/chat", cfg.CoachHandler.Chat)
	api.GET("/coach/history", cfg.CoachHandler.History)
	// Dashboard
	api.GET("/dashboard", cfg.DashboardHandler.Get)
	api.GET("/snapshots", cfg.DashboardHandler.Snapshots)
	api.DELETE("/data", cfg.DashboardHandler.WipeData)

	return router
}
