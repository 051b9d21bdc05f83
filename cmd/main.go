package main

import (
	"fmt"
	"os"

	rediscache "github.com/yungbote/fincoach-backend/internal/clients/redis"
	"github.com/yungbote/fincoach-backend/internal/db"
	"github.com/yungbote/fincoach-backend/internal/handlers"
	"github.com/yungbote/fincoach-backend/internal/logger"
	"github.com/yungbote/fincoach-backend/internal/middleware"
	"github.com/yungbote/fincoach-backend/internal/repos"
	"github.com/yungbote/fincoach-backend/internal/server"
	"github.com/yungbote/fincoach-backend/internal/services"
	"github.com/yungbote/fincoach-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// DB
	dbService, err := db.New(log)
	if err != nil {
		log.Error("DB init failed", "error", err)
		os.Exit(1)
	}
	if err = dbService.AutoMigrateAll(); err != nil {
		log.Error("DB auto migration failed", "error", err)
		os.Exit(1)
	}
	theDB := dbService.DB()

	// Optional latest-snapshot cache
	snapshotCache, err := rediscache.NewSnapshotCache(log)
	if err != nil {
		log.Warn("Redis unavailable, continuing without snapshot cache", "error", err)
		snapshotCache = nil
	}

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(theDB, log)
	snapshotRepo := repos.NewSnapshotRepo(theDB, snapshotCache, log)
	interactionRepo := repos.NewInteractionRepo(theDB, log)

	// Services
	log.Info("Setting up Services from main...")
	aiClient, err := services.NewAIClient(log)
	if err != nil {
		log.Warn("AI client unavailable, summaries will use the deterministic fallback and coaching will be down", "error", err)
		aiClient = nil
	}
	safetyGuard := services.NewSafetyGuard(log)
	intakeService := services.NewIntakeService(log)
	analyticsService := services.NewAnalyticsService(log)
	riskScorer := services.NewRiskScorer(log)
	summarizerService := services.NewSummarizerService(aiClient, safetyGuard, log)
	pipelineService := services.NewPipelineService(analyticsService, riskScorer, summarizerService, snapshotRepo, log)
	surveyService := services.NewSurveyService()
	coachService := services.NewCoachService(theDB, aiClient, safetyGuard, pipelineService, snapshotRepo, interactionRepo, log)

	// Handlers
	log.Info("Setting up handlers from main...")
	intakeHandler := handlers.NewIntakeHandler(intakeService, pipelineService, userRepo)
	surveyHandler := handlers.NewSurveyHandler(surveyService, userRepo)
	coachHandler := handlers.NewCoachHandler(coachService)
	dashboardHandler := handlers.NewDashboardHandler(snapshotRepo, analyticsService)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, userRepo)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware:   authMiddleware,
		IntakeHandler:    intakeHandler,
		SurveyHandler:    surveyHandler,
		CoachHandler:     coachHandler,
		DashboardHandler: dashboardHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
