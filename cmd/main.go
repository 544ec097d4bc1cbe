package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/taskforge/taskforge-backend/internal/db"
	"github.com/taskforge/taskforge-backend/internal/handlers"
	"github.com/taskforge/taskforge-backend/internal/jobs"
	"github.com/taskforge/taskforge-backend/internal/logger"
	"github.com/taskforge/taskforge-backend/internal/middleware"
	"github.com/taskforge/taskforge-backend/internal/repos"
	"github.com/taskforge/taskforge-backend/internal/server"
	"github.com/taskforge/taskforge-backend/internal/services"
	"github.com/taskforge/taskforge-backend/internal/utils"
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

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 604800, log)
	snapshotSchedule := utils.GetEnv("SNAPSHOT_SCHEDULE", "59 23 * * *", log)
	allowOrigins := utils.GetEnv("CORS_ALLOW_ORIGINS", "", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	boardRepo := repos.NewBoardRepo(thePG, log)
	boardMemberRepo := repos.NewBoardMemberRepo(thePG, log)
	cardRepo := repos.NewCardRepo(thePG, log)
	cardHistoryRepo := repos.NewCardHistoryRepo(thePG, log)
	snapshotRepo := repos.NewSnapshotRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	authService := services.NewAuthService(
		thePG, log, userRepo, userTokenRepo,
		jwtSecretKey,
		time.Duration(accessTokenTTL)*time.Second,
		time.Duration(refreshTokenTTL)*time.Second,
	)
	permissionService := services.NewPermissionService(thePG, log, boardMemberRepo)
	boardService := services.NewBoardService(
		thePG, log, boardRepo, boardMemberRepo, cardRepo,
		cardHistoryRepo, snapshotRepo, userRepo, permissionService,
	)
	cardService := services.NewCardService(thePG, log, boardRepo, cardRepo, cardHistoryRepo)
	snapshotService := services.NewSnapshotService(thePG, log, boardRepo, cardRepo, cardHistoryRepo, snapshotRepo)
	burndownService := services.NewBurndownService(thePG, log, boardRepo, cardRepo, snapshotRepo, snapshotService)
	queryService := services.NewBoardQueryService(thePG, log, boardRepo, cardRepo, cardHistoryRepo)

	// Jobs
	snapshotScheduler := jobs.NewSnapshotScheduler(log, snapshotService, snapshotSchedule)
	if err := snapshotScheduler.Start(); err != nil {
		log.Error("Snapshot scheduler failed to start", "error", err)
		os.Exit(1)
	}
	defer snapshotScheduler.Stop()

	// Handlers
	log.Info("Setting up Handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	boardHandler := handlers.NewBoardHandler(boardService, queryService, permissionService)
	cardHandler := handlers.NewCardHandler(log, cardService, queryService, snapshotService, permissionService)
	analyticsHandler := handlers.NewAnalyticsHandler(burndownService, queryService, snapshotService, permissionService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	var origins []string
	if allowOrigins != "" {
		origins = strings.Split(allowOrigins, ",")
	}
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:      authHandler,
		AuthMiddleware:   authMiddleware,
		BoardHandler:     boardHandler,
		CardHandler:      cardHandler,
		AnalyticsHandler: analyticsHandler,
		AllowOrigins:     origins,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
