package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/taskforge/taskforge-backend/internal/handlers"
	"github.com/taskforge/taskforge-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler      *handlers.AuthHandler
	AuthMiddleware   *middleware.AuthMiddleware
	BoardHandler     *handlers.BoardHandler
	CardHandler      *handlers.CardHandler
	AnalyticsHandler *handlers.AnalyticsHandler
	AllowOrigins     []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/register", cfg.AuthHandler.Register)
	router.POST("/login", cfg.AuthHandler.Login)
	router.POST("/refresh", cfg.AuthHandler.Refresh)

	// Protected
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	api.POST("/logout", cfg.AuthHandler.Logout)

	// Boards
	api.POST("/boards", cfg.BoardHandler.Create)
	api.GET("/boards", cfg.BoardHandler.List)
	api.GET("/boards/:boardID", cfg.BoardHandler.Get)
	api.PUT("/boards/:boardID", cfg.BoardHandler.Update)
	api.DELETE("/boards/:boardID", cfg.BoardHandler.Delete)
	api.GET("/boards/:boardID/members", cfg.BoardHandler.GetMembers)
	api.POST("/boards/:boardID/members", cfg.BoardHandler.InviteMember)
	api.PATCH("/boards/:boardID/members/:memberID", cfg.BoardHandler.ChangeMemberRole)
	api.DELETE("/boards/:boardID/members/:memberID", cfg.BoardHandler.RemoveMember)

	// Cards
	api.POST("/cards", cfg.CardHandler.Create)
	api.GET("/boards/:boardID/cards", cfg.CardHandler.ListByBoard)
	api.PUT("/cards/:cardID", cfg.CardHandler.Update)
	api.POST("/cards/:cardID/status", cfg.CardHandler.UpdateStatus)
	api.POST("/cards/:cardID/move", cfg.CardHandler.Move)
	api.DELETE("/cards/:cardID", cfg.CardHandler.Delete)

	// Analytics
	api.GET("/boards/:boardID/burndown", cfg.AnalyticsHandler.Burndown)
	api.POST("/boards/:boardID/snapshot/refresh", cfg.AnalyticsHandler.RefreshSnapshot)
	api.GET("/boards/:boardID/forecast", cfg.AnalyticsHandler.Forecast)
	api.GET("/boards/:boardID/progress", cfg.AnalyticsHandler.Progress)
	api.POST("/boards/:boardID/check-status", cfg.AnalyticsHandler.CheckStatus)
	api.GET("/boards/:boardID/history", cfg.AnalyticsHandler.History)

	return router
}
