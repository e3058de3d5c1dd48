package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/docask/docask/internal/middleware"
)

type RouterDeps struct {
	Auth      *AuthHandler
	Documents *DocumentHandler
	Ask       *AskHandler
	JWTSecret []byte
	// AskWindow throttles question submission per user; zero disables.
	AskWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/register", deps.Auth.Register)
	api.POST("/auth/login", deps.Auth.Login)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/documents", deps.Documents.Create)
	authGroup.GET("/documents", deps.Documents.List)
	authGroup.GET("/documents/:id", deps.Documents.Get)
	authGroup.DELETE("/documents/:id", deps.Documents.Delete)

	authGroup.POST("/ask", middleware.RateLimit(deps.AskWindow), deps.Ask.Ask)
	authGroup.GET("/ask/explain", deps.Ask.Explain)
	authGroup.DELETE("/history", deps.Ask.ClearHistory)
}
