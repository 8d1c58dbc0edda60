package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/novel-tts/backend/internal/logger"
	"github.com/novel-tts/backend/internal/metrics"
	"github.com/novel-tts/backend/internal/service"
	"github.com/rs/zerolog"
)

type RouterDeps struct {
	Auth           *service.AuthService
	Novels         *service.NovelService
	DB             Pinger
	Metrics        *metrics.Metrics
	Log            zerolog.Logger
	AllowedOrigins []string
}

func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		logger.GinMiddleware(d.Log),
		MetricsMiddleware(d.Metrics),
		CORSMiddleware(d.AllowedOrigins, true),
	)

	router.GET("/", Root)
	router.GET("/ping", Ping)
	router.GET("/healthz", NewHealthHandler(d.DB).Healthz)
	router.GET("/openapi.json", OpenAPIDoc)
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	authHandler := NewAuthHandler(d.Auth)
	users := router.Group("/users")
	users.POST("/register", authHandler.Register)
	users.POST("/login", authHandler.Login)
	users.POST("/logout", authHandler.Logout)
	users.GET("/me", AuthMiddleware(d.Auth), authHandler.Me)

	novelHandler := NewNovelHandler(d.Novels)
	novels := router.Group("/novels", AuthMiddleware(d.Auth))
	novels.POST("/upload", novelHandler.Upload)
	novels.GET("", novelHandler.List)
	novels.GET("/:id", novelHandler.Get)
	novels.GET("/:id/sentences", novelHandler.Sentences)

	return router
}
