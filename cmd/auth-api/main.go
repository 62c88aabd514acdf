package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/kalamna/auth-api/api/swagger"
	"github.com/kalamna/auth-api/internal/handler"
	"github.com/kalamna/auth-api/internal/mailer"
	internalmiddleware "github.com/kalamna/auth-api/internal/middleware"
	"github.com/kalamna/auth-api/internal/repository"
	"github.com/kalamna/auth-api/internal/security"
	"github.com/kalamna/auth-api/internal/service"
	"github.com/kalamna/auth-api/internal/token"
	"github.com/kalamna/auth-api/pkg/cache"
	"github.com/kalamna/auth-api/pkg/config"
	"github.com/kalamna/auth-api/pkg/database"
	"github.com/kalamna/auth-api/pkg/logger"
	corsmiddleware "github.com/kalamna/auth-api/pkg/middleware/cors"
	reqidmiddleware "github.com/kalamna/auth-api/pkg/middleware/requestid"
)

// @title Kalamna Auth API
// @version 1.0.0
// @description Multi-tenant authentication service for businesses and their employees
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	codec, err := token.NewCodec(cfg.JWT)
	if err != nil {
		logr.Sugar().Fatalw("failed to build token codec", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mail := mailer.New(cfg.Mail, logr)
	mail.Start(ctx)
	defer mail.Stop()

	hasher := security.NewHasher(cfg.Password)
	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	repo := repository.NewAuthRepository(db)
	authSvc := service.NewAuthService(repo, codec, hasher, mail, metricsSvc, validate, logr)
	identitySvc := service.NewIdentityService(repo, codec, logr)
	authHandler := handler.NewAuthHandler(authSvc, identitySvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		probeCtx, probeCancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer probeCancel()
		if err := db.PingContext(probeCtx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "database"})
			return
		}
		if err := redisClient.Ping(probeCtx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "redis"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/verify-email", authHandler.VerifyEmail)
		auth.GET("/verify-email", authHandler.VerifyEmail)
		auth.GET("/me", internalmiddleware.JWT(codec), authHandler.Me)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
