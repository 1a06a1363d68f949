package main

import (
	"net/http"
	"os"

	"listings/docs"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"listings/internal/auth"
	"listings/internal/cache"
	"listings/internal/config"
	"listings/internal/db"
	"listings/internal/handler"
	"listings/internal/logger"
	"listings/internal/model"
	"listings/internal/repository"
	"listings/internal/router"
	"listings/internal/service"
)

// @title Listings Auth API
// @version 1.0
// @description Authentication backend for the listings application: registration, login, refresh tokens and availability checks.
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	log := logger.New("listings-auth", cfg.Env)

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	// Drop tables if RESET_DB environment variable is set
	if os.Getenv("RESET_DB") == "true" {
		log.Warn("RESET_DB=true detected, dropping all tables...")
		tables := []interface{}{
			"user_roles",
			&model.RefreshToken{},
			&model.Role{},
			&model.User{},
		}
		for _, table := range tables {
			if err := gormDB.Migrator().DropTable(table); err != nil {
				log.Warnf("failed to drop table (may not exist): %v", err)
			}
		}
		log.Info("tables dropped")
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Role{},
		&model.RefreshToken{},
	); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	// Repositories
	userRepo := repository.NewUserRepository(gormDB)
	roleRepo := repository.NewRoleRepository(gormDB)
	refreshTokenRepo := repository.NewRefreshTokenRepository(gormDB)

	// Auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Services
	authService := service.NewAuthService(userRepo, roleRepo, refreshTokenRepo, jwtService, tokenStore)
	userService := service.NewUserService(userRepo, cacheClient)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)

	router.Register(e, jwtService, tokenStore, authHandler, userHandler)

	addr := ":" + cfg.ServerPort
	log.Infof("listening on %s", addr)
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}
