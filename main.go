package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/line-order/config"
	"github.com/yeremiapane/line-order/database"
	"github.com/yeremiapane/line-order/kds"
	"github.com/yeremiapane/line-order/router"
	"github.com/yeremiapane/line-order/services"
	"github.com/yeremiapane/line-order/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load config: %v", err)
	}

	utils.InitLogger(cfg.LogLevel, cfg.IsProduction())
	utils.SetJWTSecret(cfg.JWTSecret)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg.Database, !cfg.IsProduction())
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to migrate: %v", err)
	}
	if _, err := database.SeedMenu(db, cfg.Bootstrap.MenuSeedFile); err != nil {
		utils.ErrorLogger.Printf("Error seeding menu: %v", err)
	}
	if err := database.EnsureAdmin(db, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
		utils.ErrorLogger.Printf("Error creating bootstrap admin: %v", err)
	}

	line := services.NewLineClient(services.LineConfig{
		ChannelAccessToken: cfg.Line.ChannelAccessToken,
		ChannelSecret:      cfg.Line.ChannelSecret,
		LiffChannelID:      cfg.Line.LiffChannelID,
		BaseURL:            cfg.Line.APIBaseURL,
		Timeout:            cfg.Line.Timeout,
	})
	if err := line.ValidateConfig(); err != nil {
		utils.InfoLogger.Warnf("LINE messaging disabled: %v", err)
	}

	hub := kds.NewHub()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := services.NewPaymentRequestSweeper(db, hub)
	go sweeper.Run(ctx)

	r := router.SetupRouter(router.NewHandlers(db, cfg, line, hub))
	r.SetTrustedProxies([]string{"127.0.0.1", "localhost"})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.ErrorLogger.Fatal(err)
		}
	}()

	<-ctx.Done()
	utils.InfoLogger.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.ErrorLogger.Printf("Server forced to shutdown: %v", err)
	}
}
