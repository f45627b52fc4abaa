package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/nekomata-dev/subdex/pkg/main/api"
	"github.com/nekomata-dev/subdex/pkg/main/apiexternal"
	"github.com/nekomata-dev/subdex/pkg/main/config"
	"github.com/nekomata-dev/subdex/pkg/main/database"
	"github.com/nekomata-dev/subdex/pkg/main/logger"
	"github.com/nekomata-dev/subdex/pkg/main/scheduler"
)

var (
	version    string
	buildstamp string
	githash    string
)

// main wires configuration, logging, database, the relations client, the
// scheduler and the HTTP API together, then serves until interrupted.
func main() {
	if err := config.LoadCfgDB(); err != nil {
		os.Exit(1)
	}
	general := config.GetSettingsGeneral()

	logger.InitLogger(logger.Config{
		LogLevel:      general.LogLevel,
		LogFileSize:   general.LogFileSize,
		LogFileCount:  general.LogFileCount,
		LogCompress:   general.LogCompress,
		LogColorize:   general.LogColorize,
		LogToFileOnly: general.LogToFileOnly,
		TimeFormat:    general.TimeFormat,
	})
	logger.LogDynamicany(logger.StrInfo, "Starting subdex",
		"version", version, "commit", githash, "build", buildstamp)

	if err := os.MkdirAll(general.StorageRoot, 0o755); err != nil {
		logger.LogDynamicany(logger.StrError, "storage root unavailable", "err", err)
		os.Exit(1)
	}

	logger.LogDynamicany(logger.StrInfo, "Initialize Database")
	if err := database.InitDB(general.DBFile); err != nil {
		logger.LogDynamicany(logger.StrError, "Database Initialization Failed", "err", err)
		os.Exit(1)
	}
	if err := database.UpgradeDB(general.DBFile); err != nil {
		logger.LogDynamicany(logger.StrError, "Database Upgrade Failed", "err", err)
		database.CloseDB()
		os.Exit(1)
	}

	apiexternal.NewRelationsClient(config.GetSettingsRelations())

	logger.LogDynamicany(logger.StrInfo, "Starting Scheduler")
	if err := scheduler.InitScheduler(); err != nil {
		logger.LogDynamicany(logger.StrError, "Scheduler Initialization Failed", "err", err)
		database.CloseDB()
		os.Exit(1)
	}

	if !strings.EqualFold(general.LogLevel, logger.StrDebug) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logger.GinLogger(), gin.Recovery())
	api.AddGeneralRoutes(router.Group("/api"))

	logger.LogDynamicany(logger.StrInfo, "Starting API Webserver", "listen", general.Listen)
	server := http.Server{
		Addr:              general.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    20 << 20,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.LogDynamicany(logger.StrError, "listen", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.LogDynamicany(logger.StrInfo, "Server shutting down")

	scheduler.StopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.LogDynamicany(logger.StrError, "server shutdown", "err", err)
	}

	database.CloseDB()
	logger.LogDynamicany(logger.StrInfo, "Server exiting")
}
