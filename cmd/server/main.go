// Package main initializes and starts the image repository server,
// setting up configuration, logging, database connections, repositories,
// services, handlers, and optional TLS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/imagerepo/internal/config"
	"github.com/atinyakov/imagerepo/internal/db"
	"github.com/atinyakov/imagerepo/internal/logger"
	"github.com/atinyakov/imagerepo/internal/repository"
	"github.com/atinyakov/imagerepo/internal/server/handler/http"
	"github.com/atinyakov/imagerepo/internal/service"
	"github.com/atinyakov/imagerepo/internal/thumbnail"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(ctx, options.DatabaseDSN, options.DBConnectAttempts, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	// Initialize repositories.
	credentialRepo := repository.NewPostgresCredentialRepository(postgresDB)
	rawRepo := repository.NewPostgresRawImageRepository(postgresDB, thumbnail.NewResizer(options.ThumbnailSize))
	userRepo := repository.NewPostgresUserRepository(postgresDB)
	imageRepo := repository.NewPostgresImageRepository(postgresDB, rawRepo)
	shareRepo := repository.NewPostgresShareRepository(postgresDB)

	// Purge expired sessions in the background.
	db.StartSessionCleaner(ctx, credentialRepo, options.SessionCleanInterval.Duration, zapLogger)

	// Initialize business-logic services.
	authService := service.NewAuthService(credentialRepo, options.SessionTTL.Duration)
	userService := service.NewUserService(userRepo)
	imageService := service.NewImageService(imageRepo, shareRepo)

	// Build the router with middleware and routes.
	router := http.NewRouter(
		&http.AuthHandler{AuthService: authService, Log: zapLogger},
		&http.UserHandler{UserService: userService, Log: zapLogger},
		&http.ImageHandler{ImageService: imageService, Log: zapLogger, MaxUploadBytes: options.MaxUploadBytes},
		zapLogger,
	)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("server shutdown", zap.Error(err))
		}
	}()

	if options.TLSCert != "" && options.TLSKey != "" {
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server failed", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
