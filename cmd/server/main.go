// Package main starts the development API server that implements the
// authentication contract of the campus portal: sign-in, the current-user
// lookup, password changes and admin user management.
package main

import (
	"cmp"
	"context"
	"errors"
	"flag"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/CampusPortal/internal/config"
	"github.com/atinyakov/CampusPortal/internal/db"
	"github.com/atinyakov/CampusPortal/internal/logger"
	"github.com/atinyakov/CampusPortal/internal/models"
	"github.com/atinyakov/CampusPortal/internal/repository"
	"github.com/atinyakov/CampusPortal/internal/server/handler/http"
	"github.com/atinyakov/CampusPortal/internal/service"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

// shutdownTimeout bounds graceful shutdown of in-flight requests.
const shutdownTimeout = 5 * time.Second

// tokenRetention keeps expired token records around for auditing.
const tokenRetention = 7 * 24 * time.Hour

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	flag.Parse()

	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	options, err := config.LoadServer(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logger.New()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, options, log.Log); err != nil {
		log.Log.Fatal("server stopped", zap.Error(err))
	}
	log.Log.Info("server stopped")
}

func run(ctx context.Context, options *config.ServerOptions, zapLogger *zap.Logger) error {
	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer postgresDB.Close()

	db.StartTokenCleaner(ctx, postgresDB, options.CleanupInterval, tokenRetention, zapLogger)

	userRepo := repository.NewPostgresUserRepository(postgresDB)
	tokenRepo := repository.NewPostgresTokenRepository(postgresDB)
	authService := service.NewAuthService(userRepo, tokenRepo, options.JWTSecret, options.TokenTTL)

	if err := seedAdmin(ctx, authService, options, zapLogger); err != nil {
		return err
	}

	router := http.NewRouter(
		&http.AuthHandler{AuthService: authService, Log: zapLogger},
		&http.UserHandler{UserService: authService},
		zapLogger,
	)
	server := &nethttp.Server{
		Addr:              options.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("starting server",
			zap.String("addr", options.Address),
			zap.Bool("tls", options.TLSEnabled()),
		)
		var err error
		if options.TLSEnabled() {
			err = server.ListenAndServeTLS(options.TLSCertFile, options.TLSKeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

// userCreator is the part of the auth service needed to seed accounts.
type userCreator interface {
	CreateUser(ctx context.Context, in service.NewUser) (models.User, error)
}

// seedAdmin creates the configured admin account. An existing account with
// the same email is left untouched.
func seedAdmin(ctx context.Context, users userCreator, options *config.ServerOptions, log *zap.Logger) error {
	if options.SeedAdminEmail == "" {
		return nil
	}
	u, err := users.CreateUser(ctx, service.NewUser{
		Username: "admin",
		Email:    options.SeedAdminEmail,
		FullName: "Administrator",
		Role:     models.RoleAdmin,
		Password: options.SeedAdminPassword,
	})
	switch {
	case errors.Is(err, service.ErrUserExists):
		log.Info("seed admin already present", zap.String("email", options.SeedAdminEmail))
		return nil
	case err != nil:
		return fmt.Errorf("seed admin: %w", err)
	}
	log.Info("seed admin created", zap.String("id", u.ID), zap.String("email", u.Email))
	return nil
}
