package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/moraineventures/moraine-site/backend/internal/auth"
	"github.com/moraineventures/moraine-site/backend/internal/config"
	"github.com/moraineventures/moraine-site/backend/internal/database"
	"github.com/moraineventures/moraine-site/backend/internal/deals"
	"github.com/moraineventures/moraine-site/backend/internal/investor"
	"github.com/moraineventures/moraine-site/backend/internal/logging"
	"github.com/moraineventures/moraine-site/backend/internal/permissions"
	"github.com/moraineventures/moraine-site/backend/internal/server"
	"github.com/moraineventures/moraine-site/backend/internal/theses"
	"github.com/moraineventures/moraine-site/backend/internal/visitors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "moraine-api",
		Short: "Moraine Ventures site backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("environment", defaults.GetString("environment"), "Deployment environment (development, production)")
	cmd.PersistentFlags().String("google-client-id", defaults.GetString("google.client_id"), "Google OAuth client ID")
	cmd.PersistentFlags().String("google-jwks-url", defaults.GetString("google.jwks_url"), "Google JWKS URL")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("session-cookie-name", defaults.GetString("session.cookie_name"), "Admin session cookie name")
	cmd.PersistentFlags().Int("session-ttl-days", defaults.GetInt("session.ttl_days"), "Admin session lifetime in days")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("admin-password", "", "Admin console password (overrides env)")
	cmd.PersistentFlags().String("signing-secret", "", "Session signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "environment", "environment")
	bindFlag(cmd, "google.client_id", "google-client-id")
	bindFlag(cmd, "google.jwks_url", "google-jwks-url")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "session.cookie_name", "session-cookie-name")
	bindFlag(cmd, "session.ttl_days", "session-ttl-days")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "admin.password", "admin-password")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	sessionCodec := auth.NewSessionTokenCodec(auth.SessionTokenConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		TokenTTL:      appConfig.SessionTTL,
	})

	googleVerifier, err := auth.NewGoogleVerifier(auth.GoogleVerifierConfig{
		Audience:       appConfig.GoogleClientID,
		ClientSecret:   appConfig.GoogleSecret,
		JWKSURL:        appConfig.GoogleJWKSURL,
		AllowedIssuers: []string{"https://accounts.google.com", "accounts.google.com"},
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	permissionService, err := permissions.NewService(permissions.ServiceConfig{Database: db, Logger: logger})
	if err != nil {
		return err
	}
	thesisService, err := theses.NewService(theses.ServiceConfig{Database: db, Logger: logger})
	if err != nil {
		return err
	}
	dealService, err := deals.NewService(deals.ServiceConfig{Database: db, Logger: logger})
	if err != nil {
		return err
	}
	visitorService, err := visitors.NewService(visitors.ServiceConfig{Database: db, Logger: logger})
	if err != nil {
		return err
	}

	gate, err := investor.NewGate(investor.GateConfig{
		Resolver: googleVerifier,
		Checker:  permissionService,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		SessionTokens:      sessionCodec,
		AdminPassword:      appConfig.AdminPassword,
		CookieName:         appConfig.CookieName,
		SecureCookies:      appConfig.Production(),
		ProductionMessages: appConfig.Production(),
		Permissions:        permissionService,
		Theses:             thesisService,
		Deals:              dealService,
		Visitors:           visitorService,
		Gate:               gate,
		Logger:             logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
