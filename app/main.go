package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gecanews/newswatch/app/api"
	"github.com/gecanews/newswatch/app/cfg"
	"github.com/gecanews/newswatch/app/database"
	"github.com/gecanews/newswatch/app/mail"
	"github.com/gecanews/newswatch/app/notify"
	"github.com/gecanews/newswatch/app/scrape"
	"github.com/gecanews/newswatch/app/subscription"
	"github.com/gecanews/newswatch/app/tasks"
	"github.com/gecanews/newswatch/app/token"
)

func main() {
	appConfig, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appConfig == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appConfig.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting NewsWatch server", "version", appConfig.Version)

	// Database connection
	db, err := database.NewConnection(
		appConfig.DBHost, appConfig.DBPort, appConfig.DBUser,
		appConfig.DBPassword, appConfig.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "migration_version", version, "dirty", dirty)

	// Source configuration, optionally overridden from a YAML file
	sourceCfg, err := scrape.LoadSourceConfig(appConfig.SourceConfig, scrape.SourceConfig{
		URL:          appConfig.SourceURL,
		Selector:     appConfig.SourceSelector,
		PollInterval: appConfig.PollInterval,
	})
	if err != nil {
		slog.Error("Failed to load source configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("Watching source", "url", sourceCfg.URL, "selector", sourceCfg.Selector,
		"poll_interval", sourceCfg.PollInterval)

	// Repositories
	newsRepo := database.NewNewsRepository(db)
	subscriberRepo := database.NewSubscriberRepository(db)

	// Core components
	fetcher, err := scrape.NewFetcher(appConfig.UserAgent, appConfig.FallbackProxy,
		time.Duration(appConfig.FetchTimeout)*time.Second)
	if err != nil {
		slog.Error("Failed to create fetcher", "error", err)
		os.Exit(1)
	}
	extractor := scrape.NewExtractor(sourceCfg.Selector)

	var excerptExtractor *scrape.ExcerptExtractor
	if appConfig.IncludeExcerpts {
		excerptExtractor = scrape.NewExcerptExtractor()
	}

	signer, err := token.NewSigner(appConfig.TokenSecret)
	if err != nil {
		slog.Error("Failed to create token signer", "error", err)
		os.Exit(1)
	}

	sender, err := mail.NewSMTPSender(appConfig.SMTPHost, appConfig.SMTPPort,
		appConfig.SMTPUser, appConfig.SMTPPassword)
	if err != nil {
		slog.Error("Failed to create SMTP sender", "error", err)
		os.Exit(1)
	}

	baseURL := appConfig.BaseUrl
	if baseURL == "" {
		baseURL = "http://localhost:" + appConfig.Port
	}
	composer := mail.NewComposer(appConfig.MailFrom, baseURL)

	unsubscribeTTL := time.Duration(appConfig.UnsubscribeTokenTTL) * time.Second
	notifier := notify.NewNotifier(sender, composer, signer, unsubscribeTTL)

	service := subscription.NewService(subscriberRepo, signer, sender, composer,
		subscription.NewHTTPCaptchaVerifier(appConfig.CaptchaSecret, appConfig.CaptchaVerifyURL),
		subscription.NewResolverMXChecker(),
		time.Duration(appConfig.VerifyTokenTTL)*time.Second, unsubscribeTTL)

	// Background scheduler
	scheduler := tasks.NewScheduler(fetcher, extractor, excerptExtractor,
		newsRepo, subscriberRepo, notifier, sourceCfg.URL, appConfig.IncludeExcerpts,
		time.Duration(sourceCfg.PollInterval)*time.Second, appConfig.WorkerCount)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Background scheduler started", "workers", appConfig.WorkerCount)

	// HTTP server
	var oauthHandler *api.OAuthHandler
	if appConfig.OAuthClientID != "" {
		oauthHandler = api.NewOAuthHandler(appConfig.OAuthClientID,
			appConfig.OAuthClientSecret, appConfig.OAuthRedirectURL, service)
	}

	handler := api.NewHandler(newsRepo, subscriberRepo, service)
	server := api.NewServer(handler, oauthHandler, appConfig.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appConfig.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appConfig.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	// Graceful shutdown
	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	slog.Info("NewsWatch server shutdown complete")
}
