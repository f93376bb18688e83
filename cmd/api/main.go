package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"paywall-anywhere/internal/adapters/auth/jwtauth"
	logmailer "paywall-anywhere/internal/adapters/mailer/logmail"
	smtpmailer "paywall-anywhere/internal/adapters/mailer/smtp"
	"paywall-anywhere/internal/adapters/payments/stripe"
	"paywall-anywhere/internal/adapters/payments/woocommerce"
	pg "paywall-anywhere/internal/adapters/storage/postgres"
	"paywall-anywhere/internal/config"
	"paywall-anywhere/internal/migrate"
	"paywall-anywhere/internal/platform/logger"
	"paywall-anywhere/internal/ports/auth"
	"paywall-anywhere/internal/ports/mailer"
	"paywall-anywhere/internal/ports/payments"
	"paywall-anywhere/internal/router"
)

// @title Paywall Anywhere API
// @version 1.0
// @description Paywall de contenido granular: items, entitlements, magic links y render con locks.
// @BasePath /
func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		logger.New(logger.Options{}).Error("config inválida", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    "paywall-anywhere",
	})

	opts := router.Options{
		Config: &cfg,
		Log:    log,
	}

	// Verifier nil => modo dev con headers X-Debug-*.
	var verifier auth.AuthVerifier
	if cfg.JWTSecret != "" {
		verifier = jwtauth.NewVerifier(cfg.JWTSecret)
	} else {
		log.Warn("sin JWT_SECRET: auth en modo dev (X-Debug-*)", nil)
	}
	opts.AuthVerifier = verifier

	if cfg.DBDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := migrate.Up(ctx, cfg.DBDSN); err != nil {
			cancel()
			log.Error("migraciones fallaron", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		cancel()

		db, err := pg.Open(cfg.DBDSN)
		if err != nil {
			log.Error("no se pudo abrir postgres", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		defer db.Close()
		opts.DB = db
	} else {
		log.Warn("sin DB_DSN: storage in-memory (solo dev)", nil)
	}

	var providers []payments.Provider
	if cfg.Providers.Stripe.Enabled {
		p, err := stripe.New(stripe.Config{
			BaseURL: cfg.Providers.Stripe.BaseURL,
			APIKey:  cfg.Providers.Stripe.APIKey,
			Timeout: cfg.ProviderTimeout(),
		})
		if err != nil {
			log.Error("config de stripe inválida", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		providers = append(providers, p)
	}
	if cfg.Providers.WooCommerce.Enabled {
		p, err := woocommerce.New(woocommerce.Config{
			BaseURL: cfg.Providers.WooCommerce.BaseURL,
			APIKey:  cfg.Providers.WooCommerce.APIKey,
			Timeout: cfg.ProviderTimeout(),
		})
		if err != nil {
			log.Error("config de woocommerce inválida", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		providers = append(providers, p)
	}
	opts.Providers = providers

	var mail mailer.Mailer
	if cfg.Mail.SMTPAddr != "" {
		mail = smtpmailer.New(cfg.Mail.SMTPAddr, cfg.Mail.From)
	} else {
		mail = logmailer.New(log)
	}
	opts.Mailer = mail

	r := router.NewRouter(opts)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Info("starting server", map[string]any{"addr": addr})
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}
