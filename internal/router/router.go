package router

import (
	"database/sql"
	"net/http"

	sessmem "paywall-anywhere/internal/adapters/session/memory"
	sessredis "paywall-anywhere/internal/adapters/session/redis"
	mem "paywall-anywhere/internal/adapters/storage/memory"
	pg "paywall-anywhere/internal/adapters/storage/postgres"
	"paywall-anywhere/internal/config"
	"paywall-anywhere/internal/domain/access"
	"paywall-anywhere/internal/domain/content"
	"paywall-anywhere/internal/domain/entitlements"
	"paywall-anywhere/internal/domain/items"
	"paywall-anywhere/internal/domain/purchases"
	"paywall-anywhere/internal/middleware"
	"paywall-anywhere/internal/platform/logger"
	"paywall-anywhere/internal/ports/auth"
	"paywall-anywhere/internal/ports/mailer"
	"paywall-anywhere/internal/ports/payments"
	"paywall-anywhere/internal/ports/session"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "paywall-anywhere/docs"
)

type Options struct {
	Config *config.Config
	Log    logger.Logger

	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB

	// Opcional: si viene, reemplaza el store elegido por config
	// (tests lo usan para inyectar miniredis).
	Sessions session.Store

	Providers []payments.Provider
	Mailer    mailer.Mailer
}

func NewRouter(opts Options) http.Handler {
	cfg := opts.Config
	log := opts.Log

	var (
		itemsRepo        items.Repository
		entitlementsRepo entitlements.Repository
		lockedMapRepo    content.LockedMapRepository
	)

	if opts.DB != nil {
		itemsRepo = pg.NewItemsRepo(opts.DB)
		entitlementsRepo = pg.NewEntitlementsRepo(opts.DB)
		lockedMapRepo = pg.NewLockedMapRepo(opts.DB)
	} else {
		itemsRepo = mem.NewItemsRepo()
		entitlementsRepo = mem.NewEntitlementsRepo()
		lockedMapRepo = mem.NewLockedMapRepo()
	}

	sessions := opts.Sessions
	if sessions == nil {
		if cfg.RedisAddr != "" {
			sessions = sessredis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL())
		} else {
			sessions = sessmem.New(cfg.SessionTTL())
		}
	}

	// Services por módulo
	itemsSvc := items.NewService(itemsRepo, items.Defaults{
		PriceMinor:  cfg.DefaultPriceMinor,
		Currency:    cfg.DefaultCurrency,
		ExpiresDays: cfg.DefaultExpiresDays,
	})
	entitlementsSvc := entitlements.NewService(entitlementsRepo, itemsSvc)
	resolver := access.NewResolver(itemsSvc, entitlementsSvc, sessions, log)
	magic := access.NewMagicLink(itemsSvc, entitlementsSvc, resolver, cfg.MagicLinkTTL(), cfg.BaseURL, log)
	contentSvc := content.NewService(itemsSvc, resolver, lockedMapRepo, cfg.DefaultPriceMinor, cfg.TeaserWords, log)
	purchasesSvc := purchases.NewService(opts.Providers, itemsSvc, entitlementsSvc, magic, opts.Mailer, cfg.ProviderTimeout(), log)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))
	r.Use(middleware.SessionContext)
	// El redeem de magic links corre como middleware: cualquier URL con
	// el token en query lo consume antes de llegar al handler.
	r.Use(middleware.MagicToken(magic, log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/swagger/*", httpSwagger.Handler())

	// Rutas por módulo
	items.RegisterRoutes(r, itemsSvc)
	entitlements.RegisterRoutes(r, entitlementsSvc)
	access.RegisterRoutes(r, resolver)
	content.RegisterRoutes(r, contentSvc)
	purchases.RegisterRoutes(r, purchasesSvc)

	return r
}
