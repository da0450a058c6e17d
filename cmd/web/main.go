package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"silver-dashboard/internal/calculator"
	"silver-dashboard/internal/config"
	"silver-dashboard/internal/dataset"
	"silver-dashboard/internal/middleware"
	"silver-dashboard/internal/observability"
	"silver-dashboard/internal/regions"
	"silver-dashboard/internal/server"
	"silver-dashboard/internal/services"
	"silver-dashboard/internal/ui/templates"
)

const (
	renderTimeout = 10 * time.Second
	cacheMaxAge   = "public, max-age=300"
)

func dashboardPage(page templates.PageData) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := templates.Dashboard(page).Render(ctx, w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

// loadDashboard reads the datasets and optional override tables, then builds
// the joined view every handler reads from.
func loadDashboard(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*services.Dashboard, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Data.LoadTimeout)
	defer cancel()

	start := time.Now()
	store, err := dataset.NewLoader(logger).Load(ctx, dataset.Paths{
		Prices:       cfg.Data.PriceCSV,
		Purchases:    cfg.Data.PurchaseCSV,
		Boundaries:   cfg.Data.BoundaryFile,
		NameProperty: cfg.Data.NameProperty,
	})
	if err != nil {
		return nil, fmt.Errorf("load datasets: %w", err)
	}
	logger.Info("datasets loaded successfully", "duration", time.Since(start))

	aliases := regions.DefaultAliases()
	if cfg.Data.AliasFile != "" {
		if aliases, err = regions.LoadAliases(cfg.Data.AliasFile); err != nil {
			return nil, fmt.Errorf("load region aliases: %w", err)
		}
	}

	rates := calculator.DefaultRates()
	if cfg.Data.RatesFile != "" {
		if rates, err = calculator.LoadRates(cfg.Data.RatesFile); err != nil {
			return nil, fmt.Errorf("load exchange rates: %w", err)
		}
	}

	return services.NewDashboard(store, aliases, rates, logger)
}

func newHandler(cfg *config.Config, dashboard *services.Dashboard, logger *slog.Logger) (http.Handler, error) {
	page := templates.DefaultPageData(dashboard.Currencies(), cfg.Dashboard.TopStates, cfg.Dashboard.Month)
	templateHandlers := &server.TemplateHandlers{
		Dashboard: dashboardPage(page),
	}

	srv := server.NewServer(dashboard, cfg.Dashboard, logger, templateHandlers)

	compress, err := middleware.Compression()
	if err != nil {
		return nil, fmt.Errorf("compression middleware: %w", err)
	}

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
		compress,
	)

	return middlewareChain(srv), nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"config", cfg,
	)

	dashboard, err := loadDashboard(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to build dashboard", "error", err)
		os.Exit(1)
	}

	handler, err := newHandler(cfg, dashboard, logger)
	if err != nil {
		logger.Error("failed to build handler chain", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("shutting down dashboard", "stats", dashboard.Stats())
		return nil
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
