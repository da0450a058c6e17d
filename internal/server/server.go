package server

import (
	"log/slog"
	"net/http"

	"silver-dashboard/internal/config"
	"silver-dashboard/internal/handlers"
	"silver-dashboard/internal/services"
)

type Server struct {
	dashboard   *services.Dashboard
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(dashboard *services.Dashboard, defaults config.DashboardConfig, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		dashboard:   dashboard,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(dashboard, defaults, logger),
		sseHandlers: handlers.NewSSEHandlers(dashboard, defaults, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.mux.HandleFunc("GET /{$}", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/prices", s.apiHandlers.HandlePrices)
	s.mux.HandleFunc("GET /api/top-states", s.apiHandlers.HandleTopStates)
	s.mux.HandleFunc("GET /api/month-prices", s.apiHandlers.HandleMonthPrices)
	s.mux.HandleFunc("GET /api/regions", s.apiHandlers.HandleRegions)
	s.mux.HandleFunc("GET /api/join-report", s.apiHandlers.HandleJoinReport)
	s.mux.HandleFunc("GET /api/calculate", s.apiHandlers.HandleCalculate)
	s.mux.HandleFunc("POST /api/calculate", s.apiHandlers.HandleCalculate)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/prices", s.sseHandlers.HandlePrices)
	s.mux.HandleFunc("GET /sse/top-states", s.sseHandlers.HandleTopStates)
	s.mux.HandleFunc("GET /sse/month-prices", s.sseHandlers.HandleMonthPrices)
	s.mux.HandleFunc("GET /sse/regions", s.sseHandlers.HandleRegions)
	s.mux.HandleFunc("GET /sse/calculate", s.sseHandlers.HandleCalculate)
	s.mux.HandleFunc("POST /sse/calculate", s.sseHandlers.HandleCalculate)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
