package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/twledger/stock-ledger-backend/internal/api/handlers"
	custommiddleware "github.com/twledger/stock-ledger-backend/internal/api/middleware"
	"github.com/twledger/stock-ledger-backend/internal/config"
	"github.com/twledger/stock-ledger-backend/internal/ledger"
	"github.com/twledger/stock-ledger-backend/internal/line"
	"github.com/twledger/stock-ledger-backend/internal/market"
	"github.com/twledger/stock-ledger-backend/internal/message"
	"github.com/twledger/stock-ledger-backend/internal/report"
	"github.com/twledger/stock-ledger-backend/internal/repository"
)

// Deps bundles the services the router exposes.
type Deps struct {
	DB           *sql.DB
	UserRepo     *repository.UserRepository
	InvestorRepo *repository.InvestorRepository
	Engine       *ledger.Engine
	Aggregator   *report.Aggregator
	Directory    *market.Directory
	Messages     *message.Service
	Webhook      *line.WebhookHandler
}

// NewRouter creates and configures the HTTP router
func NewRouter(deps Deps, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(deps.DB)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		messageHandler := handlers.NewMessageHandler(deps.Messages)
		r.Post("/message", messageHandler.Handle)

		r.Route("/portfolio", func(r chi.Router) {
			portfolioHandler := handlers.NewPortfolioHandler(deps.UserRepo, deps.InvestorRepo, deps.Engine, deps.Aggregator)
			r.Get("/", portfolioHandler.Portfolio)
			r.Get("/realized", portfolioHandler.Realized)
		})

		transactionHandler := handlers.NewTransactionHandler(deps.UserRepo, deps.InvestorRepo, deps.Engine)
		r.Get("/transaction", transactionHandler.List)

		investorHandler := handlers.NewInvestorHandler(deps.UserRepo, deps.InvestorRepo)
		r.Get("/investor", investorHandler.List)

		rankingHandler := handlers.NewRankingHandler(deps.UserRepo, deps.Aggregator)
		r.Get("/ranking", rankingHandler.List)

		securityHandler := handlers.NewSecurityHandler(deps.Directory)
		r.Get("/security/search", securityHandler.Search)

		if deps.Webhook != nil {
			r.Route("/line", func(r chi.Router) {
				r.Use(line.SignatureMiddleware(cfg.Line.ChannelSecret))
				r.Post("/webhook", deps.Webhook.ServeHTTP)
			})
		}
	})

	return r
}
