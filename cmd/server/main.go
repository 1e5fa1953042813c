package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/twledger/stock-ledger-backend/internal/api"
	"github.com/twledger/stock-ledger-backend/internal/config"
	"github.com/twledger/stock-ledger-backend/internal/database"
	"github.com/twledger/stock-ledger-backend/internal/fees"
	"github.com/twledger/stock-ledger-backend/internal/ledger"
	"github.com/twledger/stock-ledger-backend/internal/line"
	"github.com/twledger/stock-ledger-backend/internal/market"
	"github.com/twledger/stock-ledger-backend/internal/message"
	"github.com/twledger/stock-ledger-backend/internal/parser"
	"github.com/twledger/stock-ledger-backend/internal/report"
	"github.com/twledger/stock-ledger-backend/internal/repository"
	"github.com/twledger/stock-ledger-backend/internal/secrets"
	"github.com/twledger/stock-ledger-backend/migrations"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Open database connection and apply migrations
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db, migrations.FS); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	log.Printf("Connected to database: %s", cfg.Database.Path)

	// Create repositories
	userRepo := repository.NewUserRepository(db)
	investorRepo := repository.NewInvestorRepository(db)
	tradeRepo := repository.NewTradeRepository(db)
	holdingRepo := repository.NewHoldingRepository(db)
	realizedRepo := repository.NewRealizedPnLRepository(db)
	securityRepo := repository.NewSecurityRepository(db)
	priceRepo := repository.NewPriceRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	// Create market services
	financeClient := market.NewFinanceClient()
	quotes := market.NewQuoteService(financeClient, priceRepo, securityRepo, cfg.Market.QuoteTTL)
	directory := market.NewDirectory(securityRepo)

	// Create domain services
	schedule := fees.Schedule{FeeRate: cfg.Fees.FeeRate, TaxRate: cfg.Fees.TaxRate}
	engine := ledger.NewEngine(db, tradeRepo, holdingRepo, realizedRepo, schedule)
	aggregator := report.NewAggregator(engine, investorRepo, securityRepo, quotes, cfg.Market.Benchmarks)
	tradeParser := parser.New(directory, quotes)
	messages := message.NewService(userRepo, investorRepo, tradeParser, engine, aggregator)

	// Wire the LINE channel when its credentials are configured. The
	// REST API works without it.
	var webhook *line.WebhookHandler
	if cfg.Line.ChannelSecret != "" && cfg.Line.FernetKey != "" {
		box, err := secrets.NewBox(cfg.Line.FernetKey)
		if err != nil {
			log.Fatalf("Failed to load fernet key: %v", err)
		}
		lineClient := line.NewClient(settingRepo, box)
		webhook = line.NewWebhookHandler(messages, lineClient)
		log.Println("LINE webhook enabled")
	} else {
		log.Println("LINE channel not configured, webhook disabled")
	}

	// Start the background quote refresh
	refresher := market.NewRefresher(quotes, holdingRepo, cfg.Market.Benchmarks)
	if err := refresher.Start(cfg.Market.RefreshSpec); err != nil {
		log.Fatalf("Failed to start quote refresher: %v", err)
	}
	defer refresher.Stop()

	// Create router
	router := api.NewRouter(api.Deps{
		DB:           db,
		UserRepo:     userRepo,
		InvestorRepo: investorRepo,
		Engine:       engine,
		Aggregator:   aggregator,
		Directory:    directory,
		Messages:     messages,
		Webhook:      webhook,
	}, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on %s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
