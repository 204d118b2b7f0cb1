package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/adityap2202/portfolios/config"
	"github.com/adityap2202/portfolios/internal/cache"
	"github.com/adityap2202/portfolios/internal/handlers"
	"github.com/adityap2202/portfolios/internal/middleware"
	"github.com/adityap2202/portfolios/internal/quotes"
	"github.com/adityap2202/portfolios/internal/services"
	"github.com/adityap2202/portfolios/internal/yahoo"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize quote resolution collaborators
	searchClient := yahoo.NewSearchClient()
	if cfg.SearchURL != "" {
		searchClient = yahoo.NewSearchClientWithBaseURL(cfg.SearchURL)
	}
	fetcher := yahoo.NewQuoteFetcher()
	resolver := quotes.NewResolver(searchClient, fetcher)

	// Initialize cache
	quoteCache := cache.NewQuoteCache(cfg.QuoteTTL)

	// Initialize services
	portfolioSvc := services.NewPortfolioService()
	pricingSvc := services.NewPricingService(quoteCache, resolver, quotes.Config{
		MaxParallel:   cfg.MaxParallel,
		MaxRetries:    cfg.MaxRetries,
		BaseDelay:     cfg.BaseDelay,
		ThrottleEvery: cfg.ThrottleEvery,
		ThrottlePause: cfg.ThrottlePause,
	})

	// Initialize handlers
	statementHandler := handlers.NewStatementHandler(portfolioSvc)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioSvc, pricingSvc)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Statement upload
	router.POST("/statements", statementHandler.Upload)

	// Account and portfolio routes
	router.GET("/accounts", portfolioHandler.ListAccounts)
	router.GET("/accounts/:id", portfolioHandler.GetAccount)
	router.GET("/portfolio/consolidated", portfolioHandler.GetConsolidated)
	router.POST("/portfolio/refresh-prices", portfolioHandler.RefreshPrices)
	router.GET("/portfolio/refresh-prices/status", portfolioHandler.RefreshStatus)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Give outstanding requests 5 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
