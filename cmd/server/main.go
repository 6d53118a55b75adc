package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/foodflow/backend/config"
	httpDelivery "github.com/foodflow/backend/internal/delivery/http"
	"github.com/foodflow/backend/internal/domain"
	"github.com/foodflow/backend/internal/infrastructure/cache"
	"github.com/foodflow/backend/internal/infrastructure/imageproc"
	"github.com/foodflow/backend/internal/infrastructure/openrouter"
	"github.com/foodflow/backend/internal/usecase"
)

func main() {
	// Load .env if present; real deployments use environment variables
	if err := godotenv.Load(); err == nil {
		log.Printf("Loaded environment from .env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting FoodFlow Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)
	log.Printf("Cache Type: %s", cfg.Cache.Type)

	// Initialize infrastructure dependencies
	scanCache, closeCache, err := buildCache(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize cache: %v", err)
	}
	defer closeCache()
	log.Printf("Cache TTL: %s", cfg.Cache.TTL)

	gateway := openrouter.NewClient(
		cfg.OpenRouter.APIKey,
		cfg.OpenRouter.BaseURL,
		cfg.OpenRouter.Referer,
		cfg.OpenRouter.AppTitle,
		cfg.OpenRouter.Timeout,
		openrouter.LogRecorder{},
	)
	log.Printf("OpenRouter configured: %s (key: %s...)", cfg.OpenRouter.BaseURL, cfg.OpenRouter.APIKey[:min(8, len(cfg.OpenRouter.APIKey))])

	preparer := imageproc.NewPreprocessor(cfg.Image.MaxDimension, cfg.Image.JPEGQuality)
	log.Printf("Image preprocessing: %s", preparer.Describe())

	// Initialize usecase layer
	chainCfg := usecase.ChainConfig{
		RetriesPerModel: cfg.Chain.RetriesPerModel,
		PerModelTimeout: cfg.Chain.PerModelTimeout,
		RetryBackoff:    cfg.Chain.RetryBackoff,
	}
	extractorCfg := func(models []string) usecase.ExtractorConfig {
		return usecase.ExtractorConfig{
			Models:        models,
			MaxImageBytes: cfg.Image.MaxUploadBytes,
			Chain:         chainCfg,
		}
	}

	receiptService := usecase.NewReceiptService(gateway, scanCache, preparer, extractorCfg(cfg.Models.Receipt))
	labelService := usecase.NewLabelService(gateway, scanCache, preparer, extractorCfg(cfg.Models.Label))
	priceTagService := usecase.NewPriceTagService(gateway, scanCache, preparer, extractorCfg(cfg.Models.PriceTag))
	normalizationService := usecase.NewNormalizationService(gateway, scanCache, usecase.NormalizationConfig{
		Models: cfg.Models.Normalization,
		Chain:  chainCfg,
	})
	matchingService := usecase.NewMatchingService(usecase.MatchConfig{
		MinScoreThreshold:  cfg.Matching.MinScoreThreshold,
		SuggestionFloor:    cfg.Matching.SuggestionFloor,
		FuzzyEditDistance:  cfg.Matching.FuzzyEditDistance,
		EnableDebugLogging: cfg.Matching.DebugLogging,
	})

	log.Printf("Matching: threshold=%.0f, suggestion floor=%.0f, fuzzy distance=%d",
		cfg.Matching.MinScoreThreshold,
		cfg.Matching.SuggestionFloor,
		cfg.Matching.FuzzyEditDistance)
	log.Printf("Model chains: receipt=%v label=%v pricetag=%v normalization=%v",
		cfg.Models.Receipt, cfg.Models.Label, cfg.Models.PriceTag, cfg.Models.Normalization)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(
		receiptService,
		labelService,
		priceTagService,
		normalizationService,
		matchingService,
		cfg.Image.MaxUploadBytes,
	)

	router := httpDelivery.SetupRouter(cfg, handler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Printf("Server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Block until an interrupt arrives, then drain in-flight requests
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown signal received, draining requests")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Printf("Server stopped")
}

// buildCache returns the configured cache plus a close function for Mongo
// connection teardown. The memory cache close is a no-op.
func buildCache(cfg *config.Config) (domain.CacheRepository, func(), error) {
	switch cfg.Cache.Type {
	case "mongo":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mc, err := cache.NewMongoCache(ctx, cfg.Cache.MongoURI, cfg.Cache.MongoDatabase, cfg.Cache.MongoCollection, cfg.Cache.TTL)
		if err != nil {
			return nil, nil, err
		}
		return mc, func() {
			closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer closeCancel()
			if err := mc.Close(closeCtx); err != nil {
				log.Printf("Mongo disconnect: %v", err)
			}
		}, nil
	default:
		return cache.NewMemoryCache(cfg.Cache.TTL), func() {}, nil
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
