package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adreel/adreel/internal/api"
	"github.com/adreel/adreel/internal/catalog"
	"github.com/adreel/adreel/internal/config"
	"github.com/adreel/adreel/internal/db"
	"github.com/adreel/adreel/internal/queue"
	"github.com/adreel/adreel/internal/services"
	"github.com/adreel/adreel/internal/storage"
	"github.com/adreel/adreel/internal/worker"
)

func main() {
	log.Println("Starting Adreel API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to Redis queue
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	// Initialize storage + clip catalog
	stor := storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	cat := catalog.New(stor, cfg.ClipsBucket)
	log.Println("Initialized Supabase storage")

	// Create API handler
	handler := api.NewHandler(database, q, stor, cat, cfg.VideosBucket, cfg.LogosBucket)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCtx context.Context
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		ffmpegSvc, err := services.NewFFmpegService(cfg.TempDir)
		if err != nil {
			log.Fatalf("Failed to initialize ffmpeg service: %v", err)
		}

		// Storyboard provider — Gemini preferred, OpenAI as fallback
		var llm services.TextCompleter
		if cfg.GeminiKey != "" {
			geminiSvc, err := services.NewGeminiService(context.Background(), cfg.GeminiKey, cfg.GeminiModel)
			if err != nil {
				log.Fatalf("Failed to initialize Gemini: %v", err)
			}
			llm = geminiSvc
			log.Printf("Storyboard provider: Gemini (model: %s)", cfg.GeminiModel)
		} else {
			llm = services.NewOpenAIService(cfg.OpenAIKey, cfg.OpenAIModel)
			log.Printf("Storyboard provider: OpenAI (model: %s)", cfg.OpenAIModel)
		}

		ttsSvc := services.NewElevenLabsService(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID)
		log.Printf("TTS provider: ElevenLabs (voice: %s)", cfg.ElevenLabsVoiceID)

		transcoderSvc := services.NewTranscoder(ffmpegSvc, stor, cfg.ClipsBucket)
		storyboardSvc := services.NewStoryboardGenerator(llm)
		narrationSvc := services.NewSynthesizer(ttsSvc, ffmpegSvc, stor, cfg.ClipsBucket, cfg.SilenceFallbackSecs)
		remotionSvc := services.NewRemotionService(
			cfg.RemotionBin, cfg.RemotionEntry, cfg.RemotionComposition,
			time.Duration(cfg.RenderTimeoutSec)*time.Second,
		)

		// Create worker
		w := worker.New(database, q, stor, transcoderSvc, storyboardSvc, narrationSvc, remotionSvc, ffmpegSvc, cfg)

		// Start worker in background
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
