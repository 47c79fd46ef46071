package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Supabase storage
	SupabaseURL        string
	SupabaseServiceKey string
	ClipsBucket        string // source + normalized clips
	LogosBucket        string // uploaded business logos
	VideosBucket       string // final rendered videos

	// Gemini (preferred storyboard provider)
	GeminiKey   string
	GeminiModel string

	// OpenAI (alternate storyboard provider — used when Gemini key is not set)
	OpenAIKey   string
	OpenAIModel string

	// ElevenLabs TTS
	ElevenLabsKey     string
	ElevenLabsVoiceID string

	// Rendering engine (Remotion CLI)
	RemotionBin         string // launcher binary, e.g. "npx"
	RemotionEntry       string // composition entry point
	RemotionComposition string // composition ID inside the entry
	RenderTimeoutSec    int

	// Timeline
	VideoFPS            int
	IntroFrames         int
	SilenceFallbackSecs float64
	BackgroundMusicURL  string

	// Worker
	TempDir           string
	MaxConcurrentJobs int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:             getEnv("API_PORT", "8080"),
		WorkerEnabled:       getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:       getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:  getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379"),
		SupabaseURL:         getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:  getEnv("SUPABASE_SERVICE_KEY", ""),
		ClipsBucket:         getEnv("CLIPS_BUCKET", "video-assets"),
		LogosBucket:         getEnv("LOGOS_BUCKET", "user-logos"),
		VideosBucket:        getEnv("VIDEOS_BUCKET", "final-videos"),
		GeminiKey:           getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIKey:           getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:         getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		ElevenLabsKey:       getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID:   getEnv("ELEVENLABS_VOICE_ID", ""),
		RemotionBin:         getEnv("REMOTION_BIN", "npx"),
		RemotionEntry:       getEnv("REMOTION_ENTRY", "remotion/index.tsx"),
		RemotionComposition: getEnv("REMOTION_COMPOSITION", "BusinessVideo"),
		RenderTimeoutSec:    getEnvInt("RENDER_TIMEOUT_SEC", 900),
		VideoFPS:            getEnvInt("VIDEO_FPS", 30),
		IntroFrames:         getEnvInt("INTRO_FRAMES", 30),
		SilenceFallbackSecs: getEnvFloat("SILENCE_FALLBACK_SECONDS", 3.0),
		BackgroundMusicURL:  getEnv("BACKGROUND_MUSIC_URL", ""),
		TempDir:             getEnv("TEMP_DIR", "/tmp/adreel"),
		MaxConcurrentJobs:   getEnvInt("MAX_CONCURRENT_JOBS", 3),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// At least one storyboard provider must be configured
	if cfg.GeminiKey == "" && cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("either GEMINI_API_KEY or OPENAI_API_KEY is required for storyboard generation")
	}

	if cfg.ElevenLabsKey == "" {
		return nil, fmt.Errorf("ELEVENLABS_API_KEY is required for narration synthesis")
	}

	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required")
	}

	if cfg.VideoFPS <= 0 {
		return nil, fmt.Errorf("VIDEO_FPS must be positive")
	}

	if cfg.IntroFrames < 0 {
		return nil, fmt.Errorf("INTRO_FRAMES must not be negative")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}
