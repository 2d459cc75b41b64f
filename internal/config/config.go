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

	// Supabase
	SupabaseURL           string
	SupabaseServiceKey    string
	SupabaseStorageBucket string

	// Model bundle
	ModelDir           string // directory holding the exported .onnx graphs
	CheckpointManifest string // checkpoint manifest sidecar path
	ORTLibraryPath     string // optional onnxruntime shared library override

	// Synthesis tunables
	ExpressionWindowRadius int
	RenderBatchSize        int
	StyleMaxLen            int
	StyleStartIndex        int
	AudioWindowSize        int
	AudioFrameRatio        float64
	VideoFPS               int

	// Batch CLI inputs
	PhonemeDir      string
	PoseDir         string
	WavDir          string
	OutputDir       string
	SourceImage     string
	StyleClip       string
	ContinueOnError bool

	// Scratch space
	TempDir string

	// Worker
	MaxConcurrentJobs int
}

// Load reads the service configuration and validates the fields the job
// service cannot run without.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := loadCommon()
	cfg.APIPort = getEnv("API_PORT", "8080")
	cfg.WorkerEnabled = getEnvBool("WORKER_ENABLED", true)
	cfg.BackendAPIKey = getEnv("BACKEND_API_KEY", "")
	cfg.CorsAllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", "")
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	cfg.RedisURL = getEnv("REDIS_URL", "redis://localhost:6379")
	cfg.SupabaseURL = getEnv("SUPABASE_URL", "")
	cfg.SupabaseServiceKey = getEnv("SUPABASE_SERVICE_KEY", "")
	cfg.SupabaseStorageBucket = getEnv("SUPABASE_STORAGE_BUCKET", "headcast-videos")
	cfg.SourceImage = getEnv("SOURCE_IMAGE", "")
	cfg.MaxConcurrentJobs = getEnvInt("MAX_CONCURRENT_JOBS", 2)

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SupabaseURL == "" || cfg.SupabaseServiceKey == "" {
		return nil, fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required")
	}
	if err := validateModel(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadLocal reads the configuration for the batch CLI, which needs no
// database, queue, or object store.
func LoadLocal() (*Config, error) {
	_ = godotenv.Load()

	cfg := loadCommon()
	cfg.PhonemeDir = getEnv("PHONEME_DIR", "")
	cfg.PoseDir = getEnv("POSE_DIR", "")
	cfg.WavDir = getEnv("WAV_DIR", "")
	cfg.OutputDir = getEnv("OUTPUT_DIR", "output")
	cfg.SourceImage = getEnv("SOURCE_IMAGE", "")
	cfg.StyleClip = getEnv("STYLE_CLIP", "")
	cfg.ContinueOnError = getEnvBool("CONTINUE_ON_ERROR", false)

	if cfg.PhonemeDir == "" {
		return nil, fmt.Errorf("PHONEME_DIR is required")
	}
	if cfg.PoseDir == "" {
		return nil, fmt.Errorf("POSE_DIR is required")
	}
	if cfg.SourceImage == "" {
		return nil, fmt.Errorf("SOURCE_IMAGE is required")
	}
	if cfg.StyleClip == "" {
		return nil, fmt.Errorf("STYLE_CLIP is required")
	}
	if err := validateModel(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadCommon() *Config {
	return &Config{
		ModelDir:           getEnv("MODEL_DIR", "models"),
		CheckpointManifest: getEnv("CHECKPOINT_MANIFEST", ""),
		ORTLibraryPath:     getEnv("ORT_LIBRARY_PATH", ""),

		ExpressionWindowRadius: getEnvInt("EXPRESSION_WINDOW_RADIUS", 13),
		RenderBatchSize:        getEnvInt("RENDER_BATCH_SIZE", 64),
		StyleMaxLen:            getEnvInt("STYLE_MAX_LEN", 256),
		StyleStartIndex:        getEnvInt("STYLE_START_INDEX", 0),
		AudioWindowSize:        getEnvInt("AUDIO_WINDOW_SIZE", 5),
		AudioFrameRatio:        getEnvFloat("AUDIO_FRAME_RATIO", 1.0),
		VideoFPS:               getEnvInt("VIDEO_FPS", 30),

		TempDir: getEnv("TEMP_DIR", os.TempDir()),
	}
}

func validateModel(cfg *Config) error {
	if cfg.ModelDir == "" {
		return fmt.Errorf("MODEL_DIR is required")
	}
	if cfg.CheckpointManifest == "" {
		return fmt.Errorf("CHECKPOINT_MANIFEST is required")
	}
	if cfg.ExpressionWindowRadius < 0 {
		return fmt.Errorf("EXPRESSION_WINDOW_RADIUS must be non-negative")
	}
	if cfg.RenderBatchSize <= 0 {
		return fmt.Errorf("RENDER_BATCH_SIZE must be positive")
	}
	if cfg.AudioWindowSize <= 0 || cfg.AudioWindowSize%2 == 0 {
		return fmt.Errorf("AUDIO_WINDOW_SIZE must be a positive odd number")
	}
	if cfg.VideoFPS <= 0 {
		return fmt.Errorf("VIDEO_FPS must be positive")
	}
	return nil
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
