package config

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL    string
	MigrateOnStart bool

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Path library
	PathStore           string // "postgres" or "file"
	PathLibraryFile     string
	PathCacheTTLMinutes int

	// Recording
	SamplesPerSlot     int
	MaxRecordAttempts  int
	RecorderWorkers    int
	RecorderYieldEvery int
	PersistEvery       int

	// Playback
	TickRate       int // steps per second, 0 = unthrottled
	ReplaySpeed    float64
	GuidedBias     float64
	GuidedGain     float64
	GuidedDeadband float64
	GuidedMaxForce float64
	GuidedDamping  float64
	TuningFile     string

	// Boards
	BoardIdleMinutes       int
	IdleWorkerPollInterval int // seconds
	MaxBetAmount           float64
	DropHistoryPageSizeMax int

	// Security
	JWTSecret         string
	SessionTimeoutMin int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/plinko?sslmode=disable"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Path library
		PathStore:           getEnv("PATH_STORE", "postgres"),
		PathLibraryFile:     getEnv("PATH_LIBRARY_FILE", "data/paths.json"),
		PathCacheTTLMinutes: getEnvInt("PATH_CACHE_TTL_MINUTES", 60),

		// Recording
		SamplesPerSlot:     getEnvInt("SAMPLES_PER_SLOT", 20),
		MaxRecordAttempts:  getEnvInt("MAX_RECORD_ATTEMPTS", 20000),
		RecorderWorkers:    getEnvInt("RECORDER_WORKERS", 2),
		RecorderYieldEvery: getEnvInt("RECORDER_YIELD_EVERY", 25),
		PersistEvery:       getEnvInt("RECORDER_PERSIST_EVERY", 50),

		// Playback
		TickRate:       getEnvInt("TICK_RATE", 60),
		ReplaySpeed:    getEnvFloat("REPLAY_SPEED", 1.0),
		GuidedBias:     getEnvFloat("GUIDED_BIAS", 0.6),
		GuidedGain:     getEnvFloat("GUIDED_GAIN", 5.0),
		GuidedDeadband: getEnvFloat("GUIDED_DEADBAND", 0),
		GuidedMaxForce: getEnvFloat("GUIDED_MAX_FORCE", 700),
		GuidedDamping:  getEnvFloat("GUIDED_DAMPING", 8),
		TuningFile:     getEnv("TUNING_FILE", ""),

		// Boards
		BoardIdleMinutes:       getEnvInt("BOARD_IDLE_MINUTES", 30),
		IdleWorkerPollInterval: getEnvInt("IDLE_WORKER_POLL_INTERVAL", 60),
		MaxBetAmount:           getEnvFloat("MAX_BET_AMOUNT", 1000000),
		DropHistoryPageSizeMax: getEnvInt("DROP_HISTORY_PAGE_SIZE_MAX", 100),

		// Security
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		SessionTimeoutMin: getEnvInt("SESSION_TIMEOUT_MINUTES", 30),
	}
}

// runtimeMu guards fields that runtime overrides rewrite after startup.
var runtimeMu sync.RWMutex

// Update applies fn to c under the runtime config lock.
func (c *Config) Update(fn func(*Config)) {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()
	fn(c)
}

// Snapshot returns a copy of c taken under the runtime config lock.
func (c *Config) Snapshot() Config {
	runtimeMu.RLock()
	defer runtimeMu.RUnlock()
	return *c
}

// TickInterval converts TickRate into a step interval. A non-positive rate
// means drops are simulated as fast as possible.
func (c *Config) TickInterval() time.Duration {
	if c.TickRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.TickRate)
}

func (c *Config) PathCacheTTL() time.Duration {
	return time.Duration(c.PathCacheTTLMinutes) * time.Minute
}

func (c *Config) BoardIdleTimeout() time.Duration {
	return time.Duration(c.BoardIdleMinutes) * time.Minute
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
