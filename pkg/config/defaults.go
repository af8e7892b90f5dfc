// Package config provides centralized default values for the Compass service
package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		if err := godotenv.Load(); err == nil {
			log.Println("Loading configuration overrides from .env file...")
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Database
	DatabaseDriver           string
	DatabaseURL              string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeMinutes int
	SlowQueryThreshold       time.Duration

	// Security
	JWTSecret     string
	AESKey        string
	TokenLifetime time.Duration

	// Skills ranking flow pacing. Three staged typing durations plus the
	// minimum "thinking time" a transition must appear to take.
	TypingDurationFirst  time.Duration
	TypingDurationSecond time.Duration
	TypingDurationThird  time.Duration
	MinThinkingTime      time.Duration

	// Job platform the proof-of-value phase links out to.
	JobPlatformURL string

	// Broadcast Configuration
	BroadcastBufferSize   int
	BroadcastWriteTimeout time.Duration
	BroadcastPingInterval time.Duration
	MaxSubscribersPerUser int

	// Email verification
	VerificationBaseURL     string
	VerificationTokenExpiry time.Duration
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Database
	DatabaseDriver = getEnvString("DATABASE_DRIVER", "sqlite3")
	DatabaseURL = getEnvString("DATABASE_URL", "compass.db")
	DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 10)
	DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 3)
	DBConnMaxLifetimeMinutes = getEnvInt("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 50*time.Millisecond)

	// Security
	JWTSecret = getEnvString("JWT_SECRET", "")
	AESKey = getEnvString("AES_KEY", "")
	TokenLifetime = getEnvDuration("TOKEN_LIFETIME", 24*time.Hour)

	// Flow pacing
	TypingDurationFirst = getEnvDuration("TYPING_DURATION_FIRST", 2500*time.Millisecond)
	TypingDurationSecond = getEnvDuration("TYPING_DURATION_SECOND", 2000*time.Millisecond)
	TypingDurationThird = getEnvDuration("TYPING_DURATION_THIRD", 1500*time.Millisecond)
	MinThinkingTime = getEnvDuration("MIN_THINKING_TIME", 1500*time.Millisecond)
	JobPlatformURL = getEnvString("JOB_PLATFORM_URL", "https://jobs.compass.example")

	// Broadcast Configuration
	BroadcastBufferSize = getEnvInt("BROADCAST_BUFFER_SIZE", 10)
	BroadcastWriteTimeout = getEnvDuration("BROADCAST_WRITE_TIMEOUT", 10*time.Second)
	BroadcastPingInterval = getEnvDuration("BROADCAST_PING_INTERVAL", 30*time.Second)
	MaxSubscribersPerUser = getEnvInt("MAX_SUBSCRIBERS_PER_USER", 8)

	// Email verification
	VerificationBaseURL = getEnvString("VERIFICATION_BASE_URL", "http://localhost:8080")
	VerificationTokenExpiry = getEnvDuration("VERIFICATION_TOKEN_EXPIRY", 48*time.Hour)
}
