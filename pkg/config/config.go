package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                 string
	Environment          string
	DataDir              string
	JWTSecret            string
	CORSOrigins          string
	VAPIDPublicKey       string
	VAPIDPrivateKey      string
	PresenceOnlineWindow time.Duration
	StoryTTL             time.Duration
}

func Load() *Config {
	// Missing .env is fine; real environment variables always win.
	godotenv.Load()

	return &Config{
		Port:                 getEnv("PORT", "8080"),
		Environment:          getEnv("ENVIRONMENT", "development"),
		DataDir:              getEnv("DATA_DIR", "./data"),
		JWTSecret:            getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		CORSOrigins:          getEnv("CORS_ORIGINS", "*"),
		VAPIDPublicKey:       getEnv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey:      getEnv("VAPID_PRIVATE_KEY", ""),
		PresenceOnlineWindow: parseDuration(getEnv("PRESENCE_ONLINE_WINDOW", "2m"), 2*time.Minute),
		StoryTTL:             parseDuration(getEnv("STORY_TTL", "24h"), 24*time.Hour),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
