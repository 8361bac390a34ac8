package config

import (
	"os"
	"sync"
)

// Settings holds every runtime setting the service reads from the
// environment. Load it once via Get; values do not change while running.
type Settings struct {
	Port string

	TMDbAPIKey    string
	TMDbBaseURL   string
	TMDbImageBase string
	TMDbLanguage  string
	TMDbRegion    string

	GeminiAPIKey string
	GeminiModel  string

	JWTSecret string
}

var (
	settings *Settings
	once     sync.Once
)

// Get returns the cached settings instance.
func Get() *Settings {
	once.Do(func() {
		settings = &Settings{
			Port:          GetEnv("PORT", "8080"),
			TMDbAPIKey:    GetEnv("TMDB_API_KEY", ""),
			TMDbBaseURL:   GetEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
			TMDbImageBase: GetEnv("TMDB_IMAGE_BASE", "https://image.tmdb.org/t/p/w500"),
			TMDbLanguage:  GetEnv("TMDB_LANGUAGE", "ko-KR"),
			TMDbRegion:    GetEnv("TMDB_REGION", "KR"),
			GeminiAPIKey:  GetEnv("GEMINI_API_KEY", ""),
			GeminiModel:   GetEnv("GEMINI_MODEL", "gemini-1.5-flash"),
			JWTSecret:     GetEnv("SUPABASE_JWT_SECRET", ""),
		}
	})
	return settings
}

// DatabaseConfig returns host, port, user, password, database name
func DatabaseConfig() (string, string, string, string, string) {
	host := GetEnv("DB_HOST", "localhost")
	port := GetEnv("DB_PORT", "5432")
	user := GetEnv("DB_USER", "postgres")
	password := GetEnv("DB_PASS", "")
	databaseName := GetEnv("DB_NAME", "waitwith")
	return host, port, user, password, databaseName
}

// RedisConfig returns host, port, password
func RedisConfig() (string, string, string) {
	host := GetEnv("R_HOST", "redis")
	port := GetEnv("R_PORT", "6379")
	password := GetEnv("R_PASS", "")
	return host, port, password
}

// GetEnv retrieves values from environment files based on the key it matches,
// returns a string (value) if not empty
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
