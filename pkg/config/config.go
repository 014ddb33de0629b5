package config

import "os"

type Config struct {
	Port            string
	Env             string
	PostgresConnStr string
	RedisURL        string
	JWTSecret       string
	SMSAPIKey       string
	SMSSender       string
	UploadDir       string
}

func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		PostgresConnStr: getEnv("POSTGRES_CONN_STR", ""),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:       getEnv("JWT_SECRET", "supersecretjwtkey"),
		SMSAPIKey:       getEnv("SMS_API_KEY", ""),
		SMSSender:       getEnv("SMS_SENDER", ""),
		UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
