package config

import "os"

type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	Timezone    string
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8082"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", "dev-secret-change-in-production"),
		Timezone:    getEnv("POS_TIMEZONE", "America/Bogota"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
