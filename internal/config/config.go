package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DBHost      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBPort      string
	DBSSLMode   string
	DBPath      string // sqlite fallback when DBHost is empty
	OwnerID     string // session/user identifier stamped on created rows
	StorageDir  string
	PublicBase  string // base URL attachments resolve under
	VerifyToken string // webhook verification token
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: Error loading .env file")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DBHost:      getEnv("DB_HOST", ""),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_NAME", "inbox"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),
		DBPath:      getEnv("DB_PATH", "./inbox.db"),
		OwnerID:     getEnv("OWNER_ID", "local"),
		StorageDir:  getEnv("STORAGE_DIR", "./attachments"),
		PublicBase:  getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		VerifyToken: getEnv("VERIFY_TOKEN", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
