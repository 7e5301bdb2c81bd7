package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/moviestore/backend/internal/models"
)

type Config struct {
	DB_HOST         string
	DB_PORT         string
	DB_USER         string
	DB_PASSWORD     string
	DB_NAME         string
	ES_URL          string
	ES_USER         string
	ES_PASSWORD     string
	JWT_SECRET      string
	REFRESH_SECRET  string
	KAFKA_ADDRESS   string
	MP_ACCESS_TOKEN string
	MP_BASE_URL     string
	APP_BASE_URL    string
	FRONTEND_URL    string
	SMTP_HOST       string
	SMTP_PORT       string
	SMTP_USER       string
	SMTP_PASSWORD   string
	SMTP_FROM       string
	LOG_LEVEL       string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		DB_HOST:         os.Getenv("DB_HOST"),
		DB_PORT:         os.Getenv("DB_PORT"),
		DB_USER:         os.Getenv("DB_USER"),
		DB_PASSWORD:     os.Getenv("DB_PASSWORD"),
		DB_NAME:         os.Getenv("DB_NAME"),
		ES_URL:          os.Getenv("ES_URL"),
		ES_USER:         os.Getenv("ES_USER"),
		ES_PASSWORD:     os.Getenv("ES_PASSWORD"),
		JWT_SECRET:      os.Getenv("JWT_SECRET"),
		REFRESH_SECRET:  os.Getenv("REFRESH_SECRET"),
		KAFKA_ADDRESS:   os.Getenv("KAFKA_ADDRESS"),
		MP_ACCESS_TOKEN: os.Getenv("MP_ACCESS_TOKEN"),
		MP_BASE_URL:     os.Getenv("MP_BASE_URL"),
		APP_BASE_URL:    os.Getenv("APP_BASE_URL"),
		FRONTEND_URL:    os.Getenv("FRONTEND_URL"),
		SMTP_HOST:       os.Getenv("SMTP_HOST"),
		SMTP_PORT:       os.Getenv("SMTP_PORT"),
		SMTP_USER:       os.Getenv("SMTP_USER"),
		SMTP_PASSWORD:   os.Getenv("SMTP_PASSWORD"),
		SMTP_FROM:       os.Getenv("SMTP_FROM"),
		LOG_LEVEL:       os.Getenv("LOG_LEVEL"),
	}

	if config.MP_BASE_URL == "" {
		config.MP_BASE_URL = "https://api.mercadopago.com"
	}
	if config.APP_BASE_URL == "" {
		config.APP_BASE_URL = "http://localhost:8080"
	}
	if config.FRONTEND_URL == "" {
		config.FRONTEND_URL = "http://localhost:3000"
	}

	return config, nil
}

func InitDB() (*gorm.DB, error) {
	configuration, _ := LoadConfig()

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		configuration.DB_USER,
		configuration.DB_PASSWORD,
		configuration.DB_HOST,
		configuration.DB_PORT,
		configuration.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к БД: %w", err)
	}
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("не удалось выполнить миграцию: %w", err)
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Movie{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	)
}
