package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"3000"`

	EdinetBaseURL string `envconfig:"EDINET_BASE_URL" default:"https://disclosure.edinet-fsa.go.jp/api/v2"`
	EdinetAPIKey  string `envconfig:"EDINET_API_KEY" required:"true"`

	// Abfrageintervall des Schedulers in Minuten
	PollIntervalMinutes int `envconfig:"POLL_INTERVAL_MINUTES" default:"30"`
	// Anzahl Tage, die beim Start rückwirkend geladen werden (0 = kein Backfill)
	BackfillDays int `envconfig:"BACKFILL_DAYS" default:"0"`

	// Optionaler S3-Cache für heruntergeladene ZIP-Bundles
	BundleS3Enabled bool   `envconfig:"BUNDLE_S3_ENABLED" default:"false"`
	BundleS3Key     string `envconfig:"BUNDLE_S3_KEY"`
	BundleS3Secret  string `envconfig:"BUNDLE_S3_SECRET"`
	BundleS3URL     string `envconfig:"BUNDLE_S3_URL"`
	BundleS3Region  string `envconfig:"BUNDLE_S3_REGION"`
	BundleS3Bucket  string `envconfig:"BUNDLE_S3_BUCKET"`

	APISecretKey string `envconfig:"API_SECRET_KEY"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
