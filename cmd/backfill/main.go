package main

import (
	"context"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"edinet-watch/config"
	"edinet-watch/edinet"
	"edinet-watch/models"
	"edinet-watch/services"
)

// BackfillConfig konfiguriert den eigenständigen Backfill-Lauf.
type BackfillConfig struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	EdinetBaseURL string `envconfig:"EDINET_BASE_URL" default:"https://disclosure.edinet-fsa.go.jp/api/v2"`
	EdinetAPIKey  string `envconfig:"EDINET_API_KEY" required:"true"`

	// Standard: drei Jahre
	BackfillDays int `envconfig:"BACKFILL_DAYS" default:"1095"`
}

func main() {
	log.Println("Starte Backfill-Prozess...")

	_ = godotenv.Load()

	var cfg BackfillConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("Fehler beim Laden der Konfiguration: %v", err)
	}

	// Tage optional als erstes Argument
	days := cfg.BackfillDays
	if len(os.Args) > 1 {
		n, err := strconv.Atoi(os.Args[1])
		if err != nil || n <= 0 {
			log.Fatalf("Ungültige Tagesanzahl: %q", os.Args[1])
		}
		days = n
	}

	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Fehler beim Initialisieren des Loggers: %v", err)
	}
	defer logging.Sync()

	appCfg := &config.Config{
		DBHost:        cfg.DBHost,
		DBPort:        cfg.DBPort,
		DBUser:        cfg.DBUser,
		DBPassword:    cfg.DBPassword,
		DBName:        cfg.DBName,
		EdinetBaseURL: cfg.EdinetBaseURL,
		EdinetAPIKey:  cfg.EdinetAPIKey,
	}

	db, err := gorm.Open(postgres.Open(appCfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatalf("Fehler beim Verbinden mit der Datenbank: %v", err)
	}
	db.AutoMigrate(&models.Report{}, &models.WatchEntry{})

	store := services.NewStore(db, logging)
	source := &services.EdinetSource{Client: edinet.NewClient(appCfg, logging)}

	summary := services.Backfill(context.Background(), source, store, logging, days)

	log.Printf("Backfill abgeschlossen: %d Tage, %d gefunden, %d neu, %d Tage fehlgeschlagen",
		summary.Days, summary.Found, summary.New, len(summary.Failed))
	log.Println("Hinweis: Es werden nur Metadaten gespeichert, Details werden on demand geladen.")
}
