package main

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"edinet-watch/config"
	"edinet-watch/edinet"
	"edinet-watch/models"
	"edinet-watch/services"
	"edinet-watch/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var newReportsCounter prometheus.Counter

func init() {
	newReportsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "new_reports_added_total",
			Help: "Total number of new disclosure reports added to the database.",
		},
	)
	prometheus.MustRegister(newReportsCounter)
}

// watchlistPresets sind die vorkonfigurierten Beobachtungsziele
// (Asset Manager und bekannte Aktivisten).
var watchlistPresets = []string{
	"ブラックロック",
	"バンガード",
	"野村アセットマネジメント",
	"三井住友DSアセットマネジメント",
	"アセットマネジメントOne",
	"オービス",
	"シティインデックスイレブンス",
	"レノ",
	"光通信",
	"エフィッシモ",
	"アクティビスト",
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to reports database.")

	logging.Info("Running database auto-migration...")
	db.AutoMigrate(&models.Report{}, &models.WatchEntry{})

	// Setup Services
	store := services.NewStore(db, logging)
	client := edinet.NewClient(cfg, logging)
	source := &services.EdinetSource{Client: client}

	var bundleCache *storage.BundleCache
	if cfg.BundleS3Enabled {
		bundleCache, err = storage.NewBundleCache(cfg)
		if err != nil {
			logging.Fatal("Bundle cache creation failed", zap.Error(err))
		}
		logging.Info("Bundle cache enabled", zap.String("bucket", cfg.BundleS3Bucket))
	}
	extractor := services.NewExtractor(client, bundleCache, logging)

	// Seeding
	seedWatchlistPresets(store, logging)

	// Setup Scheduler
	scheduler := services.NewScheduler(source, store, logging, cfg.PollIntervalMinutes)
	scheduler.OnCycle = func(results []services.DateResult) {
		newReportsCounter.Add(float64(services.TotalNew(results)))
	}
	scheduler.OnNewReports = func(reports []models.Report) {
		// Zustellung (Push/Mail) ist ein externer Kollaborateur.
		for _, r := range reports {
			logging.Info("Beobachtungstreffer",
				zap.String("doc_id", r.DocID),
				zap.String("filer", r.FilerName),
				zap.String("report_type", r.ReportType))
		}
	}

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupReportRoutes(router, store, source, logging)
	setupDetailRoutes(router, store, extractor, client, logging)
	setupStatsRoutes(router, store, scheduler, logging)
	setupWatchlistRoutes(router, store, logging)

	// Einmaliger Backfill vor dem Start des Schedulers
	if cfg.BackfillDays > 0 {
		summary := services.Backfill(context.Background(), source, store, logging, cfg.BackfillDays)
		newReportsCounter.Add(float64(summary.New))
	}

	if err := scheduler.Start(); err != nil {
		logging.Fatal("Failed to start scheduler", zap.Error(err))
	}

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

// ReportWithIndustry reichert einen Bericht um die aus dem Wertpapiercode
// abgeleitete Branche an.
type ReportWithIndustry struct {
	models.Report
	Industry string `json:"industry,omitempty"`
}

func enrichWithIndustry(reports []models.Report) []ReportWithIndustry {
	enriched := make([]ReportWithIndustry, 0, len(reports))
	for _, r := range reports {
		item := ReportWithIndustry{Report: r}
		if r.SecCode != "" {
			item.Industry = services.IndustryForSecCode(r.SecCode)
		}
		enriched = append(enriched, item)
	}
	return enriched
}

func setupReportRoutes(router *gin.Engine, store *services.Store, source *services.EdinetSource, log *zap.Logger) {
	rg := router.Group("/api/reports")

	// GET /api/reports?date=&from=&to=&search=&filerName=&industry=&limit=&offset=
	rg.GET("", func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

		reports, err := store.Query(services.QueryOptions{
			Date:      c.Query("date"),
			DateFrom:  c.Query("from"),
			DateTo:    c.Query("to"),
			FilerName: c.Query("filerName"),
			Search:    c.Query("search"),
			Industry:  c.Query("industry"),
			Limit:     limit,
			Offset:    offset,
		})
		if err != nil {
			log.Error("Database query for reports failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": enrichWithIndustry(reports)})
	})

	// GET /api/reports/live?date= — direkt von EDINET, Ergebnis wird mitgespeichert
	rg.GET("/live", func(c *gin.Context) {
		date := c.DefaultQuery("date", edinet.Today())

		reports, err := source.ReportsForDate(c.Request.Context(), date)
		if err != nil {
			log.Error("Live fetch failed", zap.String("date", date), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "registry unavailable"})
			return
		}

		newCount, err := store.UpsertMany(reports)
		if err != nil {
			log.Error("Failed to save live reports", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "database error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"data":     enrichWithIndustry(reports),
			"newCount": newCount,
			"date":     date,
		})
	})
}

func setupDetailRoutes(router *gin.Engine, store *services.Store, extractor *services.Extractor, client *edinet.Client, log *zap.Logger) {
	// GET /api/reports/:docId/details — Bundle-Inhalt on demand parsen.
	// Ein fehlgeschlagener Parse blockiert nie die Metadaten-Anzeige.
	router.GET("/api/reports/:docId/details", func(c *gin.Context) {
		docID := c.Param("docId")

		stored, err := store.ByDocID(docID)
		if err != nil {
			log.Error("Failed to look up report", zap.String("doc_id", docID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "database error"})
			return
		}
		if stored == nil {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "report not found"})
			return
		}

		if stored.ReportType == edinet.ReportTypeAnnualReport {
			details := extractor.AnnualReport(c.Request.Context(), docID)
			if details == nil {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "details not available"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "data": details})
			return
		}

		details := extractor.LargeHolding(c.Request.Context(), docID)
		if details == nil {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "details not available"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"issuerName":                    details.IssuerName,
				"securityCode":                  details.SecurityCode,
				"holdingRatio":                  details.HoldingRatio,
				"previousHoldingRatio":          details.PreviousHoldingRatio,
				"holdingRatioChange":            details.HoldingRatioChange,
				"totalShares":                   details.TotalShares,
				"purposeOfHolding":              details.PurposeOfHolding,
				"filerName":                     details.FilerName,
				"holdingRatioFormatted":         services.FormatRatioAsPercent(details.HoldingRatio),
				"previousHoldingRatioFormatted": services.FormatRatioAsPercent(details.PreviousHoldingRatio),
				"holdingRatioChangeFormatted":   services.FormatRatioChange(details.HoldingRatioChange),
			},
		})
	})

	// GET /api/document/:docId?type=2 — Download-Proxy, der API-Key bleibt serverseitig.
	router.GET("/api/document/:docId", func(c *gin.Context) {
		docID := c.Param("docId")
		fetchType, err := strconv.Atoi(c.DefaultQuery("type", "2"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid type"})
			return
		}

		data, err := client.DownloadBundle(c.Request.Context(), docID, fetchType)
		if err != nil {
			log.Error("Document download failed", zap.String("doc_id", docID), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "registry unavailable"})
			return
		}

		contentType := "application/octet-stream"
		if fetchType == edinet.FetchTypePDF {
			contentType = "application/pdf"
		}
		c.Data(http.StatusOK, contentType, data)
	})
}

func setupStatsRoutes(router *gin.Engine, store *services.Store, scheduler *services.Scheduler, log *zap.Logger) {
	// GET /api/stats — Dashboard-Statistik
	router.GET("/api/stats", func(c *gin.Context) {
		todayCount, err := store.CountByDate(edinet.Today())
		if err != nil {
			log.Error("Failed to count today's reports", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data": gin.H{
				"todayCount":  todayCount,
				"scheduler":   scheduler.Status(),
				"lastUpdated": time.Now().Format(time.RFC3339),
			},
		})
	})

	// POST /api/refresh — einen Zyklus synchron anstoßen
	router.POST("/api/refresh", func(c *gin.Context) {
		results, ok := scheduler.CheckNow(c.Request.Context())
		if !ok {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "cycle already running"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Refresh completed",
			"results": results,
			"new":     services.TotalNew(results),
		})
	})
}

func setupWatchlistRoutes(router *gin.Engine, store *services.Store, log *zap.Logger) {
	rg := router.Group("/api/watchlist")

	rg.GET("", func(c *gin.Context) {
		entries, err := store.Watchlist(c.Query("type"))
		if err != nil {
			log.Error("Failed to fetch watchlist", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "data": entries})
	})

	rg.POST("", func(c *gin.Context) {
		var req struct {
			Type string `json:"type" binding:"required"`
			Name string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "type and name are required"})
			return
		}
		if err := store.AddWatchEntry(req.Type, req.Name); err != nil {
			log.Error("Failed to add watch entry", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Added to watchlist"})
	})

	rg.DELETE("/:id", func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid id"})
			return
		}
		if err := store.RemoveWatchEntry(uint(id)); err != nil {
			log.Error("Failed to remove watch entry", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Removed from watchlist"})
	})

	rg.POST("/init-presets", func(c *gin.Context) {
		for _, name := range watchlistPresets {
			if err := store.AddWatchEntry("filer", name); err != nil {
				log.Error("Failed to add preset", zap.String("name", name), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "database error"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": strconv.Itoa(len(watchlistPresets)) + " presets initialized",
		})
	})
}

func seedWatchlistPresets(store *services.Store, logger *zap.Logger) {
	for _, name := range watchlistPresets {
		if err := store.AddWatchEntry("filer", name); err != nil {
			logger.Warn("Failed to seed watchlist preset", zap.String("name", name), zap.Error(err))
			continue
		}
	}
	logger.Info("Watchlist presets seeded.")
}
