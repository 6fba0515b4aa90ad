package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"edinet-watch/edinet"
)

// BackfillDelay ist die feste Verzögerung zwischen zwei Tagesabrufen beim
// Backfill. Reine API-Schonung, keine Ordnungsanforderung.
const BackfillDelay = 100 * time.Millisecond

// BackfillSummary fasst einen Backfill-Lauf zusammen. Fehlgeschlagene Tage
// werden gesammelt, der Lauf bricht nicht ab.
type BackfillSummary struct {
	Days   int
	Found  int
	New    int
	Failed []DateResult
}

// Backfill lädt die Berichte der letzten N Tage, neueste zuerst. Ein 403 für
// ein Wochenende oder ein zukünftiges Datum ist dabei ein erwarteter, leerer
// Ausgang und kein eskalationswürdiger Fehler.
func Backfill(ctx context.Context, source ReportSource, store ReportSink, logger *zap.Logger, days int) BackfillSummary {
	summary := BackfillSummary{Days: days}
	logger.Info("Starte Backfill", zap.Int("days", days))

	for i := 0; i < days; i++ {
		date := edinet.DaysAgo(i)

		reports, err := source.ReportsForDate(ctx, date)
		if err != nil {
			logger.Warn("Backfill-Tag fehlgeschlagen", zap.String("date", date), zap.Error(err))
			summary.Failed = append(summary.Failed, dateFailure(date, 0, err))
		} else if len(reports) > 0 {
			summary.Found += len(reports)
			newCount, err := store.UpsertMany(reports)
			if err != nil {
				logger.Warn("Backfill-Tag konnte nicht gespeichert werden", zap.String("date", date), zap.Error(err))
				summary.Failed = append(summary.Failed, dateFailure(date, len(reports), err))
			} else {
				summary.New += newCount
				logger.Info("Backfill-Tag gespeichert",
					zap.String("date", date), zap.Int("found", len(reports)), zap.Int("new", newCount))
			}
		}

		if i < days-1 {
			select {
			case <-ctx.Done():
				logger.Info("Backfill abgebrochen", zap.String("last_date", date))
				return summary
			case <-time.After(BackfillDelay):
			}
		}
	}

	logger.Info("Backfill abgeschlossen",
		zap.Int("days", summary.Days), zap.Int("found", summary.Found),
		zap.Int("new", summary.New), zap.Int("failed_days", len(summary.Failed)))
	return summary
}
