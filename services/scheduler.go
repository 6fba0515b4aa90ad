package services

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"edinet-watch/edinet"
	"edinet-watch/models"
)

// ReportSource liefert die klassifizierten Berichte eines Tages.
type ReportSource interface {
	ReportsForDate(ctx context.Context, date string) ([]models.Report, error)
}

// ReportSink ist die vom Scheduler benötigte Teilmenge des Stores.
type ReportSink interface {
	UpsertMany(reports []models.Report) (int, error)
	UnnotifiedMatching() ([]models.Report, error)
	MarkNotified(docID string) error
}

// EdinetSource adaptiert den EDINET-Client auf ReportSource.
type EdinetSource struct {
	Client *edinet.Client
}

// ReportsForDate holt die Dokumentenliste eines Tages und klassifiziert sie.
func (s *EdinetSource) ReportsForDate(ctx context.Context, date string) ([]models.Report, error) {
	docs, err := s.Client.DocumentList(ctx, date)
	if err != nil {
		return nil, err
	}
	return edinet.ClassifyAll(docs), nil
}

// DateResult ist das Ergebnis eines einzelnen Tagesabrufs. Fehler eines Tages
// brechen den Zyklus nicht ab, sondern werden pro Tag gesammelt.
type DateResult struct {
	Date  string `json:"date"`
	Found int    `json:"found"`
	New   int    `json:"new"`
	Err   error  `json:"-"`
	// Error ist die serialisierbare Form von Err für API-Antworten.
	Error string `json:"error,omitempty"`
}

// dateFailure baut das Ergebnis eines fehlgeschlagenen Tagesabrufs.
func dateFailure(date string, found int, err error) DateResult {
	return DateResult{Date: date, Found: found, Err: err, Error: err.Error()}
}

// TotalNew summiert die neu eingefügten Berichte eines Zyklus.
func TotalNew(results []DateResult) int {
	total := 0
	for _, r := range results {
		total += r.New
	}
	return total
}

// SchedulerStatus beschreibt den aktuellen Zustand des Schedulers.
type SchedulerStatus struct {
	IsRunning       bool       `json:"isRunning"`
	LastRun         *time.Time `json:"lastRun"`
	IntervalMinutes int        `json:"intervalMinutes"`
	IsScheduled     bool       `json:"isScheduled"`
}

// Scheduler treibt die periodischen Ingestion-Zyklen. Es läuft höchstens ein
// Zyklus gleichzeitig: ein Tick während eines laufenden Zyklus wird komplett
// übersprungen, nicht eingereiht.
type Scheduler struct {
	Source          ReportSource
	Store           ReportSink
	Logger          *zap.Logger
	IntervalMinutes int

	// OnNewReports erhält die unbenachrichtigten Treffer der
	// Beobachtungsliste. Die Zustellung selbst ist ein externer Kollaborateur.
	OnNewReports func([]models.Report)
	// OnCycle wird nach jedem abgeschlossenen Zyklus mit den
	// Tagesergebnissen aufgerufen (z.B. für Metriken).
	OnCycle func([]DateResult)

	running atomic.Bool
	lastRun atomic.Pointer[time.Time]
	cycles  atomic.Int64
	cron    *cron.Cron

	// cycleDates liefert die Kalendertage eines Zyklus.
	// Standard: heute und gestern, registerlokal.
	cycleDates func() []string
}

// NewScheduler erstellt einen neuen Scheduler.
func NewScheduler(source ReportSource, store ReportSink, logger *zap.Logger, intervalMinutes int) *Scheduler {
	return &Scheduler{
		Source:          source,
		Store:           store,
		Logger:          logger,
		IntervalMinutes: intervalMinutes,
		cycleDates: func() []string {
			return []string{edinet.Today(), edinet.DaysAgo(1)}
		},
	}
}

// Start registriert den Timer und stößt sofort einen ersten Zyklus an.
func (s *Scheduler) Start() error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %dm", s.IntervalMinutes), func() {
		s.runCycle(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.Logger.Info("Scheduler gestartet", zap.Int("interval_minutes", s.IntervalMinutes))

	go s.runCycle(context.Background())
	return nil
}

// Stop hält den Timer an. Ein bereits laufender Zyklus wird zu Ende geführt.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
		s.Logger.Info("Scheduler gestoppt")
	}
}

// CheckNow stößt manuell einen Zyklus an. Es gilt dieselbe
// Überlappungssperre wie für den Timer: läuft bereits ein Zyklus, passiert
// nichts und der zweite Rückgabewert ist false.
func (s *Scheduler) CheckNow(ctx context.Context) ([]DateResult, bool) {
	return s.runCycle(ctx)
}

// Status liefert den aktuellen Scheduler-Zustand.
func (s *Scheduler) Status() SchedulerStatus {
	return SchedulerStatus{
		IsRunning:       s.running.Load(),
		LastRun:         s.lastRun.Load(),
		IntervalMinutes: s.IntervalMinutes,
		IsScheduled:     s.cron != nil,
	}
}

// CycleCount gibt die Anzahl der tatsächlich ausgeführten Zyklen zurück.
func (s *Scheduler) CycleCount() int64 {
	return s.cycles.Load()
}

// runCycle führt einen Ingestion-Zyklus aus: heute und gestern parallel
// abrufen, klassifizieren, idempotent speichern, Beobachtungstreffer melden.
func (s *Scheduler) runCycle(ctx context.Context) ([]DateResult, bool) {
	if !s.running.CompareAndSwap(false, true) {
		s.Logger.Info("Zyklus läuft noch, Tick wird übersprungen")
		return nil, false
	}
	defer s.running.Store(false)

	now := time.Now()
	s.lastRun.Store(&now)
	s.cycles.Add(1)
	s.Logger.Info("Prüfe auf neue Berichte")

	dates := s.cycleDates()
	results := make([]DateResult, len(dates))

	g, gctx := errgroup.WithContext(ctx)
	for i, date := range dates {
		g.Go(func() error {
			res := DateResult{Date: date}
			reports, err := s.Source.ReportsForDate(gctx, date)
			if err != nil {
				res = dateFailure(date, 0, err)
			} else {
				res.Found = len(reports)
				res.New, res.Err = s.Store.UpsertMany(reports)
				if res.Err != nil {
					res = dateFailure(date, res.Found, res.Err)
				}
			}
			results[i] = res
			// Tagesfehler werden gesammelt, nicht propagiert.
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.Err != nil {
			s.Logger.Error("Tagesabruf fehlgeschlagen", zap.String("date", r.Date), zap.Error(r.Err))
		} else {
			s.Logger.Info("Tagesabruf abgeschlossen",
				zap.String("date", r.Date), zap.Int("found", r.Found), zap.Int("new", r.New))
		}
	}

	if TotalNew(results) > 0 && s.OnNewReports != nil {
		s.notifyWatchlistMatches()
	}
	if s.OnCycle != nil {
		s.OnCycle(results)
	}
	return results, true
}

// notifyWatchlistMatches übergibt unbenachrichtigte Beobachtungstreffer an
// den injizierten Callback und markiert sie als gemeldet.
func (s *Scheduler) notifyWatchlistMatches() {
	matches, err := s.Store.UnnotifiedMatching()
	if err != nil {
		s.Logger.Error("Konnte unbenachrichtigte Berichte nicht ermitteln", zap.Error(err))
		return
	}
	if len(matches) == 0 {
		return
	}

	s.OnNewReports(matches)
	for _, m := range matches {
		if err := s.Store.MarkNotified(m.DocID); err != nil {
			s.Logger.Error("Konnte Bericht nicht als gemeldet markieren",
				zap.String("doc_id", m.DocID), zap.Error(err))
		}
	}
}
