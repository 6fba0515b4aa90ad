package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"edinet-watch/models"
)

// fakeSource liefert vorgegebene Berichte pro Datum oder, für sequentielle
// Läufe, pro Aufrufindex. Über block kann der Abruf angehalten werden, um
// Überlappung zu provozieren. Die angefragten Daten werden aufgezeichnet.
type fakeSource struct {
	mu            sync.Mutex
	reportsByDate map[string][]models.Report
	errByDate     map[string]error
	reportsByCall [][]models.Report
	errByCall     []error
	dates         []string
	block         chan struct{}
	entered       chan struct{}
	enterOnce     sync.Once
}

func (f *fakeSource) ReportsForDate(ctx context.Context, date string) ([]models.Report, error) {
	if f.entered != nil {
		f.enterOnce.Do(func() { close(f.entered) })
	}
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	call := len(f.dates)
	f.dates = append(f.dates, date)
	f.mu.Unlock()

	if f.reportsByCall != nil || f.errByCall != nil {
		if call < len(f.errByCall) && f.errByCall[call] != nil {
			return nil, f.errByCall[call]
		}
		if call < len(f.reportsByCall) {
			return f.reportsByCall[call], nil
		}
		return nil, nil
	}
	if err := f.errByDate[date]; err != nil {
		return nil, err
	}
	return f.reportsByDate[date], nil
}

// fakeSink implementiert die Insert-or-Ignore-Semantik des Stores in-memory.
type fakeSink struct {
	mu         sync.Mutex
	seen       map[string]bool
	unnotified []models.Report
	notified   []string
}

func newFakeSink() *fakeSink {
	return &fakeSink{seen: make(map[string]bool)}
}

func (f *fakeSink) UpsertMany(reports []models.Report) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inserted := 0
	for _, r := range reports {
		if f.seen[r.DocID] {
			continue
		}
		f.seen[r.DocID] = true
		inserted++
	}
	return inserted, nil
}

func (f *fakeSink) UnnotifiedMatching() ([]models.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unnotified, nil
}

func (f *fakeSink) MarkNotified(docID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notified = append(f.notified, docID)
	return nil
}

// Feste Zyklusdaten machen die Tests unabhängig von der Uhr. Ein Lauf über
// die JST-Mitternacht darf keine Rolle spielen.
const (
	cycleDay     = "2026-08-31"
	cyclePrevDay = "2026-08-30"
)

func pinCycleDates(s *Scheduler) {
	s.cycleDates = func() []string {
		return []string{cycleDay, cyclePrevDay}
	}
}

func TestSchedulerCycleCollectsPerDateResults(t *testing.T) {
	source := &fakeSource{
		reportsByDate: map[string][]models.Report{
			cycleDay: {{DocID: "A"}, {DocID: "B"}},
		},
		errByDate: map[string]error{
			cyclePrevDay: errors.New("api down"),
		},
	}
	sink := newFakeSink()
	scheduler := NewScheduler(source, sink, zap.NewNop(), 30)
	pinCycleDates(scheduler)

	results, ok := scheduler.CheckNow(context.Background())
	if !ok {
		t.Fatal("CheckNow wurde übersprungen")
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}

	byDate := make(map[string]DateResult)
	for _, r := range results {
		byDate[r.Date] = r
	}
	if got := byDate[cycleDay]; got.Found != 2 || got.New != 2 || got.Err != nil {
		t.Errorf("Ergebnis %s = %+v", cycleDay, got)
	}
	// Der Fehler eines Tages bricht den Zyklus nicht ab und ist auch in der
	// serialisierbaren Form sichtbar.
	failed := byDate[cyclePrevDay]
	if failed.Err == nil {
		t.Errorf("Ergebnis %s = %+v, Fehler erwartet", cyclePrevDay, failed)
	}
	if failed.Error != "api down" {
		t.Errorf("Error = %q, want %q", failed.Error, "api down")
	}
	if scheduler.CycleCount() != 1 {
		t.Errorf("CycleCount = %d", scheduler.CycleCount())
	}
}

func TestSchedulerDeduplicatesAcrossDates(t *testing.T) {
	// Dasselbe Dokument auf beiden Tageslisten ergibt genau einen neuen Bericht.
	duplicate := models.Report{DocID: "S100DUP"}
	source := &fakeSource{
		reportsByDate: map[string][]models.Report{
			cycleDay:     {duplicate},
			cyclePrevDay: {duplicate},
		},
	}
	sink := newFakeSink()
	scheduler := NewScheduler(source, sink, zap.NewNop(), 30)
	pinCycleDates(scheduler)

	results, ok := scheduler.CheckNow(context.Background())
	if !ok {
		t.Fatal("CheckNow wurde übersprungen")
	}
	if got := TotalNew(results); got != 1 {
		t.Errorf("TotalNew = %d, want 1", got)
	}
}

func TestSchedulerSkipsOverlappingCycle(t *testing.T) {
	source := &fakeSource{
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	sink := newFakeSink()
	scheduler := NewScheduler(source, sink, zap.NewNop(), 30)
	pinCycleDates(scheduler)

	done := make(chan struct{})
	go func() {
		defer close(done)
		scheduler.CheckNow(context.Background())
	}()

	// Warten, bis der erste Zyklus tatsächlich im Abruf steckt.
	select {
	case <-source.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("erster Zyklus ist nie gestartet")
	}

	if !scheduler.Status().IsRunning {
		t.Error("Status.IsRunning = false während laufendem Zyklus")
	}

	// Ein Tick während eines laufenden Zyklus ist ein No-op.
	results, ok := scheduler.CheckNow(context.Background())
	if ok || results != nil {
		t.Errorf("überlappender Zyklus wurde ausgeführt: ok=%v results=%v", ok, results)
	}

	close(source.block)
	<-done

	if scheduler.CycleCount() != 1 {
		t.Errorf("CycleCount = %d, want 1", scheduler.CycleCount())
	}
	if scheduler.Status().IsRunning {
		t.Error("Status.IsRunning = true nach abgeschlossenem Zyklus")
	}
	if scheduler.Status().LastRun == nil {
		t.Error("Status.LastRun fehlt nach abgeschlossenem Zyklus")
	}
}

func TestSchedulerNotifiesWatchlistMatches(t *testing.T) {
	source := &fakeSource{
		reportsByDate: map[string][]models.Report{
			cycleDay: {{DocID: "S100WATCH", FilerName: "テスト投資顧問株式会社"}},
		},
	}
	sink := newFakeSink()
	sink.unnotified = []models.Report{{DocID: "S100WATCH", FilerName: "テスト投資顧問株式会社"}}

	var delivered []models.Report
	scheduler := NewScheduler(source, sink, zap.NewNop(), 30)
	pinCycleDates(scheduler)
	scheduler.OnNewReports = func(reports []models.Report) {
		delivered = reports
	}

	if _, ok := scheduler.CheckNow(context.Background()); !ok {
		t.Fatal("CheckNow wurde übersprungen")
	}
	if len(delivered) != 1 || delivered[0].DocID != "S100WATCH" {
		t.Fatalf("delivered = %+v", delivered)
	}
	if len(sink.notified) != 1 || sink.notified[0] != "S100WATCH" {
		t.Errorf("notified = %v", sink.notified)
	}
}

func TestSchedulerSkipsNotificationWithoutNewReports(t *testing.T) {
	source := &fakeSource{} // keine Berichte
	sink := newFakeSink()
	sink.unnotified = []models.Report{{DocID: "S100OLD"}}

	called := false
	scheduler := NewScheduler(source, sink, zap.NewNop(), 30)
	pinCycleDates(scheduler)
	scheduler.OnNewReports = func([]models.Report) { called = true }

	if _, ok := scheduler.CheckNow(context.Background()); !ok {
		t.Fatal("CheckNow wurde übersprungen")
	}
	if called {
		t.Error("OnNewReports wurde ohne neue Berichte aufgerufen")
	}
}

func TestSchedulerOnCycleHook(t *testing.T) {
	source := &fakeSource{
		reportsByDate: map[string][]models.Report{
			cycleDay: {{DocID: "A"}},
		},
	}
	sink := newFakeSink()

	var hookResults []DateResult
	scheduler := NewScheduler(source, sink, zap.NewNop(), 30)
	pinCycleDates(scheduler)
	scheduler.OnCycle = func(results []DateResult) { hookResults = results }

	if _, ok := scheduler.CheckNow(context.Background()); !ok {
		t.Fatal("CheckNow wurde übersprungen")
	}
	if TotalNew(hookResults) != 1 {
		t.Errorf("TotalNew(hookResults) = %d, want 1", TotalNew(hookResults))
	}
}
