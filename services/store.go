package services

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"edinet-watch/models"
)

// ErrStoreUnavailable zeigt an, dass das Persistenz-Backend nicht erreichbar
// ist. Der Scheduler wiederholt nicht innerhalb desselben Zyklus, sondern
// wartet auf den nächsten Tick.
var ErrStoreUnavailable = errors.New("report store unavailable")

// Store verwaltet die persistierten Berichte und die Beobachtungsliste.
// Der Store ist der einzige Besitzer der gespeicherten Zeilen.
type Store struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewStore erstellt einen neuen Store.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{DB: db, Logger: logger}
}

// UpsertMany speichert Berichte idempotent (Insert-or-Ignore auf doc_id) und
// gibt die Anzahl der neu eingefügten Zeilen zurück. Bestehende Zeilen werden
// durch erneute Ingestion nie verändert.
func (s *Store) UpsertMany(reports []models.Report) (int, error) {
	if len(reports) == 0 {
		return 0, nil
	}
	res := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doc_id"}},
		DoNothing: true,
	}).Create(&reports)
	if res.Error != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, res.Error)
	}
	return int(res.RowsAffected), nil
}

// QueryOptions sind die Filteroptionen für die Berichtssuche.
type QueryOptions struct {
	Date      string // exaktes Datum (YYYY-MM-DD)
	DateFrom  string // Bereichsanfang, inklusiv
	DateTo    string // Bereichsende, inklusiv
	FilerName string // Substring auf den Einreichernamen
	Search    string // Substring auf Einreicher ODER Betreff
	Industry  string // Branchenname, wird auf Wertpapiercode-Bereiche expandiert
	Limit     int
	Offset    int
}

// Query liefert Berichte absteigend nach Einreichungszeitpunkt, Gleichstände
// stabil nach Einfügereihenfolge.
func (s *Store) Query(opts QueryOptions) ([]models.Report, error) {
	q := s.DB.Model(&models.Report{})

	if opts.Date != "" {
		q = q.Where("submit_date_time LIKE ?", opts.Date+"%")
	}
	if opts.DateFrom != "" {
		q = q.Where("substr(submit_date_time, 1, 10) >= ?", opts.DateFrom)
	}
	if opts.DateTo != "" {
		q = q.Where("substr(submit_date_time, 1, 10) <= ?", opts.DateTo)
	}
	if opts.FilerName != "" {
		q = q.Where("filer_name ILIKE ?", "%"+opts.FilerName+"%")
	}
	if opts.Search != "" {
		like := "%" + opts.Search + "%"
		q = q.Where("filer_name ILIKE ? OR doc_description ILIKE ?", like, like)
	}
	if opts.Industry != "" {
		ranges := IndustryCodeRanges(opts.Industry)
		if len(ranges) == 0 {
			// Unbekannte Branche matcht nichts.
			return []models.Report{}, nil
		}
		var conditions []string
		var args []interface{}
		for _, r := range ranges {
			conditions = append(conditions, "substr(sec_code, 1, 4) BETWEEN ? AND ?")
			args = append(args, r[0], r[1])
		}
		q = q.Where(strings.Join(conditions, " OR "), args...)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q = q.Limit(limit).Offset(opts.Offset)

	var reports []models.Report
	if err := q.Order("submit_date_time DESC, id ASC").Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return reports, nil
}

// ByDocID sucht einen Bericht über das Dokumentenkennzeichen. Ein fehlender
// Bericht ist (nil, nil), kein Fehler.
func (s *Store) ByDocID(docID string) (*models.Report, error) {
	var report models.Report
	err := s.DB.Where("doc_id = ?", docID).First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &report, nil
}

// CountByDate zählt die Berichte eines Tages (Präfix auf den Einreichungszeitpunkt).
func (s *Store) CountByDate(date string) (int64, error) {
	var count int64
	err := s.DB.Model(&models.Report{}).
		Where("submit_date_time LIKE ?", date+"%").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return count, nil
}

// AddWatchEntry fügt einen Beobachtungseintrag hinzu. Duplikate auf
// (type, name) werden ignoriert.
func (s *Store) AddWatchEntry(entryType, name string) error {
	entry := models.WatchEntry{Type: entryType, Name: name, IsActive: true}
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "type"}, {Name: "name"}},
		DoNothing: true,
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Watchlist liefert die aktiven Beobachtungseinträge, optional nach Typ gefiltert.
func (s *Store) Watchlist(entryType string) ([]models.WatchEntry, error) {
	q := s.DB.Where("is_active = ?", true)
	if entryType != "" {
		q = q.Where("type = ?", entryType)
	}
	var entries []models.WatchEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return entries, nil
}

// RemoveWatchEntry deaktiviert einen Beobachtungseintrag (Soft Delete).
func (s *Store) RemoveWatchEntry(id uint) error {
	err := s.DB.Model(&models.WatchEntry{}).
		Where("id = ?", id).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// UnnotifiedMatching liefert noch nicht gemeldete Berichte, deren
// Einreichername einen aktiven Beobachtungseintrag (Typ "filer") enthält.
func (s *Store) UnnotifiedMatching() ([]models.Report, error) {
	watchlist, err := s.Watchlist("filer")
	if err != nil {
		return nil, err
	}
	if len(watchlist) == 0 {
		return nil, nil
	}

	var conditions []string
	var args []interface{}
	for _, w := range watchlist {
		conditions = append(conditions, "filer_name ILIKE ?")
		args = append(args, "%"+w.Name+"%")
	}

	var reports []models.Report
	err = s.DB.Where("is_notified = ?", false).
		Where(strings.Join(conditions, " OR "), args...).
		Order("submit_date_time DESC, id ASC").
		Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return reports, nil
}

// MarkNotified markiert einen Bericht als gemeldet.
func (s *Store) MarkNotified(docID string) error {
	err := s.DB.Model(&models.Report{}).
		Where("doc_id = ?", docID).
		Update("is_notified", true).Error
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
