package models

import (
	"time"
)

// WatchEntry repräsentiert einen Eintrag der Beobachtungsliste.
// Einträge werden nie hart gelöscht, sondern nur deaktiviert.
type WatchEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	Type     string `json:"type" gorm:"uniqueIndex:idx_watch_type_name;not null"` // z.B. "filer"
	Name     string `json:"name" gorm:"uniqueIndex:idx_watch_type_name;not null"` // Substring-Match gegen den Einreichernamen
	IsActive bool   `json:"is_active" gorm:"default:true"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (WatchEntry) TableName() string {
	return "watch_entries"
}
