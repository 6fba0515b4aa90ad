package edinet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"edinet-watch/config"
)

// ErrRegistryUnavailable zeigt an, dass die EDINET API nicht erreichbar ist
// oder einen Nicht-2xx-Status geliefert hat. Aufrufer behandeln das als
// wiederholbar beim nächsten Tick.
var ErrRegistryUnavailable = errors.New("edinet api unavailable")

// Abruftypen für den Dokument-Download.
const (
	FetchTypePDF = 2
	FetchTypeCSV = 5
)

var httpClient = &http.Client{Timeout: 60 * time.Second}

// jst ist die Zeitzone des Registers. Alle Kalenderdaten sind registerlokal.
var jst = time.FixedZone("JST", 9*60*60)

// Client kapselt die Logik zur Interaktion mit der EDINET API v2.
type Client struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewClient erstellt einen neuen EDINET-Client.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{Config: cfg, Logger: logger}
}

// DocumentList holt die Dokumentenliste eines Tages (YYYY-MM-DD).
func (c *Client) DocumentList(ctx context.Context, date string) ([]Document, error) {
	url := fmt.Sprintf("%s/documents.json?date=%s&type=2&Subscription-Key=%s",
		c.Config.EdinetBaseURL, date, c.Config.EdinetAPIKey)
	c.Logger.Debug("Rufe EDINET-Dokumentenliste ab", zap.String("date", date))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d für %s", ErrRegistryUnavailable, resp.StatusCode, date)
	}

	var list ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("fehler beim Parsen der Dokumentenliste: %w", err)
	}
	return list.Results, nil
}

// DownloadBundle lädt ein Dokument-Bundle (PDF oder CSV-ZIP) als Byte-Payload.
func (c *Client) DownloadBundle(ctx context.Context, docID string, fetchType int) ([]byte, error) {
	url := fmt.Sprintf("%s/documents/%s?type=%d&Subscription-Key=%s",
		c.Config.EdinetBaseURL, docID, fetchType, c.Config.EdinetAPIKey)
	c.Logger.Debug("Lade Dokument-Bundle herunter", zap.String("doc_id", docID), zap.Int("type", fetchType))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d für Dokument %s", ErrRegistryUnavailable, resp.StatusCode, docID)
	}
	return io.ReadAll(resp.Body)
}

// Today gibt das heutige Datum im Registerkalender zurück (YYYY-MM-DD).
func Today() string {
	return time.Now().In(jst).Format("2006-01-02")
}

// DaysAgo gibt das Datum vor der angegebenen Anzahl Tage zurück (YYYY-MM-DD).
func DaysAgo(days int) string {
	return time.Now().In(jst).AddDate(0, 0, -days).Format("2006-01-02")
}
