package services

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"edinet-watch/edinet"
	"edinet-watch/storage"
)

// Extractor lädt Dokument-Bundles herunter und parst deren CSV-Payload in
// normalisierte Datensätze. Jeder Fehlschlag (I/O, fehlender Eintrag, keine
// gültigen Datensätze) liefert nil: "noch kein Detail" ist ein normaler
// Zustand für frische Einreichungen, kein Fehler.
type Extractor struct {
	Client *edinet.Client
	Cache  *storage.BundleCache // optional, nil = kein Bundle-Cache
	Logger *zap.Logger
}

// NewExtractor erstellt einen neuen Extractor.
func NewExtractor(client *edinet.Client, cache *storage.BundleCache, logger *zap.Logger) *Extractor {
	return &Extractor{Client: client, Cache: cache, Logger: logger}
}

// LargeHolding extrahiert die Inhalte einer Großaktionärsmeldung.
func (e *Extractor) LargeHolding(ctx context.Context, docID string) *HoldingDetails {
	content, ok := e.bundleCSV(ctx, docID, "jplvh")
	if !ok {
		return nil
	}
	details := parseHoldingCSV(content)
	if details == nil {
		e.Logger.Warn("Keine verwertbaren Felder im Bundle gefunden", zap.String("doc_id", docID))
	}
	return details
}

// AnnualReport extrahiert die Großaktionärsdaten eines Wertpapierberichts.
func (e *Extractor) AnnualReport(ctx context.Context, docID string) *AnnualDetails {
	content, ok := e.bundleCSV(ctx, docID, "jpcrp")
	if !ok {
		return nil
	}
	details := parseAnnualCSV(content)
	if details == nil {
		e.Logger.Warn("Keine gültigen Aktionärsdaten im Bundle gefunden", zap.String("doc_id", docID))
	}
	return details
}

// bundleCSV holt das ZIP-Bundle eines Dokuments, wählt den passenden
// CSV-Eintrag aus und dekodiert ihn von UTF-16LE.
func (e *Extractor) bundleCSV(ctx context.Context, docID, namespace string) (string, bool) {
	log := e.Logger.With(zap.String("doc_id", docID))

	data := e.cachedBundle(ctx, docID)
	if data == nil {
		var err error
		data, err = e.Client.DownloadBundle(ctx, docID, edinet.FetchTypeCSV)
		if err != nil {
			log.Warn("Bundle-Download fehlgeschlagen", zap.Error(err))
			return "", false
		}
		e.storeBundle(ctx, docID, data)
	}

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		log.Warn("Bundle ist kein gültiges ZIP", zap.Error(err))
		return "", false
	}

	entry := selectCSVEntry(reader, namespace)
	if entry == nil {
		log.Warn("Keine CSV-Datei im Bundle gefunden")
		return "", false
	}

	rc, err := entry.Open()
	if err != nil {
		log.Warn("Konnte Bundle-Eintrag nicht öffnen", zap.String("entry", entry.Name), zap.Error(err))
		return "", false
	}
	defer rc.Close()

	// EDINET liefert die CSVs als UTF-16LE mit BOM.
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	decoded, err := io.ReadAll(transform.NewReader(rc, decoder))
	if err != nil {
		log.Warn("UTF-16-Dekodierung fehlgeschlagen", zap.String("entry", entry.Name), zap.Error(err))
		return "", false
	}
	return string(decoded), true
}

// selectCSVEntry sucht den CSV-Eintrag des gewünschten Namensraums.
// Für Wertpapierberichte muss zusätzlich die Dokumentrolle "asr" passen.
// Fallback ist der erste CSV-Eintrag des Bundles.
func selectCSVEntry(reader *zip.Reader, namespace string) *zip.File {
	var fallback *zip.File
	for _, f := range reader.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, ".csv") {
			continue
		}
		if fallback == nil {
			fallback = f
		}
		if !strings.Contains(f.Name, namespace) {
			continue
		}
		if namespace == "jpcrp" && !strings.Contains(f.Name, "asr") {
			continue
		}
		return f
	}
	return fallback
}

// cachedBundle versucht, das Bundle aus dem S3-Cache zu lesen.
func (e *Extractor) cachedBundle(ctx context.Context, docID string) []byte {
	if e.Cache == nil {
		return nil
	}
	data, err := e.Cache.Get(ctx, docID)
	if err != nil {
		e.Logger.Debug("Bundle nicht im Cache", zap.String("doc_id", docID), zap.Error(err))
		return nil
	}
	return data
}

// storeBundle legt ein frisch geladenes Bundle im S3-Cache ab.
func (e *Extractor) storeBundle(ctx context.Context, docID string, data []byte) {
	if e.Cache == nil {
		return
	}
	if err := e.Cache.Put(ctx, docID, data); err != nil {
		e.Logger.Warn("Konnte Bundle nicht im Cache ablegen", zap.String("doc_id", docID), zap.Error(err))
	}
}
