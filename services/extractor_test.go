package services

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"edinet-watch/config"
	"edinet-watch/edinet"
)

// buildBundle baut ein ZIP-Bundle im Speicher. Die Einträge werden wie bei
// EDINET als UTF-16LE mit BOM kodiert.
func buildBundle(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	encoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range entries {
		encoded, _, err := transform.String(encoder, content)
		if err != nil {
			t.Fatalf("encode %s: %v", name, err)
		}
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(encoded)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func bundleExtractor(t *testing.T, payload []byte) (*Extractor, func()) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if payload == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(payload)
	}))
	cfg := &config.Config{EdinetBaseURL: server.URL, EdinetAPIKey: "test-key"}
	client := edinet.NewClient(cfg, zap.NewNop())
	return NewExtractor(client, nil, zap.NewNop()), server.Close
}

func TestExtractorLargeHolding(t *testing.T) {
	bundle := buildBundle(t, map[string]string{
		"XBRL_TO_CSV/jplvh010000-lvh-001_S100TEST.csv": strings.Join([]string{
			holdingRow("jplvh_cor:NameOfIssuer", "テスト商事株式会社"),
			holdingRow("jplvh_cor:HoldingRatioOfShareCertificatesEtc", "0.0512"),
		}, "\n"),
	})
	extractor, cleanup := bundleExtractor(t, bundle)
	defer cleanup()

	details := extractor.LargeHolding(context.Background(), "S100TEST")
	if details == nil {
		t.Fatal("LargeHolding lieferte nil")
	}
	if details.IssuerName != "テスト商事株式会社" {
		t.Errorf("IssuerName = %q", details.IssuerName)
	}
	if details.HoldingRatio == nil || *details.HoldingRatio != 0.0512 {
		t.Errorf("HoldingRatio = %v", details.HoldingRatio)
	}
}

func TestExtractorAnnualReport(t *testing.T) {
	rows := shareholderRows("1", "テスト興産株式会社", "40000", "0.12")
	bundle := buildBundle(t, map[string]string{
		// Der Halbjahresbericht passt nicht zur Rolle "asr" und wird übersprungen.
		"XBRL_TO_CSV/jpcrp040000-ssr-001_S100TEST.csv": "",
		"XBRL_TO_CSV/jpcrp030000-asr-001_S100TEST.csv": strings.Join(rows, "\n"),
	})
	extractor, cleanup := bundleExtractor(t, bundle)
	defer cleanup()

	details := extractor.AnnualReport(context.Background(), "S100TEST")
	if details == nil {
		t.Fatal("AnnualReport lieferte nil")
	}
	if len(details.Shareholders) != 1 || details.Shareholders[0].Name != "テスト興産株式会社" {
		t.Errorf("Shareholders = %+v", details.Shareholders)
	}
	if details.Attribute != "テスト興産系" {
		t.Errorf("Attribute = %q", details.Attribute)
	}
}

func TestExtractorDownloadFailure(t *testing.T) {
	extractor, cleanup := bundleExtractor(t, nil)
	defer cleanup()

	if details := extractor.LargeHolding(context.Background(), "S100GONE"); details != nil {
		t.Errorf("details = %+v, want nil", details)
	}
}

func TestExtractorInvalidZip(t *testing.T) {
	extractor, cleanup := bundleExtractor(t, []byte("kein zip"))
	defer cleanup()

	if details := extractor.LargeHolding(context.Background(), "S100BAD"); details != nil {
		t.Errorf("details = %+v, want nil", details)
	}
}

func TestSelectCSVEntry(t *testing.T) {
	bundle := buildBundle(t, map[string]string{
		"XBRL_TO_CSV/manifest.xml":              "<xml/>",
		"XBRL_TO_CSV/jpaud000000-audit-001.csv": "",
		"XBRL_TO_CSV/jplvh010000-lvh-001.csv":   "",
	})
	reader, err := zip.NewReader(bytes.NewReader(bundle), int64(len(bundle)))
	if err != nil {
		t.Fatal(err)
	}

	entry := selectCSVEntry(reader, "jplvh")
	if entry == nil || !strings.Contains(entry.Name, "jplvh") {
		t.Fatalf("entry = %v", entry)
	}

	// Ohne Namensraumtreffer fällt die Auswahl auf den ersten CSV-Eintrag.
	fallback := selectCSVEntry(reader, "jpcrp")
	if fallback == nil || !strings.HasSuffix(fallback.Name, ".csv") {
		t.Fatalf("fallback = %v", fallback)
	}

	empty := buildBundle(t, map[string]string{"XBRL_TO_CSV/manifest.xml": "<xml/>"})
	emptyReader, err := zip.NewReader(bytes.NewReader(empty), int64(len(empty)))
	if err != nil {
		t.Fatal(err)
	}
	if entry := selectCSVEntry(emptyReader, "jplvh"); entry != nil {
		t.Errorf("entry = %v, want nil", entry)
	}
}
