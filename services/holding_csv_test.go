package services

import (
	"strings"
	"testing"
)

// holdingRow baut eine tabulatorgetrennte Zeile mit neun Spalten,
// Element-Identifier in Spalte 0 und Wert in Spalte 8.
func holdingRow(elementID, value string) string {
	columns := make([]string, 9)
	columns[0] = elementID
	columns[8] = value
	return strings.Join(columns, "\t")
}

func TestParseHoldingCSV(t *testing.T) {
	content := strings.Join([]string{
		holdingRow("jplvh_cor:NameOfIssuer", "テスト商事株式会社"),
		holdingRow("jplvh_cor:SecurityCodeOfIssuer", "62500"),
		holdingRow("jplvh_cor:HoldingRatioOfShareCertificatesEtc", "0.0512"),
		holdingRow("jplvh_cor:HoldingRatioOfShareCertificatesEtcPerLastReport", "0.0478"),
		holdingRow("jplvh_cor:TotalNumberOfStocksEtcHeld", "1,234,567"),
		holdingRow("jplvh_cor:PurposeOfHolding", "純投資"),
		holdingRow("jplvh_cor:NameCoverPage", "テスト投資顧問株式会社"),
		holdingRow("jplvh_cor:UnknownElement", "wird ignoriert"),
	}, "\n")

	details := parseHoldingCSV(content)
	if details == nil {
		t.Fatal("parseHoldingCSV lieferte nil")
	}
	if details.IssuerName != "テスト商事株式会社" {
		t.Errorf("IssuerName = %q", details.IssuerName)
	}
	if details.SecurityCode != "62500" {
		t.Errorf("SecurityCode = %q", details.SecurityCode)
	}
	if details.HoldingRatio == nil || *details.HoldingRatio != 0.0512 {
		t.Errorf("HoldingRatio = %v", details.HoldingRatio)
	}
	if details.PreviousHoldingRatio == nil || *details.PreviousHoldingRatio != 0.0478 {
		t.Errorf("PreviousHoldingRatio = %v", details.PreviousHoldingRatio)
	}
	if details.HoldingRatioChange == nil {
		t.Fatal("HoldingRatioChange fehlt, obwohl beide Quoten vorhanden sind")
	}
	if got := *details.HoldingRatioChange; got < 0.0033 || got > 0.0035 {
		t.Errorf("HoldingRatioChange = %v", got)
	}
	if details.TotalShares == nil || *details.TotalShares != 1234567 {
		t.Errorf("TotalShares = %v", details.TotalShares)
	}
	if details.PurposeOfHolding != "純投資" {
		t.Errorf("PurposeOfHolding = %q", details.PurposeOfHolding)
	}
	if details.FilerName != "テスト投資顧問株式会社" {
		t.Errorf("FilerName = %q", details.FilerName)
	}
}

func TestParseHoldingCSVSentinels(t *testing.T) {
	// Platzhalterglyphen bedeuten Abwesenheit, nicht 0.
	content := strings.Join([]string{
		holdingRow("jplvh_cor:NameOfIssuer", "テスト商事株式会社"),
		holdingRow("jplvh_cor:HoldingRatioOfShareCertificatesEtc", "0.0512"),
		holdingRow("jplvh_cor:HoldingRatioOfShareCertificatesEtcPerLastReport", "－"),
		holdingRow("jplvh_cor:TotalNumberOfStocksEtcHeld", "―"),
	}, "\n")

	details := parseHoldingCSV(content)
	if details == nil {
		t.Fatal("parseHoldingCSV lieferte nil")
	}
	if details.PreviousHoldingRatio != nil {
		t.Errorf("PreviousHoldingRatio = %v, want nil", details.PreviousHoldingRatio)
	}
	if details.TotalShares != nil {
		t.Errorf("TotalShares = %v, want nil", details.TotalShares)
	}
	// Ohne Vorquote gibt es keine Differenz.
	if details.HoldingRatioChange != nil {
		t.Errorf("HoldingRatioChange = %v, want nil", details.HoldingRatioChange)
	}
}

func TestParseHoldingCSVEmpty(t *testing.T) {
	if details := parseHoldingCSV(""); details != nil {
		t.Errorf("details = %+v, want nil", details)
	}
	// Zeilen mit zu wenigen Spalten werden übersprungen.
	short := "jplvh_cor:NameOfIssuer\tfoo\tbar"
	if details := parseHoldingCSV(short); details != nil {
		t.Errorf("details = %+v, want nil", details)
	}
}

func TestParseHoldingCSVQuotedColumns(t *testing.T) {
	content := holdingRow("\"jplvh_cor:NameOfIssuer\"", "\"テスト商事株式会社\"\r")
	details := parseHoldingCSV(content)
	if details == nil || details.IssuerName != "テスト商事株式会社" {
		t.Errorf("details = %+v", details)
	}
}

func TestFormatRatioAsPercent(t *testing.T) {
	if got := FormatRatioAsPercent(nil); got != "-" {
		t.Errorf("FormatRatioAsPercent(nil) = %q", got)
	}
	ratio := 0.0512
	if got := FormatRatioAsPercent(&ratio); got != "5.12%" {
		t.Errorf("FormatRatioAsPercent = %q", got)
	}
}

func TestFormatRatioChange(t *testing.T) {
	if got := FormatRatioChange(nil); got != "-" {
		t.Errorf("FormatRatioChange(nil) = %q", got)
	}
	up := 0.0034
	if got := FormatRatioChange(&up); got != "+0.34%" {
		t.Errorf("FormatRatioChange(up) = %q", got)
	}
	down := -0.0125
	if got := FormatRatioChange(&down); got != "-1.25%" {
		t.Errorf("FormatRatioChange(down) = %q", got)
	}
}
