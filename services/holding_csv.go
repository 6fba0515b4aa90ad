package services

import (
	"fmt"
	"strconv"
	"strings"
)

// HoldingDetails sind die extrahierten Inhalte einer Großaktionärsmeldung.
// Numerische Felder sind entweder ein gültig geparster Wert oder nil,
// niemals ein Platzhalter.
type HoldingDetails struct {
	IssuerName           string   `json:"issuerName,omitempty"`
	SecurityCode         string   `json:"securityCode,omitempty"`
	HoldingRatio         *float64 `json:"holdingRatio,omitempty"`
	PreviousHoldingRatio *float64 `json:"previousHoldingRatio,omitempty"`
	HoldingRatioChange   *float64 `json:"holdingRatioChange,omitempty"`
	TotalShares          *int64   `json:"totalShares,omitempty"`
	PurposeOfHolding     string   `json:"purposeOfHolding,omitempty"`
	FilerName            string   `json:"filerName,omitempty"`
}

// parseKind bestimmt, wie der Rohwert eines Feldes interpretiert wird.
type parseKind int

const (
	parseText parseKind = iota
	parseRatio
	parseShares
)

// holdingField ordnet einen Element-Identifier der CSV einem Zielfeld zu.
type holdingField struct {
	elementID string
	field     string
	kind      parseKind
}

// Geschlossene Menge der bekannten Felder. Die Tabelle wird beim Start auf
// doppelte Identifier geprüft.
var holdingFields = []holdingField{
	{"jplvh_cor:NameOfIssuer", "issuerName", parseText},
	{"jplvh_cor:SecurityCodeOfIssuer", "securityCode", parseText},
	{"jplvh_cor:HoldingRatioOfShareCertificatesEtc", "holdingRatio", parseRatio},
	{"jplvh_cor:HoldingRatioOfShareCertificatesEtcPerLastReport", "previousHoldingRatio", parseRatio},
	{"jplvh_cor:TotalNumberOfStocksEtcHeld", "totalShares", parseShares},
	{"jplvh_cor:PurposeOfHolding", "purposeOfHolding", parseText},
	{"jplvh_cor:NameCoverPage", "filerName", parseText},
}

var holdingFieldsByID = make(map[string]holdingField, len(holdingFields))

func init() {
	for _, f := range holdingFields {
		if _, dup := holdingFieldsByID[f.elementID]; dup {
			panic("doppelter Element-Identifier in holdingFields: " + f.elementID)
		}
		holdingFieldsByID[f.elementID] = f
	}
}

// Platzhalterglyphen, die in der Quelle "kein Wert" bedeuten. Sie werden auf
// Abwesenheit abgebildet, nie auf 0 oder einen Leerstring.
func isSentinel(value string) bool {
	return value == "" || value == "－" || value == "―"
}

// parseHoldingCSV parst den tabulatorgetrennten Inhalt einer
// Großaktionärsmeldung. Spalte 0 ist der Element-Identifier, Spalte 8 der
// Wert. Gibt nil zurück, wenn kein bekanntes Feld belegt werden konnte.
func parseHoldingCSV(content string) *HoldingDetails {
	details := &HoldingDetails{}
	populated := false

	for _, line := range strings.Split(content, "\n") {
		columns := splitCSVLine(line)
		if len(columns) < 9 {
			continue
		}

		field, ok := holdingFieldsByID[columns[0]]
		if !ok {
			continue
		}
		value := columns[8]
		if isSentinel(value) {
			continue
		}
		if applyHoldingField(details, field, value) {
			populated = true
		}
	}

	if !populated {
		return nil
	}

	// Die Differenz ist nur definiert, wenn beide Quoten vorhanden sind.
	if details.HoldingRatio != nil && details.PreviousHoldingRatio != nil {
		change := *details.HoldingRatio - *details.PreviousHoldingRatio
		details.HoldingRatioChange = &change
	}
	return details
}

// splitCSVLine zerlegt eine Zeile an Tabulatoren und entfernt Anführungszeichen,
// Carriage Returns und umgebende Leerzeichen.
func splitCSVLine(line string) []string {
	columns := strings.Split(line, "\t")
	for i, col := range columns {
		col = strings.ReplaceAll(col, "\"", "")
		col = strings.ReplaceAll(col, "\r", "")
		columns[i] = strings.TrimSpace(col)
	}
	return columns
}

// applyHoldingField setzt einen Rohwert gemäß seiner parseKind. Werte, die
// sich nicht parsen lassen, bleiben abwesend.
func applyHoldingField(details *HoldingDetails, field holdingField, value string) bool {
	switch field.kind {
	case parseRatio:
		ratio, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return false
		}
		switch field.field {
		case "holdingRatio":
			details.HoldingRatio = &ratio
		case "previousHoldingRatio":
			details.PreviousHoldingRatio = &ratio
		}
		return true
	case parseShares:
		shares, err := strconv.ParseInt(strings.ReplaceAll(value, ",", ""), 10, 64)
		if err != nil {
			return false
		}
		details.TotalShares = &shares
		return true
	default:
		switch field.field {
		case "issuerName":
			details.IssuerName = value
		case "securityCode":
			details.SecurityCode = value
		case "purposeOfHolding":
			details.PurposeOfHolding = value
		case "filerName":
			details.FilerName = value
		}
		return true
	}
}

// FormatRatioAsPercent formatiert eine Quote (0.0–1.0) als Prozentstring.
func FormatRatioAsPercent(ratio *float64) string {
	if ratio == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", *ratio*100)
}

// FormatRatioChange formatiert eine Quotendifferenz mit Vorzeichen.
func FormatRatioChange(change *float64) string {
	if change == nil {
		return "-"
	}
	sign := ""
	if *change >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f%%", sign, *change*100)
}
