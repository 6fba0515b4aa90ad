package edinet

import (
	"strings"

	"edinet-watch/models"
)

// Regulatorische Codes, gegen die klassifiziert wird.
const (
	// OrdinanceLargeHolding ist der Füherkennungscode für Großaktionärsmeldungen (大量保有).
	OrdinanceLargeHolding = "060"
	// OrdinanceDisclosure ist der Code für allgemeine Offenlegungen (企業内容等の開示).
	OrdinanceDisclosure = "010"
	// FormCodeAnnualReport ist das Formular des Wertpapierberichts (有価証券報告書).
	FormCodeAnnualReport = "030000"
	// amendmentSuffix markiert Korrekturformulare (訂正).
	amendmentSuffix = "10000"
)

// Geschlossene Menge der Berichtsarten.
const (
	ReportTypeArticlesChange      = "articles-change"
	ReportTypeArticlesRelated     = "articles-related"
	ReportTypeAnnualReport        = "annual-report"
	ReportTypeCorrection          = "correction-report"
	ReportTypeInitialHolding      = "initial-holding"
	ReportTypeChangeReport        = "change-report"
	ReportTypeShortTermTransfer   = "short-term-large-transfer"
	ReportTypeSpecialInitial      = "special-initial-holding"
	ReportTypeSpecialChange       = "special-change-report"
	ReportTypeLargeHoldingGeneric = "large-holding-related-report"
)

// formCodeLabels bildet Formularcodes der Großaktionärsmeldungen auf Berichtsarten ab.
var formCodeLabels = map[string]string{
	"010000": ReportTypeInitialHolding,
	"020000": ReportTypeChangeReport,
	"030000": ReportTypeShortTermTransfer,
	"010001": ReportTypeSpecialInitial,
	"020001": ReportTypeSpecialChange,
}

// labelRule ist eine Prädikat/Label-Regel. Die Regeln werden in fester
// Reihenfolge ausgewertet, der erste Treffer bestimmt die Berichtsart.
type labelRule struct {
	name  string
	match func(Document) bool
	label func(Document) string
}

// Reihenfolge ist Vertrag: die Satzungsregel schlägt die Formularcode-Tabelle,
// auch für Dokumente mit Füherkennungscode 060. Das Dashboard gruppiert danach.
var labelRules = []labelRule{
	{
		name: "articles",
		match: func(d Document) bool {
			return strings.Contains(d.DocDescription, "定款")
		},
		label: func(d Document) string {
			if strings.Contains(d.DocDescription, "変更") {
				return ReportTypeArticlesChange
			}
			return ReportTypeArticlesRelated
		},
	},
	{
		name: "annual",
		match: func(d Document) bool {
			return d.OrdinanceCode == OrdinanceDisclosure && d.FormCode == FormCodeAnnualReport
		},
		label: func(Document) string { return ReportTypeAnnualReport },
	},
	{
		name: "correction",
		match: func(d Document) bool {
			return d.FormCode != "" && strings.HasSuffix(d.FormCode, amendmentSuffix)
		},
		label: func(Document) string { return ReportTypeCorrection },
	},
	{
		name: "form-table",
		match: func(d Document) bool {
			_, ok := formCodeLabels[d.FormCode]
			return ok
		},
		label: func(d Document) string { return formCodeLabels[d.FormCode] },
	},
}

// accepted prüft, ob ein Dokument überwachungsrelevant ist. Die Annahme ist
// unabhängig von der Label-Zuweisung:
//  1. Großaktionärsmeldung (060)
//  2. Offenlegung (010) mit Satzungsbezug im Betreff
//  3. Offenlegung (010) mit Wertpapierbericht-Formular
func accepted(d Document) bool {
	if d.OrdinanceCode == OrdinanceLargeHolding {
		return true
	}
	if d.OrdinanceCode == OrdinanceDisclosure {
		if strings.Contains(d.DocDescription, "定款") {
			return true
		}
		if d.FormCode == FormCodeAnnualReport {
			return true
		}
	}
	return false
}

// ReportType bestimmt die Berichtsart eines Dokuments über die Regelkette.
func ReportType(d Document) string {
	for _, rule := range labelRules {
		if rule.match(d) {
			return rule.label(d)
		}
	}
	return ReportTypeLargeHoldingGeneric
}

// Classify entscheidet, ob ein Dokument überwachungsrelevant ist, und formt es
// in das interne Report-Modell um. Abgelehnte Dokumente werden verworfen,
// nicht persistiert.
func Classify(d Document) (models.Report, bool) {
	if !accepted(d) {
		return models.Report{}, false
	}
	return models.Report{
		DocID:             d.DocID,
		EdinetCode:        d.EdinetCode,
		SecCode:           d.SecCode,
		FilerName:         d.FilerName,
		SubmitDateTime:    d.SubmitDateTime,
		DocDescription:    d.DocDescription,
		FormCode:          d.FormCode,
		ReportType:        ReportType(d),
		IssuerEdinetCode:  d.IssuerEdinetCode,
		SubjectEdinetCode: d.SubjectEdinetCode,
		ParentDocID:       d.ParentDocID,
		PDFFlag:           d.PDFFlag == "1",
		CSVFlag:           d.CSVFlag == "1",
		IsWithdrawn:       d.WithdrawalStatus == "1",
	}, true
}

// ClassifyAll klassifiziert eine Tagesliste und gibt nur die akzeptierten Berichte zurück.
func ClassifyAll(docs []Document) []models.Report {
	var reports []models.Report
	for _, d := range docs {
		if report, ok := Classify(d); ok {
			reports = append(reports, report)
		}
	}
	return reports
}
