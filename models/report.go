package models

import (
	"time"
)

// Report repräsentiert die Metadaten eines klassifizierten EDINET-Dokuments.
type Report struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DocID      string `json:"doc_id" gorm:"column:doc_id;uniqueIndex;not null"`
	EdinetCode string `json:"edinet_code,omitempty"`
	SecCode    string `json:"sec_code,omitempty"`
	FilerName  string `json:"filer_name" gorm:"index;not null"`

	// Einreichungszeitpunkt wie von EDINET geliefert (JST, "YYYY-MM-DD hh:mm").
	// Keine Zeitzonenkonvertierung, Datumsfilter arbeiten per Präfix.
	SubmitDateTime string `json:"submit_date_time" gorm:"index;not null"`

	DocDescription string `json:"doc_description,omitempty" gorm:"type:text"`
	FormCode       string `json:"form_code,omitempty"`
	ReportType     string `json:"report_type" gorm:"index"`

	IssuerEdinetCode  string `json:"issuer_edinet_code,omitempty"`
	SubjectEdinetCode string `json:"subject_edinet_code,omitempty"`
	ParentDocID       string `json:"parent_doc_id,omitempty"`

	PDFFlag     bool `json:"pdf_flag"`
	CSVFlag     bool `json:"csv_flag"`
	IsWithdrawn bool `json:"is_withdrawn"`
	IsNotified  bool `json:"is_notified"`
}
