// Package edinet enthält die Logik für die Interaktion mit der EDINET API v2.
package edinet

// ListResponse repräsentiert die JSON-Antwort von documents.json.
type ListResponse struct {
	Results []Document `json:"results"`
}

// Document repräsentiert einen einzelnen Eintrag der Dokumentenliste im Rohformat der API.
// Flags kommen als "0"/"1"-Strings über die Leitung.
type Document struct {
	DocID             string `json:"docID"`
	EdinetCode        string `json:"edinetCode"`
	SecCode           string `json:"secCode"`
	FilerName         string `json:"filerName"`
	SubmitDateTime    string `json:"submitDateTime"`
	DocDescription    string `json:"docDescription"`
	OrdinanceCode     string `json:"ordinanceCode"`
	FormCode          string `json:"formCode"`
	IssuerEdinetCode  string `json:"issuerEdinetCode"`
	SubjectEdinetCode string `json:"subjectEdinetCode"`
	ParentDocID       string `json:"parentDocID"`
	PDFFlag           string `json:"pdfFlag"`
	CSVFlag           string `json:"csvFlag"`
	WithdrawalStatus  string `json:"withdrawalStatus"`
}
