package services

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Shareholder ist ein Großaktionärseintrag aus einem Wertpapierbericht.
type Shareholder struct {
	Rank   int     `json:"rank"`
	Name   string  `json:"name"`
	Shares float64 `json:"shares"`
	Ratio  float64 `json:"ratio"`
}

// AnnualDetails sind die extrahierten Großaktionärsdaten eines
// Wertpapierberichts.
type AnnualDetails struct {
	// Top 3 nach Denylist-Filter, absteigend nach Quote.
	Shareholders []Shareholder `json:"shareholders"`
	// Zugehörigkeit des Emittenten, abgeleitet vom größten nicht-treuhänderischen Aktionär.
	Attribute string `json:"attribute"`
}

// rankPattern extrahiert die Mitgliedsnummer aus der Kontext-ID
// (z.B. CurrentYearInstant_No2MajorShareholdersMember).
var rankPattern = regexp.MustCompile(`No(\d+)MajorShareholdersMember`)

// Namens-Substrings treuhänderischer bzw. verwaltender Halter. Diese Einträge
// sagen nichts über die Zugehörigkeit aus und werden für die Attributsableitung
// und die Anzeige ausgefiltert.
var custodianDenylist = []string{
	"信託口", "マスタートラスト", "日本カストディ", "資産管理サービス信託",
	"従業員持株会", "自社株", "自己株式",
	"STATE STREET BANK", "THE BANK OF NEW YORK", "JP MORGAN",
	"GOVERNMENT OF NORWAY", "日本証券金融",
}

// corporateSuffixes werden bei der Attributsableitung aus dem Namen entfernt.
var corporateSuffixes = []string{"株式会社", "有限会社", "一般社団法人", "公益財団法人"}

const independentAttribute = "独立系"

// parseAnnualCSV extrahiert die Großaktionärsliste aus dem
// tabulatorgetrennten Inhalt eines Wertpapierberichts. Einträge ohne Namen
// oder ohne positive Stückzahl werden verworfen, nicht mit Defaults belegt.
// Gibt nil zurück, wenn kein gültiger Eintrag übrig bleibt.
func parseAnnualCSV(content string) *AnnualDetails {
	byRank := make(map[int]*Shareholder)

	for _, line := range strings.Split(content, "\n") {
		columns := splitCSVLine(line)
		if len(columns) < 9 {
			continue
		}

		elementID := columns[0]
		contextID := columns[2]
		value := columns[8]

		// Nur Ist-Werte des aktuellen Jahres, gruppiert nach Mitgliedsnummer.
		if !strings.Contains(contextID, "CurrentYearInstant") ||
			!strings.Contains(contextID, "MajorShareholdersMember") {
			continue
		}
		match := rankPattern.FindStringSubmatch(contextID)
		if match == nil {
			continue
		}
		rank, _ := strconv.Atoi(match[1])

		holder := byRank[rank]
		if holder == nil {
			holder = &Shareholder{Rank: rank}
			byRank[rank] = holder
		}

		switch {
		case strings.Contains(elementID, "NameMajorShareholders"):
			holder.Name = value
		case strings.Contains(elementID, "NumberOfSharesHeld"):
			if shares, err := strconv.ParseFloat(value, 64); err == nil {
				holder.Shares = shares
			}
		case strings.Contains(elementID, "ShareholdingRatio"):
			if ratio, err := strconv.ParseFloat(value, 64); err == nil {
				holder.Ratio = ratio
			}
		}
	}

	var valid []Shareholder
	for _, holder := range byRank {
		if holder.Name == "" || holder.Shares <= 0 {
			continue
		}
		holder.Name = strings.TrimSpace(strings.ReplaceAll(holder.Name, "　", " "))
		valid = append(valid, *holder)
	}
	if len(valid) == 0 {
		return nil
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Ratio > valid[j].Ratio
	})

	filtered := filterCustodians(valid)

	attribute := independentAttribute
	if len(filtered) > 0 {
		attribute = deriveAttribute(filtered[0].Name)
	}

	top := filtered
	if len(top) > 3 {
		top = top[:3]
	}
	return &AnnualDetails{Shareholders: top, Attribute: attribute}
}

// filterCustodians entfernt treuhänderische Halter. Die relative Reihenfolge
// der verbleibenden Einträge bleibt erhalten.
func filterCustodians(holders []Shareholder) []Shareholder {
	var filtered []Shareholder
	for _, h := range holders {
		if matchesDenylist(h.Name) {
			continue
		}
		filtered = append(filtered, h)
	}
	return filtered
}

func matchesDenylist(name string) bool {
	for _, keyword := range custodianDenylist {
		if strings.Contains(name, keyword) {
			return true
		}
	}
	return false
}

// deriveAttribute leitet das Zugehörigkeits-Label aus dem Namen des größten
// gefilterten Aktionärs ab: Rechtsformzusätze entfernen, "系" anhängen.
func deriveAttribute(name string) string {
	for _, suffix := range corporateSuffixes {
		name = strings.ReplaceAll(name, suffix, "")
	}
	return strings.TrimSpace(name) + "系"
}
