package services

import (
	"strconv"
)

// industryRange ordnet einen Bereich vierstelliger Wertpapiercodes einer
// Branche der Tokioter Börse zu. Die inverse Abbildung für Branchenfilter
// wird aus derselben Tabelle abgeleitet.
type industryRange struct {
	lo, hi   int // inklusive
	industry string
}

const industryOther = "その他"

var industryRanges = []industryRange{
	{1300, 1399, "水産・農林業"},
	{1400, 1499, "建設業"},
	{1500, 1699, "鉱業"},
	{1700, 1999, "建設業"},
	{2000, 2999, "食料品"},
	{3000, 3099, "繊維製品"},
	{3100, 3299, "その他製品"},
	{3300, 3399, "不動産業"},
	{3400, 3599, "繊維製品"},
	{3600, 3999, "情報・通信業"},
	{4000, 4499, "化学"},
	{4500, 4599, "医薬品"},
	{4600, 4699, "サービス業"},
	{4700, 4899, "情報・通信業"},
	{4900, 4999, "化学"},
	{5000, 5099, "石油・石炭製品"},
	{5100, 5199, "ゴム製品"},
	{5200, 5399, "ガラス・土石製品"},
	{5400, 5699, "鉄鋼"},
	{5700, 5899, "非鉄金属"},
	{5900, 5999, "金属製品"},
	{6000, 6099, "サービス業"},
	{6100, 6499, "機械"},
	{6500, 6999, "電気機器"},
	{7000, 7399, "輸送用機器"},
	{7400, 7699, "小売業"},
	{7700, 7799, "精密機器"},
	{7800, 7999, "その他製品"},
	{8000, 8199, "卸売業"},
	{8200, 8299, "小売業"},
	{8300, 8499, "銀行業"},
	{8500, 8599, "その他金融業"},
	{8600, 8699, "証券、商品先物取引業"},
	{8700, 8799, "保険業"},
	{8800, 8999, "不動産業"},
	{9000, 9099, "陸運業"},
	{9100, 9199, "海運業"},
	{9200, 9299, "空運業"},
	{9300, 9399, "倉庫・運輸関連業"},
	{9400, 9499, "情報・通信業"},
	{9500, 9599, "電気・ガス業"},
	{9600, 9799, "サービス業"},
	{9800, 9899, "卸売業"},
	{9900, 9999, "小売業"},
}

// IndustryForSecCode bestimmt die Branche anhand der ersten vier Stellen des
// Wertpapiercodes. Unbekannte oder zu kurze Codes fallen auf "その他" zurück.
func IndustryForSecCode(secCode string) string {
	if len(secCode) < 4 {
		return industryOther
	}
	code, err := strconv.Atoi(secCode[:4])
	if err != nil {
		return industryOther
	}
	for _, r := range industryRanges {
		if code >= r.lo && code <= r.hi {
			return r.industry
		}
	}
	return industryOther
}

// IndustryCodeRanges gibt die Codebereiche einer Branche als [von, bis]-Paare
// vierstelliger Strings zurück (für SQL-Bereichsfilter).
func IndustryCodeRanges(industry string) [][2]string {
	var ranges [][2]string
	for _, r := range industryRanges {
		if r.industry == industry {
			ranges = append(ranges, [2]string{
				strconv.Itoa(r.lo),
				strconv.Itoa(r.hi),
			})
		}
	}
	return ranges
}
