package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// VAT legend patterns. The standard form is "A: IVA 4,00%"; OCR frequently
// mangles the line into "A IVA 4,00%" / "AA IVA 4,00%" or the fused
// "AAIVA 4,00%", so two progressively looser fallbacks exist for code A.
var (
	vatLegendRE       = regexp.MustCompile(`(?i)\b([ABC])\s*[:\-]?\s*IVA\s*([0-9]{1,2}(?:[,.][0-9]{1,2})?)\s*%`)
	vatLegendSpacedRE = regexp.MustCompile(`(?i)\bA{1,2}\s*[:\-]?\s*IVA\s*([0-9]{1,2}(?:[,.][0-9]{1,2})?)\s*%`)
	vatLegendFusedRE  = regexp.MustCompile(`(?i)\bAAIVA\s*([0-9]{1,2}(?:[,.][0-9]{1,2})?)\s*%`)
)

// VATCodeMap maps a one-letter VAT class code to its percentage rate,
// built per receipt from the footer legend. May be empty.
type VATCodeMap map[string]float64

func parseRate(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// BuildVATCodeMap scans the whole text for the VAT legend. The structured
// pattern runs first for every code letter; if it produced no entry for
// "A", the spaced then the fused OCR-tolerant variants are tried in order
// and the first match wins. No match leaves "A" unset.
func BuildVATCodeMap(text string) VATCodeMap {
	codeMap := VATCodeMap{}

	for _, g := range vatLegendRE.FindAllStringSubmatch(text, -1) {
		if rate, ok := parseRate(g[2]); ok {
			codeMap[strings.ToUpper(g[1])] = rate
		}
	}

	if _, ok := codeMap["A"]; !ok {
		if g := vatLegendSpacedRE.FindStringSubmatch(text); g != nil {
			if rate, ok := parseRate(g[1]); ok {
				codeMap["A"] = rate
			}
		}
	}

	if _, ok := codeMap["A"]; !ok {
		if g := vatLegendFusedRE.FindStringSubmatch(text); g != nil {
			if rate, ok := parseRate(g[1]); ok {
				codeMap["A"] = rate
			}
		}
	}

	return codeMap
}
