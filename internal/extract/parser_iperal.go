package extract

import (
	"regexp"
	"strings"

	"github.com/scontrinidev/scontrini/internal/models"
)

// Code-letter layout: each item line ends with a price followed by a VAT
// letter that the receipt's legend maps to a rate, e.g.
// "LATTE UHT PS 1,50 A".
var iperalLineRE = regexp.MustCompile(`(?i)^(.+?)\s+(-?\d+[,.]\d{2})\s*([ABC])\b`)

type iperalParser struct{}

func (iperalParser) Format() Format { return FormatIperal }

func (iperalParser) Parse(doc Document) []models.Item {
	codes := BuildVATCodeMap(doc.Text)
	seen := make(map[dedupeKey]struct{})
	var items []models.Item
	for _, raw := range itemRegion(doc.Lines) {
		line := cleanItemLine(raw)
		if line == "" || nonItemIvaRE.MatchString(line) {
			continue
		}
		m := iperalLineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		price := parseMoney(m[2])
		if price == nil {
			continue
		}
		name := stripLeadingSingleton(cleanItemName(strings.TrimSpace(m[1])))
		if name == "" {
			continue
		}
		norm := normalizeDesc(name)
		p, ok := applyDiscountRule(norm, line, *price)
		if !ok {
			continue
		}
		key := keyFor(norm, p)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		var rate *float64
		if r, found := codes[strings.ToUpper(m[3])]; found {
			rc := r
			rate = &rc
		}
		items = append(items, newItem(raw, name, p, rate))
	}
	return items
}
