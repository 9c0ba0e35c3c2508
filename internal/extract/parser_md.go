package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/scontrinidev/scontrini/internal/models"
)

// Percentage layout: the VAT rate is printed inline on every item line
// rather than coded through a legend, e.g. "LATTE INTERO 4,00 1,29".
// The first monetary token is the rate, the last is the price.
type mdParser struct{}

func (mdParser) Format() Format { return FormatMD }

func (mdParser) Parse(doc Document) []models.Item {
	seen := make(map[dedupeKey]struct{})
	var items []models.Item
	for _, raw := range itemRegion(doc.Lines) {
		line := cleanItemLine(raw)
		if line == "" || nonItemIvaRE.MatchString(line) {
			continue
		}
		tokens := moneyTokenRE.FindAllStringIndex(line, -1)
		if len(tokens) < 2 {
			continue
		}
		rate := parseMoney(line[tokens[0][0]:tokens[0][1]])
		price := parseMoney(line[tokens[len(tokens)-1][0]:tokens[len(tokens)-1][1]])
		if price == nil {
			continue
		}
		desc := strings.TrimSpace(line[:tokens[0][0]])
		name := stripLeadingSingleton(cleanItemName(desc))
		if utf8.RuneCountInString(name) < minItemNameLen {
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
		items = append(items, newItem(raw, name, p, rate))
	}
	return items
}
