package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/scontrinidev/scontrini/internal/models"
)

var genericCodeRE = regexp.MustCompile(`(?i)\b([ABC])\b`)

// Fallback parser handling both known layouts on a per-line basis. A line
// with two monetary tokens is read as rate-then-price, a line with one as
// price only; a stray A/B/C code letter overrides the rate through the
// legend when the legend resolves it.
type genericParser struct{}

func (genericParser) Format() Format { return FormatGeneric }

func (genericParser) Parse(doc Document) []models.Item {
	codes := BuildVATCodeMap(doc.Text)
	seen := make(map[dedupeKey]struct{})
	var items []models.Item
	for _, raw := range itemRegion(doc.Lines) {
		line := cleanItemLine(raw)
		if line == "" || nonItemRE.MatchString(line) {
			continue
		}
		tokens := moneyTokenRE.FindAllStringIndex(line, -1)
		if len(tokens) == 0 {
			continue
		}
		desc := strings.TrimSpace(line[:tokens[0][0]])
		if utf8.RuneCountInString(desc) < minItemNameLen {
			continue
		}
		name := stripLeadingSingleton(cleanItemName(desc))
		if utf8.RuneCountInString(name) < minItemNameLen {
			continue
		}
		var rate *float64
		var price *float64
		if len(tokens) >= 2 {
			rate = parseMoney(line[tokens[0][0]:tokens[0][1]])
			price = parseMoney(line[tokens[len(tokens)-1][0]:tokens[len(tokens)-1][1]])
		} else {
			price = parseMoney(line[tokens[0][0]:tokens[0][1]])
		}
		if price == nil {
			continue
		}
		if m := genericCodeRE.FindStringSubmatch(line); m != nil {
			if r, found := codes[strings.ToUpper(m[1])]; found {
				rc := r
				rate = &rc
			}
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
