package extract

import (
	"math"
	"regexp"
	"strings"

	"github.com/scontrinidev/scontrini/internal/models"
)

const (
	maxItemNameLen = 120
	minItemNameLen = 3

	// A "SCONTO" line whose magnitude exceeds this without a minus or
	// percent sign is a promotional blurb, not a discount.
	maxUnsignedDiscount = 5.0
)

// Section markers delimiting the item region of a receipt.
var (
	sectionStartRE = regexp.MustCompile(`(?i)\bDESCRIZIONE\b`)
	sectionEndRE   = regexp.MustCompile(`(?i)\bARTICOLI\b`)
)

// Vocabulary that disqualifies a line as an item. The code-letter and
// percentage layouts additionally reject VAT legend lines; the generic
// fallback keeps them in play because its code-letter branch feeds on them.
var (
	nonItemRE    = regexp.MustCompile(`(?i)\b(TOTALE|SUBTOT\.?|IMPORTO|PAGATO|PAGAMENTO|RESTO|MONETA|ARTICOLI|DOC\.?|DOCUMENTO)\b`)
	nonItemIvaRE = regexp.MustCompile(`(?i)\b(TOTALE|SUBTOT\.?|IMPORTO|PAGATO|PAGAMENTO|RESTO|MONETA|ARTICOLI|DOC\.?|DOCUMENTO|IVA)\b`)
)

var (
	moneyTokenRE = regexp.MustCompile(`\d+[,.]\d{2}`)

	itemNameCharRE  = regexp.MustCompile(`[^A-Za-z0-9À-ÿ\s.,]`)
	leadingPunctRE  = regexp.MustCompile(`^[.,]+\s*`)
	trailingPunctRE = regexp.MustCompile(`\s*[.,]+$`)
	leadSingletonRE = regexp.MustCompile(`^[A-Za-z]\s+[0-9A-Za-zÀ-ÿ]{3}`)
	descCharRE      = regexp.MustCompile(`[^A-Z0-9À-ÿ\s.\-]`)
	descOCRPrefixRE = regexp.MustCompile(`^(?:O|A|I|E)\s+`)
	descPunctRunRE  = regexp.MustCompile(`^(?:-+|\.+)\s*`)
)

// itemRegion returns the candidate item lines: everything strictly between
// the first line matching the section-start marker and the next line
// matching the section-end marker. When the markers are missing or the
// slice comes out empty the whole line list is the region.
func itemRegion(lines []string) []string {
	start := -1
	for i, l := range lines {
		if sectionStartRE.MatchString(l) {
			start = i
			break
		}
	}
	if start < 0 {
		return lines
	}
	region := lines[start+1:]
	for i := start + 1; i < len(lines); i++ {
		if sectionEndRE.MatchString(lines[i]) {
			region = lines[start+1 : i]
			break
		}
	}
	if len(region) == 0 {
		return lines
	}
	return region
}

// cleanItemLine strips OCR table separators (pipes) and compacts spaces.
func cleanItemLine(s string) string {
	s = strings.ReplaceAll(s, "|", " ")
	return strings.TrimSpace(multiSpaceRE.ReplaceAllString(s, " "))
}

// cleanItemName reduces an OCR product name to its plausible character set
// (letters incl. accented, digits, space, dot, comma), collapses spaces,
// trims stray edge punctuation and truncates.
func cleanItemName(name string) string {
	s := itemNameCharRE.ReplaceAllString(name, " ")
	s = strings.TrimSpace(multiSpaceRE.ReplaceAllString(s, " "))
	s = leadingPunctRE.ReplaceAllString(s, "")
	s = trailingPunctRE.ReplaceAllString(s, "")
	return truncate(s, maxItemNameLen)
}

// stripLeadingSingleton drops a single leading one-letter token when it is
// followed by a substantive word; OCR often misreads a glyph at the start of
// the line as a spurious letter.
func stripLeadingSingleton(name string) string {
	if loc := leadSingletonRE.FindStringIndex(name); loc != nil {
		return strings.TrimSpace(strings.TrimLeft(name[1:], " "))
	}
	return strings.TrimSpace(name)
}

// normalizeDesc canonicalizes a description for discount detection and
// de-duplication: uppercased, reduced character set, OCR prefix noise
// removed.
func normalizeDesc(desc string) string {
	d := strings.ToUpper(desc)
	d = descCharRE.ReplaceAllString(d, " ")
	d = strings.TrimSpace(multiSpaceRE.ReplaceAllString(d, " "))
	d = descOCRPrefixRE.ReplaceAllString(d, "")
	d = descPunctRunRE.ReplaceAllString(d, "")
	return d
}

// applyDiscountRule handles "SCONTO" lines. OCR systematically drops the
// leading minus on discount lines, so an unsigned price is negated. When an
// unsigned, percent-less line carries an implausibly large magnitude the
// whole line is rejected as a promotional false positive.
// Returns the adjusted price and whether the line survives.
func applyDiscountRule(normDesc, cleanedLine string, price float64) (float64, bool) {
	if !strings.Contains(normDesc, "SCONTO") {
		return price, true
	}
	hasMinus := strings.Contains(cleanedLine, "-")
	hasPercent := strings.Contains(cleanedLine, "%")
	if !hasMinus && !hasPercent && math.Abs(price) > maxUnsignedDiscount {
		return 0, false
	}
	if !hasMinus && price > 0 {
		price = -price
	}
	return price, true
}

// dedupeKey identifies an item by normalized description and price rounded
// to the cent; within one parser's output a repeated key is kept once.
type dedupeKey struct {
	desc  string
	cents int64
}

func keyFor(normDesc string, price float64) dedupeKey {
	return dedupeKey{desc: normDesc, cents: int64(math.Round(price * 100))}
}

func newItem(raw, name string, price float64, vatRate *float64) models.Item {
	rawCopy := raw
	nameCopy := truncate(name, maxItemNameLen)
	priceCopy := price
	return models.Item{
		RawLine:    &rawCopy,
		Name:       &nameCopy,
		TotalPrice: &priceCopy,
		VATRate:    vatRate,
	}
}

// ItemParser is a single layout strategy: it scans the document's item
// region under one layout assumption and emits the line items it
// recognizes. Adding a new receipt layout means registering a new parser,
// never touching the selector.
type ItemParser interface {
	Format() Format
	Parse(doc Document) []models.Item
}
