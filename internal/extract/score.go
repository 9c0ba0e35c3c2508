package extract

import (
	"math"
	"regexp"
	"strings"

	"github.com/scontrinidev/scontrini/internal/models"
)

// Candidate scoring weights. Higher score means a more plausible item list.
const (
	pricedRatioWeight    = 10.0
	itemCountWeight      = 0.2
	itemCountCap         = 30
	declaredCountPenalty = 2.5
	totalDeltaPenalty    = 3.0
	totalDeltaCap        = 50.0
	suspiciousPenalty    = 5.0
)

// Payment and document vocabulary leaking into an item name signals the
// parser swallowed a non-item line.
var suspiciousNameRE = regexp.MustCompile(`(?i)\b(PAGAMENTO|PAGATO|RESTO|TOTALE|SUBTOT|IMPORTO|DOC|DOCUMENTO)\b`)

// ScoreItems rates one parser's output against independent evidence from
// the same document: the declared article count, the printed total and the
// share of items that actually carry a price.
func ScoreItems(doc Document, items []models.Item, totals models.Totals) float64 {
	declared := ExtractDeclaredItemCount(doc)

	products := 0
	for _, it := range items {
		if it.Name != nil && !strings.Contains(normalizeDesc(*it.Name), "SCONTO") {
			products++
		}
	}

	sum := 0.0
	priced := 0
	for _, it := range items {
		if it.TotalPrice != nil {
			sum += *it.TotalPrice
			priced++
		}
	}

	denom := len(items)
	if denom < 1 {
		denom = 1
	}
	score := pricedRatioWeight * float64(priced) / float64(denom)

	n := len(items)
	if n > itemCountCap {
		n = itemCountCap
	}
	score += float64(n) * itemCountWeight

	if declared != nil {
		score -= math.Abs(float64(products-*declared)) * declaredCountPenalty
	}

	if totals.Total != nil {
		delta := math.Abs(sum - *totals.Total)
		score -= math.Min(delta*totalDeltaPenalty, totalDeltaCap)
	}

	suspicious := 0
	for _, it := range items {
		if it.Name != nil && suspiciousNameRE.MatchString(*it.Name) {
			suspicious++
		}
	}
	score -= float64(suspicious) * suspiciousPenalty

	return score
}
