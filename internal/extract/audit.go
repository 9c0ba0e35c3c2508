package extract

import (
	"fmt"
	"math"

	"github.com/scontrinidev/scontrini/internal/models"
)

// Tolerances for cross-checking extracted amounts. The paid amount gets a
// wider band because cash payments legitimately exceed the total.
const (
	totalsTolerance = 0.05
	paidTolerance   = 0.50
)

// Audit cross-checks the extracted items against the document's own claims
// and returns machine-readable warnings. Order is stable: count mismatch,
// then total consistency, then paid amount.
func Audit(doc Document, items []models.Item, totals models.Totals) []string {
	warnings := []string{}

	declared := ExtractDeclaredItemCount(doc)
	extracted := 0
	sum := 0.0
	for _, it := range items {
		if it.TotalPrice != nil {
			extracted++
			sum += *it.TotalPrice
		}
	}
	if declared != nil && extracted != *declared {
		warnings = append(warnings, fmt.Sprintf("items_count_mismatch: declared=%d extracted=%d", *declared, extracted))
	}

	if totals.Total == nil {
		warnings = append(warnings, "total_missing")
	} else if delta := math.Abs(sum - *totals.Total); delta > totalsTolerance {
		warnings = append(warnings, fmt.Sprintf("totals_inconsistent: sum_items=%.2f total=%.2f delta=%.2f", sum, *totals.Total, delta))
	}

	paid := ExtractPaidAmount(doc)
	if paid != nil && totals.Total != nil && math.Abs(*paid-*totals.Total) > paidTolerance {
		warnings = append(warnings, fmt.Sprintf("paid_amount_suspect: paid=%.2f total=%.2f", *paid, *totals.Total))
	}

	return warnings
}
