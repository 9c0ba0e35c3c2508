package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scontrinidev/scontrini/internal/models"
)

func TestAuditCleanReceipt(t *testing.T) {
	doc := NewDocument("ARTICOLI 2\nTOTALE 2,40\nIMPORTO PAGATO 2,40")
	items := []models.Item{itemFor("LATTE", 1.50), itemFor("PANE", 0.90)}

	warnings := Audit(doc, items, ParseTotals(doc))
	assert.Empty(t, warnings)
	assert.NotNil(t, warnings)
}

func TestAuditCountMismatch(t *testing.T) {
	doc := NewDocument("ARTICOLI 5\nTOTALE 2,40")
	items := []models.Item{itemFor("LATTE", 1.50), itemFor("PANE", 0.90)}

	warnings := Audit(doc, items, ParseTotals(doc))
	require.Len(t, warnings, 1)
	assert.Equal(t, "items_count_mismatch: declared=5 extracted=2", warnings[0])
}

func TestAuditTotalMissing(t *testing.T) {
	doc := NewDocument("solo righe")
	warnings := Audit(doc, nil, models.Totals{})
	assert.Equal(t, []string{"total_missing"}, warnings)
}

func TestAuditTotalsInconsistent(t *testing.T) {
	doc := NewDocument("TOTALE 10,00")
	items := []models.Item{itemFor("LATTE", 1.50)}

	warnings := Audit(doc, items, ParseTotals(doc))
	require.Len(t, warnings, 1)
	assert.Equal(t, "totals_inconsistent: sum_items=1.50 total=10.00 delta=8.50", warnings[0])
}

func TestAuditTotalsWithinTolerance(t *testing.T) {
	doc := NewDocument("TOTALE 1,52")
	items := []models.Item{itemFor("LATTE", 1.50)}

	assert.Empty(t, Audit(doc, items, ParseTotals(doc)))
}

func TestAuditPaidAmountSuspect(t *testing.T) {
	// Classic OCR misread: 32,52 read as 92,52.
	doc := NewDocument("TOTALE 32,52\nIMPORTO PAGATO 92,52")
	items := []models.Item{itemFor("SPESA", 32.52)}

	warnings := Audit(doc, items, ParseTotals(doc))
	require.Len(t, warnings, 1)
	assert.Equal(t, "paid_amount_suspect: paid=92.52 total=32.52", warnings[0])
}

func TestAuditWarningOrder(t *testing.T) {
	doc := NewDocument("ARTICOLI 3\nTOTALE 10,00\nIMPORTO PAGATO 50,00")
	items := []models.Item{itemFor("LATTE", 1.50)}

	warnings := Audit(doc, items, ParseTotals(doc))
	require.Len(t, warnings, 3)
	assert.Contains(t, warnings[0], "items_count_mismatch")
	assert.Contains(t, warnings[1], "totals_inconsistent")
	assert.Contains(t, warnings[2], "paid_amount_suspect")
}
