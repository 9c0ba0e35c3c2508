package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemRegion(t *testing.T) {
	lines := []string{"MD SPA", "DESCRIZIONE IVA% PREZZO", "LATTE 4,00 1,29", "PANE 4,00 0,90", "ARTICOLI 2", "TOTALE 2,19"}
	region := itemRegion(lines)
	assert.Equal(t, []string{"LATTE 4,00 1,29", "PANE 4,00 0,90"}, region)
}

func TestItemRegionNoMarkersUsesAllLines(t *testing.T) {
	lines := []string{"LATTE 1,50 A", "PANE 0,90 B"}
	assert.Equal(t, lines, itemRegion(lines))
}

func TestItemRegionNoEndMarker(t *testing.T) {
	lines := []string{"DESCRIZIONE", "LATTE 1,50 A"}
	assert.Equal(t, []string{"LATTE 1,50 A"}, itemRegion(lines))
}

func TestItemRegionEmptySliceFallsBack(t *testing.T) {
	lines := []string{"DESCRIZIONE", "ARTICOLI 0"}
	assert.Equal(t, lines, itemRegion(lines))
}

func TestCleanItemLine(t *testing.T) {
	assert.Equal(t, "LATTE 1,50 A", cleanItemLine("| LATTE   1,50 | A |"))
}

func TestCleanItemName(t *testing.T) {
	assert.Equal(t, "LATTE UHT PS", cleanItemName("LATTE* UHT @PS#"))
	assert.Equal(t, "PANE", cleanItemName(".,PANE,."))
}

func TestStripLeadingSingleton(t *testing.T) {
	assert.Equal(t, "LATTE UHT", stripLeadingSingleton("O LATTE UHT"))
	assert.Equal(t, "A BC", stripLeadingSingleton("A BC"))
	assert.Equal(t, "LATTE", stripLeadingSingleton("LATTE"))
}

func TestNormalizeDesc(t *testing.T) {
	assert.Equal(t, "LATTE UHT", normalizeDesc("o latte  uht!"))
	assert.Equal(t, "SCONTO FEDELTA", normalizeDesc("..sconto fedelta"))
}

func TestApplyDiscountRule(t *testing.T) {
	// Unsigned small discount gets negated.
	p, ok := applyDiscountRule("SCONTO FEDELTA", "SCONTO FEDELTA 3,00", 3.0)
	require.True(t, ok)
	assert.InDelta(t, -3.0, p, 1e-9)

	// Large unsigned amount with no minus or percent is a false positive.
	_, ok = applyDiscountRule("SCONTO VALIDO SU", "SCONTO VALIDO SU 21,24", 21.24)
	assert.False(t, ok)

	// Explicit minus passes through.
	p, ok = applyDiscountRule("SCONTO CASSA", "SCONTO CASSA -21,24", -21.24)
	require.True(t, ok)
	assert.InDelta(t, -21.24, p, 1e-9)

	// Non-discount lines are untouched.
	p, ok = applyDiscountRule("LATTE UHT", "LATTE UHT 1,50", 1.5)
	require.True(t, ok)
	assert.InDelta(t, 1.5, p, 1e-9)
}

func TestIperalParserCodeLetterLayout(t *testing.T) {
	doc := NewDocument(`IPERAL SPA
DESCRIZIONE
LATTE UHT PS 1,50 A
BISCOTTI FROLLINI 2,30 B
SCONTO FEDELTA 3,00 A
ARTICOLI 2
A: IVA 4,00%
B: IVA 10,00%`)

	items := iperalParser{}.Parse(doc)
	require.Len(t, items, 3)

	assert.Equal(t, "LATTE UHT PS", *items[0].Name)
	assert.InDelta(t, 1.50, *items[0].TotalPrice, 1e-9)
	require.NotNil(t, items[0].VATRate)
	assert.InDelta(t, 4.0, *items[0].VATRate, 1e-9)

	assert.Equal(t, "BISCOTTI FROLLINI", *items[1].Name)
	require.NotNil(t, items[1].VATRate)
	assert.InDelta(t, 10.0, *items[1].VATRate, 1e-9)

	// Discount line with the OCR-dropped minus restored.
	assert.InDelta(t, -3.0, *items[2].TotalPrice, 1e-9)
}

func TestIperalParserSkipsVocabularyLines(t *testing.T) {
	doc := NewDocument("DESCRIZIONE\nTOTALE COMPLESSIVO 12,34 A\nIVA ESPOSTA 1,00 B")
	assert.Empty(t, iperalParser{}.Parse(doc))
}

func TestIperalParserDeduplicates(t *testing.T) {
	doc := NewDocument("DESCRIZIONE\nLATTE UHT 1,50 A\nLATTE UHT 1,50 A")
	items := iperalParser{}.Parse(doc)
	assert.Len(t, items, 1)
}

func TestMDParserPercentageLayout(t *testing.T) {
	doc := NewDocument(`MD SPA
DESCRIZIONE IVA% PREZZO
LATTE INTERO 4,00 1,29
PASTA SEMOLA 10,00 0,89
ARTICOLI 2`)

	items := mdParser{}.Parse(doc)
	require.Len(t, items, 2)

	assert.Equal(t, "LATTE INTERO", *items[0].Name)
	require.NotNil(t, items[0].VATRate)
	assert.InDelta(t, 4.0, *items[0].VATRate, 1e-9)
	assert.InDelta(t, 1.29, *items[0].TotalPrice, 1e-9)

	require.NotNil(t, items[1].VATRate)
	assert.InDelta(t, 10.0, *items[1].VATRate, 1e-9)
	assert.InDelta(t, 0.89, *items[1].TotalPrice, 1e-9)
}

func TestMDParserRequiresTwoMoneyTokens(t *testing.T) {
	doc := NewDocument("DESCRIZIONE\nLATTE 1,29")
	assert.Empty(t, mdParser{}.Parse(doc))
}

func TestMDParserRejectsShortNames(t *testing.T) {
	doc := NewDocument("DESCRIZIONE\nXY 4,00 1,29")
	assert.Empty(t, mdParser{}.Parse(doc))
}

func TestGenericParserHandlesBothLayouts(t *testing.T) {
	doc := NewDocument(`ALIMENTARI ROSSI
DESCRIZIONE
LATTE UHT 1,50 A
PASTA SEMOLA 10,00 0,89
ARTICOLI 2
A: IVA 4,00%`)

	items := genericParser{}.Parse(doc)
	require.Len(t, items, 2)

	// Price-only line: the code letter resolves through the legend.
	assert.InDelta(t, 1.50, *items[0].TotalPrice, 1e-9)
	require.NotNil(t, items[0].VATRate)
	assert.InDelta(t, 4.0, *items[0].VATRate, 1e-9)

	// Rate-and-price line.
	assert.InDelta(t, 0.89, *items[1].TotalPrice, 1e-9)
	require.NotNil(t, items[1].VATRate)
	assert.InDelta(t, 10.0, *items[1].VATRate, 1e-9)
}

func TestGenericParserRejectsFalseDiscount(t *testing.T) {
	doc := NewDocument("SCONTO VALIDO SU 21,24")
	assert.Empty(t, genericParser{}.Parse(doc))
}
