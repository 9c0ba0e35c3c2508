package extract

import (
	"go.uber.org/zap"

	"github.com/scontrinidev/scontrini/internal/models"
)

// Result bundles the assembled contract with the selection metadata that
// callers persist alongside it.
type Result struct {
	Contract *models.ReceiptContract
	Format   Format
	Score    float64
}

// BuildContract runs the full extraction over already-recognized text:
// normalization, field extraction, item selection across the registered
// parsers and the consistency audit. The preprocess steps and OCR metadata
// are passed through into the contract.
func BuildContract(reg *Registry, src models.Source, ocrText, lang string, confidence *float64, preprocessSteps []string) *Result {
	norm := Normalize(ocrText)
	doc := NewDocument(norm)

	contract := models.NewReceiptContract(src)
	contract.Merchant = ParseMerchant(doc)
	contract.Receipt = ParseReceiptInfo(doc)
	contract.Totals = ParseTotals(doc)

	sel := reg.Select(doc, contract.Merchant, contract.Totals)
	if sel.Items != nil {
		contract.Items = sel.Items
	}

	contract.OCR.Lang = lang
	contract.OCR.Text = &norm
	contract.OCR.Confidence = confidence
	if preprocessSteps != nil {
		contract.Quality.PreprocessSteps = preprocessSteps
	}
	contract.Quality.Warnings = Audit(doc, contract.Items, contract.Totals)

	zap.L().Debug("contract assembled",
		zap.String("format", string(sel.Format)),
		zap.Float64("score", sel.Score),
		zap.Int("items", len(contract.Items)),
		zap.Int("warnings", len(contract.Quality.Warnings)))

	return &Result{Contract: contract, Format: sel.Format, Score: sel.Score}
}
