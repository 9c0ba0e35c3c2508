package models

// ContractVersion identifies the structured receipt record layout. Bump it
// when a field changes meaning, not when fields are added.
const ContractVersion = "1.0"

// Source records where the receipt image came from.
type Source struct {
	ImagePath  string `json:"image_path"`
	CapturedAt string `json:"captured_at"`
}

// Merchant holds the issuing business. Optional fields stay null in JSON
// when extraction found nothing.
type Merchant struct {
	Name       *string `json:"name"`
	Address    *string `json:"address"`
	VATID      *string `json:"vat_id"`
	FiscalCode *string `json:"fiscal_code"`
	Country    string  `json:"country"`
}

func NewMerchant() Merchant {
	return Merchant{Country: "IT"}
}

// ReceiptInfo holds per-document metadata.
type ReceiptInfo struct {
	Currency       string  `json:"currency"`
	DateTime       *string `json:"datetime"`
	DocumentNumber *string `json:"document_number"`
	PaymentMethod  *string `json:"payment_method"`
}

func NewReceiptInfo() ReceiptInfo {
	return ReceiptInfo{Currency: "EUR"}
}

// Item is one extracted product or discount line.
type Item struct {
	RawLine    *string  `json:"raw_line"`
	Name       *string  `json:"name"`
	Quantity   *float64 `json:"quantity"`
	Unit       *string  `json:"unit"`
	UnitPrice  *float64 `json:"unit_price"`
	TotalPrice *float64 `json:"total_price"`
	VATRate    *float64 `json:"vat_rate"`
}

// Totals carries the document-level amounts.
type Totals struct {
	Subtotal *float64 `json:"subtotal"`
	VATTotal *float64 `json:"vat_total"`
	Total    *float64 `json:"total"`
}

// OCRInfo records the engine run that produced the text.
type OCRInfo struct {
	Engine     string   `json:"engine"`
	Lang       string   `json:"lang"`
	Text       *string  `json:"text"`
	Confidence *float64 `json:"confidence"`
}

// Quality carries the preprocessing trace and the auditor's warnings.
type Quality struct {
	PreprocessSteps []string `json:"preprocess_steps"`
	Warnings        []string `json:"warnings"`
}

// ReceiptContract is the canonical structured record produced by the
// extraction pipeline and consumed by storage and the API.
type ReceiptContract struct {
	ContractVersion string      `json:"contract_version"`
	Source          Source      `json:"source"`
	Merchant        Merchant    `json:"merchant"`
	Receipt         ReceiptInfo `json:"receipt"`
	Items           []Item      `json:"items"`
	Totals          Totals      `json:"totals"`
	OCR             OCRInfo     `json:"ocr"`
	Quality         Quality     `json:"quality"`
}

// NewReceiptContract returns a contract with defaults filled in and all
// collections non-nil so they serialize as empty arrays.
func NewReceiptContract(src Source) *ReceiptContract {
	return &ReceiptContract{
		ContractVersion: ContractVersion,
		Source:          src,
		Merchant:        NewMerchant(),
		Receipt:         NewReceiptInfo(),
		Items:           []Item{},
		OCR:             OCRInfo{Engine: "tesseract", Lang: "ita"},
		Quality: Quality{
			PreprocessSteps: []string{},
			Warnings:        []string{},
		},
	}
}
