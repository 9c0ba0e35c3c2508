package models

import (
	"time"
)

// Receipt is a persisted receipt row, reassembled for API responses.
type Receipt struct {
	ID              int       `json:"id"`
	ContractVersion string    `json:"contract_version"`
	CapturedAt      *string   `json:"captured_at,omitempty"`
	ImageBucket     *string   `json:"image_bucket,omitempty"`
	ImageKey        *string   `json:"image_key,omitempty"`
	MerchantName    *string   `json:"merchant_name,omitempty"`
	MerchantAddress *string   `json:"merchant_address,omitempty"`
	MerchantVATID   *string   `json:"merchant_vat_id,omitempty"`
	FiscalCode      *string   `json:"merchant_fiscal_code,omitempty"`
	Country         string    `json:"merchant_country"`
	Currency        string    `json:"currency"`
	ReceiptDateTime *string   `json:"receipt_datetime,omitempty"`
	DocumentNumber  *string   `json:"document_number,omitempty"`
	PaymentMethod   *string   `json:"payment_method,omitempty"`
	Subtotal        *float64  `json:"subtotal,omitempty"`
	VATTotal        *float64  `json:"vat_total,omitempty"`
	Total           *float64  `json:"total,omitempty"`
	ItemsFormat     string    `json:"items_format"`
	OCREngine       string    `json:"ocr_engine"`
	OCRLang         string    `json:"ocr_lang"`
	OCRText         *string   `json:"ocr_text,omitempty"`
	OCRConfidence   *float64  `json:"ocr_confidence,omitempty"`
	PreprocessSteps []string  `json:"preprocess_steps"`
	Warnings        []string  `json:"warnings"`
	CreatedAt       time.Time `json:"created_at"`
}

// ReceiptWithItems includes the persisted line items.
type ReceiptWithItems struct {
	Receipt
	Items    []ReceiptItem `json:"items"`
	ImageURL *string       `json:"image_url,omitempty"`
}

// ReceiptItem is a persisted line item row.
type ReceiptItem struct {
	ID         int      `json:"id"`
	ReceiptID  int      `json:"receipt_id"`
	LineNo     int      `json:"line_no"`
	RawLine    *string  `json:"raw_line"`
	Name       *string  `json:"name"`
	Quantity   *float64 `json:"quantity"`
	Unit       *string  `json:"unit"`
	UnitPrice  *float64 `json:"unit_price"`
	TotalPrice *float64 `json:"total_price"`
	VATRate    *float64 `json:"vat_rate"`
}

// ReceiptListParams contains parameters for listing receipts.
type ReceiptListParams struct {
	Limit  int
	Offset int
}
