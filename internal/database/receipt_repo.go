package database

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/scontrinidev/scontrini/internal/models"
)

var (
	ErrReceiptNotFound = errors.New("receipt not found")
	ErrUserNotFound    = errors.New("user not found")
)

// SaveContract persists a structured receipt record and its line items in
// one transaction, returning the new receipt id.
func (db *DB) SaveContract(ctx context.Context, contract *models.ReceiptContract, itemsFormat string, imageBucket, imageKey *string) (int, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "database: begin transaction")
	}
	defer tx.Rollback(ctx)

	var capturedAt *string
	if contract.Source.CapturedAt != "" {
		capturedAt = &contract.Source.CapturedAt
	}

	var id int
	err = tx.QueryRow(ctx, `
		INSERT INTO receipts (
			contract_version, captured_at, image_bucket, image_key,
			merchant_name, merchant_address, merchant_vat_id, merchant_fiscal_code, merchant_country,
			currency, receipt_datetime, document_number, payment_method,
			subtotal, vat_total, total, items_format,
			ocr_engine, ocr_lang, ocr_text, ocr_confidence,
			preprocess_steps, warnings
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		RETURNING id
	`,
		contract.ContractVersion, capturedAt, imageBucket, imageKey,
		contract.Merchant.Name, contract.Merchant.Address, contract.Merchant.VATID, contract.Merchant.FiscalCode, contract.Merchant.Country,
		contract.Receipt.Currency, contract.Receipt.DateTime, contract.Receipt.DocumentNumber, contract.Receipt.PaymentMethod,
		contract.Totals.Subtotal, contract.Totals.VATTotal, contract.Totals.Total, itemsFormat,
		contract.OCR.Engine, contract.OCR.Lang, contract.OCR.Text, contract.OCR.Confidence,
		contract.Quality.PreprocessSteps, contract.Quality.Warnings,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrap(err, "database: insert receipt")
	}

	for i, item := range contract.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO receipt_items (receipt_id, line_no, raw_line, name, quantity, unit, unit_price, total_price, vat_rate)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, id, i+1, item.RawLine, item.Name, item.Quantity, item.Unit, item.UnitPrice, item.TotalPrice, item.VATRate)
		if err != nil {
			return 0, eris.Wrapf(err, "database: insert receipt item %d", i+1)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "database: commit transaction")
	}

	return id, nil
}

// GetReceiptByID retrieves a receipt with its line items.
func (db *DB) GetReceiptByID(ctx context.Context, id int) (*models.ReceiptWithItems, error) {
	receipt := &models.ReceiptWithItems{}

	err := db.Pool.QueryRow(ctx, `
		SELECT id, contract_version, captured_at, image_bucket, image_key,
		       merchant_name, merchant_address, merchant_vat_id, merchant_fiscal_code, merchant_country,
		       currency, receipt_datetime, document_number, payment_method,
		       subtotal, vat_total, total, items_format,
		       ocr_engine, ocr_lang, ocr_text, ocr_confidence,
		       preprocess_steps, warnings, created_at
		FROM receipts
		WHERE id = $1
	`, id).Scan(
		&receipt.ID, &receipt.ContractVersion, &receipt.CapturedAt, &receipt.ImageBucket, &receipt.ImageKey,
		&receipt.MerchantName, &receipt.MerchantAddress, &receipt.MerchantVATID, &receipt.FiscalCode, &receipt.Country,
		&receipt.Currency, &receipt.ReceiptDateTime, &receipt.DocumentNumber, &receipt.PaymentMethod,
		&receipt.Subtotal, &receipt.VATTotal, &receipt.Total, &receipt.ItemsFormat,
		&receipt.OCREngine, &receipt.OCRLang, &receipt.OCRText, &receipt.OCRConfidence,
		&receipt.PreprocessSteps, &receipt.Warnings, &receipt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReceiptNotFound
		}
		return nil, eris.Wrap(err, "database: get receipt")
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT id, receipt_id, line_no, raw_line, name, quantity, unit, unit_price, total_price, vat_rate
		FROM receipt_items
		WHERE receipt_id = $1
		ORDER BY line_no
	`, id)
	if err != nil {
		return nil, eris.Wrap(err, "database: get receipt items")
	}
	defer rows.Close()

	receipt.Items = []models.ReceiptItem{}
	for rows.Next() {
		var item models.ReceiptItem
		if err := rows.Scan(
			&item.ID, &item.ReceiptID, &item.LineNo, &item.RawLine, &item.Name,
			&item.Quantity, &item.Unit, &item.UnitPrice, &item.TotalPrice, &item.VATRate,
		); err != nil {
			return nil, eris.Wrap(err, "database: scan receipt item")
		}
		receipt.Items = append(receipt.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "database: iterate receipt items")
	}

	return receipt, nil
}

// ListReceipts returns receipts newest first.
func (db *DB) ListReceipts(ctx context.Context, params models.ReceiptListParams) ([]models.Receipt, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, contract_version, captured_at, image_bucket, image_key,
		       merchant_name, merchant_address, merchant_vat_id, merchant_fiscal_code, merchant_country,
		       currency, receipt_datetime, document_number, payment_method,
		       subtotal, vat_total, total, items_format,
		       ocr_engine, ocr_lang, ocr_text, ocr_confidence,
		       preprocess_steps, warnings, created_at
		FROM receipts
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, params.Limit, params.Offset)
	if err != nil {
		return nil, eris.Wrap(err, "database: list receipts")
	}
	defer rows.Close()

	receipts := []models.Receipt{}
	for rows.Next() {
		var r models.Receipt
		if err := rows.Scan(
			&r.ID, &r.ContractVersion, &r.CapturedAt, &r.ImageBucket, &r.ImageKey,
			&r.MerchantName, &r.MerchantAddress, &r.MerchantVATID, &r.FiscalCode, &r.Country,
			&r.Currency, &r.ReceiptDateTime, &r.DocumentNumber, &r.PaymentMethod,
			&r.Subtotal, &r.VATTotal, &r.Total, &r.ItemsFormat,
			&r.OCREngine, &r.OCRLang, &r.OCRText, &r.OCRConfidence,
			&r.PreprocessSteps, &r.Warnings, &r.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "database: scan receipt")
		}
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "database: iterate receipts")
	}

	return receipts, nil
}

// CountReceipts returns the total number of stored receipts.
func (db *DB) CountReceipts(ctx context.Context) (int, error) {
	var count int
	if err := db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM receipts").Scan(&count); err != nil {
		return 0, eris.Wrap(err, "database: count receipts")
	}
	return count, nil
}

// DeleteReceipt removes a receipt; items cascade.
func (db *DB) DeleteReceipt(ctx context.Context, id int) error {
	tag, err := db.Pool.Exec(ctx, "DELETE FROM receipts WHERE id = $1", id)
	if err != nil {
		return eris.Wrap(err, "database: delete receipt")
	}
	if tag.RowsAffected() == 0 {
		return ErrReceiptNotFound
	}
	return nil
}

// GetUserByEmail looks up a user for authentication.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := db.Pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role, created_at
		FROM users
		WHERE email = $1
	`, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, eris.Wrap(err, "database: get user by email")
	}
	return user, nil
}
