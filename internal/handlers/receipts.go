package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/scontrinidev/scontrini/internal/database"
	"github.com/scontrinidev/scontrini/internal/extract"
	"github.com/scontrinidev/scontrini/internal/models"
)

const presignExpiry = time.Hour

// IngestResponse is the payload returned for a processed upload.
type IngestResponse struct {
	ReceiptID   int                     `json:"receipt_id"`
	Contract    *models.ReceiptContract `json:"contract"`
	ItemsFormat string                  `json:"items_format"`
	ImageURL    string                  `json:"image_url,omitempty"`
}

// IngestReceipt accepts a receipt photo, runs the OCR extraction pipeline
// and persists the resulting structured record.
func (h *Handler) IngestReceipt(c *fiber.Ctx) error {
	file, err := c.FormFile("image")
	if err != nil {
		return Error(c, fiber.StatusBadRequest, "image file is required")
	}

	contentType := file.Header.Get("Content-Type")
	if !isValidUploadType(contentType, file.Filename) {
		return Error(c, fiber.StatusBadRequest, "invalid file type. Supported: JPEG, PNG, GIF, HEIC, PDF")
	}

	if file.Size > int64(h.cfg.MaxUploadBytes) {
		return Error(c, fiber.StatusBadRequest, "file too large")
	}

	src, err := file.Open()
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to read file")
	}
	defer src.Close()

	imageBytes, err := io.ReadAll(src)
	if err != nil {
		return Error(c, fiber.StatusInternalServerError, "failed to read file")
	}

	pre, err := h.preprocess.Process(imageBytes, contentType)
	if err != nil {
		zap.L().Warn("preprocess failed", zap.Error(err))
		return Error(c, fiber.StatusUnprocessableEntity, "could not decode document")
	}

	key := generateObjectKey(file.Filename)
	if _, err := h.storage.Upload(c.Context(), key, bytes.NewReader(imageBytes), file.Size, contentType); err != nil {
		zap.L().Error("image upload failed", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to store image")
	}

	ocrResult, err := h.ocr.ProcessImage(pre.PNG)
	if err != nil {
		zap.L().Error("ocr failed", zap.Error(err), zap.String("key", key))
		h.cleanupObject(c, key)
		return Error(c, fiber.StatusUnprocessableEntity, "text recognition failed")
	}

	capturedAt := c.FormValue("captured_at")
	if capturedAt == "" {
		capturedAt = time.Now().UTC().Format(time.RFC3339)
	}

	result := extract.BuildContract(
		h.registry,
		models.Source{ImagePath: key, CapturedAt: capturedAt},
		ocrResult.Text,
		h.ocr.Lang(),
		ocrResult.Confidence,
		pre.Steps,
	)

	bucket := h.storage.GetBucketName()
	receiptID, err := h.db.SaveContract(c.Context(), result.Contract, string(result.Format), &bucket, &key)
	if err != nil {
		zap.L().Error("save contract failed", zap.Error(err), zap.String("key", key))
		h.cleanupObject(c, key)
		return Error(c, fiber.StatusInternalServerError, "failed to save receipt")
	}

	resp := IngestResponse{
		ReceiptID:   receiptID,
		Contract:    result.Contract,
		ItemsFormat: string(result.Format),
	}
	if url, err := h.storage.GetPresignedURL(c.Context(), key, presignExpiry); err == nil {
		resp.ImageURL = url
	}

	return Success(c, resp)
}

// cleanupObject removes an uploaded image after a downstream failure so
// storage doesn't accumulate orphans.
func (h *Handler) cleanupObject(c *fiber.Ctx, key string) {
	if err := h.storage.Delete(c.Context(), key); err != nil {
		zap.L().Warn("orphan cleanup failed", zap.Error(err), zap.String("key", key))
	}
}

// ListReceipts returns stored receipts, newest first.
func (h *Handler) ListReceipts(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	receipts, err := h.db.ListReceipts(c.Context(), models.ReceiptListParams{Limit: limit, Offset: offset})
	if err != nil {
		zap.L().Error("list receipts failed", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to list receipts")
	}

	total, err := h.db.CountReceipts(c.Context())
	if err != nil {
		zap.L().Error("count receipts failed", zap.Error(err))
		return Error(c, fiber.StatusInternalServerError, "failed to list receipts")
	}

	return SuccessWithMeta(c, receipts, total, limit, offset)
}

// GetReceipt returns one receipt with its line items and a presigned image
// URL when the image is still stored.
func (h *Handler) GetReceipt(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id < 1 {
		return Error(c, fiber.StatusBadRequest, "invalid receipt id")
	}

	receipt, err := h.db.GetReceiptByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrReceiptNotFound) {
			return Error(c, fiber.StatusNotFound, "receipt not found")
		}
		zap.L().Error("get receipt failed", zap.Error(err), zap.Int("id", id))
		return Error(c, fiber.StatusInternalServerError, "failed to get receipt")
	}

	if receipt.ImageKey != nil {
		if url, err := h.storage.GetPresignedURL(c.Context(), *receipt.ImageKey, presignExpiry); err == nil {
			receipt.ImageURL = &url
		}
	}

	return Success(c, receipt)
}

// GetReceiptImage streams the stored source image for a receipt, for
// clients that cannot reach the object store behind presigned URLs.
func (h *Handler) GetReceiptImage(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id < 1 {
		return Error(c, fiber.StatusBadRequest, "invalid receipt id")
	}

	receipt, err := h.db.GetReceiptByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrReceiptNotFound) {
			return Error(c, fiber.StatusNotFound, "receipt not found")
		}
		zap.L().Error("get receipt failed", zap.Error(err), zap.Int("id", id))
		return Error(c, fiber.StatusInternalServerError, "failed to get receipt")
	}

	if receipt.ImageKey == nil {
		return Error(c, fiber.StatusNotFound, "receipt has no stored image")
	}

	obj, err := h.storage.Download(c.Context(), *receipt.ImageKey)
	if err != nil {
		zap.L().Error("image download failed", zap.Error(err), zap.String("key", *receipt.ImageKey))
		return Error(c, fiber.StatusInternalServerError, "failed to fetch image")
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		zap.L().Error("image read failed", zap.Error(err), zap.String("key", *receipt.ImageKey))
		return Error(c, fiber.StatusInternalServerError, "failed to fetch image")
	}

	c.Set(fiber.HeaderContentType, imageContentType(*receipt.ImageKey))
	return c.Send(data)
}

// DeleteReceipt removes a receipt and its stored image.
func (h *Handler) DeleteReceipt(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil || id < 1 {
		return Error(c, fiber.StatusBadRequest, "invalid receipt id")
	}

	receipt, err := h.db.GetReceiptByID(c.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrReceiptNotFound) {
			return Error(c, fiber.StatusNotFound, "receipt not found")
		}
		return Error(c, fiber.StatusInternalServerError, "failed to delete receipt")
	}

	if err := h.db.DeleteReceipt(c.Context(), id); err != nil {
		zap.L().Error("delete receipt failed", zap.Error(err), zap.Int("id", id))
		return Error(c, fiber.StatusInternalServerError, "failed to delete receipt")
	}

	if receipt.ImageKey != nil {
		h.cleanupObject(c, *receipt.ImageKey)
	}

	return Success(c, fiber.Map{"deleted": id})
}

// isValidUploadType accepts the document types the preprocessor can decode.
func isValidUploadType(contentType, filename string) bool {
	validTypes := []string{
		"image/jpeg",
		"image/jpg",
		"image/png",
		"image/gif",
		"image/heic",
		"image/heif",
		"application/pdf",
	}
	for _, t := range validTypes {
		if strings.EqualFold(contentType, t) {
			return true
		}
	}
	// Some clients send octet-stream for HEIC; fall back to the extension.
	lower := strings.ToLower(filename)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".gif", ".heic", ".heif", ".pdf"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// imageContentType maps a storage key's extension back to the MIME type the
// image was uploaded with.
func imageContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".heic", ".heif":
		return "image/heic"
	case ".pdf":
		return "application/pdf"
	default:
		return "image/jpeg"
	}
}

// generateObjectKey generates a unique storage key for a receipt image.
func generateObjectKey(filename string) string {
	timestamp := time.Now().UnixNano()
	ext := ""
	if idx := strings.LastIndex(filename, "."); idx != -1 {
		ext = strings.ToLower(filename[idx:])
	}
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("receipts/%d%s", timestamp, ext)
}
