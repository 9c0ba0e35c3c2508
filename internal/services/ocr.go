package services

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rotisserie/eris"
)

// OCRService wraps a tesseract client configured for receipt scans.
type OCRService struct {
	client *gosseract.Client
	lang   string
}

// OCRResult contains the recognized text and the engine's mean confidence
// when available.
type OCRResult struct {
	Text       string
	Confidence *float64
}

// NewOCRService creates a tesseract client set up for Italian receipts:
// a single uniform block of text, language configurable for non-Italian
// documents. psm overrides the page segmentation mode when positive, and
// extraConfig carries additional tesseract variables as space-separated
// key=value pairs.
func NewOCRService(lang string, psm int, extraConfig string) (*OCRService, error) {
	if lang == "" {
		lang = "ita"
	}

	client := gosseract.NewClient()

	if err := client.SetLanguage(lang); err != nil {
		client.Close()
		return nil, eris.Wrap(err, "ocr: set language")
	}

	// PSM 6: assume a single uniform block of text. Receipts are narrow
	// single-column documents, page segmentation only hurts.
	mode := gosseract.PSM_SINGLE_BLOCK
	if psm > 0 {
		mode = gosseract.PageSegMode(psm)
	}
	if err := client.SetPageSegMode(mode); err != nil {
		client.Close()
		return nil, eris.Wrap(err, "ocr: set page segmentation mode")
	}

	for _, pair := range strings.Fields(extraConfig) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			client.Close()
			return nil, eris.Errorf("ocr: malformed tesseract variable %q, want key=value", pair)
		}
		if err := client.SetVariable(gosseract.SettableVariable(key), value); err != nil {
			client.Close()
			return nil, eris.Wrapf(err, "ocr: set variable %s", key)
		}
	}

	return &OCRService{client: client, lang: lang}, nil
}

// Lang returns the configured tesseract language.
func (s *OCRService) Lang() string {
	return s.lang
}

// ProcessImage recognizes text in the given image bytes. Tesseract wants a
// file path, so the bytes go through a temp file.
func (s *OCRService) ProcessImage(imageBytes []byte) (*OCRResult, error) {
	tmpFile, err := os.CreateTemp("", "receipt-*.png")
	if err != nil {
		return nil, eris.Wrap(err, "ocr: create temp file")
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write(imageBytes); err != nil {
		tmpFile.Close()
		return nil, eris.Wrap(err, "ocr: write temp file")
	}
	tmpFile.Close()

	return s.ProcessImageFromPath(tmpFile.Name())
}

// ProcessImageFromPath recognizes text in the image at the given path.
func (s *OCRService) ProcessImageFromPath(imagePath string) (*OCRResult, error) {
	if _, err := os.Stat(imagePath); os.IsNotExist(err) {
		return nil, eris.Errorf("ocr: image file not found: %s", imagePath)
	}

	absPath, err := filepath.Abs(imagePath)
	if err != nil {
		return nil, eris.Wrap(err, "ocr: resolve image path")
	}

	if err := s.client.SetImage(absPath); err != nil {
		return nil, eris.Wrap(err, "ocr: set image")
	}

	text, err := s.client.Text()
	if err != nil {
		return nil, eris.Wrap(err, "ocr: extract text")
	}

	return &OCRResult{Text: text}, nil
}

// Close releases the tesseract client.
func (s *OCRService) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
