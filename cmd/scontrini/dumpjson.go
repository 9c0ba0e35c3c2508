package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/scontrinidev/scontrini/internal/extract"
	"github.com/scontrinidev/scontrini/internal/models"
	"github.com/scontrinidev/scontrini/internal/services"
)

var (
	dumpLang       string
	dumpCapturedAt string
	dumpPSM        int
)

var dumpJSONCmd = &cobra.Command{
	Use:   "dump-json <image>",
	Short: "Extract a receipt and print the structured record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := extractFromFile(args[0], dumpLang, dumpCapturedAt, dumpPSM)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(result.Contract, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal contract: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	dumpJSONCmd.Flags().StringVar(&dumpLang, "lang", "", "tesseract language (default from config)")
	dumpJSONCmd.Flags().StringVar(&dumpCapturedAt, "captured-at", "", "capture timestamp, RFC 3339 (default now)")
	dumpJSONCmd.Flags().IntVar(&dumpPSM, "psm", 0, "tesseract page segmentation mode (default from config)")
	rootCmd.AddCommand(dumpJSONCmd)
}

// extractFromFile runs the local part of the pipeline on an image file:
// preprocessing, OCR and contract assembly, with no storage or database.
func extractFromFile(path, lang, capturedAt string, psm int) (*extract.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}

	pre, err := services.NewPreprocessService().Process(data, "")
	if err != nil {
		return nil, fmt.Errorf("preprocess image: %w", err)
	}

	if lang == "" {
		lang = cfg.OCRLang
	}
	if psm <= 0 {
		psm = cfg.OCRPSM
	}
	ocr, err := services.NewOCRService(lang, psm, cfg.TessConfig)
	if err != nil {
		return nil, fmt.Errorf("create OCR engine: %w", err)
	}
	defer ocr.Close()

	ocrResult, err := ocr.ProcessImage(pre.PNG)
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}

	if capturedAt == "" {
		capturedAt = time.Now().UTC().Format(time.RFC3339)
	}

	return extract.BuildContract(
		extract.DefaultRegistry(),
		models.Source{ImagePath: path, CapturedAt: capturedAt},
		ocrResult.Text,
		ocr.Lang(),
		ocrResult.Confidence,
		pre.Steps,
	), nil
}
