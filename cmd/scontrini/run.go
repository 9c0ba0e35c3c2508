package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scontrinidev/scontrini/internal/database"
	"github.com/scontrinidev/scontrini/internal/services"
)

var (
	runLang        string
	runCapturedAt  string
	runPSM         int
	runDatabaseURL string
	runNoUpload    bool
)

var runCmd = &cobra.Command{
	Use:   "run <image>",
	Short: "Extract a receipt and persist it to the database",
	Long:  "Runs the full ingest pipeline on a local image: preprocessing, OCR, extraction, image upload and database persistence.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		path := args[0]

		result, err := extractFromFile(path, runLang, runCapturedAt, runPSM)
		if err != nil {
			return err
		}

		dbURL := cfg.DatabaseURL
		if runDatabaseURL != "" {
			dbURL = runDatabaseURL
		}
		db, err := database.Connect(dbURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()

		if err := database.RunMigrations(db); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}

		var bucket, key *string
		if !runNoUpload {
			storage, err := services.NewStorageService(
				cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey,
				cfg.S3Bucket, cfg.S3Region, cfg.S3UseSSL,
			)
			if err != nil {
				return fmt.Errorf("create storage service: %w", err)
			}
			if err := storage.EnsureBucket(ctx); err != nil {
				return fmt.Errorf("ensure bucket: %w", err)
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			k := fmt.Sprintf("receipts/%d%s", time.Now().UnixNano(), filepath.Ext(path))
			if _, err := storage.Upload(ctx, k, bytes.NewReader(data), int64(len(data)), "application/octet-stream"); err != nil {
				return fmt.Errorf("upload image: %w", err)
			}
			b := storage.GetBucketName()
			bucket, key = &b, &k
		}

		id, err := db.SaveContract(ctx, result.Contract, string(result.Format), bucket, key)
		if err != nil {
			return fmt.Errorf("save receipt: %w", err)
		}

		zap.L().Info("receipt persisted",
			zap.Int("receipt_id", id),
			zap.String("items_format", string(result.Format)),
			zap.Int("items", len(result.Contract.Items)),
			zap.Strings("warnings", result.Contract.Quality.Warnings))

		fmt.Printf("receipt %d saved (%d items, format %s)\n", id, len(result.Contract.Items), result.Format)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runLang, "lang", "", "tesseract language (default from config)")
	runCmd.Flags().StringVar(&runCapturedAt, "captured-at", "", "capture timestamp, RFC 3339 (default now)")
	runCmd.Flags().IntVar(&runPSM, "psm", 0, "tesseract page segmentation mode (default from config)")
	runCmd.Flags().StringVar(&runDatabaseURL, "database-url", "", "postgres connection string (default from config)")
	runCmd.Flags().BoolVar(&runNoUpload, "no-upload", false, "skip storing the image in object storage")
	rootCmd.AddCommand(runCmd)
}
