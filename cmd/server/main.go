package main

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/scontrinidev/scontrini/internal/config"
	"github.com/scontrinidev/scontrini/internal/database"
	"github.com/scontrinidev/scontrini/internal/handlers"
	"github.com/scontrinidev/scontrini/internal/middleware"
	"github.com/scontrinidev/scontrini/internal/services"
)

func main() {
	cfg := config.Load()

	if err := cfg.InitLogger(); err != nil {
		panic(err)
	}
	defer zap.L().Sync()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		zap.L().Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		zap.L().Fatal("failed to run migrations", zap.Error(err))
	}

	if err := database.EnsureAdminUser(db, cfg); err != nil {
		zap.L().Warn("could not ensure admin user", zap.Error(err))
	}

	storage, err := services.NewStorageService(
		cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey,
		cfg.S3Bucket, cfg.S3Region, cfg.S3UseSSL,
	)
	if err != nil {
		zap.L().Fatal("failed to create storage service", zap.Error(err))
	}
	if err := storage.EnsureBucket(context.Background()); err != nil {
		zap.L().Fatal("failed to ensure bucket", zap.Error(err))
	}

	ocr, err := services.NewOCRService(cfg.OCRLang, cfg.OCRPSM, cfg.TessConfig)
	if err != nil {
		zap.L().Fatal("failed to create OCR service", zap.Error(err))
	}
	defer ocr.Close()

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    cfg.MaxUploadBytes + 1024*1024,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	h := handlers.New(db, cfg, storage, ocr)

	app.Get("/health", h.Health)

	api := app.Group("/api")
	api.Post("/auth/login", h.Login)

	receipts := api.Group("/receipts", middleware.AuthRequired(cfg))
	receipts.Post("/ingest", h.IngestReceipt)
	receipts.Get("/", h.ListReceipts)
	receipts.Get("/:id", h.GetReceipt)
	receipts.Get("/:id/image", h.GetReceiptImage)
	receipts.Delete("/:id", h.DeleteReceipt)

	zap.L().Info("server listening", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zap.L().Fatal("server stopped", zap.Error(err))
	}
}
