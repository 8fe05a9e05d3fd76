package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	flog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/ManuelReschke/BookForge/app/controllers"
	"github.com/ManuelReschke/BookForge/app/models"
	"github.com/ManuelReschke/BookForge/app/repository"
	apiv1 "github.com/ManuelReschke/BookForge/internal/api/v1"
	"github.com/ManuelReschke/BookForge/internal/pkg/cache"
	"github.com/ManuelReschke/BookForge/internal/pkg/constants"
	"github.com/ManuelReschke/BookForge/internal/pkg/credits"
	"github.com/ManuelReschke/BookForge/internal/pkg/database"
	"github.com/ManuelReschke/BookForge/internal/pkg/director"
	"github.com/ManuelReschke/BookForge/internal/pkg/env"
	"github.com/ManuelReschke/BookForge/internal/pkg/export"
	"github.com/ManuelReschke/BookForge/internal/pkg/generation"
	"github.com/ManuelReschke/BookForge/internal/pkg/jobqueue"
	"github.com/ManuelReschke/BookForge/internal/pkg/mail"
	"github.com/ManuelReschke/BookForge/internal/pkg/metrics/counter"
	"github.com/ManuelReschke/BookForge/internal/pkg/middleware"
	"github.com/ManuelReschke/BookForge/internal/pkg/payment"
	"github.com/ManuelReschke/BookForge/internal/pkg/router"
	"github.com/ManuelReschke/BookForge/internal/pkg/storage"
)

func main() {
	app, shutdown := NewApplication()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down")
		shutdown()
		_ = app.ShutdownWithTimeout(10 * time.Second)
	}()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

// NewApplication wires the API. The returned func stops background workers.
func NewApplication() (*fiber.App, func()) {
	env.SetupEnvFile()
	if env.IsDev() {
		flog.SetLevel(flog.LevelDebug)
	} else {
		flog.SetLevel(flog.LevelInfo)
	}
	database.SetupDatabase()
	cache.SetupCache()

	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/bookforge to project root
		"../../../", // Fallback
	}
	basePath := "./"
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public/docs"); err == nil {
			basePath = path
			break
		}
	}

	repos := repository.InitializeFactory(database.GetDB())

	ledger := credits.NewLedgerFromEnv(repos.Credit)
	provider := generation.NewClientFromEnv()
	directorService := director.NewServiceFromEnv(repos.Director, ledger, provider)
	paymentService := payment.NewService(repos.Payment, ledger, payment.NewRazorpayGatewayFromEnv(), payment.Options{
		KeySecret:    env.GetEnv("RAZORPAY_KEY_SECRET", ""),
		SupportEmail: env.GetEnv("SUPPORT_EMAIL", ""),
		Receipts:     payment.NewRedisReceiptStore(),
		Mailer:       mail.NewSMTPMailerFromEnv(),
	})

	// exports
	var pdf export.PDFConverter
	var chrome *export.ChromePDFConverter
	if env.GetEnvBool("PDF_EXPORT_ENABLED", true) {
		chrome = export.NewChromePDFConverterFromEnv()
		pdf = chrome
	}
	exporter, err := export.NewExporter(pdf)
	if err != nil {
		log.Fatalf("Failed to load export templates: %v", err)
	}
	storageCfg, err := storage.LoadConfig()
	if err != nil {
		log.Fatalf("Invalid storage configuration: %v", err)
	}
	store, err := storage.New(storageCfg)
	if err != nil {
		log.Fatalf("Failed to initialize export storage: %v", err)
	}

	manager := jobqueue.GetManager()
	queue := manager.GetQueue()
	jobqueue.NewExportProcessor(repos.Export, exporter, store).Register(queue)
	manager.Start()

	server := apiv1.NewAPIServer(
		controllers.NewCreditController(ledger),
		controllers.NewGenerationController(generation.NewService(provider), counter.Record),
		controllers.NewPaymentController(paymentService),
		controllers.NewDirectorController(directorService, counter.Record),
		controllers.NewExportController(repos.Export, directorService, func(ctx context.Context, record *models.ExportJobRecord, book export.Book) error {
			_, err := jobqueue.EnqueueExportBook(ctx, queue, repos.Export, record, book)
			return err
		}),
	)

	// init fiber app
	app := fiber.New(fiber.Config{
		AppName:   "BookForge",
		BodyLimit: 4 * 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	router.InstallRouter(app, router.NewOperatorRouter(
		env.GetEnv("METRICS_USER", "admin"),
		env.GetEnv("METRICS_PASSWORD", ""),
		controllers.NewStatsController(counter.Snapshot, queue.Stats).HandleStats,
	))

	// locally stored exports
	if !storageCfg.IsEnabled() {
		app.Static(storageCfg.LocalURLPrefix, storageCfg.LocalDir, fiber.Static{
			CacheDuration: 10 * time.Second,
			Download:      true,
		})
	}

	// SWAGGER / OPENAPI
	openAPICfg := swagger.Config{
		BasePath: constants.DocsRoute,
		FilePath: basePath + "public/docs/v1/openapi.yml",
		Path:     "v1",
	}
	app.Use(swagger.New(openAPICfg))

	// ROUTER
	var limiterStorage fiber.Storage
	if env.GetEnv("RATE_LIMIT_STORAGE", "redis") == "redis" {
		limiterStorage = router.NewLimiterStorage()
	}
	router.InstallRouter(app, router.NewApiRouter(
		server,
		middleware.NewTokenVerifierFromEnv(),
		limiterStorage,
		env.GetEnvInt("API_RATE_LIMIT", 120),
	))

	shutdown := func() {
		manager.Stop()
		if chrome != nil {
			chrome.Close()
		}
	}
	return app, shutdown
}
