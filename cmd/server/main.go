package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/assets"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/dispatcher"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/flow"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/port"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/application/service"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/auth"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/config"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/content"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/event"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/upload"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/domain/wizard"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/i18n"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/infrastructure/external/backend"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/infrastructure/external/document"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/infrastructure/external/email"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/infrastructure/external/markdown"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/infrastructure/external/openai"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/infrastructure/external/receipt"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/infrastructure/persistence/repository"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/infrastructure/persistence/sqlite"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/infrastructure/storage"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/infrastructure/worker"
	httpserver "github.com/itsprem-09/Kisan-Andolan-Edited-sub002/internal/interfaces/http"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/migrations"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/pkg/database"
	"github.com/itsprem-09/Kisan-Andolan-Edited-sub002/pkg/utils"
)

var version = "dev"

func main() {
	configPath := os.Getenv("PORTAL_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	// Load configuration
	cfg, err := config.Load(configPath, ".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "kisan-portal",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Kisan Andolan portal",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("backend", cfg.Backend.Mode))

	kv := utils.NewKVLogger(logger)

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		BusyTimeout:     cfg.Database.BusyTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(migrations.FS); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	txManager := sqlite.NewDB(db.DB, logger)

	// Initialize repositories
	submissionRepo := repository.NewSubmissionRepository(db.DB, logger)
	attachmentRepo := repository.NewAttachmentRepository(db.DB, logger)
	receiptRepo := repository.NewReceiptRepository(db.DB, logger)
	contentRepo := repository.NewContentRepository(db.DB, logger)
	verificationRepo := repository.NewVerificationRepository(db.DB, logger)

	fileStorage := storage.NewLocalFileStorage(cfg.Storage.BaseDir, logger)

	d := dispatcher.NewDispatcher(dispatcher.WithLogger(kv), dispatcher.WithAsyncTimeout(cfg.Dispatcher.AsyncTimeout))

	messages, err := i18n.LoadCatalog(assets.FS, assets.LocalesDir)
	if err != nil {
		logger.Fatal("Failed to load message catalogs", zap.Error(err))
	}

	defaults, err := loadDefaults(cfg.Content.DefaultsPath)
	if err != nil {
		logger.Fatal("Failed to load default content", zap.Error(err))
	}

	renderer := markdown.NewRenderer()
	mailer := newMailer(cfg, renderer, logger)

	verification := service.NewVerificationService(
		verificationRepo,
		mailer,
		messages,
		service.VerificationConfig{
			CodeTTL:        cfg.Verification.CodeTTL,
			MaxAttempts:    cfg.Verification.MaxAttempts,
			ResendCooldown: cfg.Verification.ResendCooldown,
			HashCost:       service.DefaultVerificationConfig().HashCost,
		},
		kv,
	)

	policy := upload.DefaultPolicy()
	policy.MaxBytes = cfg.Upload.MaxBytes
	policy.MaxFiles = cfg.Upload.MaxFiles
	policy.Inspector = document.NewInspector(cfg.Upload.MaxPDFPages, logger)

	flows := flow.NewCatalog(verification, policy)

	submissions := service.NewSubmissionService(
		submissionRepo,
		attachmentRepo,
		fileStorage,
		txManager,
		flows,
		d,
		messages,
		kv,
	)

	receipts := service.NewReceiptService(
		receiptRepo,
		submissionRepo,
		receipt.NewExcelRenderer(cfg.Receipt.Organisation, logger),
		fileStorage,
		flows,
		d,
		messages,
		kv,
		cfg.Receipt.GenerateTimeout,
	)

	var translator port.Translator
	if cfg.TranslatorEnabled() {
		translator = newTranslator(cfg, logger)
	}

	contents := service.NewContentService(
		contentRepo,
		defaults,
		renderer,
		translator,
		d,
		service.ContentConfig{
			ReadTimeout: cfg.Content.ReadTimeout,
			CacheTTL:    cfg.Content.CacheTTL,
		},
		kv,
	)

	service.NewNotificationService(mailer, messages, kv).Register(d)

	var submitter wizard.Submitter = submissions
	if cfg.Backend.Mode == config.BackendRemote {
		submitter = backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Token, cfg.Backend.Timeout, logger)
	}

	wizards := service.NewWizardService(
		flows,
		submitter,
		receipts,
		verification,
		service.SessionConfig{
			IdleTimeout: cfg.Wizard.IdleTimeout,
			MaxSessions: cfg.Wizard.MaxSessions,
		},
		kv,
	)

	// Background workers
	receiptWorker := worker.NewReceiptWorker(worker.ReceiptWorkerConfig{
		PollInterval: cfg.Receipt.PollInterval,
		BatchSize:    cfg.Receipt.BatchSize,
	}, receipts, logger)
	d.SubscribeDescribed(event.TypeReceiptRequested, "wake-receipt-worker",
		"starts receipt generation without waiting for the next poll",
		func(ctx context.Context, evt *event.Event) error {
			receiptWorker.Wake()
			return nil
		})

	workers := worker.NewWorkerManager(logger)
	workers.Register(receiptWorker)
	workers.Register(worker.NewJanitorWorker(cfg.Wizard.SweepInterval, wizards, verification, logger))

	var tokens *auth.Tokens
	if cfg.AdminEnabled() {
		tokens = auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	} else {
		logger.Info("No JWT secret configured, admin endpoints are disabled")
	}

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Version:        version,
		IngestToken:    cfg.Backend.Token,
		Impact: httpserver.ImpactConfig{
			Duration: cfg.Impact.Duration,
			Interval: cfg.Impact.Interval,
		},
	}, httpserver.Services{
		Wizards:     wizards,
		Submissions: submissions,
		Receipts:    receipts,
		Content:     contents,
		Flows:       flows,
		Messages:    messages,
		Workers:     workers,
	}, tokens, kv)

	// Wait for interrupt signal to gracefully shutdown the server
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := workers.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		if err := workers.StopAll(); err != nil {
			logger.Error("Failed to stop workers", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server exited with error", zap.Error(err))
	}

	// Drain async notifications before the database closes
	if err := d.Close(); err != nil {
		logger.Error("Failed to close dispatcher", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

// loadDefaults reads the fallback content, preferring path over the embedded copy
func loadDefaults(path string) (*content.Defaults, error) {
	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = fs.ReadFile(assets.FS, assets.DefaultsPath)
	}
	if err != nil {
		return nil, fmt.Errorf("read defaults: %w", err)
	}
	return content.ParseDefaults(data)
}

func newMailer(cfg *config.Config, renderer email.HTMLRenderer, logger *zap.Logger) port.Mailer {
	if cfg.Email.Provider == config.EmailResend {
		return email.NewResendMailer(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Email.ReplyTo, renderer, logger)
	}
	logger.Info("Email provider is log, messages are written to the log only")
	return email.NewLogMailer(logger)
}

func newTranslator(cfg *config.Config, logger *zap.Logger) *openai.Translator {
	prompts := openai.DefaultPrompts()
	if cfg.OpenAI.PromptsPath != "" {
		loaded, err := openai.LoadPrompts(cfg.OpenAI.PromptsPath)
		if err != nil {
			logger.Error("Failed to load translation prompts, using built-in prompts", zap.Error(err))
		} else {
			prompts = loaded
		}
	}
	return openai.NewTranslator(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, prompts, logger).
		WithTimeout(cfg.OpenAI.Timeout)
}
