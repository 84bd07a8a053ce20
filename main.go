package main

import (
	"context"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chess-tournament-system/config"
	"chess-tournament-system/handlers"
	"chess-tournament-system/metrics"
	"chess-tournament-system/services"
	"chess-tournament-system/storage"
	"chess-tournament-system/utils"
	"chess-tournament-system/workers"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatal("failed to open store: ", err)
	}

	seed := cfg.PairingSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	rec := metrics.NewRecorder()
	events := services.NewEventBroker()
	registryService := services.NewRegistryService(store)
	pairingService := services.NewPairingService(rng)
	tournamentService := services.NewTournamentService(pairingService, rng)

	app := fiber.New(fiber.Config{
		AppName:      "chess-tournament-system",
		BodyLimit:    1 * 1024 * 1024,
		ReadTimeout:  30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorHandler: jsonErrorHandler,
	})
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "[HTTP] ${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.OriginsString(),
		AllowMethods:  "GET,POST,PUT,OPTIONS,HEAD",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Operator",
		ExposeHeaders: "Content-Length, Content-Type, X-Request-ID",
		MaxAge:        86400, // 24 hours
	}))

	handlers.SetupSystemRoutes(app, rec)
	handlers.SetupParticipantRoutes(app, handlers.NewParticipantHandler(registryService), cfg.OperatorToken)
	handlers.SetupTournamentRoutes(app, handlers.NewTournamentHandler(
		tournamentService, registryService, store, events, rec, cfg.DefaultRounds,
	), cfg.OperatorToken)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var archiveScheduler gocron.Scheduler
	if cfg.Archive.Enabled() {
		archiver, err := utils.NewR2Archiver(ctx, utils.R2Credentials{
			AccountID:       cfg.Archive.AccountID,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			AccessKeySecret: cfg.Archive.AccessKeySecret,
			Bucket:          cfg.Archive.Bucket,
		})
		if err != nil {
			log.Fatal("failed to initialize R2 archiver: ", err)
		}
		archiveScheduler, err = workers.NewArchiveWorker(store, archiver, rec, cfg.Archive.Interval).Start(ctx)
		if err != nil {
			log.Fatal("failed to start archive worker: ", err)
		}
		log.Printf("✅ Archiving closed tournaments to bucket %s every %s", archiver.Bucket(), cfg.Archive.Interval)
	} else {
		log.Println("⚠️  R2_BUCKET_NAME not set, archiving disabled")
	}

	if cfg.RegistrySync.Enabled() {
		workers.NewRegistrySyncWorker(
			registryService, rec, cfg.RegistrySync.URL, cfg.RegistrySync.Token, cfg.RegistrySync.Interval, utils.HTTPClient,
		).Start(ctx)
		log.Printf("✅ Registry sync running (every %s)", cfg.RegistrySync.Interval)
	}

	go func() {
		if err := app.Listen(cfg.ListenAddr()); err != nil {
			log.Printf("Server error: %v", err)
			stop()
		}
	}()

	log.Printf("✅ Server running on http://localhost%s (storage: %s)", cfg.ListenAddr(), cfg.StorageDriver)
	log.Printf("✅ CORS configured for origins: %s", cfg.OriginsString())

	<-ctx.Done()
	log.Println("Shutting down server...")
	if archiveScheduler != nil {
		if err := archiveScheduler.Shutdown(); err != nil {
			log.Printf("archive scheduler shutdown: %v", err)
		}
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}

func openStore(cfg config.Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		store := storage.NewGormStore(db)
		if err := store.Migrate(); err != nil {
			return nil, err
		}
		return store, nil
	default:
		store := storage.NewJSONStore(cfg.DataDir)
		if err := store.EnsureDirectories(); err != nil {
			return nil, err
		}
		return store, nil
	}
}

// jsonErrorHandler keeps fiber's own errors (404 route, body too large) in
// the {"error": ...} shape the handlers use.
func jsonErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
