package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"

	config "crosspost/configs"
	"crosspost/internal/api/handlers"
	"crosspost/internal/api/middleware"
	job "crosspost/internal/jobs"
	"crosspost/internal/models"
	"crosspost/internal/providers"
	"crosspost/internal/queue"
	"crosspost/internal/repository"
	"crosspost/internal/service"
	"crosspost/pkg/vault"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	// A bad vault key means no stored token can ever be decrypted; refuse
	// to start rather than fail on the first publish.
	tokenVault, err := vault.New(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("Invalid encryption key: %v", err)
	}

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	postRepo := repository.NewPostRepository(db)
	variantRepo := repository.NewPostVariantRepository(db)
	jobRepo := repository.NewPublishJobRepository(db)
	attemptRepo := repository.NewPublishAttemptRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)

	metaAdapter := providers.NewMetaAdapter(tokenVault, cfg.PublicBaseURL)
	registry := providers.NewRegistry(map[string]providers.Adapter{
		models.ProviderFacebook:  metaAdapter,
		models.ProviderInstagram: metaAdapter, // Instagram publishes through the same Graph API
		models.ProviderLinkedIn:  providers.NewLinkedInAdapter(tokenVault, cfg.PublicBaseURL),
		models.ProviderTikTok:    providers.NewTikTokAdapter(),
	})

	storageService := service.NewStorageService(*cfg)
	postService := service.NewPostService(db, postRepo, variantRepo, jobRepo, attemptRepo, mediaAssetRepo)
	platformService := service.NewPlatformService(socialAccountRepo, registry)
	mediaService := service.NewMediaService(mediaAssetRepo, storageService)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	post := handlers.NewPostHandler(postService, client)
	api.Post("/posts", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Get("/posts/:id", post.PostInfo)

	media := handlers.NewMediaHandler(mediaService)
	api.Post("/media", media.Upload)

	platform := handlers.NewPlatformHandler(platformService)
	api.Get("/accounts", platform.ListSocialAccounts)
	api.Get("/accounts/:id/validate", platform.ValidateAccount)

	// cron jobs
	reconcileJob := job.NewReconcileJob(jobRepo, client)

	// queue worker
	worker := queue.NewWorker(jobRepo, postRepo, variantRepo, attemptRepo, socialAccountRepo, mediaAssetRepo, registry, cfg.SkipSucceeded)

	c := cron.New()
	c.AddFunc("@every 00h01m00s", reconcileJob.Run)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency:    cfg.WorkerConcurrency,
			RetryDelayFunc: queue.RetryDelay,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublish, worker.HandlePublishTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
