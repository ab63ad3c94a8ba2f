package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobprep-backend/internal/config"
	"jobprep-backend/internal/database"
	"jobprep-backend/internal/handlers"
	"jobprep-backend/internal/jobs"
	"jobprep-backend/internal/middleware"
	"jobprep-backend/internal/repository"
	"jobprep-backend/internal/router"
	"jobprep-backend/internal/services"
	"jobprep-backend/internal/websocket"
	"jobprep-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting JobPrep Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	categoryRepo := repository.NewCategoryRepo(pool)
	sessionRepo := repository.NewSessionRepo(pool)
	feedbackRepo := repository.NewFeedbackRepo(pool)
	subscriptionRepo := repository.NewSubscriptionRepo(pool)

	// ──── Step 5: Initialize Completion Client ────
	completionClient, err := services.NewGeminiCompletionClient(
		cfg.GeminiAPIKey,
		cfg.GeminiModel,
		time.Duration(cfg.CompletionTimeoutSecs)*time.Second,
	)
	if err != nil {
		log.Fatalf("✗ Completion client initialization failed: %v", err)
	}
	defer completionClient.Close()
	log.Printf("✓ Completion client initialized (model: %s)", cfg.GeminiModel)

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	emailService := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.FrontendURL)
	authService := services.NewAuthService(userRepo, subscriptionRepo, redisClients.Queue, jwtAuth, emailService)
	subscriptionService := services.NewSubscriptionService(subscriptionRepo)
	feedbackService := services.NewFeedbackService(sessionRepo, feedbackRepo, completionClient, cfg.CompletionMaxTokens)

	queue := worker.NewQueue(redisClients.Queue)
	interviewService := services.NewInterviewService(
		sessionRepo,
		categoryRepo,
		userRepo,
		subscriptionRepo,
		completionClient,
		feedbackService,
		queue,
		time.Duration(cfg.SessionTimeoutMinutes)*time.Minute,
		cfg.CompletionMaxTokens,
	)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userRepo)
	categoryHandler := handlers.NewCategoryHandler(categoryRepo)
	interviewHandler := handlers.NewInterviewHandler(interviewService)
	feedbackHandler := handlers.NewFeedbackHandler(feedbackService)
	subscriptionHandler := handlers.NewSubscriptionHandler(subscriptionService)

	// ──── Step 6: Start Feedback Worker Pool ────
	workerPool := worker.NewPool(
		redisClients.Queue,
		queue,
		feedbackService,
		emailService,
		userRepo,
		cfg.FeedbackWorkers,
	)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.FeedbackWorkers)

	// ──── Step 7: Start Scheduler ────
	scheduler := jobs.NewScheduler(sessionRepo, subscriptionRepo, queue, cfg.SessionTimeoutMinutes)
	scheduler.Start()

	// ──── Step 8: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 9: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		userHandler,
		categoryHandler,
		interviewHandler,
		feedbackHandler,
		subscriptionHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()
		scheduler.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ JobPrep Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
