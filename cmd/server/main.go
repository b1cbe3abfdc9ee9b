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

	"studyhub-backend/internal/config"
	"studyhub-backend/internal/database"
	"studyhub-backend/internal/handlers"
	"studyhub-backend/internal/middleware"
	"studyhub-backend/internal/repository"
	"studyhub-backend/internal/router"
	"studyhub-backend/internal/scheduler"
	"studyhub-backend/internal/services"
	"studyhub-backend/internal/websocket"
	"studyhub-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting StudyHub Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("✗ Invalid TIMEZONE %q: %v", cfg.Timezone, err)
	}

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
	noteRepo := repository.NewNoteRepo(pool)
	taskRepo := repository.NewTaskRepo(pool)
	streakRepo := repository.NewStreakRepo(pool)
	shareRepo := repository.NewShareRepo(pool)
	jobRepo := repository.NewJobRepo(pool)

	// ──── Step 5: Start Durable Scheduler ────
	sched := scheduler.New(jobRepo, scheduler.NewRedisDispatcher(redisClients.Queue), loc)
	if err := sched.Start(context.Background()); err != nil {
		log.Fatalf("✗ Scheduler catch-up failed: %v", err)
	}
	log.Println("✓ Scheduler started")

	// ──── Initialize Services ────
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	notifier := services.NewPushNotifier(redisClients.Queue)
	noteService := services.NewNoteService(noteRepo, sched, cfg.DueScanAt)
	taskService := services.NewTaskService(taskRepo, sched, notifier)
	shareService := services.NewShareService(shareRepo, noteRepo, noteService, notifier)
	streakService := services.NewStreakService(streakRepo, notifier, loc)
	dueScanner := services.NewDueScanner(noteRepo, notifier)

	// ──── Initialize Handlers ────
	noteHandler := handlers.NewNoteHandler(noteService)
	taskHandler := handlers.NewTaskHandler(taskService)
	shareHandler := handlers.NewShareHandler(shareService)
	streakHandler := handlers.NewStreakHandler(streakService)

	// ──── Step 6: Start Reminder Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, taskService, dueScanner, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, cfg.JWTSecret)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		noteHandler,
		taskHandler,
		shareHandler,
		streakHandler,
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
		sched.Stop()
		workerPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ StudyHub Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
