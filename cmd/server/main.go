// Command main is the entry point for the Mindposter approval server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mindposter/internal/config"
	"mindposter/internal/instagram"
	"mindposter/internal/scheduler"
	"mindposter/internal/server"

	"github.com/gofiber/fiber/v2"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create server with dependency injection
	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Startup sanity check on the Instagram credentials; publishing will fail
	// later if they are wrong, so say so now rather than at approval time.
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if username, vErr := instagram.NewClient(cfg).ValidateCredentials(ctx); vErr != nil {
			log.Printf("Instagram credentials not validated: %v", vErr)
		} else {
			log.Printf("Instagram connected: @%s", username)
		}
		cancel()
	}

	// Daily generation scheduler shares the pipeline with POST /generate.
	sched, err := scheduler.New(cfg, srv.Pipeline())
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}
	sched.Start()

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName: "Mindposter Approval Server",
	})

	// Setup middleware and routes
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := sched.Stop(ctx); err != nil {
			log.Printf("Scheduler shutdown error: %v", err)
		}
		if err := app.ShutdownWithContext(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server resource shutdown error: %v", err)
		}
	}()

	// Start server
	log.Printf("Server starting on port %s...", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}
