package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/vertexbank/backend/internal/accountnumber"
	"github.com/vertexbank/backend/internal/api"
	"github.com/vertexbank/backend/internal/config"
	"github.com/vertexbank/backend/internal/db"
	"github.com/vertexbank/backend/internal/queue"
	"github.com/vertexbank/backend/internal/service"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

	// Connecting to Postgres
	log.Println("Connecting to PostgreSQL...")
	postgres, err := db.NewPostgres(cfg.PostgresURI)
	if err != nil {
		log.Fatalf("failed to connect to PostgreSQL: %v", err)
	}
	defer postgres.Close()

	// Create schema
	log.Println("Creating the schema...")
	if err := postgres.InitSchema(ctx); err != nil {
		log.Fatalf("failed to create schema: %v", err)
	}

	// Connect to the Mongo archive
	log.Println("Connecting to MongoDB...")
	archive, err := db.NewArchive(cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer archive.Close(ctx)

	// Connect to RabbitMQ
	log.Println("Connecting to RabbitMQ...")
	rabbitmq, err := queue.NewRabbitMQ(cfg.RabbitMQURI)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer rabbitmq.Close()

	// Create services
	accountService := service.NewAccountService(postgres, accountnumber.NewRandom(), rabbitmq)
	transactionService := service.NewTransactionService(postgres, rabbitmq)
	profileService := service.NewProfileService(postgres, accountService, rabbitmq)

	// Create router and set up routes
	router := mux.NewRouter()
	api.SetupRoutes(router, accountService, transactionService, profileService, archive)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s...", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Shutdown server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown failed: %v", err)
	}

	log.Println("Server shut down successfully")
}
