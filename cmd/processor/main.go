package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vertexbank/backend/internal/config"
	"github.com/vertexbank/backend/internal/db"
	"github.com/vertexbank/backend/internal/notify"
	"github.com/vertexbank/backend/internal/queue"
	"github.com/vertexbank/backend/internal/service"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Load()

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

	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.MailGatewayURL != "" {
		mailer = notify.NewGateway(cfg.MailGatewayURL)
	}

	events, err := rabbitmq.ConsumeEvents(ctx)
	if err != nil {
		log.Fatalf("Failed to consume events: %v", err)
	}

	processor := service.NewProcessor(archive, mailer)

	// Run the processor until interrupted
	go processor.Run(ctx, events)
	log.Println("Event processor started")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down processor...")
	cancel() // Cancel context to stop processor
	log.Println("Processor shut down successfully")
}
