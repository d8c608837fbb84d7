package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/storefront/payment-gateway/internal/adapter/secondary/database"
	"github.com/storefront/payment-gateway/internal/adapter/secondary/messaging"
	"github.com/storefront/payment-gateway/internal/config"
	"github.com/storefront/payment-gateway/internal/constant/model/db"
	"github.com/storefront/payment-gateway/internal/core"
	"github.com/storefront/payment-gateway/internal/core/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize secondary adapter: Database
	dbConn, err := db.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer dbConn.Close()

	// Initialize secondary adapter: Repository (implements output port)
	orderEvents := database.NewGormOrderEventRepository(dbConn.DB)

	// Initialize core service: Event recorder
	recorder := service.NewEventRecorder(orderEvents)

	// Initialize secondary adapter: Messaging (concrete type for worker)
	msgClient, err := messaging.NewRabbitMQClientConcrete(cfg.AMQPURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer msgClient.Close()

	// Start consuming payment events
	err = msgClient.ConsumePaymentEvents(func(evt core.PaymentEvent) error {
		log.Printf("Recording %s event for payment %s", evt.Status, evt.PaymentID)
		return recorder.Record(evt)
	})
	if err != nil {
		log.Fatalf("Failed to start consuming events: %v", err)
	}

	log.Println("Payment event worker started. Press CTRL+C to exit.")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down worker...")
}
