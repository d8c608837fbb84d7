package main

import (
	"fmt"
	"log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	handler "github.com/storefront/payment-gateway/internal/adapter/primary/http"
	"github.com/storefront/payment-gateway/internal/adapter/secondary/database"
	"github.com/storefront/payment-gateway/internal/adapter/secondary/gateway"
	"github.com/storefront/payment-gateway/internal/adapter/secondary/identity"
	"github.com/storefront/payment-gateway/internal/adapter/secondary/messaging"
	"github.com/storefront/payment-gateway/internal/config"
	"github.com/storefront/payment-gateway/internal/constant/model/db"
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

	// Initialize secondary adapters (implement output ports)
	paymentRepo := database.NewGormPaymentRepository(dbConn.DB)
	orderRepo := database.NewGormOrderRepository(dbConn.DB)
	msgClient, err := messaging.NewRabbitMQClient(cfg.AMQPURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer msgClient.Close()

	signer := gateway.NewSigner(cfg.CRCKey)
	gatewayClient := gateway.NewClient(cfg, signer)

	// Initialize core services (implement input ports)
	orderSync := service.NewOrderSynchronizer(orderRepo)
	initiator := service.NewInitiationFlow(orderRepo, paymentRepo, gatewayClient, msgClient, cfg)
	processor := service.NewCallbackProcessor(paymentRepo, gatewayClient, signer, orderSync, msgClient)
	refunds := service.NewRefundFlow(paymentRepo, gatewayClient, orderSync, msgClient)

	// Initialize primary adapter: HTTP handler (uses input ports)
	paymentHandler := handler.NewPaymentHandler(initiator, processor, refunds, identity.NewHeaderResolver())

	// Initialize Echo
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Routes
	api := e.Group("/api/v1")
	api.POST("/payments/initiate", paymentHandler.InitiatePayment)
	api.POST("/payments/notify", paymentHandler.HandleNotification)
	api.POST("/payments/refund", paymentHandler.RefundPayment)
	api.GET("/payments/:id", paymentHandler.GetPayment)

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting API server on %s (sandbox=%v)", addr, cfg.Sandbox)
	if err := e.Start(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
