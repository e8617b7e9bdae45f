package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"comet-be/internal/cache"
	"comet-be/internal/checkout"
	"comet-be/internal/config"
	"comet-be/internal/customer"
	"comet-be/internal/db"
	"comet-be/internal/handler"
	"comet-be/internal/logger"
	"comet-be/internal/middleware"
	"comet-be/internal/order"
	"comet-be/internal/payment"
	"comet-be/internal/product"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.AppEnv)
	defer logger.Sync()
	log := logger.L()

	ctx := context.Background()

	mongo, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatal("mongodb connection failed", zap.Error(err))
	}
	defer func() {
		if err := mongo.Close(context.Background()); err != nil {
			log.Error("mongodb disconnect failed", zap.Error(err))
		}
	}()

	redis := cache.NewRedis(cfg)
	defer redis.Close()
	if err := redis.Ping(ctx); err != nil {
		// checkout fails open without redis, so this is loud but not fatal
		log.Warn("redis unreachable at startup", zap.Error(err))
	}

	gateway := payment.NewPayOSGateway(payment.Credentials{
		ClientID:    cfg.PayOSClientID,
		APIKey:      cfg.PayOSAPIKey,
		ChecksumKey: cfg.PayOSChecksumKey,
	})

	orderRepo := order.NewRepository(mongo)
	customerRepo := customer.NewRepository(mongo)
	productRepo := product.NewRepository(mongo)
	eventStore := payment.NewEventStore(mongo)
	reconRepo := checkout.NewReconRepository(mongo)
	idemStore := checkout.NewIdempotencyStore(redis)

	checkoutSvc := checkout.NewService(orderRepo, customerRepo, gateway, idemStore, reconRepo, checkout.Options{
		ReturnURL: cfg.ReturnURL,
		CancelURL: cfg.CancelURL,
	})
	productSvc := product.NewService(productRepo)

	router := newRouter(cfg, checkoutSvc, productSvc, gateway, eventStore, orderRepo, reconRepo)

	srv := &http.Server{
		Addr:    ":" + cfg.AppPort,
		Handler: router,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.AppPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown incomplete", zap.Error(err))
	}
}

func newRouter(
	cfg *config.Config,
	checkoutSvc checkout.Service,
	productSvc product.Service,
	gateway payment.Gateway,
	events payment.EventStore,
	orders order.Repository,
	recon checkout.ReconRepository,
) *gin.Engine {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		logger.RequestID(),
		logger.Logging(),
		middleware.CORS(middleware.DefaultPolicies(cfg.StoreOrigin)),
		middleware.AuthGate(cfg.SessionJWTSecret, cfg.PublicRoutes),
		middleware.RateLimit(),
	)

	checkoutHandler := handler.NewCheckoutHandler(checkoutSvc)
	productHandler := handler.NewProductHandler(productSvc)
	webhookHandler := handler.NewWebhookHandler(gateway, events, orders, recon)

	router.GET("/healthz", handler.Health)

	api := router.Group("/api")
	{
		api.POST("/checkout", checkoutHandler.Checkout)

		api.GET("/products/:productId", productHandler.Get)
		api.POST("/products/:productId", productHandler.Update)
		api.DELETE("/products/:productId", productHandler.Delete)

		api.POST("/webhooks/payos", webhookHandler.HandlePayOS)
	}

	return router
}
