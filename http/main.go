package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/config"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/consumer/worker"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/feed"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/http/controller"
	routes "github.com/yonathanegr-cmyk/Service-Booking-App-sub003/http/route"
	infraPkg "github.com/yonathanegr-cmyk/Service-Booking-App-sub003/infra"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/jobs"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/matching"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/orchestrator"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/repository"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/tracking"
)

func main() {
	err := godotenv.Load("staging.env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	env := cfg.EnvConfig
	infra := infraPkg.InitInfra(cfg)
	repo := repository.InitRepository(infra)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := repo.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	jobRepo := jobs.New(repo,
		jobs.WithLogger(infra.Logger),
		jobs.WithPublisher(infra.Produce.JobService),
	)
	engine := matching.NewEngine(repo,
		matching.WithLogger(infra.Logger),
		matching.WithOfferPublisher(infra.Produce.OfferService),
		matching.WithConfig(env),
	)

	// Changes written by other processes reach local sessions through the hub
	hub := feed.NewHub()
	feedChannel, err := infra.RabbitMQ.NewChannel()
	if err != nil {
		log.Fatalf("Failed to open job feed channel: %v", err)
	}
	if err := worker.NewJobFeedConsumer(feedChannel, hub, infra.Logger).Start(ctx); err != nil {
		log.Fatalf("Failed to start job feed consumer: %v", err)
	}

	sessions := orchestrator.NewManager(orchestrator.Deps{
		Jobs:               jobRepo,
		Matching:           engine,
		Sessions:           infra.Sessions,
		Feed:               hub,
		Devices:            tracking.NewDeviceFeed(env.Tracking.FixesPerSecond, env.Tracking.FixBurst, env.Tracking.AcquisitionTimeout),
		Logger:             infra.Logger,
		MaxDistanceKm:      env.Matching.MaxDistanceKm,
		PushInterval:       env.Tracking.PushInterval,
		AcquisitionTimeout: env.Tracking.AcquisitionTimeout,
	})
	defer sessions.Close()

	ctrl := controller.NewController(cfg, infra.Logger, controller.Services{
		Sessions: sessions,
		Jobs:     jobRepo,
		Matching: engine,
		Evidence: infra.Minio,
		Payments: infra.Produce.PaymentService,
		Checks: map[string]controller.HealthCheck{
			"postgres": repo.Ping,
			"redis":    infra.Redis.Ping,
			"minio":    infra.Minio.Health,
		},
	})

	router := routes.SetupRouter(ctrl)
	server := &http.Server{
		Addr:              ":" + env.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP Server started on :%s", env.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	infra.Logger.InfoWithContextf(ctx, "Shutting down server...")
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		infra.Logger.ErrorWithContextf(shutdownCtx, err, "Server forced to shutdown")
	}
	if infra.Telemetry != nil {
		_ = infra.Telemetry.Shutdown(shutdownCtx)
	}
	_ = infra.RabbitMQ.Close()
	_ = infra.Logger.Shutdown(shutdownCtx)
}
