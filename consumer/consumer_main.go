package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/config"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/consumer/worker"
	infraPkg "github.com/yonathanegr-cmyk/Service-Booking-App-sub003/infra"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/jobs"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/matching"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/repository"
)

func main() {
	err := godotenv.Load("../staging.env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)
	repo := repository.InitRepository(infra)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jobRepo := jobs.New(repo,
		jobs.WithLogger(infra.Logger),
		jobs.WithPublisher(infra.Produce.JobService),
	)
	engine := matching.NewEngine(repo,
		matching.WithLogger(infra.Logger),
		matching.WithConfig(cfg.EnvConfig),
	)

	// Payment consumer gets its own channel so its manual acks stay isolated
	paymentChannel, err := infra.RabbitMQ.NewChannel()
	if err != nil {
		log.Fatalf("Failed to open payment channel: %v", err)
	}
	paymentConsumer := worker.NewPaymentConsumer(paymentChannel, jobRepo, cfg.EnvConfig.Payment.SigningSecret, infra.Logger)
	if err := paymentConsumer.Start(ctx); err != nil {
		infra.Logger.ErrorWithContextf(ctx, err, "Failed to start Payment consumer: %v", err)
		log.Fatalf("Failed to start Payment consumer: %v", err)
	}

	worker.NewOfferExpiryWorker(engine, cfg.EnvConfig.Offers.SweepInterval, infra.Logger).Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	infra.Logger.InfoWithContextf(ctx, "Shutting down consumer...")
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if infra.Telemetry != nil {
		_ = infra.Telemetry.Shutdown(shutdownCtx)
	}
	_ = infra.RabbitMQ.Close()
	infra.Logger.InfoWithContextf(shutdownCtx, "Consumer exited properly")
	_ = infra.Logger.Shutdown(shutdownCtx)
}
