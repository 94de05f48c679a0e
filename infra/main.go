package infra

import (
	"log"

	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/config"
	"github.com/yonathanegr-cmyk/Service-Booking-App-sub003/infra/produce"
)

type Infra struct {
	Redis     *RedisClient
	Postgres  *PostgresClient
	Logger    *LoggerClient
	RabbitMQ  *RabbitMQClient
	Produce   *produce.Produce
	Minio     *MinioClient
	Telemetry *Telemetry
	Sessions  *RedisSessionStore
}

var infraInstance *Infra

func InitInfra(cfg *config.Config) *Infra {
	if infraInstance != nil {
		return infraInstance
	}

	logger := InitLoggerClient(cfg.EnvConfig)
	if logger == nil {
		panic("Failed to initialize Logger service")
	}

	// Telemetry is optional - the service runs without a collector
	telemetry, err := InitTelemetry(cfg.EnvConfig)
	if err != nil {
		log.Printf("Warning: Failed to initialize telemetry: %v (traces and metrics disabled)", err)
		telemetry = nil
	}

	redis := InitRedisClient(cfg.EnvConfig)
	if redis == nil {
		panic("Failed to initialize Redis service")
	}

	postgres := InitPostgresClient(cfg.EnvConfig)
	if postgres == nil {
		panic("Failed to initialize Postgres service")
	}

	rabbitMQ := InitRabbitMQClient(cfg.EnvConfig)
	if rabbitMQ == nil {
		panic("Failed to initialize RabbitMQ service")
	}

	produceService := produce.InitProduce(rabbitMQ.Channel, cfg.EnvConfig.Payment.SigningSecret)
	if produceService == nil {
		panic("Failed to initialize Produce service")
	}

	minio := InitMinioClient(cfg.EnvConfig)
	if minio == nil {
		panic("Failed to initialize MinIO service")
	}

	infraInstance = &Infra{
		Redis:     redis,
		Postgres:  postgres,
		Logger:    logger,
		RabbitMQ:  rabbitMQ,
		Produce:   produceService,
		Minio:     minio,
		Telemetry: telemetry,
		Sessions:  NewRedisSessionStore(redis, cfg.EnvConfig.Session.TTL),
	}

	return infraInstance
}
