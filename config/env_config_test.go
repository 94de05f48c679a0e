package config

import (
	"testing"
	"time"
)

func TestLoadEnvConfigDefaults(t *testing.T) {
	t.Setenv("TRACKING_PUSH_INTERVAL", "")
	t.Setenv("OFFER_EXPIRY", "")
	t.Setenv("MATCHING_MAX_DISTANCE_KM", "")
	t.Setenv("GRAFANA_OTLP_ENDPOINT", "")

	cfg := LoadEnvConfig()

	if cfg.Tracking.PushInterval != 10*time.Second {
		t.Errorf("push interval = %v", cfg.Tracking.PushInterval)
	}
	if cfg.Tracking.AcquisitionTimeout != 15*time.Second {
		t.Errorf("acquisition timeout = %v", cfg.Tracking.AcquisitionTimeout)
	}
	if cfg.Offers.Expiry != 5*time.Minute {
		t.Errorf("offer expiry = %v", cfg.Offers.Expiry)
	}
	if cfg.Matching.MaxDistanceKm != 10 {
		t.Errorf("max distance = %v", cfg.Matching.MaxDistanceKm)
	}
	if cfg.RabbitMQ.Username != "guest" {
		t.Errorf("rabbitmq user = %q", cfg.RabbitMQ.Username)
	}
}

func TestLoadEnvConfigOverrides(t *testing.T) {
	t.Setenv("TRACKING_PUSH_INTERVAL", "3s")
	t.Setenv("MATCHING_MAX_DISTANCE_KM", "25.5")
	t.Setenv("GRAFANA_OTLP_ENDPOINT", "https://otel.internal:4318")

	cfg := LoadEnvConfig()

	if cfg.Tracking.PushInterval != 3*time.Second {
		t.Errorf("push interval = %v", cfg.Tracking.PushInterval)
	}
	if cfg.Matching.MaxDistanceKm != 25.5 {
		t.Errorf("max distance = %v", cfg.Matching.MaxDistanceKm)
	}
	if cfg.Grafana.OTLPEndpoint != "otel.internal:4318" {
		t.Errorf("otlp endpoint = %q, want scheme stripped", cfg.Grafana.OTLPEndpoint)
	}
}
