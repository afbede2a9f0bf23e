package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/avialabs/flightstatus/pkg/fanout"
	"github.com/avialabs/flightstatus/pkg/flightstats"
	"github.com/avialabs/flightstatus/pkg/logging"
	"github.com/avialabs/flightstatus/pkg/poller"
	"github.com/avialabs/flightstatus/pkg/rendezvous"
	"github.com/avialabs/flightstatus/pkg/server"
)

// main is the composition root: it wires Redis, the vendor client, the
// fan-out dispatcher and the poller behind the HTTP surface.
func main() {
	// Missing .env is fine; plain environment variables still apply.
	_ = godotenv.Load()

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(getEnv("LOG_LEVEL", "info")),
		Pretty: os.Getenv("LOG_PRETTY") == "true",
		Output: os.Stderr,
	})

	redisURL := getEnv("REDIS_URL", "localhost:6379")
	port := getEnv("PORT", "8888")
	appID := os.Getenv("FS_APP_ID")
	appKey := os.Getenv("FS_APP_KEY")

	redisClient := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("redis_url", redisURL).Msg("Failed to connect to Redis")
	}
	log.Info().Str("redis_url", redisURL).Msg("Connected to Redis")

	cfg := flightstats.DefaultConfig(appID, appKey)
	if base := os.Getenv("FS_BASE_URL"); base != "" {
		cfg.BaseURL = base
	}
	if timeout := getDuration("HTTP_TIMEOUT", 30*time.Second); timeout > 0 {
		cfg.Timeout = timeout
	}

	vendor, err := flightstats.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create FlightStats client")
	}

	store := rendezvous.NewStore(redisClient, getDuration("RENDEZVOUS_TTL", rendezvous.DefaultTTL))
	dispatcher := fanout.NewDispatcher(vendor, store, cfg.Timeout)
	p := poller.New(store)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      server.NewRouter(dispatcher, p),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second, // outlives one full vendor window fetch
	}

	log.Info().Str("addr", srv.Addr).Msg("Flight status server listening")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid duration, using default")
		return defaultValue
	}
	return d
}
