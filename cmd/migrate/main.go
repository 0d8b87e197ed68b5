package main

import (
	"flag"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/realizeit/storefront/internal/migrations"
	"github.com/realizeit/storefront/internal/obs"
)

func main() {
	_ = godotenv.Load()
	logger := obs.NewLogger("storefront-migrate", envOrDefault("OBS_LOG_FORMAT", "console"), envOrDefault("OBS_LOG_LEVEL", "info"))

	steps := flag.Int("steps", 0, "apply n migrations (negative rolls back); 0 applies all pending")
	flag.Parse()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	m, err := migrations.New(dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("init migrations")
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil || dbErr != nil {
			logger.Error().AnErr("source", srcErr).AnErr("database", dbErr).Msg("close migrator")
		}
	}()

	if *steps != 0 {
		err = migrations.Steps(m, *steps)
	} else {
		err = migrations.Up(m)
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}
	version, dirty, err := m.Version()
	if err != nil {
		logger.Warn().Err(err).Msg("read schema version")
		return
	}
	logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("migrations applied")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
