package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"mspt-tracker/internal/domain"
)

type Config struct {
	SapkURI    string
	SapkTriURI string
	GatewayURI string
	DBPath     string
	ServerPort string
	LogLevel   string
	MsptPath   string

	// Process-wide defaults, overridable per query.
	AidQueryingPreference  string
	RankQueryingPreference string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		SapkURI:                getEnv("SAPK_URI", "https://5-data.amae-koromo.com/api/v2/pl4"),
		SapkTriURI:             getEnv("SAPK_TRI_URI", "https://5-data.amae-koromo.com/api/v2/pl3"),
		GatewayURI:             getEnv("MAJSOUL_GATEWAY_URI", "http://127.0.0.1:7237"),
		DBPath:                 getEnv("DB_PATH", "mspt.db"),
		ServerPort:             getEnv("SERVER_PORT", "8080"),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		MsptPath:               getEnv("MSPT_PATH", "/mspt"),
		AidQueryingPreference:  getEnv("AID_QUERYING_PREFERENCE", domain.PrefSapk),
		RankQueryingPreference: getEnv("RANK_QUERYING_PREFERENCE", domain.PrefSapk),
	}

	switch cfg.AidQueryingPreference {
	case domain.PrefDatabase, domain.PrefSapk:
	default:
		return nil, fmt.Errorf("invalid AID_QUERYING_PREFERENCE %q", cfg.AidQueryingPreference)
	}
	switch cfg.RankQueryingPreference {
	case domain.PrefDatabase, domain.PrefSapk, domain.PrefServer:
	default:
		return nil, fmt.Errorf("invalid RANK_QUERYING_PREFERENCE %q", cfg.RankQueryingPreference)
	}

	logger.Info().
		Str("sapk_uri", cfg.SapkURI).
		Str("sapk_tri_uri", cfg.SapkTriURI).
		Str("gateway_uri", cfg.GatewayURI).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("mspt_path", cfg.MsptPath).
		Str("aid_preference", cfg.AidQueryingPreference).
		Str("rank_preference", cfg.RankQueryingPreference).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
