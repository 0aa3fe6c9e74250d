package tests

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Layr-Labs/offering-ledger/internal/config"
	"github.com/Layr-Labs/offering-ledger/internal/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func GetConfig() *config.Config {
	return config.NewConfig()
}

func GetLogger() *zap.Logger {
	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: os.Getenv("IFO_DEBUG") == "true"})
	return l
}

// GetDbConfigFromEnv returns nil when no test database host is configured.
func GetDbConfigFromEnv() *config.DatabaseConfig {
	host := os.Getenv("IFO_TEST_DATABASE_HOST")
	if host == "" {
		return nil
	}
	port, err := strconv.Atoi(os.Getenv("IFO_TEST_DATABASE_PORT"))
	if err != nil {
		port = 5432
	}
	return &config.DatabaseConfig{
		Host:     host,
		Port:     port,
		User:     os.Getenv("IFO_TEST_DATABASE_USER"),
		Password: os.Getenv("IFO_TEST_DATABASE_PASSWORD"),
		DbName:   "postgres",
	}
}

func GenerateTestDbName() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("test_%s", strings.ReplaceAll(id.String(), "-", "")), nil
}
