// utils/logger.go
package utils

import (
	"os"

	"go.uber.org/zap"
)

// NewLogger builds the service logger: JSON in production, console otherwise
// (APP_ENV=production switches).
func NewLogger() (*zap.Logger, error) {
	var cfg zap.Config
	if os.Getenv("APP_ENV") == "production" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	return cfg.Build()
}
