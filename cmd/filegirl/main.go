// Package main is the entry point for the filegirl CLI application
package main

import (
	"fmt"
	"os"

	"github.com/filegirl/filegirl/internal/cli"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version information (set during build)
var (
	Version   = "dev"
	BuildDate = "unknown"
)

func main() {
	// Bootstrap logger until the configuration is loaded
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cli.SetVersionInfo(Version, BuildDate)

	if err := cli.Execute(); err != nil {
		logger.Error("FileGirl execution failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.Sync()
		os.Exit(1)
	}
}
