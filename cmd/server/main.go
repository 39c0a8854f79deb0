package main

import (
	"log/slog"
	"os"

	"github.com/thegeek/eml-reader/internal/config"
	"github.com/thegeek/eml-reader/internal/logger"
	"github.com/thegeek/eml-reader/internal/server"
)

func main() {
	cfg := config.Load()

	log := logger.New(logger.DefaultConfig())
	slog.SetDefault(log)

	if err := server.Run(cfg, log); err != nil {
		log.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
