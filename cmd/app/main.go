package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog/log"

	"CryptoSign/internal/di"
	"CryptoSign/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	// Wire DI: Initialize all dependencies
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("app initialization failed")
	}
	defer cleanup()

	if err := app.Run(); err != nil {
		log.Error().Err(err).Msg("app error")
		cleanup()
		os.Exit(1)
	}
}
