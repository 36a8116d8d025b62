package main

import (
	"promo-engine/internal/app/server"
	"promo-engine/internal/config"
)

func main() {
	cfg := config.Load()
	config.SetupLogging(cfg.Server.LogLevel)
	server.Run(cfg)
}
