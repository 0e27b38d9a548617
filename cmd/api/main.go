package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/flexlog/flexchat/internal/pkg/logger"
	"github.com/flexlog/flexchat/internal/server"
)

// @title FlexChat API
// @version 1.0
// @description Realtime conversational layer for the FlexLog fitness platform

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token for authorization

func main() {
	// Local overrides; absent .env is fine, the environment wins anyway.
	_ = godotenv.Load()

	srv, err := server.NewServer()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize server")
		os.Exit(1)
	}

	if err := srv.Run(); err != nil {
		logger.Error().Err(err).Msg("Server execution failed or shutdown encountered errors")
		os.Exit(1)
	}

	logger.Info().Msg("Application finished gracefully.")
}
