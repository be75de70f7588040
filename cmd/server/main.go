package main

import (
	"log/slog"

	"github.com/joho/godotenv"

	"leavedesk/internal/app/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	server.Run()
}
