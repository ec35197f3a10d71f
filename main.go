package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/flamey-bot/dashboard/internal/app"
)

func main() {
	// .envは開発用。本番では環境変数を直接設定するため、無くてもエラーにしない。
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", slog.String("error", err.Error()))
	}

	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		slog.Error("application exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
