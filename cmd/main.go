package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"card-grader/config"
	telegram "card-grader/internal/api"
	"card-grader/internal/container"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_TOKEN is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Собираем станцию: подсветка, камера, модель, отчёты
	appContainer, err := container.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to build grading station: %v", err)
	}
	defer appContainer.Close()

	// Создаём бота
	bot, err := telegram.NewBot(cfg.TelegramToken, appContainer.Grading, appContainer.Capture, cfg.ChatAllowed, appContainer.Logger)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	log.Println("Bot is running...")
	if err := bot.Run(ctx); err != nil {
		log.Fatalf("Bot error: %v", err)
	}
	log.Println("Bot stopped")
}
