package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "card-grader/internal/application"
	"card-grader/internal/domain/entity"
	"card-grader/internal/infrastructure/imagefile"
)

const (
	msgStart = `👋 Привет! Я управляю станцией оценки карточек.

💡 Станция снимает карточку при подсветке с четырёх сторон, сводит кадры и отмечает дефекты красным.

📋 Команды:
/connect — подключить контроллер подсветки
/grade — снять и оценить карточку
/status — состояние станции
/mode overlay|normal|average — режим сведения кадров
/last — последний отчёт
/disconnect — отключить контроллер
/help — справка`

	msgHelp = `ℹ️ Как пользоваться станцией:

1️⃣ Положите карточку под камеру
2️⃣ Отправьте /connect, если контроллер не подключён
3️⃣ Отправьте /grade и не двигайте карточку до конца съёмки
4️⃣ Вы получите фото с подсветкой дефектов и текстовую сводку

⚙️ Режимы сведения:
• overlay — смешивание 50/50
• normal — карта нормалей
• average — среднее двух режимов`

	msgUseCommands    = "📋 Используйте команды. /help — справка."
	msgUnknownCommand = "❓ Неизвестная команда. Используйте /help для справки."
	msgForbidden      = "⛔ Этот чат не может управлять станцией."
	msgConnecting     = "🔎 Ищу контроллер подсветки..."
	msgConnected      = "✅ Контроллер подключён."
	msgDisconnected   = "🔌 Контроллер отключён."
	msgCapturing      = "📸 Снимаю карточку, не двигайте её..."
	msgNoReports      = "📭 Отчётов пока нет. Отправьте /grade."
	msgModeUsage      = "⚙️ Укажите режим: /mode overlay|normal|average"

	// лимит подписи к фото в Telegram
	captionLimit = 1024
)

// Sender отправляет сообщения в Telegram
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot представляет Telegram-бота станции оценки
type Bot struct {
	api     *tgbotapi.BotAPI
	sender  Sender
	grading *app.GradingService
	capture *app.CaptureOrchestrator
	allowed func(chatID int64) bool
	logger  *slog.Logger
}

// NewBot создаёт нового бота
func NewBot(token string, grading *app.GradingService, capture *app.CaptureOrchestrator, allowed func(int64) bool, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	b := newBot(api, grading, capture, allowed, logger)
	b.api = api
	b.logger.Info("authorized on account", "username", api.Self.UserName)
	return b, nil
}

func newBot(sender Sender, grading *app.GradingService, capture *app.CaptureOrchestrator, allowed func(int64) bool, logger *slog.Logger) *Bot {
	if allowed == nil {
		allowed = func(int64) bool { return true }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		sender:  sender,
		grading: grading,
		capture: capture,
		allowed: allowed,
		logger:  logger,
	}
}

// Run запускает основной цикл обработки сообщений до отмены контекста
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !b.allowed(msg.Chat.ID) {
		b.logger.Warn("message from foreign chat ignored", "chat_id", msg.Chat.ID)
		b.sendMessage(msg.Chat.ID, msgForbidden)
		return
	}

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	b.sendMessage(msg.Chat.ID, msgUseCommands)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.sendMessage(chatID, msgStart)

	case "help":
		b.sendMessage(chatID, msgHelp)

	case "connect":
		b.sendMessage(chatID, msgConnecting)
		if err := b.capture.Connect(ctx); err != nil {
			b.sendMessage(chatID, errorMessage(err))
			return
		}
		b.sendMessage(chatID, msgConnected)

	case "disconnect":
		if err := b.capture.Disconnect(ctx); err != nil {
			b.logger.Warn("disconnect failed", "err", err)
		}
		b.sendMessage(chatID, msgDisconnected)

	case "status":
		b.sendMessage(chatID, statusText(b.capture.State(), b.grading.Mode()))

	case "mode":
		b.handleMode(chatID, msg.CommandArguments())

	case "grade":
		b.handleGrade(ctx, chatID)

	case "last":
		b.handleLast(ctx, chatID)

	default:
		b.sendMessage(chatID, msgUnknownCommand)
	}
}

func (b *Bot) handleMode(chatID int64, args string) {
	if strings.TrimSpace(args) == "" {
		b.sendMessage(chatID, fmt.Sprintf("%s\nТекущий режим: %s", msgModeUsage, b.grading.Mode()))
		return
	}
	mode, err := entity.ParseCompositeMode(args)
	if err != nil {
		b.sendMessage(chatID, msgModeUsage)
		return
	}
	b.grading.SetMode(mode)
	b.sendMessage(chatID, fmt.Sprintf("⚙️ Режим сведения: %s", mode))
}

// handleGrade снимает карточку и отправляет размеченное фото
func (b *Bot) handleGrade(ctx context.Context, chatID int64) {
	b.sendMessage(chatID, msgCapturing)

	out, err := b.grading.Grade(ctx)
	if err != nil {
		b.logger.Error("grading failed", "chat_id", chatID, "err", err)
		b.sendMessage(chatID, errorMessage(err))
		return
	}

	caption := ""
	if out.Description != nil {
		caption = out.Description.Text
	}
	b.sendReport(chatID, out.Report, caption)
}

func (b *Bot) handleLast(ctx context.Context, chatID int64) {
	report, err := b.grading.Latest(ctx)
	if err != nil {
		b.sendMessage(chatID, msgNoReports)
		return
	}
	caption := fmt.Sprintf("🗂 Отчёт %s от %s", report.RunID, report.CreatedAt.Format("02.01.2006 15:04:05"))
	b.sendReport(chatID, report, caption)
}

// sendReport отправляет размеченное фото с подписью
func (b *Bot) sendReport(chatID int64, report *entity.GradingReport, caption string) {
	if report.Annotated == nil {
		b.sendMessage(chatID, caption)
		return
	}
	data, err := imagefile.EncodePNG(report.Annotated)
	if err != nil {
		b.logger.Error("encode annotated image failed", "err", err)
		b.sendMessage(chatID, caption)
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  report.RunID.String() + ".png",
		Bytes: data,
	})
	photo.Caption = truncate(caption, captionLimit)
	if _, err := b.sender.Send(photo); err != nil {
		b.logger.Error("send photo failed", "err", err)
	}
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("send message failed", "err", err)
	}
}

// errorMessage переводит ошибку конвейера в ответ пользователю
func errorMessage(err error) string {
	var (
		deviceErr  *entity.DeviceError
		captureErr *entity.CaptureError
		validErr   *entity.ValidationError
	)
	switch {
	case errors.Is(err, entity.ErrBusy):
		return "⏳ Съёмка уже идёт, дождитесь результата."
	case errors.Is(err, entity.ErrNotConnected):
		return "🔌 Контроллер не подключён. Отправьте /connect."
	case errors.Is(err, entity.ErrNoDevice):
		return "🔎 Контроллер подсветки не найден. Проверьте питание и кабель."
	case errors.Is(err, entity.ErrAckTimeout):
		return "⚠️ Контроллер не ответил на команду. Соединение сброшено, отправьте /connect."
	case errors.Is(err, entity.ErrCaptureTimeout):
		return "⚠️ Камера не вернула кадр вовремя. Соединение сброшено, отправьте /connect."
	case errors.As(err, &captureErr):
		return fmt.Sprintf("⚠️ Съёмка прервана на шаге %q. Отправьте /connect и повторите.", captureErr.Step)
	case errors.As(err, &deviceErr):
		return "⚠️ Ошибка связи с контроллером. Отправьте /connect."
	case errors.As(err, &validErr):
		return "⚠️ Кадры не согласованы: " + validErr.Reason
	}
	return "⚠️ Не удалось оценить карточку. Попробуйте ещё раз."
}

var stateTitles = map[entity.PipelineState]string{
	entity.StateDisconnected:     "контроллер не подключён",
	entity.StateScanning:         "поиск контроллера",
	entity.StateConnected:        "готов к съёмке",
	entity.StateCapturing:        "идёт съёмка",
	entity.StateProcessingImages: "обработка кадров",
	entity.StateFailed:           "сбой, нужно переподключение",
}

func statusText(state entity.PipelineState, mode entity.CompositeMode) string {
	title, ok := stateTitles[state]
	if !ok {
		title = string(state)
	}
	return fmt.Sprintf("📟 Станция: %s\n⚙️ Режим сведения: %s", title, mode)
}

// truncate обрезает текст до limit символов
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}
