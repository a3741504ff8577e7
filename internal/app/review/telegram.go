package review

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/jessiesmp/intake/pkg/logger"
)

// InboundHandler consumes inbound channel activity. The bridge implements it.
type InboundHandler interface {
	HandleCallback(ctx context.Context, cb Callback)
	HandleMessage(ctx context.Context, actorID, text string)
}

// TelegramTransport implements Transport over the Telegram Bot API and feeds
// inbound updates from the review chat to an InboundHandler.
type TelegramTransport struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	handler InboundHandler
	log     *logger.Logger
	done    chan struct{}
}

var _ Transport = (*TelegramTransport)(nil)

// NewTelegramTransport authenticates the bot. chatID is the reviewer chat all
// outbound messages go to.
func NewTelegramTransport(token string, chatID int64, log *logger.Logger) (*TelegramTransport, error) {
	if log == nil {
		log = logger.NewDefault("telegram")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("authenticate bot: %w", err)
	}
	log.WithField("bot", bot.Self.UserName).Info("telegram bot authorized")
	return &TelegramTransport{bot: bot, chatID: chatID, log: log}, nil
}

// SetHandler wires the inbound side. Call before Start.
func (t *TelegramTransport) SetHandler(h InboundHandler) {
	t.handler = h
}

func (t *TelegramTransport) SendReview(_ context.Context, text string, keyboard [][]Button) (MessageRef, error) {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = toInlineKeyboard(keyboard)

	sent, err := t.bot.Send(msg)
	if err != nil {
		return MessageRef{}, err
	}
	return MessageRef{ChatID: t.chatID, MessageID: sent.MessageID}, nil
}

func (t *TelegramTransport) EditKeyboard(_ context.Context, ref MessageRef, keyboard [][]Button) error {
	edit := tgbotapi.NewEditMessageReplyMarkup(ref.ChatID, ref.MessageID, toInlineKeyboard(keyboard))
	_, err := t.bot.Request(edit)
	return err
}

func (t *TelegramTransport) Ack(_ context.Context, callbackID, text string) error {
	_, err := t.bot.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func (t *TelegramTransport) Post(_ context.Context, text string) error {
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := t.bot.Send(msg)
	return err
}

// Name implements system.Service.
func (t *TelegramTransport) Name() string { return "telegram-transport" }

// Start begins long-polling for updates and dispatching them to the handler.
func (t *TelegramTransport) Start(ctx context.Context) error {
	if t.handler == nil {
		return fmt.Errorf("inbound handler not set")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)
		for update := range updates {
			t.dispatch(ctx, update)
		}
	}()
	return nil
}

// Stop terminates long-polling and waits for the dispatch loop to drain.
func (t *TelegramTransport) Stop(context.Context) error {
	t.bot.StopReceivingUpdates()
	if t.done != nil {
		<-t.done
	}
	return nil
}

func (t *TelegramTransport) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		cq := update.CallbackQuery
		cb := Callback{
			ID:      cq.ID,
			ActorID: cq.From.UserName,
			Data:    cq.Data,
		}
		if cq.Message != nil {
			cb.Message = MessageRef{ChatID: cq.Message.Chat.ID, MessageID: cq.Message.MessageID}
		}
		t.handler.HandleCallback(ctx, cb)
	case update.Message != nil:
		msg := update.Message
		// Only free-text replies in the review chat matter; they complete
		// pending role-grant prompts.
		if msg.Chat == nil || msg.Chat.ID != t.chatID || msg.From == nil {
			return
		}
		t.handler.HandleMessage(ctx, msg.From.UserName, msg.Text)
	}
}

func toInlineKeyboard(keyboard [][]Button) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(buttons...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
