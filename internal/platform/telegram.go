package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/piaaz/botfleet/internal/bot"
)

const placeholderTelegramVoice = "(رسالة صوتية من المستخدم)"

// telegramAdapter serves one Telegram bot over webhooks. No polling: the
// Bot API pushes updates to /webhooks/telegram/{id}.
type telegramAdapter struct {
	id         string
	api        *tgbotapi.BotAPI
	resp       *responder
	webhookURL string
}

func newTelegramAdapter(cfg bot.Config, deps Deps) (bot.Adapter, error) {
	// Built by hand instead of NewBotAPI to skip the getMe call: the
	// token is validated by setWebhook during Start anyway.
	api := &tgbotapi.BotAPI{
		Token:  cfg.Creds["tgToken"],
		Client: deps.httpClient(),
		Buffer: 100,
	}
	if deps.TelegramEndpoint != "" {
		api.SetAPIEndpoint(deps.TelegramEndpoint)
	}

	return &telegramAdapter{
		id:         cfg.ID,
		api:        api,
		resp:       newResponder(deps, cfg),
		webhookURL: fmt.Sprintf("%s/webhooks/telegram/%s", deps.PublicBase, cfg.ID),
	}, nil
}

// Start points the bot's webhook at this process.
func (t *telegramAdapter) Start(context.Context) error {
	wh, err := tgbotapi.NewWebhook(t.webhookURL)
	if err != nil {
		return fmt.Errorf("telegram: building webhook config: %w", err)
	}
	resp, err := t.api.Request(wh)
	if err != nil {
		return fmt.Errorf("telegram: setting webhook: %w", err)
	}
	log.Printf("[TG webhook] %s -> %s | ok=%v", t.id, t.webhookURL, resp.Ok)
	return nil
}

// Stop removes the webhook so Telegram stops pushing updates here.
func (t *telegramAdapter) Stop(context.Context) error {
	if _, err := t.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("telegram: deleting webhook: %w", err)
	}
	return nil
}

func (t *telegramAdapter) UpdateProfile(p bot.Profile, openaiKey string) {
	t.resp.UpdateProfile(p, openaiKey)
}

// HandleEvent processes one Bot API update.
func (t *telegramAdapter) HandleEvent(ctx context.Context, event json.RawMessage) error {
	var upd tgbotapi.Update
	if err := json.Unmarshal(event, &upd); err != nil {
		return fmt.Errorf("telegram: decoding update: %w", err)
	}
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return nil
	}

	var userText string
	switch {
	case msg.Text != "":
		userText = msg.Text
	case msg.Voice != nil || msg.Audio != nil:
		userText = placeholderTelegramVoice
	default:
		return nil
	}

	var userName string
	if msg.From != nil {
		userName = msg.From.FirstName
		if userName == "" {
			userName = msg.From.UserName
		}
	}

	chatID := msg.Chat.ID
	reply := t.resp.Reply(ctx, strconv.FormatInt(chatID, 10), userName, userText)

	t.resp.deliver(ctx, t.id, reply,
		func() error {
			out := tgbotapi.NewMessage(chatID, reply)
			out.ParseMode = tgbotapi.ModeHTML
			out.ReplyToMessageID = msg.MessageID
			_, err := t.api.Send(out)
			return err
		},
		func(audio []byte) error {
			voice := tgbotapi.NewVoice(chatID, tgbotapi.FileBytes{Name: "voice.ogg", Bytes: audio})
			voice.ReplyToMessageID = msg.MessageID
			_, err := t.api.Send(voice)
			return err
		},
	)
	return nil
}

var _ bot.Adapter = (*telegramAdapter)(nil)
