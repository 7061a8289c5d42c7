package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/ekisa-team/voicescribe/internal/config"
	"github.com/ekisa-team/voicescribe/internal/transport"
)

// Error definitions for the telegram package.
var (
	ErrFileURL  = errors.New("telegram: failed to resolve file URL")
	ErrDownload = errors.New("telegram: file download failed")
	ErrStatus   = errors.New("telegram: unexpected download status")
)

// botAPI is the subset of *tgbotapi.BotAPI the transport uses.
type botAPI interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	GetFileDirectURL(fileID string) (string, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot is a long-polling Telegram transport. It implements
// transport.Downloader and transport.Replier.
type Bot struct {
	api         botAPI
	client      *http.Client
	limiter     *rate.Limiter
	sem         *semaphore.Weighted
	pollTimeout int
	log         *slog.Logger
	wg          sync.WaitGroup
}

// New connects to the Bot API with the configured token.
func New(cfg config.TelegramConfig, log *slog.Logger) (*Bot, error) {
	client := &http.Client{Timeout: time.Duration(cfg.PollTimeout+30) * time.Second}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: failed to connect: %w", err)
	}
	api.Debug = cfg.Debug

	b := newBot(api, cfg, log)
	b.log.Info("Authorized on Telegram", "username", api.Self.UserName)

	return b, nil
}

func newBot(api botAPI, cfg config.TelegramConfig, log *slog.Logger) *Bot {
	if log == nil {
		log = slog.Default()
	}

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	limit := rate.Inf
	if cfg.SendRate > 0 {
		limit = rate.Limit(cfg.SendRate)
	}

	return &Bot{
		api:         api,
		client:      &http.Client{},
		limiter:     rate.NewLimiter(limit, 1),
		sem:         semaphore.NewWeighted(int64(maxConcurrent)),
		pollTimeout: cfg.PollTimeout,
		log:         log.With("transport", "telegram"),
	}
}

// Run polls for updates and dispatches each message to h on its own
// goroutine, with at most max_concurrent handlers in flight. It returns when
// ctx is canceled or the update channel closes, after in-flight handlers
// finish. Handlers run on a context detached from ctx's cancellation so a
// shutdown does not kill a half-done transcription.
func (b *Bot) Run(ctx context.Context, h transport.Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.pollTimeout
	u.AllowedUpdates = []string{"message"}

	updates := b.api.GetUpdatesChan(u)
	defer b.wg.Wait()
	defer b.api.StopReceivingUpdates()

	handlerCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			b.log.Info("Stopping update loop")
			return nil

		case update, ok := <-updates:
			if !ok {
				return nil
			}

			msg := toMessage(update.Message)
			if msg == nil {
				continue
			}

			if err := b.sem.Acquire(ctx, 1); err != nil {
				return nil
			}

			b.wg.Add(1)
			go b.dispatch(handlerCtx, h, msg)
		}
	}
}

// dispatch runs one handler and releases its slot.
func (b *Bot) dispatch(ctx context.Context, h transport.Handler, msg *transport.Message) {
	defer b.wg.Done()
	defer b.sem.Release(1)
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Handler panicked", "chat_id", msg.ChatID, "message_id", msg.MessageID, "panic", r)
		}
	}()

	if err := h.Handle(ctx, msg); err != nil {
		b.log.Error("Failed to handle message", "chat_id", msg.ChatID, "message_id", msg.MessageID, "error", err)
	}
}

// Download fetches the file behind fileID into dst.
func (b *Bot) Download(ctx context.Context, fileID, dst string) error {
	fileURL, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDownload, redact(err))
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDownload, redact(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDownload, err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("%w: %w", ErrDownload, redact(err))
	}

	return f.Close()
}

// ReplyText sends text as a reply to msg.
func (b *Bot) ReplyText(ctx context.Context, msg *transport.Message, text string) error {
	reply := tgbotapi.NewMessage(msg.ChatID, text)
	reply.ReplyToMessageID = msg.MessageID

	return b.send(ctx, reply)
}

// ReplyDocument uploads the file at path as a reply to msg.
func (b *Bot) ReplyDocument(ctx context.Context, msg *transport.Message, path string) error {
	doc := tgbotapi.NewDocument(msg.ChatID, tgbotapi.FilePath(path))
	doc.ReplyToMessageID = msg.MessageID

	return b.send(ctx, doc)
}

// send waits for the outbound rate limiter, then sends c.
func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}

	if _, err := b.api.Send(c); err != nil {
		return fmt.Errorf("telegram: send: %w", redact(err))
	}

	return nil
}

// redact strips request URLs, which embed the bot token, from err.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}

	return err
}
