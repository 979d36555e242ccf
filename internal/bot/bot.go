// Package bot is the command router: it receives operator commands over the
// Telegram Bot API, authenticates the single admin identity, parses intents,
// invokes the lifecycle manager and formats replies.
//
// Every update is handled on its own goroutine; ordering guarantees live in
// the lifecycle manager, not here. Command arguments are never logged (the
// /create command may carry a password).
package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/models"
)

// Lifecycle is the manager surface the router consumes.
type Lifecycle interface {
	Create(ctx context.Context, username string, days int, secret string) (*models.Account, error)
	Renew(ctx context.Context, username string, days int) (*models.Account, error)
	Lock(ctx context.Context, username string) (*models.Account, error)
	Unlock(ctx context.Context, username string) (*models.Account, error)
	Expire(ctx context.Context, username string) (*models.Account, error)
	Delete(ctx context.Context, username string) error
	List(ctx context.Context) ([]models.Account, error)
	Describe(ctx context.Context, username string) (*models.Account, string, error)
}

// Diagnostics runs allow-listed operator commands (the /exec escape hatch).
type Diagnostics interface {
	Run(ctx context.Context, commandLine string) (string, int, error)
}

type Bot struct {
	api       *tgbotapi.BotAPI
	adminID   int64
	lifecycle Lifecycle
	diag      Diagnostics
	logger    logging.Logger

	// hostInfoFn decorates create replies; replaced in tests.
	hostInfoFn func(ctx context.Context) (string, string)
}

// New connects to the Bot API. adminID is the only chat identity whose
// commands are accepted.
func New(token string, adminID int64, lc Lifecycle, d Diagnostics, logger logging.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("bot api: %w", err)
	}
	b := &Bot{
		api:       api,
		adminID:   adminID,
		lifecycle: lc,
		diag:      d,
		logger:    logger.With("module", "bot"),
	}
	b.hostInfoFn = b.hostInfo
	return b, nil
}

// Run polls for updates until the context is done.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30

	updates := b.api.GetUpdatesChan(cfg)

	b.logger.Info(ctx, "bot started", "account", b.api.Self.UserName, "admin", b.adminID)

	for {
		select {
		case <-ctx.Done():
			b.logger.Info(ctx, "stopping bot...")
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	cmdID := uuid.NewString()
	log := b.logger.With("cmd_id", cmdID)

	var reply string
	switch {
	case msg.From == nil || msg.From.ID != b.adminID:
		log.Warn(ctx, "message from non-admin ignored", "chat", msg.Chat.ID)
		reply = replyUnauthorized
	case !msg.IsCommand():
		reply = replyUnknown
	default:
		// arguments are deliberately not logged: /create may carry a password
		log.Info(ctx, "command received", "command", msg.Command())
		reply = b.dispatch(ctx, msg.Command(), strings.Fields(msg.CommandArguments()))
	}

	b.send(ctx, log, msg.Chat.ID, reply)
}

func (b *Bot) send(ctx context.Context, log logging.Logger, chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Error(ctx, "sending reply failed", "error", err.Error())
	}
}
