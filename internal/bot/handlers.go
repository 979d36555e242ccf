package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/diag"
	"github.com/dmitrijs2005/accountkeeper/internal/netx"
	"github.com/dmitrijs2005/accountkeeper/internal/payload"
)

const (
	replyUnauthorized = "Unauthorized."
	replyUnknown      = "Unknown command. Use /start to see commands."

	startText = "accountkeeper SSH panel\n" +
		"/create <username> <days> [password]\n" +
		"/renew <username> <days>\n" +
		"/expire <username>\n" +
		"/lock <username>\n" +
		"/unlock <username>\n" +
		"/delete <username>\n" +
		"/list\n" +
		"/info <username>\n" +
		"/payload <type> <host> <port>\n" +
		"/exec <cmd>\n"
)

// sshdConfigPath is a seam for tests.
var sshdConfigPath = "/etc/ssh/sshd_config"

// dispatch routes one parsed command to its handler and returns the reply
// text. It never panics outward; every outcome is a definite message.
func (b *Bot) dispatch(ctx context.Context, command string, args []string) string {
	switch command {
	case "start":
		return startText
	case "create":
		return b.handleCreate(ctx, args)
	case "renew":
		return b.handleRenew(ctx, args)
	case "expire":
		return b.handleExpire(ctx, args)
	case "lock":
		return b.handleLock(ctx, args)
	case "unlock":
		return b.handleUnlock(ctx, args)
	case "delete":
		return b.handleDelete(ctx, args)
	case "list":
		return b.handleList(ctx)
	case "info":
		return b.handleInfo(ctx, args)
	case "payload":
		return b.handlePayload(args)
	case "exec":
		return b.handleExec(ctx, args)
	default:
		return replyUnknown
	}
}

// errorReply maps the error taxonomy onto operator-facing text. Store
// failures after an authority mutation get their own wording so the
// operator knows the two sides may have drifted.
func errorReply(username string, err error) string {
	switch {
	case errors.Is(err, common.ErrAlreadyExists):
		return fmt.Sprintf("User %s already exists.", username)
	case errors.Is(err, common.ErrNotFound):
		return fmt.Sprintf("User %s is not tracked or does not exist.", username)
	case errors.Is(err, common.ErrValidation):
		return fmt.Sprintf("Invalid request: %v", err)
	case errors.Is(err, common.ErrStoreIO):
		return fmt.Sprintf("Tracking store update failed for %s; the account authority may already have been changed. Reconciliation may be required. (%v)", username, err)
	case errors.Is(err, common.ErrUnauthorized):
		return "Not allowed."
	default:
		return fmt.Sprintf("Operation on %s failed: %v", username, err)
	}
}

func (b *Bot) handleCreate(ctx context.Context, args []string) string {
	if len(args) < 2 {
		return "Usage: /create <username> <days> [password]"
	}
	username := args[0]
	days, err := strconv.Atoi(args[1])
	if err != nil {
		return "Days must be an integer."
	}
	secret := ""
	if len(args) >= 3 {
		secret = args[2]
	}

	record, err := b.lifecycle.Create(ctx, username, days, secret)
	if err != nil {
		return errorReply(username, err)
	}

	host, port := b.hostInfoFn(ctx)
	return fmt.Sprintf("User created\nUsername: %s\nPassword: %s\nExpires: %s\nHost/IP: %s\nPort: %s",
		record.Username, record.Secret, record.Expiry, host, port)
}

// hostInfo decorates the create reply with the public address and sshd
// port. Both are best-effort: detection failures never block creation.
func (b *Bot) hostInfo(ctx context.Context) (string, string) {
	ipCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	host := netx.PublicIP(ipCtx)
	if host == "" {
		host = "<not-detected>"
	}

	port := "22"
	if conf, err := os.ReadFile(sshdConfigPath); err == nil {
		port = netx.SSHDPort(string(conf))
	}
	return host, port
}

func (b *Bot) handleRenew(ctx context.Context, args []string) string {
	if len(args) < 2 {
		return "Usage: /renew <username> <days>"
	}
	username := args[0]
	days, err := strconv.Atoi(args[1])
	if err != nil {
		return "Days must be an integer."
	}

	record, err := b.lifecycle.Renew(ctx, username, days)
	if err != nil {
		return errorReply(username, err)
	}
	return fmt.Sprintf("User %s renewed for %d days. New expiry: %s", username, days, record.Expiry)
}

func (b *Bot) handleExpire(ctx context.Context, args []string) string {
	if len(args) < 1 {
		return "Usage: /expire <username>"
	}
	username := args[0]
	if _, err := b.lifecycle.Expire(ctx, username); err != nil {
		return errorReply(username, err)
	}
	return fmt.Sprintf("User %s expired (disabled).", username)
}

func (b *Bot) handleLock(ctx context.Context, args []string) string {
	if len(args) < 1 {
		return "Usage: /lock <username>"
	}
	username := args[0]
	if _, err := b.lifecycle.Lock(ctx, username); err != nil {
		return errorReply(username, err)
	}
	return fmt.Sprintf("User %s locked.", username)
}

func (b *Bot) handleUnlock(ctx context.Context, args []string) string {
	if len(args) < 1 {
		return "Usage: /unlock <username>"
	}
	username := args[0]
	if _, err := b.lifecycle.Unlock(ctx, username); err != nil {
		return errorReply(username, err)
	}
	return fmt.Sprintf("User %s unlocked.", username)
}

func (b *Bot) handleDelete(ctx context.Context, args []string) string {
	if len(args) < 1 {
		return "Usage: /delete <username>"
	}
	username := args[0]
	if err := b.lifecycle.Delete(ctx, username); err != nil {
		return errorReply(username, err)
	}
	return fmt.Sprintf("User %s deleted.", username)
}

func (b *Bot) handleList(ctx context.Context) string {
	accounts, err := b.lifecycle.List(ctx)
	if err != nil {
		return errorReply("list", err)
	}
	if len(accounts) == 0 {
		return "No users tracked yet."
	}

	var sb strings.Builder
	sb.WriteString("Tracked users:\n")
	for _, a := range accounts {
		fmt.Fprintf(&sb, "%s | expires: %s | status: %s\n", a.Username, a.Expiry, a.Status)
	}
	return sb.String()
}

func (b *Bot) handleInfo(ctx context.Context, args []string) string {
	if len(args) < 1 {
		return "Usage: /info <username>"
	}
	username := args[0]

	record, report, err := b.lifecycle.Describe(ctx, username)
	if err != nil {
		return errorReply(username, err)
	}
	return fmt.Sprintf("Info for %s:\nPassword: %s\nStatus: %s\n%s",
		record.Username, record.Secret, record.Status, report)
}

func (b *Bot) handlePayload(args []string) string {
	if len(args) < 3 {
		return "Usage: /payload <type> <host> <port>"
	}
	text := payload.Generate(args[0], args[1], args[2])
	return fmt.Sprintf("Payload (%s):\n%s", args[0], diag.Truncate(text))
}

func (b *Bot) handleExec(ctx context.Context, args []string) string {
	if len(args) < 1 {
		return "Usage: /exec <command>"
	}

	out, code, err := b.diag.Run(ctx, strings.Join(args, " "))
	if err != nil {
		return errorReply(args[0], err)
	}
	return fmt.Sprintf("Command exit %d\nOutput:\n%s", code, out)
}
