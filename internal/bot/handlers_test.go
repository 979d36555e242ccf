package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/models"
	"github.com/stretchr/testify/assert"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakeLifecycle struct {
	record   *models.Account
	report   string
	accounts []models.Account
	err      error

	lastOp string
}

func (f *fakeLifecycle) Create(ctx context.Context, username string, days int, secret string) (*models.Account, error) {
	f.lastOp = fmt.Sprintf("create %s %d", username, days)
	return f.record, f.err
}

func (f *fakeLifecycle) Renew(ctx context.Context, username string, days int) (*models.Account, error) {
	f.lastOp = fmt.Sprintf("renew %s %d", username, days)
	return f.record, f.err
}

func (f *fakeLifecycle) Lock(ctx context.Context, username string) (*models.Account, error) {
	f.lastOp = "lock " + username
	return f.record, f.err
}

func (f *fakeLifecycle) Unlock(ctx context.Context, username string) (*models.Account, error) {
	f.lastOp = "unlock " + username
	return f.record, f.err
}

func (f *fakeLifecycle) Expire(ctx context.Context, username string) (*models.Account, error) {
	f.lastOp = "expire " + username
	return f.record, f.err
}

func (f *fakeLifecycle) Delete(ctx context.Context, username string) error {
	f.lastOp = "delete " + username
	return f.err
}

func (f *fakeLifecycle) List(ctx context.Context) ([]models.Account, error) {
	f.lastOp = "list"
	return f.accounts, f.err
}

func (f *fakeLifecycle) Describe(ctx context.Context, username string) (*models.Account, string, error) {
	f.lastOp = "describe " + username
	return f.record, f.report, f.err
}

type fakeDiag struct {
	out  string
	code int
	err  error
}

func (f *fakeDiag) Run(ctx context.Context, commandLine string) (string, int, error) {
	return f.out, f.code, f.err
}

func sampleRecord() *models.Account {
	exp, _ := models.ParseExpiry("2024-05-31")
	return &models.Account{
		Username:  "alice",
		Secret:    "p4ssw0rd!",
		Expiry:    exp,
		Status:    models.StatusActive,
		CreatedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func newTestBot(lc Lifecycle, d Diagnostics) *Bot {
	b := &Bot{
		adminID:   42,
		lifecycle: lc,
		diag:      d,
		logger:    testLogger(),
	}
	b.hostInfoFn = func(ctx context.Context) (string, string) { return "198.51.100.1", "2222" }
	return b
}

func TestDispatch_Start(t *testing.T) {
	b := newTestBot(&fakeLifecycle{}, &fakeDiag{})

	got := b.dispatch(context.Background(), "start", nil)
	assert.Contains(t, got, "/create <username> <days> [password]")
	assert.Contains(t, got, "/exec <cmd>")
}

func TestDispatch_Unknown(t *testing.T) {
	b := newTestBot(&fakeLifecycle{}, &fakeDiag{})

	got := b.dispatch(context.Background(), "frobnicate", nil)
	assert.Equal(t, replyUnknown, got)
}

func TestCreate_Reply(t *testing.T) {
	lc := &fakeLifecycle{record: sampleRecord()}
	b := newTestBot(lc, &fakeDiag{})

	got := b.dispatch(context.Background(), "create", []string{"alice", "30"})
	assert.Equal(t, "create alice 30", lc.lastOp)
	assert.Contains(t, got, "Username: alice")
	assert.Contains(t, got, "Password: p4ssw0rd!")
	assert.Contains(t, got, "Expires: 2024-05-31")
	assert.Contains(t, got, "Host/IP: 198.51.100.1")
	assert.Contains(t, got, "Port: 2222")
}

func TestCreate_Usage(t *testing.T) {
	b := newTestBot(&fakeLifecycle{}, &fakeDiag{})

	assert.Contains(t, b.dispatch(context.Background(), "create", []string{"alice"}), "Usage:")
	assert.Equal(t, "Days must be an integer.",
		b.dispatch(context.Background(), "create", []string{"alice", "soon"}))
}

func TestCreate_AlreadyExists(t *testing.T) {
	lc := &fakeLifecycle{err: fmt.Errorf("user alice already exists: %w", common.ErrAlreadyExists)}
	b := newTestBot(lc, &fakeDiag{})

	got := b.dispatch(context.Background(), "create", []string{"alice", "30"})
	assert.Equal(t, "User alice already exists.", got)
}

func TestRenew_Reply(t *testing.T) {
	lc := &fakeLifecycle{record: sampleRecord()}
	b := newTestBot(lc, &fakeDiag{})

	got := b.dispatch(context.Background(), "renew", []string{"alice", "10"})
	assert.Equal(t, "renew alice 10", lc.lastOp)
	assert.Equal(t, "User alice renewed for 10 days. New expiry: 2024-05-31", got)
}

func TestRenew_NotTracked(t *testing.T) {
	lc := &fakeLifecycle{err: fmt.Errorf("user ghost: %w", common.ErrNotFound)}
	b := newTestBot(lc, &fakeDiag{})

	got := b.dispatch(context.Background(), "renew", []string{"ghost", "10"})
	assert.Equal(t, "User ghost is not tracked or does not exist.", got)
}

func TestLockUnlockExpireDelete_Replies(t *testing.T) {
	lc := &fakeLifecycle{record: sampleRecord()}
	b := newTestBot(lc, &fakeDiag{})
	ctx := context.Background()

	assert.Equal(t, "User alice locked.", b.dispatch(ctx, "lock", []string{"alice"}))
	assert.Equal(t, "User alice unlocked.", b.dispatch(ctx, "unlock", []string{"alice"}))
	assert.Equal(t, "User alice expired (disabled).", b.dispatch(ctx, "expire", []string{"alice"}))
	assert.Equal(t, "User alice deleted.", b.dispatch(ctx, "delete", []string{"alice"}))
}

func TestList_Reply(t *testing.T) {
	exp, _ := models.ParseExpiry("2024-05-31")
	lc := &fakeLifecycle{accounts: []models.Account{
		{Username: "alice", Expiry: exp, Status: models.StatusActive},
		{Username: "bob", Expiry: models.Never(), Status: models.StatusLocked},
	}}
	b := newTestBot(lc, &fakeDiag{})

	got := b.dispatch(context.Background(), "list", nil)
	assert.Contains(t, got, "alice | expires: 2024-05-31 | status: active")
	assert.Contains(t, got, "bob | expires: never | status: locked")
}

func TestList_Empty(t *testing.T) {
	b := newTestBot(&fakeLifecycle{}, &fakeDiag{})

	assert.Equal(t, "No users tracked yet.", b.dispatch(context.Background(), "list", nil))
}

func TestInfo_Reply(t *testing.T) {
	lc := &fakeLifecycle{record: sampleRecord(), report: "Account expires: May 31, 2024"}
	b := newTestBot(lc, &fakeDiag{})

	got := b.dispatch(context.Background(), "info", []string{"alice"})
	assert.Contains(t, got, "Info for alice:")
	assert.Contains(t, got, "Password: p4ssw0rd!")
	assert.Contains(t, got, "Account expires: May 31, 2024")
}

func TestPayload_Reply(t *testing.T) {
	b := newTestBot(&fakeLifecycle{}, &fakeDiag{})

	got := b.dispatch(context.Background(), "payload", []string{"ssh-ws", "example.com", "80"})
	assert.True(t, strings.HasPrefix(got, "Payload (ssh-ws):\n"))
	assert.Contains(t, got, "Upgrade: websocket")
}

func TestExec_Reply(t *testing.T) {
	b := newTestBot(&fakeLifecycle{}, &fakeDiag{out: "load average: 0.42", code: 0})

	got := b.dispatch(context.Background(), "exec", []string{"uptime"})
	assert.Equal(t, "Command exit 0\nOutput:\nload average: 0.42", got)
}

func TestExec_Rejected(t *testing.T) {
	b := newTestBot(&fakeLifecycle{}, &fakeDiag{err: fmt.Errorf("command %q is not allow-listed: %w", "rm", common.ErrUnauthorized)})

	got := b.dispatch(context.Background(), "exec", []string{"rm", "-rf", "/"})
	assert.Equal(t, "Not allowed.", got)
}

func TestErrorReply_StoreIO(t *testing.T) {
	err := fmt.Errorf("%w: rename snapshot: disk full", common.ErrStoreIO)
	got := errorReply("alice", err)
	assert.Contains(t, got, "Reconciliation may be required")
}
