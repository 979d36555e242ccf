package backup

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/models"
	filestore "github.com/dmitrijs2005/accountkeeper/internal/store/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type fakePutter struct {
	inputs []*s3.PutObjectInput
	bodies [][]byte
	errs   []error
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.inputs = append(f.inputs, in)
	body, _ := io.ReadAll(in.Body)
	f.bodies = append(f.bodies, body)
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	return &s3.PutObjectOutput{}, nil
}

func newStoreWithAccount(t *testing.T) *filestore.Store {
	t.Helper()
	st, err := filestore.Open(filepath.Join(t.TempDir(), "accounts.json"))
	require.NoError(t, err)
	require.NoError(t, st.Insert(context.Background(), &models.Account{
		Username:  "alice",
		Secret:    "s3cret",
		Expiry:    models.Never(),
		Status:    models.StatusActive,
		CreatedAt: time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC),
	}))
	return st
}

func TestUploadOnce(t *testing.T) {
	orig := timeNow
	timeNow = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { timeNow = orig })

	putter := &fakePutter{}
	u := NewUploader(putter, "vault", newStoreWithAccount(t), time.Minute, testLogger())

	require.NoError(t, u.UploadOnce(context.Background()))

	require.Len(t, putter.inputs, 1)
	in := putter.inputs[0]
	assert.Equal(t, "vault", *in.Bucket)
	assert.True(t, strings.HasPrefix(*in.Key, "accounts/2024/05/01/"))
	assert.True(t, strings.HasSuffix(*in.Key, ".json"))

	var doc struct {
		TakenAt  time.Time        `json:"taken_at"`
		Accounts []models.Account `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal(putter.bodies[0], &doc))
	require.Len(t, doc.Accounts, 1)
	assert.Equal(t, "alice", doc.Accounts[0].Username)
}

func TestUploadOnce_RetriesTransientFailure(t *testing.T) {
	putter := &fakePutter{errs: []error{errors.New("connection reset")}}
	u := NewUploader(putter, "vault", newStoreWithAccount(t), time.Minute, testLogger())
	u.retryBase = time.Millisecond

	require.NoError(t, u.UploadOnce(context.Background()))
	assert.Len(t, putter.inputs, 2, "one failure, one successful retry")
}

func TestUploadOnce_GivesUpEventually(t *testing.T) {
	putter := &fakePutter{errs: []error{
		errors.New("nope"), errors.New("nope"), errors.New("nope"), errors.New("nope"),
	}}
	u := NewUploader(putter, "vault", newStoreWithAccount(t), time.Minute, testLogger())
	u.retryBase = time.Millisecond

	err := u.UploadOnce(context.Background())
	assert.Error(t, err)
}
