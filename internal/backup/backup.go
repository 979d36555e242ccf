// Package backup periodically uploads the tracking snapshot to an
// S3-compatible bucket. It reads exclusively through the store interface,
// so it can never observe a torn snapshot, and it is optional: deployments
// without a bucket configured simply do not run it.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/logging"
	"github.com/dmitrijs2005/accountkeeper/internal/models"
	"github.com/dmitrijs2005/accountkeeper/internal/store"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

// timeNow is a seam for tests.
var timeNow = time.Now

// ObjectPutter is the slice of the S3 client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Settings describe the target bucket and endpoint.
type S3Settings struct {
	User         string
	Password     string
	Bucket       string
	Region       string
	BaseEndpoint string
}

// NewClient builds an S3 client for the settings (static credentials and an
// optional endpoint override, e.g. for MinIO).
func NewClient(ctx context.Context, s S3Settings) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(s.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.User, s.Password, "",
		)))
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.BaseEndpoint)
		}
		o.UsePathStyle = true
	}), nil
}

type snapshotDocument struct {
	TakenAt  time.Time        `json:"taken_at"`
	Accounts []models.Account `json:"accounts"`
}

// Uploader ships periodic snapshots of the store to the bucket.
type Uploader struct {
	client    ObjectPutter
	bucket    string
	store     store.Store
	interval  time.Duration
	retryBase time.Duration
	logger    logging.Logger
}

func NewUploader(client ObjectPutter, bucket string, st store.Store, interval time.Duration, logger logging.Logger) *Uploader {
	return &Uploader{
		client:    client,
		bucket:    bucket,
		store:     st,
		interval:  interval,
		retryBase: time.Second,
		logger:    logger.With("module", "backup"),
	}
}

// objectKey partitions snapshots by date, with a random suffix so retries
// never overwrite an earlier good snapshot.
func objectKey() string {
	d := timeNow().UTC()
	return fmt.Sprintf("accounts/%d/%02d/%02d/%s.json", d.Year(), d.Month(), d.Day(), uuid.New())
}

// UploadOnce takes a snapshot and puts it into the bucket, retrying
// transient failures with exponential backoff.
func (u *Uploader) UploadOnce(ctx context.Context) error {
	accounts, err := u.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	doc := snapshotDocument{TakenAt: timeNow().UTC(), Accounts: accounts}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	key := objectKey()
	backoff := retry.WithMaxRetries(3, retry.NewExponential(u.retryBase))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(u.bucket),
			Key:         aws.String(key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}

	u.logger.Info(ctx, "snapshot uploaded", "key", key, "accounts", len(accounts))
	return nil
}

// Run uploads on the configured interval until the context is done. Upload
// failures are logged and retried on the next tick.
func (u *Uploader) Run(ctx context.Context) {
	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	u.logger.Info(ctx, "backup loop started", "interval", u.interval.String(), "bucket", u.bucket)

	for {
		select {
		case <-ctx.Done():
			u.logger.Info(ctx, "backup loop stopped")
			return
		case <-ticker.C:
			if err := u.UploadOnce(ctx); err != nil {
				u.logger.Error(ctx, "backup failed", "error", err.Error())
			}
		}
	}
}
