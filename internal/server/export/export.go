// Package export uploads a snapshot of all user records to S3-compatible
// object storage as JSON lines. Passwords are exported in their stored,
// encrypted form.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/msauth/internal/logging"
	"github.com/dmitrijs2005/msauth/internal/server/config"
	"github.com/dmitrijs2005/msauth/internal/server/models"
)

var ErrNotConfigured = errors.New("export bucket is not configured")

var loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

// ObjectPutter is the part of *s3.Client the exporter needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Lister returns every user record.
type Lister interface {
	ListUsers(ctx context.Context) ([]*models.User, error)
}

// NewS3Client builds a client from the S3 settings in cfg. Static
// credentials are used when an access key is configured, otherwise the
// default AWS credential chain applies. A base endpoint switches to
// path-style addressing so MinIO works.
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

type Exporter struct {
	users  Lister
	client ObjectPutter
	bucket string
	prefix string
	logger logging.Logger
	now    func() time.Time
}

func NewExporter(users Lister, client ObjectPutter, bucket, prefix string, l logging.Logger) *Exporter {
	return &Exporter{
		users:  users,
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: l,
		now:    time.Now,
	}
}

// Result describes an uploaded snapshot.
type Result struct {
	Bucket string
	Key    string
	Count  int
}

func (r Result) URI() string {
	return "s3://" + r.Bucket + "/" + r.Key
}

// Export writes one JSON object per user to <prefix>users-<UTC time>.jsonl.
func (e *Exporter) Export(ctx context.Context) (*Result, error) {
	if e.bucket == "" {
		return nil, ErrNotConfigured
	}

	list, err := e.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, u := range list {
		if err := enc.Encode(u); err != nil {
			return nil, fmt.Errorf("encode user %d: %w", u.ID, err)
		}
	}

	key := e.prefix + "users-" + e.now().UTC().Format("20060102T150405Z") + ".jsonl"
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(e.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String("application/x-ndjson"),
	})
	if err != nil {
		return nil, fmt.Errorf("put s3://%s/%s: %w", e.bucket, key, err)
	}

	res := &Result{Bucket: e.bucket, Key: key, Count: len(list)}
	e.logger.Info(ctx, "users exported", "uri", res.URI(), "count", res.Count)
	return res, nil
}
