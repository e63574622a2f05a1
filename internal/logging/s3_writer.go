package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"eco_gateway/internal/queue"
	"eco_gateway/internal/utils"
)

// BatchWriter persists a batch of usage events and returns where it went.
type BatchWriter interface {
	WriteBatch(ctx context.Context, events []*queue.Event) (string, error)
}

// objectPutter is the slice of the S3 API the writer needs.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Writer handles writing batches of usage events to S3
type S3Writer struct {
	client  objectPutter
	bucket  string
	prefix  string
	podName string
	now     func() time.Time
	logger  *utils.Logger
}

// S3WriterConfig configures an S3Writer.
type S3WriterConfig struct {
	Bucket  string
	Region  string
	Prefix  string
	PodName string
	// Endpoint overrides the S3 endpoint (e.g. MinIO); path-style addressing
	// is used when set.
	Endpoint string
}

// NewS3Writer creates a new S3 writer from the default AWS credential chain
func NewS3Writer(ctx context.Context, cfg S3WriterConfig) (*S3Writer, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Writer(client, cfg.Bucket, cfg.Prefix, cfg.PodName), nil
}

func newS3Writer(client objectPutter, bucket, prefix, podName string) *S3Writer {
	return &S3Writer{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		podName: podName,
		now:     time.Now,
		logger:  utils.NewLogger("s3-writer"),
	}
}

// objectKey builds the S3 key for a batch written at t.
// Format: usage/2025/11/30/gateway-0-20251130-143022-123456789.jsonl
func (w *S3Writer) objectKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s%04d/%02d/%02d/%s-%s-%09d.jsonl",
		w.prefix,
		t.Year(),
		t.Month(),
		t.Day(),
		w.podName,
		t.Format("20060102-150405"),
		t.Nanosecond(),
	)
}

// WriteBatch writes a batch of usage events to S3 as a JSON Lines object.
// Returns the S3 key where the data was written.
func (w *S3Writer) WriteBatch(ctx context.Context, events []*queue.Event) (string, error) {
	if len(events) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	written := 0
	for _, ev := range events {
		if err := encoder.Encode(ev); err != nil {
			w.logger.Error("Failed to encode usage event", "event_id", ev.ID, "error", err)
			continue
		}
		written++
	}
	if written == 0 {
		return "", utils.Permanent(fmt.Errorf("no encodable events in batch of %d", len(events)))
	}

	key := w.objectKey(w.now())
	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	w.logger.Info("Wrote usage batch to S3", "key", key, "count", written, "bytes", buf.Len())
	return key, nil
}
