package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config configures S3Shipper. Endpoint is set for S3-compatible stores
// (MinIO, R2) and switches the client to path-style addressing.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	// BatchSize entries (default 500) or FlushInterval (default 1m), whichever
	// comes first, produce one NDJSON object.
	BatchSize     int
	FlushInterval time.Duration
}

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Shipper archives audit entries as newline-delimited JSON objects under
// <prefix>/YYYY/MM/DD/.
type S3Shipper struct {
	cfg    S3Config
	client putObjectAPI
	now    func() time.Time

	mu      sync.Mutex
	pending []*Entry

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewS3Shipper builds an S3 client from cfg (static keys when given, otherwise
// the default AWS credential chain) and starts the periodic flusher.
func NewS3Shipper(ctx context.Context, cfg *S3Config) (*S3Shipper, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 region is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return newS3Shipper(*cfg, s3.NewFromConfig(awsCfg, s3Opts...)), nil
}

func newS3Shipper(cfg S3Config, client putObjectAPI) *S3Shipper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Minute
	}
	s := &S3Shipper{
		cfg:     cfg,
		client:  client,
		now:     time.Now,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *S3Shipper) run() {
	defer close(s.stopped)
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Flush(context.Background()); err != nil {
				slog.Warn("audit s3 flush failed", "bucket", s.cfg.Bucket, "error", err)
			}
		case <-s.done:
			return
		}
	}
}

// Ship buffers entry and uploads the buffer once it reaches BatchSize.
func (s *S3Shipper) Ship(ctx context.Context, entry *Entry) error {
	s.mu.Lock()
	s.pending = append(s.pending, entry)
	full := len(s.pending) >= s.cfg.BatchSize
	s.mu.Unlock()

	if full {
		return s.Flush(ctx)
	}
	return nil
}

// Flush uploads buffered entries as one object. On failure the entries are put
// back at the front of the buffer.
func (s *S3Shipper) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range batch {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("failed to encode audit entry %s: %w", e.ID, err)
		}
	}

	key := s.objectKey(s.now().UTC())
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		s.mu.Lock()
		s.pending = append(batch, s.pending...)
		s.mu.Unlock()
		return fmt.Errorf("failed to upload audit archive %s: %w", key, err)
	}
	return nil
}

func (s *S3Shipper) objectKey(t time.Time) string {
	name := fmt.Sprintf("%s-%s.ndjson", t.Format("150405"), uuid.NewString())
	return path.Join(s.cfg.Prefix, t.Format("2006/01/02"), name)
}

// Close stops the flusher and uploads whatever is still buffered.
func (s *S3Shipper) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	<-s.stopped

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Flush(ctx)
}
