package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	sserr "github.com/scalde/scalde-go/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for this package.
const tracerName = "github.com/scalde/scalde-go/pkg/clients/minio"

// ObjectStore is the minio-go surface the client uses. It is satisfied by
// [*minio.Client] and by test mocks.
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
}

var _ ObjectStore = (*minio.Client)(nil)

// Client is a traced object storage client. It is safe for concurrent use.
type Client struct {
	store  ObjectStore
	config *Config
	tracer trace.Tracer
}

// NewClient validates cfg, builds the minio-go client and probes the
// server with BucketExists.
//
// Error codes returned:
//   - [sserr.CodeValidation]: invalid configuration
//   - [sserr.CodeUnavailableDependency]: the server cannot be reached
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, sserr.Wrap(err, sserr.CodeValidation, "minio: invalid configuration")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey.Value(), ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, sserr.Wrap(err, sserr.CodeValidation, "minio: failed to create client")
	}
	if _, err := mc.BucketExists(ctx, cfg.HealthBucket); err != nil {
		return nil, sserr.Wrap(err, sserr.CodeUnavailableDependency, "minio: failed to connect to server")
	}

	return &Client{store: mc, config: &cfg, tracer: otel.Tracer(tracerName)}, nil
}

// NewFromStore wraps an existing store, typically a mock. cfg may be nil.
func NewFromStore(store ObjectStore, cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Client{store: store, config: cfg, tracer: otel.Tracer(tracerName)}
}

// ReadObject downloads a whole object.
func (c *Client) ReadObject(ctx context.Context, bucket, name string) ([]byte, error) {
	ctx, span := c.startSpan(ctx, "ReadObject", bucket, fmt.Sprintf("GET %s/%s", bucket, name))

	obj, err := c.store.GetObject(ctx, bucket, name, minio.GetObjectOptions{})
	if err != nil {
		finishSpan(span, err)
		return nil, wrapError(err, "minio: get object failed")
	}
	defer obj.Close()

	// GetObject is lazy; a missing object only shows up on the first read.
	data, err := io.ReadAll(obj)
	finishSpan(span, err)
	if err != nil {
		return nil, wrapError(err, fmt.Sprintf("minio: read object %s/%s failed", bucket, name))
	}
	span.SetAttributes(attribute.Int("minio.object.size", len(data)))
	return data, nil
}

// WriteObject uploads data as one object.
func (c *Client) WriteObject(ctx context.Context, bucket, name string, data []byte, contentType string) error {
	ctx, span := c.startSpan(ctx, "WriteObject", bucket, fmt.Sprintf("PUT %s/%s", bucket, name))

	_, err := c.store.PutObject(ctx, bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	finishSpan(span, err)
	if err != nil {
		return wrapError(err, fmt.Sprintf("minio: write object %s/%s failed", bucket, name))
	}
	return nil
}

// ObjectExists reports whether an object is present, using StatObject so
// nothing is downloaded. A missing object or bucket is not an error.
func (c *Client) ObjectExists(ctx context.Context, bucket, name string) (bool, error) {
	ctx, span := c.startSpan(ctx, "StatObject", bucket, fmt.Sprintf("STAT %s/%s", bucket, name))
	_, err := c.store.StatObject(ctx, bucket, name, minio.StatObjectOptions{})
	if IsNotFound(err) {
		finishSpan(span, nil)
		return false, nil
	}
	finishSpan(span, err)
	if err != nil {
		return false, wrapError(err, fmt.Sprintf("minio: stat object %s/%s failed", bucket, name))
	}
	return true, nil
}

// ListObjects returns the names of the objects under prefix, recursively.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	ctx, span := c.startSpan(ctx, "ListObjects", bucket, fmt.Sprintf("LIST %s prefix=%s", bucket, prefix))

	var names []string
	for info := range c.store.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			finishSpan(span, info.Err)
			return nil, wrapError(info.Err, "minio: list objects failed")
		}
		names = append(names, info.Key)
	}
	finishSpan(span, nil)
	return names, nil
}

// EnsureBucket creates bucket unless it already exists.
func (c *Client) EnsureBucket(ctx context.Context, bucket string) error {
	ctx, span := c.startSpan(ctx, "EnsureBucket", bucket, "MAKE "+bucket)

	exists, err := c.store.BucketExists(ctx, bucket)
	if err == nil && !exists {
		err = c.store.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.config.Region})
	}
	finishSpan(span, err)
	if err != nil {
		return wrapError(err, "minio: ensure bucket failed")
	}
	return nil
}

// Health probes the server with BucketExists on the health bucket,
// applying [DefaultHealthTimeout] when ctx has no deadline.
func (c *Client) Health(ctx context.Context) error {
	ctx, span := c.startSpan(ctx, "Health", c.config.HealthBucket, "HEAD "+c.config.HealthBucket)
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultHealthTimeout)
		defer cancel()
	}

	_, err := c.store.BucketExists(ctx, c.config.HealthBucket)
	finishSpan(span, err)
	if err != nil {
		return sserr.Wrap(err, sserr.CodeUnavailableDependency, "minio: health check failed")
	}
	return nil
}

// Close is a no-op; minio-go keeps no pool that needs releasing.
func (c *Client) Close() {}

// IsNotFound reports whether err is a missing bucket or object.
func IsNotFound(err error) bool {
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return false
	}
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
}

func (c *Client) startSpan(ctx context.Context, op, bucket, statement string) (context.Context, trace.Span) {
	ctx, span := c.tracer.Start(ctx, "minio."+op, trace.WithSpanKind(trace.SpanKindClient))
	span.SetAttributes(
		attribute.String("db.system", "minio"),
		attribute.String("db.name", bucket),
		attribute.String("db.statement", truncateStatement(statement)),
	)
	return ctx, span
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// wrapError classifies err. Deadline overruns are retryable timeouts.
func wrapError(err error, message string) *sserr.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return sserr.Wrap(err, sserr.CodeTimeoutDatabase, message)
	}
	return sserr.Wrap(err, sserr.CodeInternalDatabase, message)
}
