package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// ErrObjectNotFound is returned by Download when the requested key does not
// exist. Callers are expected to branch on it rather than parse S3 errors.
var ErrObjectNotFound = errors.New("object not found")

// Config holds object store connection configuration. Endpoint and
// path-style addressing support MinIO and other S3-compatible deployments.
type Config struct {
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UsePathStyle  bool
	PublicBaseURL string
}

// Client is a narrow blob client: store-by-key, fetch-by-key, list, delete,
// and access-URL generation. Objects are addressed as folder/name.
type Client struct {
	config    *Config
	s3        *s3.Client
	presigner *s3.PresignClient
	logger    *slog.Logger
}

// NewClient creates an object store client and verifies the bucket exists,
// creating it when absent.
func NewClient(ctx context.Context, config *Config, logger *slog.Logger) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, ""),
		),
	}

	if config.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:               config.Endpoint,
					HostnameImmutable: config.UsePathStyle,
					SigningRegion:     config.Region,
					Source:            aws.EndpointSourceCustom,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load object store config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = config.UsePathStyle
	})

	client := &Client{
		config:    config,
		s3:        s3Client,
		presigner: s3.NewPresignClient(s3Client),
		logger:    logger,
	}

	if err := client.ensureBucket(ctx); err != nil {
		return nil, err
	}

	logger.Info("Object store client initialized",
		slog.String("endpoint", config.Endpoint),
		slog.String("bucket", config.Bucket),
	)

	return client, nil
}

// ensureBucket creates the configured bucket when it does not exist yet.
func (c *Client) ensureBucket(ctx context.Context) error {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.config.Bucket),
	})
	if err == nil {
		return nil
	}

	c.logger.Info("Bucket not found, creating",
		slog.String("bucket", c.config.Bucket),
	)

	_, err = c.s3.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(c.config.Bucket),
	})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket %q: %w", c.config.Bucket, err)
	}

	return nil
}

// Key joins a folder and object name into a full storage key.
func Key(folder, name string) string {
	folder = strings.Trim(folder, "/")
	name = strings.TrimPrefix(name, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

// Upload stores binary content under folder/name.
func (c *Client) Upload(ctx context.Context, folder, name string, content []byte, contentType string) error {
	key := Key(folder, name)

	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(content),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %q: %w", key, err)
	}

	c.logger.Debug("Object uploaded",
		slog.String("key", key),
		slog.Int("size_bytes", len(content)),
		slog.String("content_type", contentType),
	)

	return nil
}

// Download fetches the object stored under folder/name. Returns
// ErrObjectNotFound when the key does not exist.
func (c *Client) Download(ctx context.Context, folder, name string) ([]byte, error) {
	key := Key(folder, name)

	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to download %q: %w", key, err)
	}
	defer out.Body.Close()

	content, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", key, err)
	}

	return content, nil
}

// Exists reports whether an object is stored under folder/name.
func (c *Client) Exists(ctx context.Context, folder, name string) (bool, error) {
	key := Key(folder, name)

	_, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %q: %w", key, err)
	}

	return true, nil
}

// List returns the object names under a folder, optionally filtered by an
// additional name prefix.
func (c *Client) List(ctx context.Context, folder, prefix string) ([]string, error) {
	fullPrefix := Key(folder, prefix)

	var names []string
	paginator := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.config.Bucket),
		Prefix: aws.String(fullPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %q: %w", fullPrefix, err)
		}
		for _, obj := range page.Contents {
			names = append(names, aws.ToString(obj.Key))
		}
	}

	return names, nil
}

// Delete removes the object stored under folder/name. Deleting an absent key
// is not an error.
func (c *Client) Delete(ctx context.Context, folder, name string) error {
	key := Key(folder, name)

	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}

	c.logger.Debug("Object deleted",
		slog.String("key", key),
	)

	return nil
}

// PresignedURL generates a time-limited signed URL for folder/name.
func (c *Client) PresignedURL(ctx context.Context, folder, name string, expires time.Duration) (string, error) {
	key := Key(folder, name)

	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("failed to presign %q: %w", key, err)
	}

	return req.URL, nil
}

// PublicURL builds the unsigned public URL for folder/name. It assumes the
// bucket allows anonymous reads; no request is made.
func (c *Client) PublicURL(folder, name string) string {
	base := c.config.PublicBaseURL
	if base == "" {
		base = c.config.Endpoint
	}
	base = strings.TrimSuffix(base, "/")
	return fmt.Sprintf("%s/%s/%s", base, c.config.Bucket, Key(folder, name))
}

// Healthy reports whether the bucket is reachable.
func (c *Client) Healthy(ctx context.Context) error {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.config.Bucket),
	})
	if err != nil {
		return fmt.Errorf("object store unreachable: %w", err)
	}
	return nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.config.Bucket
}
