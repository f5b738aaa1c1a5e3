package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ErrUnsupportedURL is returned by [Open] for schemes other than file and s3.
var ErrUnsupportedURL = errors.New("storage: unsupported url")

// S3Options configures the client built by [NewS3Client].
type S3Options struct {
	// Region overrides the region resolved from the environment and
	// shared config.
	Region string
	// Endpoint overrides the AWS endpoint for S3-compatible services.
	// Setting it also switches to path-style addressing.
	Endpoint string
	// AccessKeyID and SecretAccessKey, when both set, replace the default
	// credential chain with static credentials.
	AccessKeyID     string
	SecretAccessKey string
	// Client, when set, is used instead of building one.
	Client S3Client
}

// defaultRegion applies when neither opts nor the shared config name one.
const defaultRegion = "us-east-1"

// NewS3Client builds an S3 client from the default AWS configuration chain
// (environment, shared config and credentials files, SSO, IMDS).
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = defaultRegion
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Open returns the store named by rawURL:
//
//	file:///var/archives     local directory
//	./archives               local directory (no scheme)
//	s3://bucket/some/prefix  S3 bucket with key prefix
func Open(ctx context.Context, rawURL string, opts S3Options) (FileStore, error) {
	if !strings.Contains(rawURL, "://") {
		return NewLocal(rawURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("storage: parse %q: %w", rawURL, err)
	}
	switch u.Scheme {
	case "file":
		dir := u.Path
		if u.Host != "" {
			dir = u.Host + u.Path
		}
		if dir == "" {
			return nil, fmt.Errorf("%w: %s has no path", ErrUnsupportedURL, rawURL)
		}
		return NewLocal(dir)
	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("%w: %s has no bucket", ErrUnsupportedURL, rawURL)
		}
		client := opts.Client
		if client == nil {
			c, err := NewS3Client(ctx, opts)
			if err != nil {
				return nil, err
			}
			client = c
		}
		return NewS3(client, u.Host, strings.Trim(u.Path, "/")), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, rawURL)
	}
}
