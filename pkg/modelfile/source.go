package modelfile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/exp/mmap"
)

// Source is a named document the loader can open. Open returns an error
// wrapping fs.ErrNotExist when the document does not exist.
type Source interface {
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileSource reads a document from the local filesystem through a
// read-only memory map.
type FileSource struct {
	Path string
}

// Name implements Source.
func (s FileSource) Name() string { return s.Path }

// Open implements Source.
func (s FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := mmap.Open(s.Path)
	if err != nil {
		return nil, err
	}
	return &mappedReader{SectionReader: io.NewSectionReader(r, 0, int64(r.Len())), m: r}, nil
}

type mappedReader struct {
	*io.SectionReader
	m *mmap.ReaderAt
}

func (r *mappedReader) Close() error {
	return r.m.Close()
}

// FSSource reads a document from an fs.FS, typically an embedded one.
type FSSource struct {
	FS   fs.FS
	Path string
}

// Name implements Source.
func (s FSSource) Name() string { return "fs:" + s.Path }

// Open implements Source.
func (s FSSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.FS.Open(s.Path)
}

// S3API is the subset of the S3 client used by S3Source.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads a document from an S3 bucket.
type S3Source struct {
	Client S3API
	Bucket string
	Key    string
}

// S3Options configures NewS3Source. Empty fields fall back to the default
// AWS credential chain and region.
type S3Options struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Source creates a source for s3://bucket/key using the default AWS
// configuration chain.
func NewS3Source(ctx context.Context, bucket, key string, opts S3Options) (*S3Source, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Source{Client: client, Bucket: bucket, Key: key}, nil
}

// Name implements Source.
func (s *S3Source) Name() string { return "s3://" + s.Bucket + "/" + s.Key }

// Open implements Source.
func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%s: %w", s.Name(), fs.ErrNotExist)
		}
		return nil, fmt.Errorf("get %s: %w", s.Name(), err)
	}
	return out.Body, nil
}

// OpenLocation returns the source for a location string: "s3://bucket/key"
// selects S3, anything else is a local file path.
func OpenLocation(ctx context.Context, location string, s3opts S3Options) (Source, error) {
	if !strings.HasPrefix(location, "s3://") {
		return FileSource{Path: location}, nil
	}
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", location, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return nil, fmt.Errorf("s3 location %q needs a bucket and a key", location)
	}
	return NewS3Source(ctx, u.Host, key, s3opts)
}
