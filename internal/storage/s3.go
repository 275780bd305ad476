// Package storage issues presigned S3 upload URLs for book covers and
// PDFs.  Any S3-compatible store works; MinIO is used in development.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/iliyamo/bookcore/internal/config"
)

// Upload kinds.
const (
	KindCover = "cover"
	KindPDF   = "pdf"
)

// PresignTTL is how long an upload URL stays valid.
const PresignTTL = 15 * time.Minute

var (
	ErrDisabled    = errors.New("uploads are not configured")
	ErrInvalidKind = errors.New("upload kind must be cover or pdf")
)

// seams for tests
var (
	loadDefaultAWSConfig  = awsconfig.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
	newS3PresignClient    = func(c *s3.Client) *s3.PresignClient { return s3.NewPresignClient(c) }
)

// Upload is a presigned PUT the client performs directly against the
// bucket.  PublicURL is what gets stored on the book afterwards.
type Upload struct {
	Method    string    `json:"method"`
	URL       string    `json:"url"`
	Key       string    `json:"key"`
	PublicURL string    `json:"public_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Presigner creates upload URLs for one bucket.
type Presigner struct {
	cfg    config.S3Config
	client *s3.PresignClient
}

// NewPresigner builds the S3 client.  It returns ErrDisabled when no
// bucket is configured.
func NewPresigner(ctx context.Context, cfg config.S3Config) (*Presigner, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &Presigner{cfg: cfg, client: newS3PresignClient(client)}, nil
}

// PresignUpload returns a PUT URL for a new object under covers/ or pdfs/.
// The object key keeps the file extension and gets a random name.
func (p *Presigner) PresignUpload(ctx context.Context, kind, filename string) (Upload, error) {
	prefix, contentType, err := objectClass(kind, filename)
	if err != nil {
		return Upload{}, err
	}
	key := prefix + "/" + uuid.NewString() + strings.ToLower(path.Ext(path.Base(filename)))
	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(PresignTTL))
	if err != nil {
		return Upload{}, fmt.Errorf("presign put: %w", err)
	}
	return Upload{
		Method:    req.Method,
		URL:       req.URL,
		Key:       key,
		PublicURL: p.publicURL(key),
		ExpiresAt: time.Now().UTC().Add(PresignTTL),
	}, nil
}

func (p *Presigner) publicURL(key string) string {
	switch {
	case p.cfg.PublicBaseURL != "":
		return p.cfg.PublicBaseURL + "/" + key
	case p.cfg.Endpoint != "":
		return p.cfg.Endpoint + "/" + p.cfg.Bucket + "/" + key
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.cfg.Bucket, p.cfg.Region, key)
	}
}

func objectClass(kind, filename string) (prefix, contentType string, err error) {
	ext := strings.ToLower(path.Ext(filename))
	switch kind {
	case KindCover:
		switch ext {
		case ".jpg", ".jpeg":
			return "covers", "image/jpeg", nil
		case ".png":
			return "covers", "image/png", nil
		case ".webp":
			return "covers", "image/webp", nil
		}
		return "", "", fmt.Errorf("%w: unsupported cover type %q", ErrInvalidKind, ext)
	case KindPDF:
		if ext != ".pdf" {
			return "", "", fmt.Errorf("%w: expected a .pdf file", ErrInvalidKind)
		}
		return "pdfs", "application/pdf", nil
	}
	return "", "", ErrInvalidKind
}
