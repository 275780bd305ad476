package storage

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bookcore/internal/config"
)

func minioConfig() config.S3Config {
	return config.S3Config{
		Bucket:       "books",
		Region:       "us-east-1",
		Endpoint:     "http://127.0.0.1:9000",
		AccessKey:    "minioadmin",
		SecretKey:    "minioadmin",
		UsePathStyle: true,
	}
}

func TestNewPresigner_Disabled(t *testing.T) {
	_, err := NewPresigner(context.Background(), config.S3Config{})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNewPresigner_LoadError(t *testing.T) {
	orig := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = orig })
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("boom")
	}
	_, err := NewPresigner(context.Background(), minioConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestPresignUpload(t *testing.T) {
	p, err := NewPresigner(context.Background(), minioConfig())
	require.NoError(t, err)

	up, err := p.PresignUpload(context.Background(), KindCover, "Dune Cover.JPG")
	require.NoError(t, err)
	assert.Equal(t, "PUT", up.Method)
	assert.True(t, strings.HasPrefix(up.Key, "covers/"))
	assert.True(t, strings.HasSuffix(up.Key, ".jpg"))
	assert.Equal(t, "http://127.0.0.1:9000/books/"+up.Key, up.PublicURL)

	u, err := url.Parse(up.URL)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", u.Host)
	assert.Equal(t, "/books/"+up.Key, u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))

	pdf, err := p.PresignUpload(context.Background(), KindPDF, "dune.pdf")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(pdf.Key, "pdfs/"))
}

func TestPresignUpload_RejectsKinds(t *testing.T) {
	p, err := NewPresigner(context.Background(), minioConfig())
	require.NoError(t, err)

	for _, tc := range []struct{ kind, file string }{
		{"avatar", "me.png"},
		{KindCover, "cover.gif"},
		{KindPDF, "book.epub"},
	} {
		_, err := p.PresignUpload(context.Background(), tc.kind, tc.file)
		assert.ErrorIs(t, err, ErrInvalidKind, "%s %s", tc.kind, tc.file)
	}
}

func TestPublicURL(t *testing.T) {
	p := &Presigner{cfg: config.S3Config{Bucket: "b", Region: "eu-west-1"}}
	assert.Equal(t, "https://b.s3.eu-west-1.amazonaws.com/k", p.publicURL("k"))

	p.cfg.PublicBaseURL = "https://cdn.example.com"
	assert.Equal(t, "https://cdn.example.com/k", p.publicURL("k"))
}
