package config

import "strings"

// S3Config describes the bucket that stores cover images and PDFs.
// Uploads are disabled when no bucket is configured.
type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string // custom endpoint for MinIO or LocalStack, empty for AWS
	AccessKey     string
	SecretKey     string
	PublicBaseURL string // prefix of the public object URL, defaults to the endpoint/bucket
	UsePathStyle  bool
}

// Enabled reports whether uploads can be presigned.
func (c S3Config) Enabled() bool { return c.Bucket != "" }

func LoadS3Config() S3Config {
	c := S3Config{
		Bucket:        envStr("S3_BUCKET", ""),
		Region:        envStr("S3_REGION", "us-east-1"),
		Endpoint:      strings.TrimRight(envStr("S3_ENDPOINT", ""), "/"),
		AccessKey:     envStr("S3_ACCESS_KEY", ""),
		SecretKey:     envStr("S3_SECRET_KEY", ""),
		PublicBaseURL: strings.TrimRight(envStr("S3_PUBLIC_BASE_URL", ""), "/"),
	}
	c.UsePathStyle = envBool("S3_USE_PATH_STYLE", c.Endpoint != "")
	return c
}
