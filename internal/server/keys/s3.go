package keys

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// seams for testing the S3 client wiring
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	getObject = func(client *s3.Client, ctx context.Context, in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
		return client.GetObject(ctx, in)
	}
)

// S3Source fetches the signing key PEM from an S3-compatible backend
// (MinIO in development). Used when key material is provisioned into a
// secrets bucket instead of baked into the image.
type S3Source struct {
	Region       string
	BaseEndpoint string
	RootUser     string
	RootPassword string
	Bucket       string
	Object       string
}

func (s *S3Source) Load(ctx context.Context) ([]byte, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.RootUser,     // MINIO_ROOT_USER
			s.RootPassword, // MINIO_ROOT_PASSWORD
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.BaseEndpoint)
		o.UsePathStyle = true
	})

	out, err := getObject(client, ctx, &s3.GetObjectInput{
		Bucket: &s.Bucket,
		Key:    &s.Object,
	})
	if err != nil {
		return nil, fmt.Errorf("error fetching key object: %w", err)
	}
	defer out.Body.Close()

	raw, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading key object: %w", err)
	}

	return raw, nil
}
