// Copyright 2025 Google LLC
// SPDX-License-Identifier: Apache-2.0

package download

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/pkg/errors"
	"github.com/yolotrain/yolotrain/internal/envfile"
)

// DefaultAWSRegion is used when AWS_REGION is unset.
const DefaultAWSRegion = "us-east-1"

// S3Store is an ObjectStore backed by S3 or an S3-compatible service.
type S3Store struct {
	Client *s3.S3
}

var _ ObjectStore = &S3Store{}

// S3Config builds the client configuration from env. Static keys and a
// custom endpoint are optional; without keys the SDK's default chain
// (shared credentials file, instance role) applies.
func S3Config(env envfile.Source) *aws.Config {
	cfg := aws.NewConfig().WithRegion(DefaultAWSRegion)
	if env == nil {
		return cfg
	}
	if region, ok := env.Lookup(AWSRegionKey); ok {
		cfg = cfg.WithRegion(region)
	}
	id, idOK := env.Lookup(AWSAccessKeyIDKey)
	secret, secretOK := env.Lookup(AWSSecretKeyKey)
	if idOK && secretOK {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(id, secret, ""))
	}
	if endpoint, ok := env.Lookup(S3EndpointKey); ok {
		cfg = cfg.WithEndpoint(endpoint).WithS3ForcePathStyle(true)
	}
	return cfg
}

// NewS3Store creates an S3 client configured from env.
func NewS3Store(env envfile.Source) (*S3Store, error) {
	sess, err := session.NewSession(S3Config(env))
	if err != nil {
		return nil, errors.Wrap(err, "creating AWS session")
	}
	return &S3Store{Client: s3.New(sess)}, nil
}

// List implements ObjectStore.
func (s *S3Store) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	err := s.Client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			keys = append(keys, aws.StringValue(obj.Key))
		}
		return true
	})
	if err != nil {
		return nil, s3Error(err, bucket, prefix)
	}
	return keys, nil
}

// Get implements ObjectStore.
func (s *S3Store) Get(ctx context.Context, bucket, key string, dst *os.File) error {
	downloader := s3manager.NewDownloaderWithClient(s.Client)
	_, err := downloader.DownloadWithContext(ctx, dst, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return s3Error(err, bucket, key)
	}
	return nil
}

func s3Error(err error, bucket, key string) error {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchBucket, s3.ErrCodeNoSuchKey, "NotFound":
			return errors.Wrapf(ErrNotFound, "s3://%s/%s", bucket, key)
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "NoCredentialProviders", "ExpiredToken":
			return errors.Wrapf(ErrUnauthenticated, "s3://%s/%s: %s", bucket, key, aerr.Message())
		}
	}
	return errors.Wrapf(err, "s3://%s/%s", bucket, key)
}
