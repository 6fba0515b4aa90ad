// Package storage stellt den optionalen S3-Cache für heruntergeladene
// Dokument-Bundles bereit.
package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"edinet-watch/config"
)

// BundleCache legt rohe ZIP-Bundles in einem S3-kompatiblen Bucket ab, damit
// wiederholte Detailabrufe die EDINET API nicht erneut belasten.
type BundleCache struct {
	client *s3.Client
	bucket string
}

// NewBundleCache erstellt einen S3-Client für den konfigurierten Endpunkt.
func NewBundleCache(cfg *config.Config) (*BundleCache, error) {
	resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.BundleS3URL,
				SigningRegion:     cfg.BundleS3Region,
				HostnameImmutable: true,
			}, nil
		},
	)
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.BundleS3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.BundleS3Key, cfg.BundleS3Secret, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, err
	}

	return &BundleCache{
		client: s3.NewFromConfig(awsCfg),
		bucket: cfg.BundleS3Bucket,
	}, nil
}

func bundleKey(docID string) string {
	return "bundles/" + docID + ".zip"
}

// Get liest ein Bundle aus dem Cache. Ein fehlender Schlüssel ist ein Fehler
// und wird vom Aufrufer als Cache-Miss behandelt.
func (c *BundleCache) Get(ctx context.Context, docID string) ([]byte, error) {
	key := bundleKey(docID)
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Put legt ein Bundle im Cache ab.
func (c *BundleCache) Put(ctx context.Context, docID string, data []byte) error {
	key := bundleKey(docID)
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}
