// internal/services/storage_service.go
package services

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/neuralnex/legionx-backend/internal/config"
)

// StorageService issues short-lived presigned URLs for agent artifact
// bundles. Artifact hosting itself stays external; this service only signs
// read access for holders of a verified entitlement.
type StorageService struct {
	config   config.AWSConfig
	s3Client *s3.S3
}

func NewStorageService(cfg config.AWSConfig) (*StorageService, error) {
	svc := &StorageService{config: cfg}

	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		logrus.Warn("AWS credentials not configured, artifact URLs disabled")
		return svc, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	svc.s3Client = s3.New(sess)
	return svc, nil
}

// ArtifactURL presigns a download link for the given artifact key. Returns
// an empty URL when the key is unset or credentials are not configured.
func (s *StorageService) ArtifactURL(artifactKey string) (string, error) {
	if artifactKey == "" || s.s3Client == nil {
		return "", nil
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(artifactKey),
	})

	url, err := req.Presign(time.Duration(s.config.ArtifactURLTTL) * time.Second)
	if err != nil {
		return "", fmt.Errorf("failed to presign artifact URL: %w", err)
	}

	return url, nil
}
