package message

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
)

// AttachmentStore keeps message attachments in object storage, keyed
// by consultation so a whole consultation's files can be expired
// together.
type AttachmentStore struct {
	client *minio.Client
	bucket string
}

func NewAttachmentStore(client *minio.Client, bucket string) *AttachmentStore {
	return &AttachmentStore{client: client, bucket: bucket}
}

// Upload stores an attachment and returns its object path.
func (s *AttachmentStore) Upload(ctx context.Context, consultationID uuid.UUID, fileName, contentType string, r io.Reader, size int64) (string, error) {
	objectName := path.Join(consultationID.String(), uuid.NewString()+path.Ext(fileName))
	_, err := s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload attachment: %w", err)
	}
	return objectName, nil
}

// DownloadURL returns a short-lived presigned URL for an attachment.
func (s *AttachmentStore) DownloadURL(ctx context.Context, objectPath, fileName string) (string, error) {
	params := make(url.Values)
	params.Set("response-content-disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))

	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectPath, 15*time.Minute, params)
	if err != nil {
		return "", fmt.Errorf("presign attachment: %w", err)
	}
	return u.String(), nil
}
