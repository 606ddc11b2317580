package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/samber/oops"

	"github.com/oksasatya/authshop/internal/application"
	"github.com/oksasatya/authshop/pkg/helpers"
)

// GCSStore uploads profile images to a bucket; references are public object URLs.
type GCSStore struct {
	Client *gcs.Client
	Bucket string
	Prefix string
	now    func() time.Time
}

func NewGCSStore(client *gcs.Client, bucket string) *GCSStore {
	return &GCSStore{Client: client, Bucket: bucket, Prefix: "profile-images", now: time.Now}
}

var _ application.FileStore = (*GCSStore)(nil)

func (s *GCSStore) Save(ctx context.Context, u application.Upload) (string, error) {
	objectPath := s.Prefix + "/" + objectName(u.Filename, s.now())
	contentType := u.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	url, err := helpers.UploadObject(c, s.Client, s.Bucket, objectPath, contentType, u.Body)
	if err != nil {
		return "", oops.With("operation", "upload object").With("object", objectPath).Wrap(err)
	}
	return url, nil
}

func (s *GCSStore) Remove(ctx context.Context, ref string) error {
	objectPath := strings.TrimPrefix(ref, helpers.PublicURL(s.Bucket, ""))
	if objectPath == ref || objectPath == "" {
		return nil
	}
	err := helpers.DeleteObject(ctx, s.Client, s.Bucket, objectPath)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return oops.With("operation", "delete object").With("object", objectPath).Wrap(err)
	}
	return nil
}
