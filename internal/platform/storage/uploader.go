package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
)

var (
	errUploaderBucket  = errors.New("storage: bucket name is required")
	errUploaderObject  = errors.New("storage: object name is required")
	errUploaderPayload = errors.New("storage: payload is empty")
)

// Uploader writes objects to Cloud Storage on behalf of the checkout flow.
type Uploader struct {
	client *gcs.Client
}

// NewUploader constructs an Uploader backed by the provided Cloud Storage client.
func NewUploader(client *gcs.Client) (*Uploader, error) {
	if client == nil {
		return nil, errors.New("storage uploader: client is required")
	}
	return &Uploader{client: client}, nil
}

// Upload writes data under bucket/object with the supplied content type.
// The write is committed only when Close succeeds.
func (u *Uploader) Upload(ctx context.Context, bucket, object, contentType string, data []byte) error {
	if u == nil || u.client == nil {
		return errors.New("storage uploader: client is not initialised")
	}
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return errUploaderBucket
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return errUploaderObject
	}
	if len(data) == 0 {
		return errUploaderPayload
	}

	w := u.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = strings.TrimSpace(contentType)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("storage: write object %s/%s: %w", bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("storage: commit object %s/%s: %w", bucket, object, err)
	}
	return nil
}

// Delete removes the object. Missing objects are not an error.
func (u *Uploader) Delete(ctx context.Context, bucket, object string) error {
	if u == nil || u.client == nil {
		return errors.New("storage uploader: client is not initialised")
	}
	err := u.client.Bucket(strings.TrimSpace(bucket)).Object(strings.TrimSpace(object)).Delete(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil
	}
	return err
}

// PublicURL returns the publicly resolvable URL for bucket/object.
func PublicURL(bucket, object string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", strings.TrimSpace(bucket), escapeObjectPath(object))
}

func escapeObjectPath(object string) string {
	segments := strings.Split(strings.TrimSpace(object), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
