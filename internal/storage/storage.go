// Package storage keeps uploaded destination images and returns their public URLs.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/destinos/platform/internal/domain"
	"github.com/destinos/platform/internal/guard"
	"github.com/google/uuid"
)

// MaxImageBytes caps a single uploaded image.
const MaxImageBytes = 10 << 20

var allowedExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// ImageStore stores bytes under key and returns the public URL. Delete of a
// missing key is not an error.
type ImageStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// ObjectKey builds a collision-free key for an uploaded file, keeping only a
// known image extension. It also returns the content type for that extension.
func ObjectKey(prefix, filename string) (key, contentType string, err error) {
	ext := strings.ToLower(path.Ext(filename))
	ct, ok := allowedExt[ext]
	if !ok {
		return "", "", domain.ErrValidation(fmt.Sprintf("unsupported image type %q", ext))
	}
	return path.Join(prefix, uuid.New().String()+ext), ct, nil
}

// GuardedStore fails fast through a circuit breaker while the backing store
// keeps erroring.
type GuardedStore struct {
	inner   ImageStore
	breaker *guard.CircuitBreaker
	name    string
}

// NewGuardedStore wraps inner with breaker under the given circuit name.
func NewGuardedStore(inner ImageStore, breaker *guard.CircuitBreaker, name string) *GuardedStore {
	return &GuardedStore{inner: inner, breaker: breaker, name: name}
}

func (s *GuardedStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if res := s.breaker.Check(ctx, s.name); !res.Allowed {
		return "", domain.ErrPersistence("image storage unavailable: "+res.Reason, nil)
	}
	url, err := s.inner.Put(ctx, key, body, size, contentType)
	if err != nil {
		s.breaker.RecordFailure(s.name)
		return "", err
	}
	s.breaker.RecordSuccess(s.name)
	return url, nil
}

// Delete bypasses the breaker state check but still records the outcome.
func (s *GuardedStore) Delete(ctx context.Context, key string) error {
	if err := s.inner.Delete(ctx, key); err != nil {
		s.breaker.RecordFailure(s.name)
		return err
	}
	s.breaker.RecordSuccess(s.name)
	return nil
}
