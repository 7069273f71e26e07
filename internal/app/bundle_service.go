package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/google/uuid"

	"snapquiz-service/internal/bundle"
	"snapquiz-service/internal/domain"
	"snapquiz-service/internal/storage"
)

// FrameSetStore persists validated bundles so sessions can load them later.
type FrameSetStore interface {
	SaveFrameSet(ctx context.Context, set domain.FrameSet) error
}

// BundleService turns uploaded or remotely fetched archives into playable
// frame sets: images land in the blob store, the frame set in the set store.
type BundleService struct {
	store    FrameSetStore
	blobs    storage.BlobStore
	client   *http.Client
	maxBytes int64
}

func NewBundleService(store FrameSetStore, blobs storage.BlobStore, client *http.Client, maxBytes int64) *BundleService {
	if client == nil {
		client = http.DefaultClient
	}
	if maxBytes <= 0 {
		maxBytes = 64 << 20
	}
	return &BundleService{store: store, blobs: blobs, client: client, maxBytes: maxBytes}
}

// Load validates an archive stream and registers its contents. Nothing is
// persisted when validation fails.
func (s *BundleService) Load(ctx context.Context, r io.Reader) (domain.FrameSet, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return domain.FrameSet{}, fmt.Errorf("read bundle: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return domain.FrameSet{}, fmt.Errorf("bundle exceeds %d byte limit", s.maxBytes)
	}

	quizID := uuid.NewString()
	arch, err := bundle.FromArchive(quizID, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return domain.FrameSet{}, err
	}

	for name, img := range arch.Images {
		key := path.Join("bundles", quizID, name)
		if _, err := s.blobs.Put(key, bytes.NewReader(img)); err != nil {
			return domain.FrameSet{}, fmt.Errorf("store image %s: %w", name, err)
		}
	}
	if err := s.store.SaveFrameSet(ctx, arch.FrameSet); err != nil {
		return domain.FrameSet{}, err
	}
	return arch.FrameSet, nil
}

// Fetch downloads a remote bundle archive and loads it. Failures are passed
// through verbatim; a refusal gets a hint pointing at the proxy endpoint,
// which exists to bypass cross-origin blocks.
func (s *BundleService) Fetch(ctx context.Context, url string) (domain.FrameSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.FrameSet{}, fmt.Errorf("fetch bundle: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return domain.FrameSet{}, fmt.Errorf("fetch bundle: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("fetch bundle: upstream responded %s", resp.Status)
		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
			err = fmt.Errorf("%w (if the host blocks cross-origin requests, route the URL through /proxy)", err)
		}
		return domain.FrameSet{}, err
	}
	return s.Load(ctx, resp.Body)
}
