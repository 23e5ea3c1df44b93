package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/caldermed/triage/internal/storage"
)

// Fetcher returns the raw bytes of the source document.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// ObjectCache is the subset of the S3 client used for document caching.
type ObjectCache interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
}

// DocumentFetcher downloads the guideline document, caching it on local
// disk and optionally in object storage. Cache order is local file, then
// object store, then HTTP download with write-back to both.
type DocumentFetcher struct {
	url     string
	docID   string
	dataDir string
	cache   ObjectCache
	client  *http.Client
}

func NewDocumentFetcher(url, docID, dataDir string, cache ObjectCache) *DocumentFetcher {
	return &DocumentFetcher{
		url:     url,
		docID:   docID,
		dataDir: dataDir,
		cache:   cache,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (f *DocumentFetcher) localPath() string {
	return filepath.Join(f.dataDir, f.docID+".pdf")
}

func (f *DocumentFetcher) cacheKey() string {
	return "documents/" + f.docID + ".pdf"
}

// Fetch returns the document bytes, downloading only on cache miss.
func (f *DocumentFetcher) Fetch(ctx context.Context) ([]byte, error) {
	if data, err := os.ReadFile(f.localPath()); err == nil && len(data) > 0 {
		return data, nil
	}

	if f.cache != nil {
		data, err := f.cache.GetObject(ctx, f.cacheKey())
		if err == nil && len(data) > 0 {
			f.writeLocal(data)
			return data, nil
		}
		if err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			log.Printf("Object cache read failed for %s, falling back to download: %v", f.docID, err)
		}
	}

	data, err := f.download(ctx)
	if err != nil {
		return nil, err
	}

	f.writeLocal(data)
	if f.cache != nil {
		if err := f.cache.PutObject(ctx, f.cacheKey(), data, "application/pdf"); err != nil {
			log.Printf("Object cache write failed for %s: %v", f.docID, err)
		}
	}

	return data, nil
}

func (f *DocumentFetcher) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build document request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download document %s: %w", f.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("document download returned status %d for %s", resp.StatusCode, f.url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read document body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("document download returned empty body for %s", f.url)
	}

	log.Printf("Downloaded document %s (%d bytes)", f.docID, len(data))
	return data, nil
}

func (f *DocumentFetcher) writeLocal(data []byte) {
	if err := os.MkdirAll(f.dataDir, 0o755); err != nil {
		log.Printf("Failed to create data dir %s: %v", f.dataDir, err)
		return
	}
	if err := os.WriteFile(f.localPath(), data, 0o644); err != nil {
		log.Printf("Failed to write local document cache %s: %v", f.localPath(), err)
	}
}
