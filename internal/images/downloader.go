package images

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/dealerlink/easysync/internal/events"
)

// maxImageSize caps a single download; remote inventory photos are
// expected to stay well under this.
const maxImageSize = 20 << 20

// Downloader fetches remote vehicle images and writes them through a
// BlobStore. Per-URL failures are tolerated; callers derive a failure
// count from len(urls) - len(stored).
type Downloader struct {
	client *http.Client
	store  BlobStore
	logger *events.Logger
}

// NewDownloader creates a downloader.
func NewDownloader(store BlobStore, timeout time.Duration, logger *events.Logger) *Downloader {
	return &Downloader{
		client: &http.Client{Timeout: timeout},
		store:  store,
		logger: logger.WithField("component", "image_downloader"),
	}
}

// Download fetches each URL and stores it under ownerID. It returns the
// stored locations for the URLs that succeeded; the error is non-nil
// only when the context was cancelled.
func (d *Downloader) Download(ctx context.Context, urls []string, ownerID string) ([]string, error) {
	var stored []string
	for i, rawURL := range urls {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		loc, err := d.fetchOne(ctx, rawURL, ownerID, i)
		if err != nil {
			d.logger.WithError(err).WithFields(map[string]interface{}{
				"owner": ownerID,
				"url":   rawURL,
			}).Warn("Image download failed")
			continue
		}
		stored = append(stored, loc)
	}
	return stored, nil
}

func (d *Downloader) fetchOne(ctx context.Context, rawURL, ownerID string, index int) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("%s/%03d%s", ownerID, index, extensionFor(rawURL))
	return d.store.Put(ctx, key, data, contentType)
}

func extensionFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return path.Ext(u.Path)
}
