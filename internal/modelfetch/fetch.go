// Package modelfetch downloads detector model files that are missing on
// disk.
package modelfetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cavaliercoder/grab"
)

const progressInterval = 500 * time.Millisecond

// Fetcher downloads files with grab.
type Fetcher struct {
	client *grab.Client
	logger *slog.Logger
}

// New creates a fetcher. A nil httpClient uses grab's default client.
func New(httpClient *http.Client, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	client := grab.NewClient()
	client.UserAgent = "facecam"
	if httpClient != nil {
		client.HTTPClient = httpClient
	}
	return &Fetcher{
		client: client,
		logger: logger.With("component", "modelfetch"),
	}
}

// Ensure downloads url to path unless path already exists. It reports
// whether a download happened. Parent directories are created.
func (f *Fetcher) Ensure(ctx context.Context, path, url string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		f.logger.Debug("model already present", "path", path)
		return false, nil
	}
	if url == "" {
		return false, fmt.Errorf("modelfetch: %s is missing and no download URL is configured", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("modelfetch: %w", err)
	}

	req, err := grab.NewRequest(path, url)
	if err != nil {
		return false, fmt.Errorf("modelfetch: %w", err)
	}
	req = req.WithContext(ctx)

	f.logger.Info("downloading model", "url", url, "path", path)
	resp := f.client.Do(req)

	t := time.NewTicker(progressInterval)
	defer t.Stop()

Loop:
	for {
		select {
		case <-t.C:
			f.logger.Info("download progress",
				"bytes", resp.BytesComplete(),
				"size", resp.Size(),
				"percent", fmt.Sprintf("%.1f", 100*resp.Progress()))
		case <-resp.Done:
			break Loop
		}
	}

	if err := resp.Err(); err != nil {
		os.Remove(path)
		return false, fmt.Errorf("modelfetch: download %s: %w", url, err)
	}

	f.logger.Info("model downloaded", "path", resp.Filename, "bytes", resp.BytesComplete())
	return true, nil
}
