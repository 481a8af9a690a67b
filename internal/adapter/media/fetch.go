// Package media loads background and album-art assets from disk or over HTTP.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/fspecii/ace-step-ui/internal/domain"
	"github.com/fspecii/ace-step-ui/internal/ports"
)

// maxAssetBytes caps a single download.
const maxAssetBytes = 512 << 20

// Config holds loader settings.
type Config struct {
	// Origin is the scheme://host the visualizer is served from. Remote assets from
	// any other origin go through ProxyPath.
	Origin string

	// ProxyPath is the same-origin proxy endpoint, called as ProxyPath?url=<ref>.
	// Empty disables proxying.
	ProxyPath string

	// FFmpeg is the binary used to decode video backgrounds
	FFmpeg string

	Timeout time.Duration
}

// DefaultConfig returns the default loader configuration.
func DefaultConfig() Config {
	return Config{
		ProxyPath: "/api/proxy/image",
		FFmpeg:    "ffmpeg",
		Timeout:   30 * time.Second,
	}
}

// Loader implements ports.AssetFetcher and ports.MediaLoader.
type Loader struct {
	logger *slog.Logger
	cfg    Config
	client *http.Client

	startVideo videoStarter
}

// NewLoader creates a loader. A nil client gets one with cfg.Timeout.
func NewLoader(cfg Config, client *http.Client, logger *slog.Logger) *Loader {
	if cfg.FFmpeg == "" {
		cfg.FFmpeg = DefaultConfig().FFmpeg
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	l := &Loader{
		logger: logger.With(slog.String("adapter", "media")),
		cfg:    cfg,
		client: client,
	}
	l.startVideo = l.startFFmpeg
	return l
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Resolve returns the location ref is actually read from: local paths unchanged,
// same-origin URLs unchanged, other URLs through the proxy.
func (l *Loader) Resolve(ref string) (string, error) {
	if !isRemote(ref) {
		return ref, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", domain.NewValidationError("ref", ref, "invalid URL")
	}
	if l.cfg.Origin == "" || l.cfg.ProxyPath == "" {
		return ref, nil
	}
	origin, err := url.Parse(l.cfg.Origin)
	if err != nil {
		return "", domain.NewValidationError("origin", l.cfg.Origin, "invalid URL")
	}
	if u.Scheme == origin.Scheme && u.Host == origin.Host {
		return ref, nil
	}

	proxy := origin.ResolveReference(&url.URL{Path: l.cfg.ProxyPath})
	proxy.RawQuery = url.Values{"url": {ref}}.Encode()
	return proxy.String(), nil
}

// Fetch returns the content of ref.
func (l *Loader) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", domain.ErrMediaUnavailable)
	}
	loc, err := l.Resolve(ref)
	if err != nil {
		return nil, err
	}
	if !isRemote(loc) {
		data, err := os.ReadFile(loc)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrMediaUnavailable, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, loc, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMediaUnavailable, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMediaUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %s", domain.ErrMediaUnavailable, loc, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMediaUnavailable, err)
	}
	if len(data) > maxAssetBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrMediaUnavailable, ref, maxAssetBytes)
	}
	if loc != ref {
		l.logger.Debug("asset fetched through proxy", slog.String("ref", ref))
	}
	return data, nil
}

var errClosed = errors.New("video source closed")

var (
	_ ports.AssetFetcher = (*Loader)(nil)
	_ ports.MediaLoader  = (*Loader)(nil)
)
