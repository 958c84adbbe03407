package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/hoistdl/hoist/internal/engine"
)

// FlatPlaylistResolver expands collection URLs through a metadata-only
// yt-dlp pass. No media is transferred during expansion.
type FlatPlaylistResolver struct {
	binary  string
	network func() engine.NetworkConfig
	logger  *slog.Logger
}

// NewFlatPlaylistResolver locates yt-dlp and binds the live network
// settings accessor used for gated playlists
func NewFlatPlaylistResolver(network func() engine.NetworkConfig, logger *slog.Logger) (*FlatPlaylistResolver, error) {
	if network == nil {
		return nil, fmt.Errorf("network accessor cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	binary, err := exec.LookPath("yt-dlp")
	if err != nil {
		return nil, fmt.Errorf("yt-dlp not found on PATH: %w", err)
	}

	return &FlatPlaylistResolver{
		binary:  binary,
		network: network,
		logger:  logger,
	}, nil
}

type flatEntry struct {
	URL        string  `json:"url"`
	WebpageURL string  `json:"webpage_url"`
	Title      string  `json:"title"`
	Duration   float64 `json:"duration"`
	Thumbnails []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
}

type flatResult struct {
	Type    string      `json:"_type"`
	Entries []flatEntry `json:"entries"`
	flatEntry
}

// Expand resolves the URL into its member items. A plain video URL resolves
// to a single item. The limit caps the metadata pass itself so huge
// playlists stay cheap.
func (r *FlatPlaylistResolver) Expand(ctx context.Context, url string, limit int) ([]engine.RemoteItem, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("url is required")
	}

	args := []string{"--flat-playlist", "-J"}
	if limit > 0 {
		args = append(args, "--playlist-end", fmt.Sprintf("%d", limit))
	}
	network := r.network()
	if network.CookiesPath != "" {
		args = append(args, "--cookies", network.CookiesPath)
	}
	if network.CookiesFromBrowser != "" {
		args = append(args, "--cookies-from-browser", network.CookiesFromBrowser)
	}
	if network.Proxy != "" {
		args = append(args, "--proxy", network.Proxy)
	}
	args = append(args, url)

	r.logger.Debug("expanding collection", "url", url, "limit", limit)

	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp metadata pass failed: %w: %s", err, firstLine(strings.TrimSpace(stderr.String())))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("yt-dlp returned empty metadata")
	}

	return parseFlatPlaylist(stdout.Bytes())
}

// parseFlatPlaylist decodes the -J output. A playlist carries entries, a
// single video is its own entry.
func parseFlatPlaylist(data []byte) ([]engine.RemoteItem, error) {
	var result flatResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode playlist metadata: %w", err)
	}

	if result.Type != "playlist" {
		item, ok := toRemoteItem(result.flatEntry)
		if !ok {
			return nil, fmt.Errorf("metadata carries no usable URL")
		}
		return []engine.RemoteItem{item}, nil
	}

	items := make([]engine.RemoteItem, 0, len(result.Entries))
	for _, entry := range result.Entries {
		if item, ok := toRemoteItem(entry); ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func toRemoteItem(entry flatEntry) (engine.RemoteItem, bool) {
	url := entry.WebpageURL
	if url == "" {
		url = entry.URL
	}
	if url == "" {
		return engine.RemoteItem{}, false
	}

	item := engine.RemoteItem{
		URL:      url,
		Title:    entry.Title,
		Duration: time.Duration(entry.Duration * float64(time.Second)),
	}
	if len(entry.Thumbnails) > 0 {
		item.Thumbnail = entry.Thumbnails[len(entry.Thumbnails)-1].URL
	}
	return item, true
}
