package engine

import (
	"github.com/hoistdl/hoist/internal/config"
)

// SettingsSnapshot is an immutable copy of the download configuration in
// effect when a job was accepted. Later edits to the live configuration never
// affect already-queued work. Network settings are deliberately absent, they
// are read fresh at dispatch time.
type SettingsSnapshot struct {
	Quality           string
	Container         string
	Codec             string
	AudioOnly         bool
	AudioBitrate      string
	SubtitleMode      string
	SubtitleLanguages []string
	SubtitleFormat    string
	EmbedSubtitles    bool
	OutputDir         string
	Fragments         int
	MinFreeSpaceGB    int
}

// CaptureSnapshot deep-copies the live download configuration. Slices are
// copied, never aliased, so the snapshot holds no reference into mutable state.
func CaptureSnapshot(cfg *config.DownloadsConfig) SettingsSnapshot {
	langs := make([]string, len(cfg.SubtitleLanguages))
	copy(langs, cfg.SubtitleLanguages)

	return SettingsSnapshot{
		Quality:           cfg.Quality,
		Container:         cfg.Container,
		Codec:             cfg.Codec,
		AudioOnly:         cfg.AudioOnly,
		AudioBitrate:      cfg.AudioBitrate,
		SubtitleMode:      cfg.SubtitleMode,
		SubtitleLanguages: langs,
		SubtitleFormat:    cfg.SubtitleFormat,
		EmbedSubtitles:    cfg.EmbedSubtitles,
		OutputDir:         cfg.Path,
		Fragments:         cfg.Fragments,
		MinFreeSpaceGB:    cfg.MinFreeSpaceGB,
	}
}

// NetworkConfig carries the attempt-variant network settings passed to the
// executor at dispatch time
type NetworkConfig struct {
	CookiesPath        string
	CookiesFromBrowser string
	Proxy              string
	RateLimitMBps      float64
}

// CaptureNetwork copies the live network configuration for a single dispatch
func CaptureNetwork(cfg *config.NetworkConfig) NetworkConfig {
	return NetworkConfig{
		CookiesPath:        cfg.CookiesPath,
		CookiesFromBrowser: cfg.CookiesFromBrowser,
		Proxy:              cfg.Proxy,
		RateLimitMBps:      cfg.RateLimitMBps,
	}
}
