package executor

import (
	"fmt"
	"strings"

	"github.com/hoistdl/hoist/internal/engine"
)

const outputTemplate = "%(title).200B [%(id)s].%(ext)s"

// buildDownloadArgs assembles the yt-dlp invocation for a single job. The
// snapshot decides everything format-related, the network settings are the
// live values captured at dispatch.
func buildDownloadArgs(url string, snap engine.SettingsSnapshot, network engine.NetworkConfig) []string {
	args := []string{
		"--no-playlist",
		"--newline",
		"--restrict-filenames",
		"-o", outputTemplate,
	}

	if snap.OutputDir != "" {
		args = append(args, "-P", snap.OutputDir)
	}
	if snap.Fragments > 0 {
		args = append(args, "-N", fmt.Sprintf("%d", snap.Fragments))
	}

	if snap.AudioOnly {
		args = append(args, "-f", "ba/b", "-x")
		if snap.Container != "" {
			args = append(args, "--audio-format", snap.Container)
		}
		if snap.AudioBitrate != "" {
			args = append(args, "--audio-quality", snap.AudioBitrate)
		}
	} else {
		args = append(args, "-f", selectFormat(snap.Quality))
		if snap.Codec != "" {
			args = append(args, "-S", "vcodec:"+snap.Codec)
		}
		if snap.Container != "" {
			args = append(args, "--merge-output-format", snap.Container)
		}
	}

	args = append(args, subtitleArgs(snap)...)
	args = append(args, networkArgs(network)...)

	return append(args, url)
}

// selectFormat maps the configured quality to a yt-dlp format expression
func selectFormat(rawQuality string) string {
	quality := strings.ToLower(strings.TrimSpace(rawQuality))
	switch quality {
	case "", "best":
		return "bv*+ba/b"
	case "2160p", "2160", "4k":
		return "bv*[height<=2160]+ba/b[height<=2160]"
	case "1440p", "1440":
		return "bv*[height<=1440]+ba/b[height<=1440]"
	case "1080p", "1080", "hd":
		return "bv*[height<=1080]+ba/b[height<=1080]"
	case "720p", "720":
		return "bv*[height<=720]+ba/b[height<=720]"
	case "480p", "480", "sd":
		return "bv*[height<=480]+ba/b[height<=480]"
	default:
		return "bv*+ba/b"
	}
}

func subtitleArgs(snap engine.SettingsSnapshot) []string {
	mode := strings.ToLower(strings.TrimSpace(snap.SubtitleMode))
	if mode == "" || mode == "none" {
		return nil
	}

	args := []string{"--write-subs"}
	if mode == "auto" {
		args = append(args, "--write-auto-subs")
	}

	langs := "en.*,-live_chat"
	if len(snap.SubtitleLanguages) > 0 {
		langs = strings.Join(snap.SubtitleLanguages, ",")
	}
	args = append(args, "--sub-langs", langs)

	if snap.SubtitleFormat != "" {
		args = append(args, "--convert-subs", snap.SubtitleFormat)
	}
	if snap.EmbedSubtitles {
		args = append(args, "--embed-subs")
	}
	return args
}

func networkArgs(network engine.NetworkConfig) []string {
	var args []string
	if network.CookiesPath != "" {
		args = append(args, "--cookies", network.CookiesPath)
	}
	if network.CookiesFromBrowser != "" {
		args = append(args, "--cookies-from-browser", network.CookiesFromBrowser)
	}
	if network.Proxy != "" {
		args = append(args, "--proxy", network.Proxy)
	}
	if network.RateLimitMBps > 0 {
		args = append(args, "--limit-rate", formatRateLimitMBps(network.RateLimitMBps))
	}
	return args
}

func formatRateLimitMBps(v float64) string {
	return fmt.Sprintf("%gM", v)
}
