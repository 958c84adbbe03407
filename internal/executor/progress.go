package executor

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hoistdl/hoist/internal/engine"
)

// yt-dlp progress line:
//   [download]  45.0% of 123.45MiB at 1.23MiB/s ETA 00:12
var (
	percentPattern    = regexp.MustCompile(`(\d+\.?\d*)%`)
	sizePattern       = regexp.MustCompile(`of\s+~?\s*(\d+\.?\d*)(K|M|G)iB`)
	speedPattern      = regexp.MustCompile(`(\d+\.?\d*)(K|M|G)iB/s`)
	etaPattern        = regexp.MustCompile(`ETA\s+(\d{2}):(\d{2})(?::(\d{2}))?`)
	itemPattern       = regexp.MustCompile(`Downloading item (\d+) of (\d+)`)
	resolutionPattern = regexp.MustCompile(`\b(\d{3,4}x\d{3,4})\b`)
)

// transferState accumulates the line-scoped facts needed for the final
// finished event
type transferState struct {
	totalBytes int64
	resolution string
	formatExt  string
}

// parseProgressLine turns one yt-dlp stdout line into a partial event. Lines
// that carry nothing of interest return ok=false.
func parseProgressLine(correlationID, line string, state *transferState) (engine.ProgressEvent, bool) {
	ev := engine.ProgressEvent{ID: correlationID, Status: engine.EventDownloading}
	got := false

	if m := itemPattern.FindStringSubmatch(line); len(m) == 3 {
		if idx, err := strconv.Atoi(m[1]); err == nil {
			if total, err := strconv.Atoi(m[2]); err == nil {
				ev.PlaylistIndex = &idx
				ev.PlaylistCount = &total
				got = true
			}
		}
	}

	if strings.Contains(line, "Destination:") {
		if ext := strings.TrimPrefix(filepath.Ext(strings.TrimSpace(line)), "."); ext != "" {
			state.formatExt = ext
		}
	}
	if m := resolutionPattern.FindStringSubmatch(line); len(m) == 2 {
		state.resolution = m[1]
	}

	if !strings.Contains(line, "[download]") {
		return ev, got
	}

	if m := percentPattern.FindStringSubmatch(line); len(m) > 1 {
		if percent, err := strconv.ParseFloat(m[1], 64); err == nil {
			ev.Percent = &percent
			got = true
		}
	}

	if m := sizePattern.FindStringSubmatch(line); len(m) > 2 {
		if size, err := strconv.ParseFloat(m[1], 64); err == nil {
			total := applyUnit(size, m[2])
			state.totalBytes = total
			if ev.Percent != nil {
				downloaded := int64(float64(total) * *ev.Percent / 100)
				ev.DownloadedBytes = &downloaded
			}
		}
	}

	if m := speedPattern.FindStringSubmatch(line); len(m) > 2 {
		if speed, err := strconv.ParseFloat(m[1], 64); err == nil {
			bps := applyUnit(speed, m[2])
			ev.Speed = &bps
			got = true
		}
	}

	if m := etaPattern.FindStringSubmatch(line); len(m) >= 3 {
		first, _ := strconv.Atoi(m[1])
		second, _ := strconv.Atoi(m[2])
		var eta time.Duration
		if len(m) > 3 && m[3] != "" {
			// yt-dlp only adds an hours component once the estimate
			// crosses an hour; two components are minutes:seconds
			third, _ := strconv.Atoi(m[3])
			eta = time.Duration(first)*time.Hour + time.Duration(second)*time.Minute + time.Duration(third)*time.Second
		} else {
			eta = time.Duration(first)*time.Minute + time.Duration(second)*time.Second
		}
		ev.ETA = &eta
		got = true
	}

	return ev, got
}

func applyUnit(v float64, unit string) int64 {
	switch unit {
	case "K":
		return int64(v * 1024)
	case "M":
		return int64(v * 1024 * 1024)
	case "G":
		return int64(v * 1024 * 1024 * 1024)
	}
	return int64(v)
}

// splitByNewlineOrCR treats carriage returns as line breaks so in-place
// progress updates surface as separate lines
func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}
