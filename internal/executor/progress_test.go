package executor

import (
	"bufio"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProgressLine(t *testing.T) {
	state := &transferState{}

	ev, ok := parseProgressLine("job-1", "[download]  45.0% of 123.45MiB at 1.23MiB/s ETA 00:12", state)
	require.True(t, ok)
	assert.Equal(t, "job-1", ev.ID)

	require.NotNil(t, ev.Percent)
	assert.Equal(t, 45.0, *ev.Percent)

	require.NotNil(t, ev.Speed)
	assert.Equal(t, applyUnit(1.23, "M"), *ev.Speed)

	require.NotNil(t, ev.ETA)
	assert.Equal(t, 12*time.Second, *ev.ETA)

	require.NotNil(t, ev.DownloadedBytes)
	assert.InDelta(t, float64(123.45*1024*1024)*0.45, float64(*ev.DownloadedBytes), 2)

	assert.Equal(t, applyUnit(123.45, "M"), state.totalBytes)
}

func TestParseProgressLineShortETA(t *testing.T) {
	state := &transferState{}

	ev, ok := parseProgressLine("job-1", "[download]  80.0% of 10.00MiB at 1.00MiB/s ETA 02:05", state)
	require.True(t, ok)

	// Two components are minutes:seconds, not hours:minutes
	require.NotNil(t, ev.ETA)
	assert.Equal(t, 2*time.Minute+5*time.Second, *ev.ETA)
}

func TestParseProgressLineLongETA(t *testing.T) {
	state := &transferState{}

	ev, ok := parseProgressLine("job-1", "[download]   2.1% of ~4.20GiB at 456.78KiB/s ETA 01:23:45", state)
	require.True(t, ok)

	require.NotNil(t, ev.ETA)
	assert.Equal(t, time.Hour+23*time.Minute+45*time.Second, *ev.ETA)

	require.NotNil(t, ev.Speed)
	assert.Equal(t, applyUnit(456.78, "K"), *ev.Speed)
}

func TestParseProgressLinePlaylistItem(t *testing.T) {
	state := &transferState{}

	ev, ok := parseProgressLine("job-1", "[download] Downloading item 3 of 25", state)
	require.True(t, ok)

	require.NotNil(t, ev.PlaylistIndex)
	assert.Equal(t, 3, *ev.PlaylistIndex)
	require.NotNil(t, ev.PlaylistCount)
	assert.Equal(t, 25, *ev.PlaylistCount)
	assert.Nil(t, ev.Percent)
}

func TestParseProgressLineDestination(t *testing.T) {
	state := &transferState{}

	_, ok := parseProgressLine("job-1", "[download] Destination: /videos/Some_Video [abc123].mkv", state)
	assert.False(t, ok)
	assert.Equal(t, "mkv", state.formatExt)
}

func TestParseProgressLineResolution(t *testing.T) {
	state := &transferState{}

	_, _ = parseProgressLine("job-1", "[info] abc123: Downloading 1 format(s): 303+251 (1920x1080)", state)
	assert.Equal(t, "1920x1080", state.resolution)
}

func TestParseProgressLineIgnoresNoise(t *testing.T) {
	state := &transferState{}

	for _, line := range []string{
		"[youtube] Extracting URL: https://example.com/v/1",
		"[Merger] Merging formats",
		"",
	} {
		_, ok := parseProgressLine("job-1", line, state)
		assert.False(t, ok, "line %q should carry nothing", line)
	}
}

func TestSplitByNewlineOrCR(t *testing.T) {
	input := "line one\rline two\nline three"
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Split(splitByNewlineOrCR)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	assert.Equal(t, []string{"line one", "line two", "line three"}, lines)
}
