package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	items []RemoteItem
	err   error

	gotURL   string
	gotLimit int
}

func (f *fakeResolver) Expand(ctx context.Context, url string, limit int) ([]RemoteItem, error) {
	f.gotURL = url
	f.gotLimit = limit
	return f.items, f.err
}

func TestExpandDescriptorsPlaylist(t *testing.T) {
	r := &fakeResolver{items: []RemoteItem{
		{URL: "https://example.com/v/a", Title: "A"},
		{URL: "https://example.com/v/b", Title: "B"},
		{URL: "https://example.com/v/c", Title: "C"},
	}}
	snap := SettingsSnapshot{Quality: "1080p", SubtitleLanguages: []string{"en"}}

	descs := ExpandDescriptors(context.Background(), r, "https://example.com/list/1", 0, snap, nil)

	require.Len(t, descs, 3)
	for i, d := range descs {
		assert.Equal(t, i+1, d.Ordinal)
		assert.Equal(t, 3, d.OrdinalTotal)
		assert.Equal(t, snap, d.Snapshot)
	}
	assert.Equal(t, "https://example.com/v/a", descs[0].URL)
	assert.Equal(t, "B", descs[1].Title)
}

func TestExpandDescriptorsFallbackOnError(t *testing.T) {
	r := &fakeResolver{err: errors.New("resolver unreachable")}

	descs := ExpandDescriptors(context.Background(), r, "https://example.com/v/1", 0, SettingsSnapshot{}, nil)

	require.Len(t, descs, 1)
	assert.Equal(t, "https://example.com/v/1", descs[0].URL)
	assert.Empty(t, descs[0].Title)
	assert.Zero(t, descs[0].Ordinal)
}

func TestExpandDescriptorsFallbackOnEmptyResult(t *testing.T) {
	r := &fakeResolver{}

	descs := ExpandDescriptors(context.Background(), r, "https://example.com/v/1", 0, SettingsSnapshot{}, nil)

	require.Len(t, descs, 1)
	assert.Equal(t, "https://example.com/v/1", descs[0].URL)
}

func TestExpandDescriptorsHonorsLimit(t *testing.T) {
	r := &fakeResolver{items: []RemoteItem{
		{URL: "https://example.com/v/a"},
		{URL: "https://example.com/v/b"},
		{URL: "https://example.com/v/c"},
		{URL: "https://example.com/v/d"},
	}}

	descs := ExpandDescriptors(context.Background(), r, "https://example.com/list/1", 2, SettingsSnapshot{}, nil)

	require.Len(t, descs, 2)
	assert.Equal(t, 2, descs[0].OrdinalTotal)
	assert.Equal(t, 2, r.gotLimit)
}

func TestExpandDescriptorsSharedSnapshot(t *testing.T) {
	r := &fakeResolver{items: []RemoteItem{
		{URL: "https://example.com/v/a"},
		{URL: "https://example.com/v/b"},
	}}
	snap := SettingsSnapshot{Quality: "720p", Container: "mp4"}

	descs := ExpandDescriptors(context.Background(), r, "https://example.com/list/1", 0, snap, nil)

	require.Len(t, descs, 2)
	assert.Equal(t, descs[0].Snapshot, descs[1].Snapshot)
	assert.Equal(t, "720p", descs[1].Snapshot.Quality)
}
