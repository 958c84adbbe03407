package engine

import (
	"context"
	"log/slog"
)

// ExpandDescriptors resolves a possible collection URL into job descriptors.
// All items from one expansion share the same settings snapshot and receive
// ordinals 1..N in the remote collection's native order. If expansion fails
// the original URL is returned as a single descriptor with no metadata, so
// the user's input is never lost.
func ExpandDescriptors(ctx context.Context, r Resolver, url string, limit int, snap SettingsSnapshot, logger *slog.Logger) []Descriptor {
	if logger == nil {
		logger = slog.Default()
	}

	items, err := r.Expand(ctx, url, limit)
	if err != nil || len(items) == 0 {
		if err != nil {
			logger.Warn("collection expansion failed, falling back to single job", "url", url, "error", err)
		}
		return []Descriptor{{URL: url, Snapshot: snap}}
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	total := len(items)
	descs := make([]Descriptor, 0, total)
	for i, item := range items {
		descs = append(descs, Descriptor{
			URL:          item.URL,
			Title:        item.Title,
			Thumbnail:    item.Thumbnail,
			Duration:     item.Duration,
			Ordinal:      i + 1,
			OrdinalTotal: total,
			Snapshot:     snap,
		})
	}
	return descs
}
