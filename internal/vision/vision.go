// Package vision provides image label detection through an external
// annotation API. The capability is optional: without credentials the
// Disabled implementation is used and image uploads simply receive no
// enrichment labels.
package vision

import (
	"context"
	"log/slog"
	"sync"
)

// Labeler detects descriptive labels for an image on disk.
// Implementations must treat failures as recoverable; callers degrade to an
// empty label set rather than failing the surrounding operation.
type Labeler interface {
	// LabelImage returns lowercase labels describing the image at path.
	LabelImage(ctx context.Context, path string) ([]string, error)
}

// Disabled is a Labeler for deployments without vision credentials.
// It returns no labels and never fails. Safe for concurrent use.
type Disabled struct {
	logger   *slog.Logger
	warnOnce sync.Once
}

// NewDisabled creates a no-op labeler.
func NewDisabled(logger *slog.Logger) *Disabled {
	return &Disabled{logger: logger}
}

// LabelImage implements Labeler. Always returns an empty result.
func (d *Disabled) LabelImage(_ context.Context, _ string) ([]string, error) {
	d.warnOnce.Do(func() {
		d.logger.Warn("vision API credentials not configured, image labeling disabled")
	})
	return nil, nil
}
