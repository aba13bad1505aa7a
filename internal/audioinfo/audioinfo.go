// Package audioinfo extracts embedded tag metadata from uploaded audio files.
package audioinfo

import (
	"context"
	"fmt"

	"github.com/simonhull/audiometa"
)

// Meta holds the embedded tag fields read from an audio file.
type Meta struct {
	Title           string  `json:"title,omitempty"`
	Artist          string  `json:"artist,omitempty"`
	Album           string  `json:"album,omitempty"`
	Format          string  `json:"format,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// Extract parses the audio file at path and returns its embedded tags.
// Unsupported or corrupt files return an error; callers treat extraction
// as best effort.
func Extract(ctx context.Context, path string) (*Meta, error) {
	file, err := audiometa.OpenContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	return &Meta{
		Title:           file.Tags.Title,
		Artist:          file.Tags.Artist,
		Album:           file.Tags.Album,
		Format:          file.Format.String(),
		DurationSeconds: file.Audio.Duration.Seconds(),
	}, nil
}

// FromMetadata recovers a Meta from a file's metadata map. Handles both the
// typed value set during upload and the map form it takes after a JSON
// round trip through the store. Returns nil if no audio entry is present.
func FromMetadata(md map[string]any, key string) *Meta {
	raw, ok := md[key]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case *Meta:
		return v
	case map[string]any:
		meta := &Meta{}
		if s, ok := v["title"].(string); ok {
			meta.Title = s
		}
		if s, ok := v["artist"].(string); ok {
			meta.Artist = s
		}
		if s, ok := v["album"].(string); ok {
			meta.Album = s
		}
		if s, ok := v["format"].(string); ok {
			meta.Format = s
		}
		if f, ok := v["duration_seconds"].(float64); ok {
			meta.DurationSeconds = f
		}
		return meta
	}
	return nil
}
