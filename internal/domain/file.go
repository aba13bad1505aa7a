package domain

import "time"

// MetadataTagsKey is the metadata key clients use to supply their own tags
// at upload time.
const MetadataTagsKey = "tags"

// File represents a stored file record. Path is relative to the storage
// base directory; StoredName is the on-disk filename within that path.
type File struct {
	ID           string         `json:"id"`
	OriginalName string         `json:"original_filename"`
	StoredName   string         `json:"stored_filename"`
	Path         string         `json:"file_path"`
	Category     Category       `json:"file_type"`
	Size         int64          `json:"file_size"`
	ContentType  string         `json:"content_type"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	ExternalID   string         `json:"external_id,omitempty"`
	ProjectID    string         `json:"project_id,omitempty"`
	UploaderID   string         `json:"uploader_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// MetadataTags extracts client-supplied tag names from the metadata blob.
// Handles both native string slices and lists decoded from JSON; non-string
// elements are skipped. Returns nil when no usable tags are present.
func (f *File) MetadataTags() []string {
	if f.Metadata == nil {
		return nil
	}
	raw, ok := f.Metadata[MetadataTagsKey]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		var tags []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				tags = append(tags, s)
			}
		}
		return tags
	default:
		return nil
	}
}

// Touch updates the UpdatedAt timestamp.
func (f *File) Touch() {
	f.UpdatedAt = time.Now().UTC()
}

// FileTag is a file/tag association row.
type FileTag struct {
	FileID    string    `json:"file_id"`
	TagID     string    `json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`
}
