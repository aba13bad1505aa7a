package domain

import (
	"strings"
	"time"
)

// Tag represents a global descriptive tag shared across all files.
// Name is the canonical, normalized form; uniqueness is enforced by the store.
// UsageCount is denormalized: at quiescence it equals the number of files
// currently associated with the tag.
type Tag struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	AutoGenerated bool      `json:"auto_generated"` // Set at creation, never retroactively changed
	UsageCount    int       `json:"usage_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (t *Tag) Touch() {
	t.UpdatedAt = time.Now().UTC()
}

// NormalizeTagName converts raw tag input to its canonical form:
// surrounding whitespace trimmed, case folded to lower.
// Returns "" for input that is empty after trimming.
func NormalizeTagName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
