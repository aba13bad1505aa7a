package classify

import (
	"testing"

	"github.com/filedrop/filedrop-server/internal/domain"
)

func TestClassify_ByExtension(t *testing.T) {
	c := New(DefaultConfig())

	tests := []struct {
		filename string
		want     domain.Category
	}{
		{"photo.jpg", domain.CategoryImages},
		{"photo.JPEG", domain.CategoryImages},
		{"report.pdf", domain.CategoryDocuments},
		{"report.PDF", domain.CategoryDocuments},
		{"notes.md", domain.CategoryDocuments},
		{"budget.xlsx", domain.CategorySpreadsheets},
		{"export.csv", domain.CategorySpreadsheets},
		{"deck.pptx", domain.CategoryPresentations},
		{"clip.mp4", domain.CategoryVideos},
		{"song.mp3", domain.CategoryAudio},
		{"backup.tar", domain.CategoryArchives},
		{"main.go", domain.CategoryCode},
		{"schema.sql", domain.CategoryData},
		{"mystery.xyz", domain.CategoryUncategorized},
		{"no-extension", domain.CategoryUncategorized},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := c.Classify(tt.filename, ""); got != tt.want {
				t.Errorf("Classify(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestClassify_ExtensionWinsOverContentType(t *testing.T) {
	c := New(DefaultConfig())

	// Declared content type contradicts the extension; extension wins.
	if got := c.Classify("photo.png", "application/pdf"); got != domain.CategoryImages {
		t.Errorf("Classify = %q, want %q", got, domain.CategoryImages)
	}
	if got := c.Classify("report.pdf", "image/png"); got != domain.CategoryDocuments {
		t.Errorf("Classify = %q, want %q", got, domain.CategoryDocuments)
	}
}

func TestClassify_ContentTypeFallback(t *testing.T) {
	c := New(DefaultConfig())

	tests := []struct {
		name        string
		filename    string
		contentType string
		want        domain.Category
	}{
		{"pdf content type", "data.xyz", "application/pdf", domain.CategoryDocuments},
		{"image prefix", "data.xyz", "image/webp", domain.CategoryImages},
		{"video prefix", "data.xyz", "video/mp4", domain.CategoryVideos},
		{"audio prefix", "data.xyz", "audio/mpeg", domain.CategoryAudio},
		{"text prefix", "data.xyz", "text/plain", domain.CategoryDocuments},
		{"word document", "data.xyz", "application/msword", domain.CategoryDocuments},
		{"openxml spreadsheet", "data.xyz", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", domain.CategorySpreadsheets},
		{"openxml presentation", "data.xyz", "application/vnd.openxmlformats-officedocument.presentationml.presentation", domain.CategoryPresentations},
		{"zip", "data.xyz", "application/zip", domain.CategoryArchives},
		{"json", "data.xyz", "application/json", domain.CategoryData},
		{"unknown both", "data.xyz", "application/octet-stream", domain.CategoryUncategorized},
		{"no content type", "data.xyz", "", domain.CategoryUncategorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.filename, tt.contentType); got != tt.want {
				t.Errorf("Classify(%q, %q) = %q, want %q", tt.filename, tt.contentType, got, tt.want)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	c := New(DefaultConfig())
	first := c.Classify("archive.gz", "")
	for i := 0; i < 10; i++ {
		if got := c.Classify("archive.gz", ""); got != first {
			t.Fatalf("classification not deterministic: %q vs %q", got, first)
		}
	}
}

func TestExtension(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"report.PDF", "pdf"},
		{"archive.tar.gz", "gz"},
		{"noext", ""},
		{"trailing.", ""},
		{".hidden", "hidden"},
	}

	for _, tt := range tests {
		if got := Extension(tt.filename); got != tt.want {
			t.Errorf("Extension(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
