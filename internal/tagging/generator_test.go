package tagging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/filedrop/filedrop-server/internal/audioinfo"
	"github.com/filedrop/filedrop-server/internal/domain"
)

// fakeLabeler is a scripted vision.Labeler for tests.
type fakeLabeler struct {
	labels []string
	err    error
	calls  int
}

func (f *fakeLabeler) LabelImage(_ context.Context, _ string) ([]string, error) {
	f.calls++
	return f.labels, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestGenerator(labeler *fakeLabeler) *Generator {
	return New(Config{MaxTags: 10}, labeler, testLogger())
}

func testFile(name string, cat domain.Category) *domain.File {
	return &domain.File{
		ID:           "file-test",
		OriginalName: name,
		Path:         "2026/08/31/abc.bin",
		Category:     cat,
	}
}

func TestGenerate_BaseTags(t *testing.T) {
	g := newTestGenerator(&fakeLabeler{})

	tags := g.Generate(context.Background(), testFile("anything.xyz", domain.CategoryUncategorized))
	assert.Equal(t, []string{"uncategorized", "xyz"}, tags)
}

func TestGenerate_NoExtension(t *testing.T) {
	g := newTestGenerator(&fakeLabeler{})

	tags := g.Generate(context.Background(), testFile("README", domain.CategoryUncategorized))
	assert.Equal(t, []string{"uncategorized"}, tags)
}

func TestGenerate_Documents(t *testing.T) {
	g := newTestGenerator(&fakeLabeler{})

	tags := g.Generate(context.Background(), testFile("Quarterly-Report-2026.pdf", domain.CategoryDocuments))

	assert.Contains(t, tags, "documents")
	assert.Contains(t, tags, "pdf")
	assert.Contains(t, tags, "quarterly")
	assert.Contains(t, tags, "report")
	assert.Contains(t, tags, "2026")
	// Short tokens are filtered.
	assert.NotContains(t, tags, "to")
}

func TestGenerate_Images_WithLabels(t *testing.T) {
	labeler := &fakeLabeler{labels: []string{"beach", "sunset"}}
	g := newTestGenerator(labeler)

	tags := g.Generate(context.Background(), testFile("IMG_1234.jpg", domain.CategoryImages))

	assert.Contains(t, tags, "images")
	assert.Contains(t, tags, "jpg")
	assert.Contains(t, tags, "beach")
	assert.Contains(t, tags, "sunset")
	assert.Equal(t, 1, labeler.calls)
}

func TestGenerate_Images_LabelerFails(t *testing.T) {
	labeler := &fakeLabeler{err: errors.New("api unavailable")}
	g := newTestGenerator(labeler)

	tags := g.Generate(context.Background(), testFile("IMG_1234.jpg", domain.CategoryImages))

	// Degraded to base tags only, no error surfaced.
	assert.Equal(t, []string{"images", "jpg"}, tags)
}

func TestGenerate_Images_LabelerDisabled(t *testing.T) {
	g := newTestGenerator(&fakeLabeler{}) // returns no labels

	file := testFile("photo.png", domain.CategoryImages)
	file.Metadata = map[string]any{"tags": []any{"holiday"}}

	tags := g.Generate(context.Background(), file)
	assert.Equal(t, []string{"images", "png", "holiday"}, tags)
}

func TestGenerate_Spreadsheets(t *testing.T) {
	g := newTestGenerator(&fakeLabeler{})

	tests := []struct {
		filename string
		wantTag  string
	}{
		{"budget.xlsx", "excel"},
		{"budget.xls", "excel"},
		{"export.csv", "csv"},
		{"sheet.ods", "openoffice"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			tags := g.Generate(context.Background(), testFile(tt.filename, domain.CategorySpreadsheets))
			assert.Contains(t, tags, "data")
			assert.Contains(t, tags, "spreadsheet")
			assert.Contains(t, tags, tt.wantTag)
		})
	}
}

func TestGenerate_Videos(t *testing.T) {
	g := newTestGenerator(&fakeLabeler{})

	tags := g.Generate(context.Background(), testFile("Vacation-Clip.mp4", domain.CategoryVideos))

	assert.Contains(t, tags, "videos")
	assert.Contains(t, tags, "video")
	assert.Contains(t, tags, "multimedia")
	assert.Contains(t, tags, "vacation")
	assert.Contains(t, tags, "clip")
	assert.Contains(t, tags, "mp4")
}

func TestGenerate_Audio(t *testing.T) {
	g := newTestGenerator(&fakeLabeler{})

	tags := g.Generate(context.Background(), testFile("podcast-episode.mp3", domain.CategoryAudio))

	assert.Contains(t, tags, "audio")
	assert.Contains(t, tags, "sound")
	assert.Contains(t, tags, "podcast")
	assert.Contains(t, tags, "episode")
}

func TestGenerate_Audio_EmbeddedTags(t *testing.T) {
	g := newTestGenerator(&fakeLabeler{})

	file := testFile("track07.mp3", domain.CategoryAudio)
	file.Metadata = map[string]any{
		"audio": &audioinfo.Meta{Artist: "Miles Davis", Album: "Kind of Blue"},
	}

	tags := g.Generate(context.Background(), file)
	assert.Contains(t, tags, "miles davis")
	assert.Contains(t, tags, "kind of blue")
}

func TestGenerate_Audio_NoEmbeddedTags(t *testing.T) {
	g := newTestGenerator(&fakeLabeler{})

	tags := g.Generate(context.Background(), testFile("track07.mp3", domain.CategoryAudio))
	assert.Contains(t, tags, "audio")
	assert.NotContains(t, tags, "")
}

func TestGenerate_Code(t *testing.T) {
	g := newTestGenerator(&fakeLabeler{})

	tests := []struct {
		filename string
		want     string
	}{
		{"main.go", "golang"},
		{"app.py", "python"},
		{"index.js", "javascript"},
		{"program.cpp", "c++"},
	}

	for _, tt := range tests {
		tags := g.Generate(context.Background(), testFile(tt.filename, domain.CategoryCode))
		assert.Contains(t, tags, tt.want)
	}

	// Unrecognized code extension adds nothing beyond base tags.
	tags := g.Generate(context.Background(), testFile("script.zig", domain.CategoryCode))
	assert.Equal(t, []string{"code", "zig"}, tags)
}

func TestGenerate_MetadataTags(t *testing.T) {
	g := newTestGenerator(&fakeLabeler{})

	file := testFile("report.pdf", domain.CategoryDocuments)
	file.Metadata = map[string]any{"tags": []any{"Q3", "finance"}}

	tags := g.Generate(context.Background(), file)
	assert.Contains(t, tags, "q3")
	assert.Contains(t, tags, "finance")
}

func TestGenerate_MetadataTagsCanonicalized(t *testing.T) {
	g := newTestGenerator(&fakeLabeler{})

	file := testFile("report.pdf", domain.CategoryDocuments)
	file.Metadata = map[string]any{"tags": []any{" Holiday ", "HOLIDAY", "  "}}

	tags := g.Generate(context.Background(), file)
	assert.Contains(t, tags, "holiday")
	assert.NotContains(t, tags, " Holiday ")
	assert.NotContains(t, tags, "HOLIDAY")
	assert.NotContains(t, tags, "")

	count := 0
	for _, tag := range tags {
		if tag == "holiday" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestGenerate_DedupeCaseInsensitive(t *testing.T) {
	g := newTestGenerator(&fakeLabeler{})

	file := testFile("report.pdf", domain.CategoryDocuments)
	// "PDF" and "Report" duplicate generated tags, differing only in case.
	file.Metadata = map[string]any{"tags": []any{"PDF", "Report", "new"}}

	tags := g.Generate(context.Background(), file)

	seen := make(map[string]int)
	for _, tag := range tags {
		seen[strings.ToLower(tag)]++
	}
	for name, count := range seen {
		assert.Equal(t, 1, count, "tag %q appears %d times", name, count)
	}
	assert.Contains(t, tags, "new")
}

func TestGenerate_Cap(t *testing.T) {
	g := New(Config{MaxTags: 5}, &fakeLabeler{}, testLogger())

	file := testFile("one-two-three-four-five-six-seven-eight.pdf", domain.CategoryDocuments)
	tags := g.Generate(context.Background(), file)

	assert.LessOrEqual(t, len(tags), 5)
}

func TestGenerate_DefaultCap(t *testing.T) {
	g := New(Config{}, &fakeLabeler{labels: []string{
		"a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8", "a9", "a10", "a11", "a12",
	}}, testLogger())

	tags := g.Generate(context.Background(), testFile("x.jpg", domain.CategoryImages))
	assert.Len(t, tags, DefaultMaxTags)
}

func TestTokenizeFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     []string
	}{
		{"Quarterly Report.pdf", []string{"quarterly", "report"}},
		{"a-b-c.txt", nil},
		{"meeting notes v2.docx", []string{"meeting", "notes"}},
		{"2026-08-31-summary.md", []string{"2026", "summary"}},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenizeFilename(tt.filename))
		})
	}
}
