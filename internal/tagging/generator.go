// Package tagging derives candidate tag names for uploaded files.
//
// Every file gets two base tags (its category and extension); a per-category
// rule then contributes more, and caller-supplied metadata tags are appended
// verbatim. The result is case-insensitively de-duplicated and capped.
package tagging

import (
	"context"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/filedrop/filedrop-server/internal/audioinfo"
	"github.com/filedrop/filedrop-server/internal/classify"
	"github.com/filedrop/filedrop-server/internal/domain"
	"github.com/filedrop/filedrop-server/internal/vision"
)

// DefaultMaxTags is the fallback cap on generated tags per file.
const DefaultMaxTags = 10

// minTokenLength filters noise words out of filename tokenization.
const minTokenLength = 3

var wordPattern = regexp.MustCompile(`\w+`)

// Config holds tag generation settings.
type Config struct {
	// MaxTags caps the candidate set per file (default 10).
	MaxTags int
	// StorageBasePath is joined with a file's relative path when the
	// enrichment provider needs the on-disk location.
	StorageBasePath string
}

// ruleFunc contributes category-specific candidate tags for a file.
type ruleFunc func(ctx context.Context, g *Generator, file *domain.File) []string

// Generator produces candidate tag names for classified files.
type Generator struct {
	cfg     Config
	labeler vision.Labeler
	rules   map[domain.Category]ruleFunc
	logger  *slog.Logger
}

// New creates a tag generator. The labeler is only consulted for image files;
// pass vision.NewDisabled for deployments without credentials.
func New(cfg Config, labeler vision.Labeler, logger *slog.Logger) *Generator {
	if cfg.MaxTags <= 0 {
		cfg.MaxTags = DefaultMaxTags
	}

	g := &Generator{
		cfg:     cfg,
		labeler: labeler,
		logger:  logger,
	}

	// Category dispatch. Adding a category means adding an entry here,
	// not touching the existing rules.
	g.rules = map[domain.Category]ruleFunc{
		domain.CategoryImages:       ruleImages,
		domain.CategoryDocuments:    ruleDocuments,
		domain.CategorySpreadsheets: ruleSpreadsheets,
		domain.CategoryVideos:       ruleVideos,
		domain.CategoryAudio:        ruleAudio,
		domain.CategoryCode:         ruleCode,
	}

	return g
}

// Generate returns candidate tag names for the file: at most MaxTags entries,
// no case-insensitive duplicates. It never fails; enrichment errors degrade
// to the base tag set.
func (g *Generator) Generate(ctx context.Context, file *domain.File) []string {
	var candidates []string

	// Base tags: category name and extension.
	candidates = append(candidates, file.Category.String())
	if ext := classify.Extension(file.OriginalName); ext != "" {
		candidates = append(candidates, ext)
	}

	if rule, ok := g.rules[file.Category]; ok {
		candidates = append(candidates, rule(ctx, g, file)...)
	}

	// Caller-supplied tags from metadata: category rules never filter them,
	// dedupeAndCap canonicalizes them with everything else.
	candidates = append(candidates, file.MetadataTags()...)

	return dedupeAndCap(candidates, g.cfg.MaxTags)
}

// ruleImages asks the enrichment provider for labels. Soft dependency:
// any failure is logged and contributes nothing.
func ruleImages(ctx context.Context, g *Generator, file *domain.File) []string {
	fullPath := filepath.Join(g.cfg.StorageBasePath, file.Path)

	labels, err := g.labeler.LabelImage(ctx, fullPath)
	if err != nil {
		g.logger.Warn("image labeling failed, using base tags only",
			"file_id", file.ID,
			"path", file.Path,
			"error", err,
		)
		return nil
	}

	out := make([]string, 0, len(labels))
	for _, label := range labels {
		out = append(out, strings.ToLower(label))
	}
	return out
}

// ruleDocuments derives tags from the filename's words.
func ruleDocuments(_ context.Context, _ *Generator, file *domain.File) []string {
	return tokenizeFilename(file.OriginalName)
}

// spreadsheetExtTags maps spreadsheet extensions to a product tag.
var spreadsheetExtTags = map[string]string{
	"xlsx": "excel",
	"xls":  "excel",
	"csv":  "csv",
	"ods":  "openoffice",
}

func ruleSpreadsheets(_ context.Context, _ *Generator, file *domain.File) []string {
	tags := []string{"data", "spreadsheet"}
	tags = append(tags, tokenizeFilename(file.OriginalName)...)
	if tag, ok := spreadsheetExtTags[classify.Extension(file.OriginalName)]; ok {
		tags = append(tags, tag)
	}
	return tags
}

// videoExts are the extensions that earn a format tag on video files.
var videoExts = map[string]bool{"mp4": true, "mov": true, "avi": true, "mkv": true}

func ruleVideos(_ context.Context, _ *Generator, file *domain.File) []string {
	tags := []string{"video", "multimedia"}
	tags = append(tags, tokenizeFilename(file.OriginalName)...)
	if ext := classify.Extension(file.OriginalName); videoExts[ext] {
		tags = append(tags, ext)
	}
	return tags
}

// audioExts are the extensions that earn a format tag on audio files.
var audioExts = map[string]bool{"mp3": true, "wav": true, "flac": true, "ogg": true, "m4a": true}

// audioMetadataKey is where upload enrichment stores extracted audio tags.
const audioMetadataKey = "audio"

func ruleAudio(_ context.Context, _ *Generator, file *domain.File) []string {
	tags := []string{"audio", "sound"}
	tags = append(tags, tokenizeFilename(file.OriginalName)...)
	if ext := classify.Extension(file.OriginalName); audioExts[ext] {
		tags = append(tags, ext)
	}

	// Embedded tags from enrichment. Soft dependency: files without parsed
	// audio metadata keep the base set.
	if meta := audioinfo.FromMetadata(file.Metadata, audioMetadataKey); meta != nil {
		if meta.Artist != "" {
			tags = append(tags, meta.Artist)
		}
		if meta.Album != "" {
			tags = append(tags, meta.Album)
		}
	}
	return tags
}

// languageByExt maps code extensions to a language tag.
var languageByExt = map[string]string{
	"py":    "python",
	"js":    "javascript",
	"ts":    "typescript",
	"html":  "html",
	"css":   "css",
	"java":  "java",
	"cpp":   "c++",
	"c":     "c",
	"cs":    "csharp",
	"go":    "golang",
	"rb":    "ruby",
	"php":   "php",
	"swift": "swift",
	"json":  "json",
	"xml":   "xml",
}

func ruleCode(_ context.Context, _ *Generator, file *domain.File) []string {
	if lang, ok := languageByExt[classify.Extension(file.OriginalName)]; ok {
		return []string{lang}
	}
	return nil
}

// tokenizeFilename splits the name (extension stripped) into lowercase
// word-character runs longer than two characters.
func tokenizeFilename(filename string) []string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	var tokens []string
	for _, word := range wordPattern.FindAllString(strings.ToLower(base), -1) {
		if len(word) >= minTokenLength {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

// dedupeAndCap canonicalizes each name, removes duplicates (first occurrence
// wins) and truncates the list to max entries. Names that are empty after
// normalization are dropped.
func dedupeAndCap(names []string, max int) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))

	for _, raw := range names {
		name := domain.NormalizeTagName(raw)
		if name == "" {
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
		if len(out) == max {
			break
		}
	}
	return out
}
