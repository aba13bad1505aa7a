// Package classify assigns a category to uploaded files from their name and
// declared content type. Classification is a pure function over static tables:
// extension lookup first, content-type fallback second, uncategorized last.
package classify

import (
	"path/filepath"
	"strings"

	"github.com/filedrop/filedrop-server/internal/domain"
)

// Config holds the classification tables. Tables are injected at construction
// so tests can exercise the classifier with custom mappings.
type Config struct {
	// Extensions maps each category to its recognized extensions
	// (lowercase, without the leading dot).
	Extensions map[domain.Category][]string
}

// DefaultConfig returns the built-in classification tables.
func DefaultConfig() Config {
	return Config{
		Extensions: map[domain.Category][]string{
			domain.CategoryImages:        {"jpg", "jpeg", "png", "gif", "bmp", "tiff", "svg", "webp", "ico", "raw", "psd"},
			domain.CategoryDocuments:     {"pdf", "doc", "docx", "txt", "rtf", "odt", "md", "tex", "epub", "mobi", "azw", "pages"},
			domain.CategorySpreadsheets:  {"xls", "xlsx", "csv", "tsv", "ods", "numbers", "xlsm", "xlsb", "xltx", "xltm"},
			domain.CategoryPresentations: {"ppt", "pptx", "key", "odp", "pps", "ppsx"},
			domain.CategoryVideos:        {"mp4", "mov", "avi", "mkv", "wmv", "flv", "webm", "m4v", "mpg", "mpeg", "3gp", "ogv"},
			domain.CategoryAudio:         {"mp3", "wav", "flac", "aac", "ogg", "wma", "m4a", "opus", "alac", "aiff", "mid", "midi"},
			domain.CategoryArchives:      {"zip", "rar", "7z", "tar", "gz", "bz2", "xz", "iso"},
			domain.CategoryCode:          {"py", "js", "ts", "html", "css", "java", "cpp", "c", "h", "cs", "php", "rb", "go", "swift"},
			domain.CategoryData:          {"db", "sqlite", "sql", "json", "xml", "yaml", "yml", "parquet", "feather", "hdf5", "h5"},
		},
	}
}

// contentTypeRule matches a declared content type to a category.
// Prefix rules match the start of the MIME type; substring rules match anywhere.
type contentTypeRule struct {
	match     string
	substring bool
	category  domain.Category
}

// contentTypeRules is evaluated in order; the first match wins.
var contentTypeRules = []contentTypeRule{
	{match: "image/", category: domain.CategoryImages},
	{match: "video/", category: domain.CategoryVideos},
	{match: "audio/", category: domain.CategoryAudio},
	{match: "text/", category: domain.CategoryDocuments},
	{match: "application/pdf", substring: true, category: domain.CategoryDocuments},
	{match: "msword", substring: true, category: domain.CategoryDocuments},
	{match: "wordprocessingml", substring: true, category: domain.CategoryDocuments},
	{match: "spreadsheetml", substring: true, category: domain.CategorySpreadsheets},
	{match: "ms-excel", substring: true, category: domain.CategorySpreadsheets},
	{match: "presentationml", substring: true, category: domain.CategoryPresentations},
	{match: "ms-powerpoint", substring: true, category: domain.CategoryPresentations},
	{match: "application/zip", category: domain.CategoryArchives},
	{match: "application/x-tar", category: domain.CategoryArchives},
	{match: "application/gzip", category: domain.CategoryArchives},
	{match: "application/json", category: domain.CategoryData},
	{match: "application/xml", category: domain.CategoryData},
}

// Classifier maps filenames and declared content types to categories.
// Stateless and safe for concurrent use.
type Classifier struct {
	// byExtension is the inverted extension table, resolved in
	// domain.AllCategories order so earlier categories win collisions.
	byExtension map[string]domain.Category
}

// New creates a classifier from the given tables.
func New(cfg Config) *Classifier {
	byExt := make(map[string]domain.Category)
	for _, cat := range domain.AllCategories {
		for _, ext := range cfg.Extensions[cat] {
			ext = strings.ToLower(ext)
			if _, taken := byExt[ext]; !taken {
				byExt[ext] = cat
			}
		}
	}
	return &Classifier{byExtension: byExt}
}

// Classify determines a file's category.
//
// The extension table always takes priority over the declared content type.
// Total function: unknown inputs yield CategoryUncategorized, never an error.
func (c *Classifier) Classify(filename, contentType string) domain.Category {
	if ext := Extension(filename); ext != "" {
		if cat, ok := c.byExtension[ext]; ok {
			return cat
		}
	}

	if contentType != "" {
		ct := strings.ToLower(strings.TrimSpace(contentType))
		for _, rule := range contentTypeRules {
			if rule.substring {
				if strings.Contains(ct, rule.match) {
					return rule.category
				}
			} else if strings.HasPrefix(ct, rule.match) {
				return rule.category
			}
		}
	}

	return domain.CategoryUncategorized
}

// Extension returns the lowercase extension of filename without the leading
// dot, or "" when the filename has none.
func Extension(filename string) string {
	ext := filepath.Ext(filename)
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
