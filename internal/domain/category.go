package domain

// Category is the storage category a file is sorted into.
type Category string

// File categories. The order of AllCategories is the classification
// priority order: when an extension appears in more than one category's
// table, the earlier category wins.
const (
	CategoryImages        Category = "images"
	CategoryDocuments     Category = "documents"
	CategorySpreadsheets  Category = "spreadsheets"
	CategoryPresentations Category = "presentations"
	CategoryVideos        Category = "videos"
	CategoryAudio         Category = "audio"
	CategoryArchives      Category = "archives"
	CategoryCode          Category = "code"
	CategoryData          Category = "data"
	CategoryUncategorized Category = "uncategorized"
)

// AllCategories lists every category in classification priority order.
var AllCategories = []Category{
	CategoryImages,
	CategoryDocuments,
	CategorySpreadsheets,
	CategoryPresentations,
	CategoryVideos,
	CategoryAudio,
	CategoryArchives,
	CategoryCode,
	CategoryData,
	CategoryUncategorized,
}

// String returns the category as a string.
func (c Category) String() string {
	return string(c)
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}
