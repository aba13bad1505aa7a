// Package imagemeta extracts display metadata from uploaded images.
package imagemeta

import (
	"fmt"
	"image"
	"io"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/bbrks/go-blurhash"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Components used when encoding the blurhash. 4x3 matches the hash size
// most clients expect for thumbnails.
const (
	blurhashXComponents = 4
	blurhashYComponents = 3
)

// Meta holds extracted image properties.
type Meta struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
	BlurHash string `json:"blurhash,omitempty"`
}

// Extract decodes an image and returns its dimensions, format, and blurhash
// placeholder. Unsupported or corrupt images return an error; callers treat
// extraction as best effort.
func Extract(r io.Reader) (*Meta, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	meta := &Meta{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: format,
	}

	hash, err := blurhash.Encode(blurhashXComponents, blurhashYComponents, img)
	if err == nil {
		meta.BlurHash = hash
	}

	return meta, nil
}
