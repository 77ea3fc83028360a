// Package thumbnail produces bounded-dimension derivatives of uploaded images.
package thumbnail

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/atinyakov/imagerepo/internal/models"
)

// DefaultSize is the longest edge, in pixels, of a generated thumbnail.
const DefaultSize = 64

// MaxPixels bounds width*height of an image that will be decoded for resizing.
const MaxPixels = 64 << 20

// Resizer scales images so that their longest edge does not exceed Size.
type Resizer struct {
	// Size is the maximum width or height of the result.
	Size int
}

// NewResizer returns a Resizer bounded by size. A non-positive size falls back to DefaultSize.
func NewResizer(size int) *Resizer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Resizer{Size: size}
}

// Thumbnail returns a derivative of data whose longest edge is at most r.Size.
// If the image already fits, data is returned unchanged. The result keeps the source format.
func (r *Resizer) Thumbnail(data []byte, mimeType string) ([]byte, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, models.Invalid("image", "unsupported or corrupt image data")
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, models.Invalid("image", "image has zero size")
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, models.Invalid("image", fmt.Sprintf("image is too large: %dx%d", cfg.Width, cfg.Height))
	}
	if max(cfg.Width, cfg.Height) <= r.Size {
		return data, nil
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, models.Invalid("image", "unsupported or corrupt image data")
	}

	w, h := scaled(cfg.Width, cfg.Height, r.Size)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	switch format {
	case "jpeg":
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 85})
	case "png":
		err = png.Encode(&buf, dst)
	case "gif":
		err = gif.Encode(&buf, dst, nil)
	case "bmp":
		err = bmp.Encode(&buf, dst)
	case "tiff":
		err = tiff.Encode(&buf, dst, nil)
	default:
		return nil, models.Invalid("image", fmt.Sprintf("cannot resize %s (%s) images", format, mimeType))
	}
	if err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// scaled shrinks w x h proportionally so that the longer side equals bound.
func scaled(w, h, bound int) (int, int) {
	if w >= h {
		return bound, max(1, h*bound/w)
	}
	return max(1, w*bound/h), bound
}
