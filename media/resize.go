package media

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
)

const (
	ThumbnailJpegQuality   = 90
	ThumbnailFileExtension = ".jpg"
)

// ErrInvalidResize is returned when the requested height exceeds the source
// image's height. Upscaling is never performed.
var ErrInvalidResize = errors.New("requested height exceeds original image height")

// Resize decodes src, scales it so the result has exactly targetHeight
// pixels with the aspect ratio preserved (width = floor(srcWidth * ratio)),
// and re-encodes as JPEG. The function is pure: identical inputs always
// yield an image of identical dimensions.
func Resize(src []byte, targetHeight int) ([]byte, error) {
	if targetHeight <= 0 {
		return nil, fmt.Errorf("invalid target height %d", targetHeight)
	}

	img, err := imaging.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to decode source image: %w", err)
	}

	bounds := img.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()
	if srcWidth <= 0 || srcHeight <= 0 {
		return nil, fmt.Errorf("invalid source image dimensions: %dx%d", srcWidth, srcHeight)
	}
	if targetHeight > srcHeight {
		return nil, ErrInvalidResize
	}

	ratio := float64(targetHeight) / float64(srcHeight)
	targetWidth := int(float64(srcWidth) * ratio)
	if targetWidth < 1 {
		targetWidth = 1
	}

	resized := imaging.Resize(img, targetWidth, targetHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(ThumbnailJpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}
