package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/rwcarlsen/goexif/exif"
)

// Metadata holds the pixel dimensions and the EXIF subset captured at
// ingest. EXIF fields stay nil when the source carries no usable tags.
type Metadata struct {
	Width       int
	Height      int
	CameraMake  *string
	CameraModel *string
	TakenAt     *int64 // Unix timestamp
}

// ExtractMetadata reads dimensions and camera information from an encoded
// image. Only an undecodable image is an error; missing EXIF is normal
// (PNG has none at all).
func ExtractMetadata(src []byte) (*Metadata, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image config: %w", err)
	}
	meta := &Metadata{Width: cfg.Width, Height: cfg.Height}

	exifData, err := exif.Decode(bytes.NewReader(src))
	if err != nil {
		return meta, nil
	}

	if tag, tagErr := exifData.Get(exif.Make); tagErr == nil {
		if val, valErr := tag.StringVal(); valErr == nil && val != "" {
			meta.CameraMake = &val
		}
	}
	if tag, tagErr := exifData.Get(exif.Model); tagErr == nil {
		if val, valErr := tag.StringVal(); valErr == nil && val != "" {
			meta.CameraModel = &val
		}
	}
	if dt, dtErr := exifData.DateTime(); dtErr == nil {
		ts := dt.Unix()
		meta.TakenAt = &ts
	}

	return meta, nil
}
