// Package thumbnail generates bounded-size previews of image attachments.
package thumbnail

import (
	"bytes"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	// Register the WebP decoder with image.Decode.
	_ "golang.org/x/image/webp"
)

// MaxSize bounds both dimensions of a thumbnail.
const MaxSize = 320

// IsImage reports whether a content type can be thumbnailed.
func IsImage(contentType string) bool {
	switch strings.ToLower(contentType) {
	case "image/png", "image/jpeg", "image/jpg", "image/gif", "image/bmp", "image/tiff", "image/webp":
		return true
	}
	return false
}

// Generate decodes an image and returns a thumbnail fitting in MaxSize x MaxSize
// with its content type. PNG and WebP become PNG to keep transparency, everything else is JPEG.
func Generate(r io.Reader, contentType string) ([]byte, string, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to decode image")
	}

	bounds := img.Bounds()
	if bounds.Dx() > MaxSize || bounds.Dy() > MaxSize {
		img = imaging.Fit(img, MaxSize, MaxSize, imaging.Lanczos)
	}

	format, outType := imaging.JPEG, "image/jpeg"
	if strings.EqualFold(contentType, "image/png") || strings.EqualFold(contentType, "image/webp") {
		format, outType = imaging.PNG, "image/png"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(80)); err != nil {
		return nil, "", errors.Wrap(err, "failed to encode thumbnail")
	}
	return buf.Bytes(), outType, nil
}
