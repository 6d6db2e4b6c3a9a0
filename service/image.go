package service

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	// Register webp so imaging.Decode accepts it; re-encoding is always JPEG.
	_ "golang.org/x/image/webp"
)

// Raster normalization bounds. Images larger than MaxImageEdge on their
// longest side are scaled down, and the JPEG quality drops with them since a
// resized upload was oversized to begin with.
const (
	MaxImageEdge        = 1600
	jpegQuality         = 85
	jpegQualityResized  = 75
	svgContentType      = "image/svg+xml"
	normalizedType      = "image/jpeg"
	normalizedExtension = ".jpg"
)

// ErrUnsupportedType is returned for uploads that are neither a decodable
// raster image nor an SVG.
var ErrUnsupportedType = fmt.Errorf("only images and vector graphics are allowed")

// Normalize re-encodes a raster upload to JPEG with the longest edge capped at
// MaxImageEdge. Vector graphics pass through byte-for-byte. It returns the
// bytes to store plus their content type and file extension.
func Normalize(data []byte, filename, contentType string) ([]byte, string, string, error) {
	if isSVG(filename, contentType) {
		return data, svgContentType, ".svg", nil
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", "", ErrUnsupportedType
	}

	quality := jpegQuality
	bounds := img.Bounds()
	if bounds.Dx() > MaxImageEdge || bounds.Dy() > MaxImageEdge {
		if bounds.Dx() >= bounds.Dy() {
			img = imaging.Resize(img, MaxImageEdge, 0, imaging.Lanczos)
		} else {
			img = imaging.Resize(img, 0, MaxImageEdge, imaging.Lanczos)
		}
		quality = jpegQualityResized
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, "", "", err
	}
	return buf.Bytes(), normalizedType, normalizedExtension, nil
}

func isSVG(filename, contentType string) bool {
	if strings.Contains(contentType, "svg") {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".svg")
}
