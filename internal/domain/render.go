package domain

import (
	"errors"
	"fmt"
)

// ImageFormat selects the encoding of a rendered page.
type ImageFormat string

const (
	FormatPNG  ImageFormat = "png"
	FormatJPEG ImageFormat = "jpeg"
)

// ErrUnknownFormat signals a format value outside the supported set.
var ErrUnknownFormat = errors.New("unknown image format")

// ParseImageFormat normalises a user-supplied format string. Empty input
// selects PNG.
func ParseImageFormat(s string) (ImageFormat, error) {
	switch s {
	case "", "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type for the format.
func (f ImageFormat) ContentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// RenderOptions holds validated parameters for a single page render.
type RenderOptions struct {
	// Page is the zero-based page index.
	Page int
	// Width is the target image width in pixels; height follows the page
	// aspect ratio.
	Width  int
	Format ImageFormat
}
