package mupdf

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"

	"pdf2image/internal/domain"
)

// ErrBadDocument and ErrPageOutOfRange are re-exported so callers of this
// package do not need to import domain for error classification.
var (
	ErrBadDocument    = domain.ErrBadDocument
	ErrPageOutOfRange = domain.ErrPageOutOfRange
)

// sharpenSigma is applied after downscaling to keep small text legible.
const sharpenSigma = 0.5

// RenderPage renders one page of the given PDF to an encoded image. The
// context is checked between pipeline stages; MuPDF calls themselves are
// not interruptible.
func RenderPage(ctx context.Context, data []byte, opts domain.RenderOptions, jpegQuality int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDocument, err)
	}
	defer doc.Close()

	if n := doc.NumPage(); opts.Page >= n {
		return nil, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, opts.Page, n)
	}

	img, err := doc.Image(opts.Page)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", opts.Page, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resized := imaging.Resize(img, opts.Width, 0, imaging.Lanczos)
	sharpened := imaging.Sharpen(resized, sharpenSigma)

	var buf bytes.Buffer
	switch opts.Format {
	case domain.FormatJPEG:
		err = jpeg.Encode(&buf, sharpened, &jpeg.Options{Quality: jpegQuality})
	default:
		err = png.Encode(&buf, sharpened)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", opts.Format, err)
	}
	return buf.Bytes(), nil
}

// PageCount reports the number of pages in the given PDF.
func PageCount(data []byte) (int, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadDocument, err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}
