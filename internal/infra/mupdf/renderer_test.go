package mupdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/jpeg"
	"image/png"
	"testing"

	"pdf2image/internal/domain"
)

// minimalPDF builds a valid single-page PDF in memory, tracking xref offsets
// as objects are appended.
func minimalPDF(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	var offsets []int
	add := func(s string) {
		offsets = append(offsets, buf.Len())
		buf.WriteString(s)
	}
	buf.WriteString("%PDF-1.4\n")
	add("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")
	add("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")
	add("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>\nendobj\n")
	xref := buf.Len()
	buf.WriteString("xref\n0 4\n0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 4 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)
	return buf.Bytes()
}

func TestRenderPage_PNGWidth(t *testing.T) {
	out, err := RenderPage(context.Background(), minimalPDF(t), domain.RenderOptions{Page: 0, Width: 200, Format: domain.FormatPNG}, 90)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("expected PNG output: %v", err)
	}
	if got := img.Bounds().Dx(); got != 200 {
		t.Fatalf("expected width 200, got %d", got)
	}
}

func TestRenderPage_JPEG(t *testing.T) {
	out, err := RenderPage(context.Background(), minimalPDF(t), domain.RenderOptions{Page: 0, Width: 120, Format: domain.FormatJPEG}, 80)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("expected JPEG output: %v", err)
	}
	if cfg.Width != 120 {
		t.Fatalf("expected width 120, got %d", cfg.Width)
	}
}

func TestRenderPage_PageOutOfRange(t *testing.T) {
	_, err := RenderPage(context.Background(), minimalPDF(t), domain.RenderOptions{Page: 5, Width: 100, Format: domain.FormatPNG}, 90)
	if !errors.Is(err, ErrPageOutOfRange) {
		t.Fatalf("expected ErrPageOutOfRange, got %v", err)
	}
}

func TestRenderPage_BadDocument(t *testing.T) {
	_, err := RenderPage(context.Background(), []byte("certainly not a pdf"), domain.RenderOptions{Width: 100, Format: domain.FormatPNG}, 90)
	if !errors.Is(err, ErrBadDocument) {
		t.Fatalf("expected ErrBadDocument, got %v", err)
	}
}

func TestRenderPage_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := RenderPage(ctx, minimalPDF(t), domain.RenderOptions{Width: 100, Format: domain.FormatPNG}, 90); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestPageCount(t *testing.T) {
	n, err := PageCount(minimalPDF(t))
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 page, got %d", n)
	}
	if _, err := PageCount([]byte("junk")); !errors.Is(err, ErrBadDocument) {
		t.Fatalf("expected ErrBadDocument for junk, got %v", err)
	}
}
