package domain

import (
	"errors"
	"testing"
)

func TestParseImageFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ImageFormat
		wantErr bool
	}{
		{in: "", want: FormatPNG},
		{in: "png", want: FormatPNG},
		{in: "jpeg", want: FormatJPEG},
		{in: "jpg", want: FormatJPEG},
		{in: "webp", wantErr: true},
		{in: "PNG", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseImageFormat(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrUnknownFormat) {
				t.Fatalf("ParseImageFormat(%q): expected ErrUnknownFormat, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseImageFormat(%q) = (%q, %v), want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestImageFormatContentType(t *testing.T) {
	if FormatPNG.ContentType() != "image/png" {
		t.Fatalf("unexpected png content type")
	}
	if FormatJPEG.ContentType() != "image/jpeg" {
		t.Fatalf("unexpected jpeg content type")
	}
}
