package domain

import "errors"

var (
	// ErrBadDocument signals that an upload could not be opened as a PDF.
	ErrBadDocument = errors.New("cannot open document")
	// ErrPageOutOfRange signals a page index beyond the document's last page.
	ErrPageOutOfRange = errors.New("page out of range")
)
