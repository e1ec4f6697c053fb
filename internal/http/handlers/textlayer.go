package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"pdf2image/internal/domain"
	"pdf2image/internal/infra/logging"
	"pdf2image/internal/textlayer"
)

// HandleTextLayer returns the page's text layer as an SVG overlay.
func (svc *RenderService) HandleTextLayer(c *fiber.Ctx) error {
	opts, err := validateRenderOptions(c, *svc.Config)
	if err != nil {
		return err
	}
	data, err := readPDFUpload(c, *svc.Config)
	if err != nil {
		return err
	}

	page, err := textlayer.Extract(data, opts.Page)
	if err != nil {
		if errors.Is(err, domain.ErrPageOutOfRange) || errors.Is(err, domain.ErrBadDocument) {
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}
		logging.Error("Text layer extraction failed", "error", err.Error())
		return fiber.NewError(fiber.StatusInternalServerError, "Text extraction failed: "+err.Error())
	}

	logging.Info("Text layer extracted", "page", opts.Page, "runs", len(page.Runs), "request_id", c.Get("X-Request-ID"))

	c.Set("Content-Type", "image/svg+xml")
	return c.SendString(page.SVG())
}
