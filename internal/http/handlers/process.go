package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"pdf2image/internal/config"
	"pdf2image/internal/domain"
	"pdf2image/internal/infra/logging"
	"pdf2image/internal/infra/mupdf"
)

// HandleProcess renders one page of the uploaded PDF or serves a cached copy.
func (svc *RenderService) HandleProcess(c *fiber.Ctx) error {
	opts, err := validateRenderOptions(c, *svc.Config)
	if err != nil {
		return err
	}
	data, err := readPDFUpload(c, *svc.Config)
	if err != nil {
		return err
	}

	cacheKey := computeImageCacheKey(data, opts)

	if svc.Redis != nil && svc.Config.Cache.ImageCacheEnabled {
		if cached, err := svc.getCachedImage(c, cacheKey, opts.Format); err == nil && cached != nil {
			return c.Send(cached)
		}
	}

	img, err := svc.renderImage(data, opts)
	if err != nil {
		if errors.Is(err, mupdf.ErrPageOutOfRange) || errors.Is(err, mupdf.ErrBadDocument) {
			return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			logging.Error("Render timeout", "timeout_secs", svc.Config.Render.TimeoutSecs, "error", err.Error())
			return fiber.NewError(fiber.StatusRequestTimeout, "Rendering took too long")
		}
		if mupdf.IsRenderInterrupted(err) {
			logging.Error("Render interrupted", "error", err.Error())
			return fiber.NewError(fiber.StatusServiceUnavailable, "Rendering interrupted")
		}
		logging.Error("Render failed", "error", err.Error())
		return fiber.NewError(fiber.StatusInternalServerError, "Rendering failed: "+err.Error())
	}

	if svc.Redis != nil && svc.Config.Cache.ImageCacheEnabled {
		svc.setCachedImage(c, cacheKey, img)
	}
	svc.archiveImage(c, cacheKey, img, opts.Format)

	requestID := c.Get("X-Request-ID")
	logging.Info("Page rendered", "page", opts.Page, "width", opts.Width, "format", string(opts.Format), "request_id", requestID)

	c.Set("Content-Type", opts.Format.ContentType())
	return c.Send(img)
}

// renderImage runs the render through the pool when one is configured.
func (svc *RenderService) renderImage(data []byte, opts domain.RenderOptions) ([]byte, error) {
	pool, err := svc.getRenderPool()
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(svc.Config.Render.TimeoutSecs) * time.Second

	if pool == nil {
		// Pool disabled: render inline per request.
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return mupdf.RenderPage(ctx, data, opts, svc.Config.Render.JPEGQuality)
	}

	runOnce := func() ([]byte, error) {
		acquireCtx, acquireCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer acquireCancel()

		slot, err := pool.Acquire(acquireCtx)
		if err != nil {
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		img, renderErr := mupdf.RenderPage(ctx, data, opts, svc.Config.Render.JPEGQuality)
		cancel()

		pool.Release(slot, renderErr)
		return img, renderErr
	}

	img, renderErr := runOnce()
	if renderErr != nil && !errors.Is(renderErr, mupdf.ErrBadDocument) && !errors.Is(renderErr, mupdf.ErrPageOutOfRange) && mupdf.IsRenderInterrupted(renderErr) {
		logging.Warn("Render interrupted; restarting pool and retrying once", "error", renderErr)
		_ = pool.Restart()
		return runOnce()
	}

	return img, renderErr
}

// validateRenderOptions parses and validates query parameters.
func validateRenderOptions(c *fiber.Ctx, cfg config.Config) (domain.RenderOptions, error) {
	var opts domain.RenderOptions

	if pageStr := c.Query("page"); pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p < 0 {
			return opts, fiber.NewError(fiber.StatusBadRequest, "Invalid page: must be a non-negative integer")
		}
		opts.Page = p
	}

	opts.Width = cfg.Render.DefaultWidth
	if widthStr := c.Query("width"); widthStr != "" {
		w, err := strconv.Atoi(widthStr)
		if err != nil || w < 16 || w > cfg.Render.MaxWidth {
			return opts, fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("Invalid width: must be an integer between 16 and %d", cfg.Render.MaxWidth))
		}
		opts.Width = w
	}

	format, err := domain.ParseImageFormat(c.Query("format"))
	if err != nil {
		return opts, fiber.NewError(fiber.StatusBadRequest, "Invalid format: must be 'png' or 'jpeg'")
	}
	opts.Format = format

	return opts, nil
}

// readPDFUpload extracts the multipart "file" field.
func readPDFUpload(c *fiber.Ctx, cfg config.Config) ([]byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Missing multipart field 'file'")
	}
	if fh.Size > int64(cfg.Limits.MaxPDFBytes) {
		return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("PDF exceeds %d bytes", cfg.Limits.MaxPDFBytes))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Cannot open uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Cannot read uploaded file")
	}
	if len(data) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Uploaded file is empty")
	}
	return data, nil
}

// computeImageCacheKey creates a SHA256-based cache key over the document
// bytes and render options. Options are hashed with delimiters so adjacent
// numeric fields cannot run together (page=1,width=234 vs page=12,width=34).
func computeImageCacheKey(data []byte, opts domain.RenderOptions) string {
	h := sha256.New()
	h.Write(data)
	fmt.Fprintf(h, "%d|%d|%s", opts.Page, opts.Width, opts.Format)
	return "imgcache:" + hex.EncodeToString(h.Sum(nil))
}

// getCachedImage attempts to retrieve a cached render from Redis.
func (svc *RenderService) getCachedImage(c *fiber.Ctx, key string, format domain.ImageFormat) ([]byte, error) {
	ctxRedis, cancel := context.WithTimeout(c.Context(), 1*time.Second)
	defer cancel()

	cached, err := svc.Redis.Get(ctxRedis, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		logging.Warn("Redis read failed", "error", err)
		return nil, err
	}

	logging.Info("Image cache hit", "key", key)
	c.Set("Content-Type", format.ContentType())
	return cached, nil
}

// setCachedImage stores a rendered image in Redis.
func (svc *RenderService) setCachedImage(c *fiber.Ctx, key string, data []byte) {
	ctxRedis, cancel := context.WithTimeout(c.Context(), 1*time.Second)
	defer cancel()

	ttl := svc.Config.Cache.ImageCacheTTL
	if ttl <= 0 {
		ttl = 1 * time.Minute
	}

	if err := svc.Redis.Set(ctxRedis, key, data, ttl).Err(); err != nil {
		logging.Warn("Redis write failed", "error", err)
	}
}

// archiveImage writes the render to the object store, best effort.
func (svc *RenderService) archiveImage(c *fiber.Ctx, cacheKey string, data []byte, format domain.ImageFormat) {
	if svc.Archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	key := fmt.Sprintf("renders/%s.%s", cacheKey[len("imgcache:"):], format)
	if err := svc.Archive.Put(ctx, key, data, format.ContentType()); err != nil {
		logging.Warn("Archive write failed", "key", key, "error", err)
	}
}
