package middleware

import (
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"pdf2image/internal/config"
	"pdf2image/internal/infra/tokens"
)

func TestRegister_AddsHealthAndRequestID(t *testing.T) {
	app := fiber.New()
	Register(app, config.Config{})
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	healthReq, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
	healthResp, err := app.Test(healthReq)
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	if healthResp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected health endpoint 200, got %d", healthResp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("ping request failed: %v", err)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("expected X-Request-Id to be present")
	}
}

func TestRegister_KeyAuth(t *testing.T) {
	tokens.LoadMap(map[string]int{"good-key": 0})

	app := fiber.New()
	Register(app, config.Config{})
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	// anonymous requests pass through
	anon, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	respAnon, err := app.Test(anon)
	if err != nil {
		t.Fatalf("anon request failed: %v", err)
	}
	if respAnon.StatusCode != fiber.StatusOK {
		t.Fatalf("expected anonymous 200, got %d", respAnon.StatusCode)
	}

	good, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	good.Header.Set("X-API-Key", "good-key")
	respGood, err := app.Test(good)
	if err != nil {
		t.Fatalf("authed request failed: %v", err)
	}
	if respGood.StatusCode != fiber.StatusOK {
		t.Fatalf("expected valid key 200, got %d", respGood.StatusCode)
	}

	bad, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	bad.Header.Set("X-API-Key", "wrong")
	respBad, err := app.Test(bad)
	if err != nil {
		t.Fatalf("bad key request failed: %v", err)
	}
	if respBad.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected invalid key 401, got %d", respBad.StatusCode)
	}
}

func TestRegister_KeyAuth_StoreNotReady(t *testing.T) {
	tokens.LoadMap(nil) // store has never been loaded

	app := fiber.New()
	Register(app, config.Config{})
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-API-Key", "any-key")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503 before token store load, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"code":503`) || !strings.Contains(string(body), "token store not ready") {
		t.Fatalf("expected JSON error envelope, got %s", body)
	}
}

func TestUserRateLimiter_LimitsAnonymousTraffic(t *testing.T) {
	var cfg config.Config
	cfg.RateLimiter.UserLimit = 1
	cfg.RateLimiter.Interval = time.Hour // keep the window open for the whole test

	app := fiber.New()
	Register(app, cfg)
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	first, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	resp1, err := app.Test(first)
	if err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	if resp1.StatusCode != fiber.StatusOK {
		t.Fatalf("expected first request 200, got %d", resp1.StatusCode)
	}

	second, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	resp2, err := app.Test(second)
	if err != nil {
		t.Fatalf("second request failed: %v", err)
	}
	if resp2.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("expected second request 429, got %d", resp2.StatusCode)
	}
}
