package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		if !rl.Allow("client-a") {
			t.Fatalf("expected request %d within burst to pass", i+1)
		}
	}
	if rl.Allow("client-a") {
		t.Fatal("expected request beyond burst to be rejected")
	}
}

func TestRateLimiterTracksKeysIndependently(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()

	if !rl.Allow("client-a") {
		t.Fatal("expected first request for client-a to pass")
	}
	if rl.Allow("client-a") {
		t.Fatal("expected second request for client-a to be rejected")
	}
	if !rl.Allow("client-b") {
		t.Fatal("expected client-b to have its own budget")
	}
}

func TestRateLimitMiddlewareReturnsTooManyRequests(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	defer rl.Stop()

	app := fiber.New()
	app.Use(RateLimit(rl))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(http.StatusOK) })

	first := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(first)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	second := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err = app.Test(second)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
}
