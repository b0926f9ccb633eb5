package routes

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/regconline/afrilearn/internal/config"
)

const docsIndexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{ .Title }}</title>
  <style>
    :root {
      color-scheme: light;
      --bg: #f6f7f4;
      --panel: #ffffff;
      --text: #132019;
      --muted: #536258;
      --accent: #1f6f4a;
      --border: #d8ddd6;
      --code-bg: #0f172a;
      --code-text: #e2e8f0;
    }
    * { box-sizing: border-box; }
    body {
      margin: 0;
      font-family: Georgia, "Times New Roman", serif;
      color: var(--text);
      background:
        radial-gradient(circle at top left, rgba(31, 111, 74, 0.12), transparent 30%),
        linear-gradient(180deg, #fcfcfa 0%, var(--bg) 100%);
    }
    main {
      max-width: 1120px;
      margin: 0 auto;
      padding: 48px 20px 64px;
    }
    header {
      border-bottom: 1px solid var(--border);
      padding-bottom: 24px;
      margin-bottom: 32px;
    }
    h1 { margin: 0 0 8px; font-size: 2rem; }
    p.lede { margin: 0; color: var(--muted); }
    section {
      background: var(--panel);
      border: 1px solid var(--border);
      border-radius: 12px;
      padding: 20px 24px;
      margin-bottom: 20px;
    }
    h2 { margin-top: 0; font-size: 1.2rem; color: var(--accent); }
    table { width: 100%; border-collapse: collapse; font-size: 0.95rem; }
    th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid var(--border); }
    th { color: var(--muted); font-weight: normal; }
    code {
      font-family: ui-monospace, SFMono-Regular, Menlo, monospace;
      background: var(--code-bg);
      color: var(--code-text);
      padding: 2px 6px;
      border-radius: 6px;
      font-size: 0.85rem;
    }
    footer { color: var(--muted); font-size: 0.85rem; margin-top: 24px; }
    a { color: var(--accent); }
  </style>
</head>
<body>
  <main>
    <header>
      <h1>{{ .Title }}</h1>
      <p class="lede">Booking, escrow payments, attendance and tutor ratings for the AfriLearn tutoring marketplace.</p>
    </header>
    <section>
      <h2>Authentication</h2>
      <table>
        <tr><th>Method</th><th>Path</th><th>Notes</th></tr>
        <tr><td>POST</td><td><code>/api/auth/register</code></td><td>Creates the user plus a role profile row.</td></tr>
        <tr><td>POST</td><td><code>/api/auth/login</code></td><td>Returns access and refresh tokens.</td></tr>
        <tr><td>POST</td><td><code>/api/auth/refresh</code></td><td>Exchanges a refresh token.</td></tr>
        <tr><td>GET</td><td><code>/api/auth/me</code></td><td>Current account.</td></tr>
      </table>
    </section>
    <section>
      <h2>Sessions</h2>
      <table>
        <tr><th>Method</th><th>Path</th><th>Notes</th></tr>
        <tr><td>POST</td><td><code>/api/v1/sessions/book</code></td><td>Conflict-checked booking; 409 on overlap.</td></tr>
        <tr><td>GET</td><td><code>/api/v1/sessions/upcoming</code></td><td>Future sessions, soonest first.</td></tr>
        <tr><td>GET</td><td><code>/api/v1/sessions/past</code></td><td>Finished sessions, most recent first.</td></tr>
        <tr><td>PATCH</td><td><code>/api/v1/sessions/:id</code></td><td>Participants may edit details and cancel; pricing is admin-only.</td></tr>
        <tr><td>POST</td><td><code>/api/v1/sessions/:id/attendance</code></td><td>Join or leave; drives session start and completion.</td></tr>
      </table>
    </section>
    <section>
      <h2>Payments</h2>
      <table>
        <tr><th>Method</th><th>Path</th><th>Notes</th></tr>
        <tr><td>POST</td><td><code>/api/v1/payments</code></td><td>Creates a pending payment with a fixed processing fee and escrow release date.</td></tr>
        <tr><td>POST</td><td><code>/api/webhooks/payments</code></td><td>Gateway callback, HMAC signed. Replays are no-ops.</td></tr>
        <tr><td>GET</td><td><code>/api/v1/payouts</code></td><td>Tutor payout history.</td></tr>
      </table>
    </section>
    <footer>Spec served at <a href="/docs/openapi.yaml">/docs/openapi.yaml</a>. Rendered {{ .LoadedAt }}.</footer>
  </main>
</body>
</html>
`

type docsPageData struct {
	Title    string
	LoadedAt string
}

func registerDocsRoutes(app fiber.Router, cfg *config.Config) error {
	if !cfg.DocsEnabled() {
		return nil
	}

	spec, err := loadOpenAPISpec()
	if err != nil {
		return fmt.Errorf("load openapi spec: %w", err)
	}

	indexTemplate, err := template.New("docs-index").Parse(docsIndexHTML)
	if err != nil {
		return fmt.Errorf("parse docs template: %w", err)
	}

	pageData := docsPageData{
		Title:    "AfriLearn API Docs",
		LoadedAt: time.Now().UTC().Format(time.RFC3339),
	}

	indexHandler := func(c *fiber.Ctx) error {
		applyDocsBaseHeaders(c, fiber.MIMETextHTMLCharsetUTF8)
		c.Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'; img-src 'self' data:; base-uri 'none'; form-action 'none'; frame-ancestors 'none'")

		var body bytes.Buffer
		if err := indexTemplate.Execute(&body, pageData); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to render api docs")
		}

		return c.Status(fiber.StatusOK).Send(body.Bytes())
	}

	app.Get("/docs", indexHandler)
	app.Get("/docs/", indexHandler)
	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		applyDocsBaseHeaders(c, "application/yaml; charset=utf-8")
		c.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'")
		c.Set(fiber.HeaderContentDisposition, `inline; filename="openapi.yaml"`)
		return c.Status(fiber.StatusOK).Send(spec)
	})

	return nil
}

func loadOpenAPISpec() ([]byte, error) {
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		return nil, fmt.Errorf("resolve source path")
	}

	specPath := filepath.Join(filepath.Dir(currentFile), "..", "..", "docs", "openapi.yaml")
	spec, err := os.ReadFile(specPath)
	if err != nil {
		return nil, err
	}

	return spec, nil
}

func applyDocsBaseHeaders(c *fiber.Ctx, contentType string) {
	c.Set(fiber.HeaderContentType, contentType)
	c.Set(fiber.HeaderCacheControl, "no-store, max-age=0")
	c.Set(fiber.HeaderPragma, "no-cache")
	c.Set(fiber.HeaderExpires, "0")
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderXFrameOptions, "DENY")
	c.Set("Referrer-Policy", "no-referrer")
	c.Set("Permissions-Policy", "accelerometer=(), camera=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), payment=(), usb=()")
	c.Set("Cross-Origin-Resource-Policy", "same-origin")
	c.Set("Cross-Origin-Opener-Policy", "same-origin")
	c.Set("Cross-Origin-Embedder-Policy", "require-corp")
	c.Set("X-Robots-Tag", "noindex, nofollow")
}
