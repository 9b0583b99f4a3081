package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/agentrun/gateway/internal/toolcatalog"
)

const defaultWebMaxChars = 10_000

var httpClient = &http.Client{Timeout: 15 * time.Second}

// RegisterWebTool adds the "web" direct tool: fetch a URL and return its
// extracted text, guarded against SSRF to internal/private addresses.
func RegisterWebTool(cat *toolcatalog.Catalog) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url":       map[string]any{"type": "string", "description": "URL to fetch (http/https only)."},
			"max_chars": map[string]any{"type": "integer", "description": "Maximum characters to return.", "minimum": 0},
		},
		"required": []string{"url"},
	}
	payload, _ := json.Marshal(schema)
	cat.Register("web", "Fetch a URL and return its extracted text content.", payload, executeWeb)
}

func executeWeb(ctx context.Context, arguments json.RawMessage, workspacePath string) toolcatalog.Result {
	var input struct {
		URL      string `json:"url"`
		MaxChars int    `json:"max_chars"`
	}
	if err := json.Unmarshal(arguments, &input); err != nil {
		return toolcatalog.ErrorResult(fmt.Sprintf("invalid parameters: %v", err))
	}
	if strings.TrimSpace(input.URL) == "" {
		return toolcatalog.ErrorResult("url is required")
	}
	limit := defaultWebMaxChars
	if input.MaxChars > 0 && input.MaxChars < limit {
		limit = input.MaxChars
	}

	if err := validateURLForSSRF(input.URL); err != nil {
		return toolcatalog.ErrorResult(fmt.Sprintf("url validation failed: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, input.URL, nil)
	if err != nil {
		return toolcatalog.ErrorResult(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; agent-gateway/1.0)")

	resp, err := httpClient.Do(req)
	if err != nil {
		return toolcatalog.ErrorResult(fmt.Sprintf("fetch: %v", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return toolcatalog.ErrorResult(fmt.Sprintf("HTTP %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(limit)*4))
	if err != nil {
		return toolcatalog.ErrorResult(fmt.Sprintf("read body: %v", err))
	}
	text := extractText(string(body))
	truncated := false
	if len(text) > limit {
		text = text[:limit]
		truncated = true
	}
	return jsonOK(map[string]any{"url": input.URL, "content": text, "truncated": truncated})
}

// extractText is a plain-text-only extractor: strip scripts/styles, then
// all remaining tags, collapsing whitespace. No markdown rendering — the
// "web" tool returns readable text, not a rich document.
func extractText(html string) string {
	withoutScripts := regexp.MustCompile(`(?is)<script.*?</script>|<style.*?</style>`).ReplaceAllString(html, "")
	stripped := regexp.MustCompile(`(?s)<[^>]+>`).ReplaceAllString(withoutScripts, " ")
	return strings.Join(strings.Fields(stripped), " ")
}

// isPrivateOrReservedIP reports whether ip must not be reachable from a
// web-fetch tool: loopback, link-local, private, unspecified, multicast,
// or the cloud metadata address.
func isPrivateOrReservedIP(ip net.IP) bool {
	if ip == nil {
		return false
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsMulticast() {
		return true
	}
	return ip.Equal(net.ParseIP("169.254.169.254"))
}

func validateURLForSSRF(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", parsed.Scheme)
	}
	hostname := parsed.Hostname()
	if hostname == "" {
		return fmt.Errorf("URL must have a hostname")
	}
	lower := strings.ToLower(hostname)
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") {
		return fmt.Errorf("localhost URLs are not allowed")
	}
	ips, err := net.LookupIP(hostname)
	if err != nil {
		return nil
	}
	for _, ip := range ips {
		if isPrivateOrReservedIP(ip) {
			return fmt.Errorf("URL resolves to a private/reserved IP address")
		}
	}
	return nil
}
