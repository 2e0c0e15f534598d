package handler

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pricegrid/pricegrid/models"
)

const maxImageRedirects = 5

// blockedHosts are never fetched regardless of the allowlist: loopback
// names and the cloud metadata endpoints.
var blockedHosts = map[string]struct{}{
	"localhost":                {},
	"127.0.0.1":                {},
	"0.0.0.0":                  {},
	"::1":                      {},
	"169.254.169.254":          {},
	"metadata.google.internal": {},
}

// allowedImageDomains are the merchant CDNs listings link images from.
// A hostname is accepted on exact match or as a proper subdomain.
var allowedImageDomains = []string{
	"amazon.com", "amazonaws.com",
	"ebay.com", "ebayimg.com",
	"walmart.com", "walmartimages.com",
	"target.com", "targetimg1.com",
	"bestbuy.com", "bbystatic.com",
	"newegg.com", "neweggimages.com",
}

// ImageProxy returns a handler for GET /api/v1/image-proxy?url=...
//
// It fetches merchant product images server side so browsers are not blocked
// by CORS. The URL is tightly validated against SSRF: http(s) only, no
// private or metadata hosts, merchant CDN allowlist, and every redirect hop
// revalidated by hand.
func ImageProxy(client *http.Client) gin.HandlerFunc {
	if client == nil {
		client = &http.Client{
			Timeout: 10 * time.Second,
			// Redirects are followed manually so each hop is validated.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}

	return func(c *gin.Context) {
		raw := c.Query("url")
		if raw == "" {
			proxyError(c, http.StatusBadRequest, "url parameter is required")
			return
		}

		current, status, msg := validateImageURL(raw)
		if current == nil {
			proxyError(c, status, msg)
			return
		}

		var resp *http.Response
		for hop := 0; hop <= maxImageRedirects; hop++ {
			req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, current.String(), nil)
			if err != nil {
				proxyError(c, http.StatusBadRequest, "invalid URL format")
				return
			}
			resp, err = client.Do(req)
			if err != nil {
				slog.Warn("image fetch failed", "url", current.String(), "error", err)
				proxyError(c, http.StatusBadGateway, "failed to fetch image")
				return
			}

			if !isRedirect(resp.StatusCode) {
				break
			}

			loc := resp.Header.Get("Location")
			resp.Body.Close()
			if loc == "" {
				proxyError(c, http.StatusBadRequest, "invalid redirect")
				return
			}
			next, err := current.Parse(loc)
			if err != nil {
				proxyError(c, http.StatusBadRequest, "invalid redirect")
				return
			}
			if validated, _, _ := validateImageURL(next.String()); validated == nil {
				proxyError(c, http.StatusForbidden, "redirect to unauthorized host")
				return
			}
			current = next
			resp = nil
		}
		if resp == nil || isRedirect(resp.StatusCode) {
			proxyError(c, http.StatusBadGateway, "too many redirects")
			return
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotFound:
			proxyError(c, http.StatusNotFound, fmt.Sprintf("image not found (HTTP %d)", resp.StatusCode))
			return
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			proxyError(c, http.StatusForbidden, fmt.Sprintf("access denied (HTTP %d)", resp.StatusCode))
			return
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			proxyError(c, http.StatusBadGateway, fmt.Sprintf("failed to fetch image (HTTP %d)", resp.StatusCode))
			return
		}

		contentType := strings.ToLower(resp.Header.Get("Content-Type"))
		if !strings.HasPrefix(contentType, "image/") {
			proxyError(c, http.StatusBadRequest, "URL does not point to an image")
			return
		}

		c.DataFromReader(http.StatusOK, resp.ContentLength, contentType, resp.Body, nil)
	}
}

// validateImageURL parses and screens a candidate image URL. On rejection it
// returns a nil URL with the HTTP status and message to report.
func validateImageURL(raw string) (*url.URL, int, string) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, http.StatusBadRequest, "invalid URL format"
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, http.StatusBadRequest, "only HTTP and HTTPS URLs are allowed"
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, http.StatusBadRequest, "invalid hostname"
	}
	if _, blocked := blockedHosts[host]; blocked {
		return nil, http.StatusForbidden, "access to this host is not allowed"
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsPrivate() || ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return nil, http.StatusForbidden, "access to private IP ranges is not allowed"
		}
	}

	for _, domain := range allowedImageDomains {
		// Suffix matching alone would accept evilamazon.com; require the
		// dot boundary.
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return u, 0, ""
		}
	}
	return nil, http.StatusForbidden, "image host not in allowed list"
}

func isRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func proxyError(c *gin.Context, status int, msg string) {
	c.JSON(status, models.ErrorResponse{
		Error: &models.ErrorDetail{Code: models.ErrCodeImageProxy, Message: msg},
	})
}
