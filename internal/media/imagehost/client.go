// Package imagehost uploads and deletes images on the external image CDN.
// Books never store image bytes locally; the host returns a canonical
// HTTPS URL that becomes the book's Image field.
package imagehost

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec // The host's signature scheme mandates SHA-1
	"encoding/hex"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inkshelfapp/inkshelf-server/internal/ratelimit"
)

const (
	// The host allows 10 admin API calls per second; stay under that.
	defaultRPS   = 5.0
	defaultBurst = 10

	defaultTimeout = 30 * time.Second
)

// Config carries the image host account credentials.
type Config struct {
	BaseURL   string
	CloudName string
	APIKey    string
	APISecret string
}

// UploadResult is the host's answer to a successful upload.
type UploadResult struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
}

// Client is a rate-limited image host API client.
type Client struct {
	http      *http.Client
	limiter   *ratelimit.KeyedLimiter
	logger    *slog.Logger
	baseURL   string
	cloudName string
	apiKey    string
	apiSecret string
}

// New creates a new image host client. The client is usable even when
// credentials are missing; calls then fail with ErrNotConfigured so the
// server can boot without an image host account in development.
func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter:   ratelimit.New(defaultRPS, defaultBurst),
		logger:    logger,
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		cloudName: cfg.CloudName,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
	}
}

// Configured reports whether the client has credentials to talk to the host.
func (c *Client) Configured() bool {
	return c.cloudName != "" && c.apiKey != "" && c.apiSecret != ""
}

// Upload sends image data (a base64 data URI or a remote URL) to the host
// and returns the assigned public ID and canonical secure URL.
func (c *Client) Upload(ctx context.Context, imageData string) (*UploadResult, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	// The public ID must stay flat (no folder segments): deletion derives
	// it back from the delivery URL's last path segment.
	publicID := uuid.NewString()

	params := map[string]string{
		"public_id": publicID,
		"timestamp": strconv.FormatInt(time.Now().Unix(), 10),
	}

	form := url.Values{}
	form.Set("file", imageData)
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("api_key", c.apiKey)
	form.Set("signature", c.sign(params))

	body, err := c.doRequest(ctx, "upload", form)
	if err != nil {
		return nil, fmt.Errorf("upload image: %w", err)
	}

	var result UploadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse upload response: %w", err)
	}

	if result.SecureURL == "" {
		return nil, fmt.Errorf("upload image: host returned no URL")
	}

	if c.logger != nil {
		c.logger.Debug("image uploaded",
			"public_id", result.PublicID,
		)
	}

	return &result, nil
}

// Destroy deletes the image with the given public ID from the host.
func (c *Client) Destroy(ctx context.Context, publicID string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	params := map[string]string{
		"public_id": publicID,
		"timestamp": strconv.FormatInt(time.Now().Unix(), 10),
	}

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("api_key", c.apiKey)
	form.Set("signature", c.sign(params))

	if _, err := c.doRequest(ctx, "destroy", form); err != nil {
		return fmt.Errorf("destroy image: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug("image destroyed",
			"public_id", publicID,
		)
	}

	return nil
}

// Owns reports whether the URL points at an image on this host.
func (c *Client) Owns(imageURL string) bool {
	return c.baseURL != "" && strings.HasPrefix(imageURL, c.baseURL)
}

// PublicIDFromURL derives the public ID from a delivery URL: the last
// path segment with its file extension removed.
func PublicIDFromURL(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return ""
	}

	segment := path.Base(u.Path)
	if segment == "." || segment == "/" {
		return ""
	}

	return strings.TrimSuffix(segment, path.Ext(segment))
}

// doRequest posts a form to the host's API with rate limiting applied
// per action.
func (c *Client) doRequest(ctx context.Context, action string, form url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx, action); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/image/%s", c.baseURL, c.cloudName, action)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Inkshelf/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", ErrBadRequest, string(body))
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	default:
		if resp.StatusCode >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}

// sign computes the request signature: SHA-1 hex of the sorted
// key=value parameter string with the API secret appended.
func (c *Client) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte('&')
		}
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(params[k])
	}
	buf.WriteString(c.apiSecret)

	sum := sha1.Sum(buf.Bytes()) //nolint:gosec // Mandated by the host's API
	return hex.EncodeToString(sum[:])
}
