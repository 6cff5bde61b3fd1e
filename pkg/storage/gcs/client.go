package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rootsreach/rootsreach-backend/pkg/config"
	"github.com/rootsreach/rootsreach-backend/pkg/logger"
	"github.com/rootsreach/rootsreach-backend/pkg/storage"
)

const (
	defaultAPIBase = "https://storage.googleapis.com"
	requestTimeout = 30 * time.Second
	pingTimeout    = 5 * time.Second
)

var errNotInitialized = errors.New("gcs client not initialized")

// Client stores material images in one Cloud Storage bucket through the JSON API.
type Client struct {
	http    *http.Client
	tokens  *tokenSource
	bucket  string
	apiBase string
	// publicBase prefixes the URLs handed to clients, e.g. a CDN in front of the bucket.
	publicBase string
	logg       *logger.Logger
}

var _ storage.Store = (*Client)(nil)

// NewClient resolves credentials and verifies the bucket is reachable.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcp config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("gcs bucket name is required")
	}

	httpClient := &http.Client{Timeout: requestTimeout}
	tokens, err := credentialsFromConfig(httpClient, gcp)
	if err != nil {
		return nil, err
	}

	c := &Client{
		http:       httpClient,
		tokens:     tokens,
		bucket:     cfg.BucketName,
		apiBase:    defaultAPIBase,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		logg:       logg,
	}
	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs health check failed: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"bucket": c.bucket, "project": gcp.ProjectID}), "gcs.connected")
	}
	return c, nil
}

// Ping lists at most one object, which needs storage.objects.list on the bucket.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.do(ctx, http.MethodGet, c.objectsURL("")+"?maxResults=1", nil, "", 0, http.StatusOK)
}

// Put uploads the object and returns its public URL.
func (c *Client) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	if key == "" {
		return "", errors.New("object key is required")
	}
	target := fmt.Sprintf("%s/upload/storage/v1/b/%s/o?uploadType=media&name=%s",
		c.apiBase, url.PathEscape(c.bucket), url.QueryEscape(key))
	if err := c.do(ctx, http.MethodPost, target, body, contentType, size, http.StatusOK, http.StatusCreated); err != nil {
		return "", fmt.Errorf("gcs upload %s: %w", key, err)
	}
	return c.PublicURL(key), nil
}

// Remove deletes the object behind a URL returned by Put. Foreign URLs and
// objects that are already gone are ignored.
func (c *Client) Remove(ctx context.Context, objectURL string) error {
	key, ok := storage.KeyFromURL(c.bucketURL(), objectURL)
	if !ok {
		return nil
	}
	if unescaped, err := url.PathUnescape(key); err == nil {
		key = unescaped
	}
	err := c.do(ctx, http.MethodDelete, c.objectsURL(key), nil, "", 0, http.StatusOK, http.StatusNoContent, http.StatusNotFound)
	if err != nil {
		return fmt.Errorf("gcs delete %s: %w", key, err)
	}
	return nil
}

func (c *Client) PublicURL(key string) string {
	parts := strings.Split(key, "/")
	for i := range parts {
		parts[i] = url.PathEscape(parts[i])
	}
	return c.bucketURL() + "/" + strings.Join(parts, "/")
}

func (c *Client) bucketURL() string {
	base := c.publicBase
	if base == "" {
		base = defaultAPIBase
	}
	return base + "/" + c.bucket
}

func (c *Client) objectsURL(key string) string {
	u := c.apiBase + "/storage/v1/b/" + url.PathEscape(c.bucket) + "/o"
	if key != "" {
		u += "/" + url.PathEscape(key)
	}
	return u
}

// do sends an authorized request and fails unless the status is one of ok.
func (c *Client) do(ctx context.Context, method, target string, body io.Reader, contentType string, size int64, ok ...int) error {
	if c == nil || c.tokens == nil {
		return errNotInitialized
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if size > 0 {
		req.ContentLength = size
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil && c.logg != nil {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "gcs.close_body_failed")
		}
	}()

	for _, status := range ok {
		if resp.StatusCode == status {
			return nil
		}
	}
	return statusError(resp)
}

func statusError(resp *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if msg := strings.TrimSpace(string(detail)); msg != "" {
		return fmt.Errorf("%s: %s", resp.Status, msg)
	}
	return errors.New(resp.Status)
}
