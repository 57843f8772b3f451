// Package httpclient is the shared vendor transport: it builds authenticated
// requests via a per-request signing hook, applies the process-wide proxy
// configuration, classifies vendor responses into the error taxonomy, and
// bounds every call with a uniform timeout and connection allowance.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/taoxee/scribeflow/errors"
	"github.com/taoxee/scribeflow/logger"
	"github.com/taoxee/scribeflow/resilience"
)

// Client is a vendor HTTP client with signing, proxy awareness, and
// taxonomy-classified errors.
type Client struct {
	proxied *http.Client
	direct  *http.Client
	config  Config
	log     *logger.Logger
}

// New creates a new HTTP client with the given configuration.
func New(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	initTransports()

	return &Client{
		proxied: &http.Client{Transport: proxiedTransport, Timeout: cfg.Timeout},
		direct:  &http.Client{Transport: directTransport, Timeout: cfg.Timeout},
		config:  cfg,
		log:     logger.WithComponent("httpclient"),
	}, nil
}

// Do executes an HTTP request and returns the complete response. When the
// config carries a retry policy, retryable failures are re-attempted there;
// callers above this layer never retry again.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.config.Retry != nil {
		return resilience.Retry(ctx, *c.config.Retry, func() (*Response, error) {
			return c.doOnce(ctx, req)
		})
	}
	return c.doOnce(ctx, req)
}

// doOnce executes a single request, escalating one proxied connection
// failure to a direct attempt.
func (c *Client) doOnce(ctx context.Context, req Request) (*Response, error) {
	resp, err := c.execute(ctx, req, c.proxied)
	if err == nil {
		return resp, nil
	}

	if proxyInUse && !c.config.DisableProxyFallback && errors.Is(err, errors.ErrCodeNetworkTransient) {
		c.log.Warn("proxied attempt failed, retrying direct", map[string]interface{}{
			logger.FieldVendor: c.config.Vendor,
			logger.FieldError:  err.Error(),
		})
		return c.execute(ctx, req, c.direct)
	}
	return resp, err
}

// execute builds, signs, and sends the HTTP request on the given client.
func (c *Client) execute(ctx context.Context, req Request, hc *http.Client) (*Response, error) {
	start := time.Now()
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.Sign != nil {
		if err := req.Sign(httpReq); err != nil {
			// Fail closed: never send an unsigned request.
			return nil, err
		}
	}

	resp, err := hc.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil || isTimeoutErr(err) {
			return nil, errors.Timeout(c.config.Vendor, req.Method+" "+req.Path).WithCause(err)
		}
		return nil, errors.NetworkTransient(c.config.Vendor, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NetworkTransient(c.config.Vendor, fmt.Errorf("read response body: %w", err))
	}

	c.log.Debug("vendor call", map[string]interface{}{
		logger.FieldVendor:   c.config.Vendor,
		"method":             req.Method,
		"path":               req.Path,
		"status":             resp.StatusCode,
		logger.FieldDuration: time.Since(start).Milliseconds(),
	})

	result := &Response{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       body,
	}

	if classErr := c.classify(resp.StatusCode, body); classErr != nil {
		return result, classErr
	}
	return result, nil
}

// classify converts a vendor HTTP status into a taxonomy error. Returns nil
// for 2xx.
func (c *Client) classify(statusCode int, body []byte) error {
	vendor := c.config.Vendor
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return errors.AuthFailed(vendor, fmt.Sprintf("vendor returned HTTP %d", statusCode)).
			WithDetail("raw", excerpt(body))
	case statusCode == http.StatusTooManyRequests:
		return errors.QuotaExceeded(vendor).WithDetail("raw", excerpt(body))
	case statusCode == http.StatusUnsupportedMediaType || statusCode == http.StatusUnprocessableEntity:
		return errors.UnsupportedFormat(vendor, fmt.Sprintf("vendor returned HTTP %d", statusCode)).
			WithDetail("raw", excerpt(body))
	case statusCode >= 500:
		return errors.NetworkTransient(vendor, fmt.Errorf("vendor returned HTTP %d", statusCode)).
			WithDetail("raw", excerpt(body))
	default:
		return errors.VendorProtocol(vendor, body).
			WithDetail("status", statusCode)
	}
}

// buildRequest constructs an *http.Request from the client config and request.
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	url := req.Path
	if c.config.BaseURL != "" && !strings.HasPrefix(req.Path, "http://") && !strings.HasPrefix(req.Path, "https://") {
		url = strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(req.Path, "/")
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("encode request body: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, errors.Internal(err)
	}

	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	return httpReq, nil
}

// encodeBody converts the request body into a reader and content type.
func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case io.Reader:
		return b, "", nil
	case []byte:
		return bytes.NewReader(b), "", nil
	case string:
		return strings.NewReader(b), "", nil
	case *MultipartBody:
		return b.encode()
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

func isTimeoutErr(err error) bool {
	type timeout interface{ Timeout() bool }
	for e := err; e != nil; {
		if te, ok := e.(timeout); ok && te.Timeout() {
			return true
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return strings.Contains(err.Error(), "Client.Timeout exceeded")
}

func excerpt(body []byte) string {
	s := string(body)
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}
