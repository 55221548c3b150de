package myhttpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/MarcGrol/poststudio/lib/mylog"
)

const (
	maxRetries    = 1
	retryWaitMin  = 200 * time.Millisecond
	retryWaitMax  = 1 * time.Second
	maxBodyLength = 1 << 20
)

type Client struct {
	client *retryablehttp.Client
	logger mylog.Logger
}

func newRetryingClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Timeout: timeout}
	rc.RetryMax = maxRetries
	rc.RetryWaitMin = retryWaitMin
	rc.RetryWaitMax = retryWaitMax
	rc.CheckRetry = retryOnServerError
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = nil

	return &Client{
		client: rc,
		logger: mylog.New("httpclient"),
	}
}

type noRetryKey struct{}

// retryOnServerError never retries 4xx: those are caller errors that a retry cannot fix.
func retryOnServerError(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if noRetry, _ := ctx.Value(noRetryKey{}).(bool); noRetry {
		return false, nil
	}
	if err != nil {
		return true, nil
	}
	if resp.StatusCode >= 500 {
		return true, nil
	}
	return false, nil
}

// HTTPClient exposes the retrying transport as a plain *http.Client for libraries that accept one.
func (c *Client) HTTPClient() *http.Client {
	return c.client.StandardClient()
}

func (c *Client) Send(ctx context.Context, req Request) (int, []byte, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	reqCtx := ctx
	if req.NoRetry {
		reqCtx = context.WithValue(ctx, noRetryKey{}, true)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(reqCtx, req.Method, req.URL, body)
	if err != nil {
		return 0, []byte{}, fmt.Errorf("error creating http request for %s %s: %w", req.Method, redact(req.URL), err)
	}
	for name, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		// url.Error repeats the full url, including any credentials in the query
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return 0, []byte{}, fmt.Errorf("error calling %s %s: %w", req.Method, redact(req.URL), err)
	}
	defer httpResp.Body.Close()

	c.logger.Log(ctx, "", mylog.SeverityDebug, "HTTP call: %s %s -> %d", req.Method, redact(req.URL), httpResp.StatusCode)

	respPayload, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyLength))
	if err != nil {
		return 0, []byte{}, fmt.Errorf("error reading response %s %s: %w", req.Method, redact(req.URL), err)
	}

	return httpResp.StatusCode, respPayload, nil
}
