// Package adapter wraps the third-party speech, translation, search and LLM
// APIs behind small interfaces. Every provider call is rate limited and
// retried with exponential backoff on transport errors, 429 and 5xx.
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/vuthy55/studio-sub006/internal/errors"
	"github.com/vuthy55/studio-sub006/internal/retry"
	"github.com/vuthy55/studio-sub006/internal/utils"
	"golang.org/x/time/rate"
)

const maxErrorBody = 512

// Options carries the transport settings shared by all providers
type Options struct {
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Retry      *retry.Config
	Logger     *utils.Logger
}

func (o Options) withDefaults() Options {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if o.Limiter == nil {
		o.Limiter = rate.NewLimiter(rate.Limit(10), 10)
	}
	if o.Retry == nil {
		o.Retry = retry.DefaultConfig()
	}
	if o.Logger == nil {
		o.Logger = utils.Discard()
	}
	return o
}

// statusError is returned for non-2xx responses
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// providerClient issues rate limited, retried HTTP calls to one provider
type providerClient struct {
	name    string
	http    *http.Client
	limiter *rate.Limiter
	retry   *retry.Config
	logger  *utils.Logger
}

func newProviderClient(name string, opts Options) *providerClient {
	opts = opts.withDefaults()
	return &providerClient{
		name:    name,
		http:    opts.HTTPClient,
		limiter: opts.Limiter,
		retry:   opts.Retry,
		logger:  opts.Logger.WithField("provider", name),
	}
}

// do sends the request built by newReq and returns the response body.
// newReq is called once per attempt so request bodies can be replayed.
func (c *providerClient) do(ctx context.Context, newReq func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	var body []byte

	err := retry.Do(ctx, c.retry, c.logger, func(ctx context.Context, attempt int) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}

		req, err := newReq(ctx)
		if err != nil {
			return retry.Permanent(err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return retry.Permanent(err)
			}
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if len(data) > maxErrorBody {
				data = data[:maxErrorBody]
			}
			statusErr := &statusError{StatusCode: resp.StatusCode, Body: string(data)}
			if retryableStatus(resp.StatusCode) {
				return statusErr
			}
			return retry.Permanent(statusErr)
		}

		body = data
		return nil
	})
	if err != nil {
		c.logger.WithError(err).Warn("Provider call failed")
		return nil, apperrors.NewProviderError(c.name, err)
	}

	return body, nil
}

// doJSON sends payload as JSON (nil means no body) and decodes the response into out
func (c *providerClient) doJSON(ctx context.Context, method, url string, headers map[string]string, payload, out interface{}) error {
	var raw []byte
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return apperrors.NewInternalError("failed to encode provider request", err)
		}
	}

	body, err := c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		var reader io.Reader
		if raw != nil {
			reader = bytes.NewReader(raw)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, err
		}
		if raw != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req, nil
	})
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.NewProviderError(c.name, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
