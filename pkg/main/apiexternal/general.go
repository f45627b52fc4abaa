package apiexternal

import (
	"context"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/nekomata-dev/subdex/pkg/main/logger"
	"github.com/pkg/errors"
)

// httpClient wraps the underlying http.Client with the timeouts used for
// all outbound requests. There is no rate limiting here; the only remote
// endpoint we talk to is the relation table mirror and that is polled on
// a cron schedule, not per request.
type httpClient struct {
	Clientname string
	Timeout    time.Duration
	client     *http.Client
}

// newClient constructs an httpClient with sane transport limits.
func newClient(clientname string, timeoutseconds int) *httpClient {
	if timeoutseconds <= 0 {
		timeoutseconds = 30
	}
	return &httpClient{
		Clientname: clientname,
		Timeout:    time.Duration(timeoutseconds) * time.Second,
		client: &http.Client{
			Timeout: time.Duration(timeoutseconds) * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:          20,
				MaxIdleConnsPerHost:   runtime.GOMAXPROCS(0) + 1,
				IdleConnTimeout:       120 * time.Second,
				ResponseHeaderTimeout: time.Duration(timeoutseconds) * time.Second,
				DisableKeepAlives:     false,
			},
		},
	}
}

// processHTTP makes a GET request to the provided URL and runs the provided
// function with the HTTP response. The response body is closed after run
// returns. Non-2xx statuses are returned as errors without invoking run.
func (c *httpClient) processHTTP(
	ctx context.Context,
	urlv string,
	run func(context.Context, *http.Response) error,
) error {
	ctx, ctxcancel := context.WithTimeout(ctx, c.Timeout)
	defer ctxcancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlv, http.NoBody)
	if err != nil {
		logger.LogDynamicany(logger.StrError, "failed to build request", "url", urlv, "err", err)
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "text/plain, application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		logger.LogDynamicany(logger.StrError, "failed to process url", "url", urlv, "err", err)
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		io.Copy(io.Discard, resp.Body)
		logger.LogDynamicany(logger.StrError, "unexpected status", "url", urlv, "status", resp.StatusCode)
		return errors.Errorf("unexpected status %d for %s", resp.StatusCode, urlv)
	}

	return run(ctx, resp)
}
