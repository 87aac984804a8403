// Copyright (C) 2025 Econuy Labs.
// See LICENSE for copying information.

// Package retrieval fetches raw dataset tables from remote CSV
// endpoints and classifies retrieval failures for the retry policy.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"econuy.io/econuy/dataset"
)

var (
	// Error is the default retrieval errs class.
	Error = errs.Class("retrieval")

	mon = monkit.Package()
)

// Config holds the retrieval client parameters.
type Config struct {
	Timeout   time.Duration `help:"per-request timeout" default:"30s"`
	UserAgent string        `help:"user agent header sent to data sources" default:"econuy"`
}

// Client fetches tables over HTTP.
type Client struct {
	log       *zap.Logger
	http      *http.Client
	userAgent string
}

// NewClient creates a Client.
func NewClient(log *zap.Logger, config Config) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		log:       log,
		http:      &http.Client{Timeout: timeout},
		userAgent: config.UserAgent,
	}
}

// StatusError reports a non-200 response from a data source.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching %s", e.Code, e.URL)
}

// FetchCSV downloads and parses a CSV table.
func (client *Client) FetchCSV(ctx context.Context, url string) (_ dataset.Table, err error) {
	defer mon.Task()(&ctx)(&err)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return dataset.Table{}, Error.Wrap(err)
	}
	if client.userAgent != "" {
		req.Header.Set("User-Agent", client.userAgent)
	}

	resp, err := client.http.Do(req)
	if err != nil {
		return dataset.Table{}, Error.Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return dataset.Table{}, Error.Wrap(&StatusError{Code: resp.StatusCode, URL: url})
	}

	table, err := dataset.ReadCSV(resp.Body)
	if err != nil {
		return dataset.Table{}, Error.Wrap(err)
	}
	client.log.Debug("fetched table",
		zap.String("url", url),
		zap.Int("rows", table.Len()),
		zap.Int("columns", table.NumColumns()))
	return table, nil
}

// IsTransient reports whether a retrieval error is worth retrying:
// timeouts, connection failures, rate limiting, server-side statuses and
// truncated downloads. Cancellation and client-side bugs are not.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code == http.StatusTooManyRequests || status.Code >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// A truncated body surfaces as an unexpected EOF or a CSV decode
	// failure.
	if errors.Is(err, io.ErrUnexpectedEOF) || dataset.Error.Has(err) {
		return true
	}
	return false
}
