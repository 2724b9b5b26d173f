package service

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

// ConnectivityChecker reports whether the network needed by a fetch is reachable.
type ConnectivityChecker interface {
	Online(ctx context.Context) bool
}

// HTTPConnectivity probes a URL with a HEAD request. Any HTTP response,
// whatever its status, counts as online.
type HTTPConnectivity struct {
	client *resty.Client
	url    string
}

// NewHTTPConnectivity creates a checker probing url.
func NewHTTPConnectivity(url string, timeout time.Duration) *HTTPConnectivity {
	client := resty.New()
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &HTTPConnectivity{client: client, url: url}
}

// Online issues the probe request.
func (c *HTTPConnectivity) Online(ctx context.Context) bool {
	_, err := c.client.R().SetContext(ctx).Head(c.url)
	return err == nil
}

// AlwaysOnline is a checker for environments without a probe target.
type AlwaysOnline struct{}

// Online always reports true.
func (AlwaysOnline) Online(context.Context) bool { return true }
