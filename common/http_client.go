package common

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

func WrapHTTPClient(client *http.Client, wrap func(req *http.Request, next http.RoundTripper) (*http.Response, error)) {
	if client == nil {
		return
	}
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	client.Transport = roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return wrap(req, base)
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// UserAgent sets the user agent on every outgoing request which does not define one
func UserAgent(userAgent string) func(req *http.Request, next http.RoundTripper) (*http.Response, error) {
	return func(req *http.Request, next http.RoundTripper) (*http.Response, error) {
		if req.Header.Get("User-Agent") == "" {
			req = req.Clone(req.Context())
			req.Header.Set("User-Agent", userAgent)
		}
		return next.RoundTrip(req)
	}
}

// RateLimit blocks each request until the limiter allows it or the request context is done
func RateLimit(limiter *rate.Limiter) func(req *http.Request, next http.RoundTripper) (*http.Response, error) {
	return func(req *http.Request, next http.RoundTripper) (*http.Response, error) {
		start := time.Now()
		if err := limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
		if waited := time.Since(start); waited > time.Second {
			slog.Debug("request was rate limited", "url", req.URL.String(), "waited", waited.String())
		}
		return next.RoundTrip(req)
	}
}

// NewHTTPClient returns a traced client which identifies itself as vulncorrelator
func NewHTTPClient(timeout time.Duration) *http.Client {
	client := &http.Client{
		Timeout: timeout,
		Transport: otelhttp.NewTransport(&http.Transport{
			MaxIdleConnsPerHost: 3,
			Proxy:               http.ProxyFromEnvironment,
		}),
	}
	WrapHTTPClient(client, UserAgent("vulncorrelator"))
	return client
}
