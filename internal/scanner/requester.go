package scanner

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/paraprobe/paraprobe/internal/config"
)

// Response holds the parsed HTTP response data for one probe.
type Response struct {
	StatusCode int
	Body       []byte
	Length     int
	Duration   time.Duration
}

// Requester sends probe requests with a single candidate parameter injected.
// GET probes append the parameter to the query string; POST probes send it as
// a form-encoded body. The rest of the target URL is left untouched.
type Requester struct {
	client      *http.Client
	target      *url.URL
	method      string
	headers     map[string]string
	userAgent   string
	placeholder string
}

// NewRequester creates a Requester from the provided options.
func NewRequester(opts *config.Options) (*Requester, error) {
	target, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", opts.URL, err)
	}
	if target.Scheme == "" {
		target.Scheme = "http"
	}

	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}
	if method != http.MethodGet && method != http.MethodPost {
		return nil, fmt.Errorf("unsupported method %q, expected GET or POST", opts.Method)
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		DialContext: (&net.Dialer{
			Timeout: opts.Timeout,
		}).DialContext,
		MaxIdleConnsPerHost: opts.Threads,
		MaxIdleConns:        opts.Threads,
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", opts.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}

	if !opts.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	ua := opts.UserAgent
	if ua == "" {
		ua = "paraprobe/1.0"
	}

	return &Requester{
		client:      client,
		target:      target,
		method:      method,
		headers:     opts.Headers,
		userAgent:   ua,
		placeholder: opts.Placeholder,
	}, nil
}

// Method returns the configured HTTP method.
func (r *Requester) Method() string { return r.method }

// TargetURL returns the configured target URL.
func (r *Requester) TargetURL() string { return r.target.String() }

// Probe sends one request with param set to the placeholder value and returns
// the parsed response.
func (r *Requester) Probe(ctx context.Context, param string) (*Response, error) {
	var req *http.Request
	var err error

	if r.method == http.MethodPost {
		form := url.Values{param: {r.placeholder}}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, r.target.String(),
			strings.NewReader(form.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		probeURL := *r.target
		q := probeURL.Query()
		q.Set(param, r.placeholder)
		probeURL.RawQuery = q.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, probeURL.String(), nil)
	}
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", r.userAgent)
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body for %s: %w", param, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Length:     len(body),
		Duration:   time.Since(start),
	}, nil
}
