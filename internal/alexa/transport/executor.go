package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"

	ctlerrors "github.com/echoctl/echoctl/internal/errors"
)

const (
	// UserAgent mimics the mobile companion app the remote service
	// expects.
	UserAgent = "AmazonWebView/Amazon Alexa/2.2.443692.0/iOS/14.8/iPhone"

	// maxRedirects bounds manual redirect following.
	maxRedirects = 30

	// defaultRetryDelay is the fixed wait between retries of a failed
	// request.
	defaultRetryDelay = 2 * time.Second
)

var charsetPattern = regexp.MustCompile(`(?i)\bcharset=\s*"?([^\s;"]*)`)

// Options control a single Send call.
type Options struct {
	JSON         bool
	AutoRedirect bool
	Headers      map[string]string
	MaxRetries   int
}

// Response is a decoded HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       string
	// Location holds the resolved redirect target when the final
	// status was a redirect and AutoRedirect was off.
	Location string
}

// Executor is the single point of outbound HTTP traffic. It follows
// redirects manually (response headers must be captured on every hop),
// keeps the cookie jar in sync, and retries transient failures. It has
// no knowledge of authentication semantics.
type Executor struct {
	client     *http.Client
	jar        http.CookieJar
	retryDelay time.Duration
	logf       func(format string, args ...any)
}

// NewExecutor creates an Executor using the given cookie jar.
func NewExecutor(jar http.CookieJar) *Executor {
	return &Executor{
		client: &http.Client{
			Timeout: 30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		jar:        jar,
		retryDelay: defaultRetryDelay,
	}
}

// SetLogFunc installs a verbose logging hook.
func (e *Executor) SetLogFunc(logf func(format string, args ...any)) {
	e.logf = logf
}

// SetRetryDelay overrides the fixed inter-attempt delay.
func (e *Executor) SetRetryDelay(d time.Duration) {
	e.retryDelay = d
}

func (e *Executor) log(format string, args ...any) {
	if e.logf != nil {
		e.logf(format, args...)
	}
}

// SendString performs a request with automatic redirect following and
// the standard retry bound, returning the decoded body.
func (e *Executor) SendString(ctx context.Context, method, rawURL, body string, json bool, headers map[string]string) (string, error) {
	resp, err := e.Send(ctx, method, rawURL, []byte(body), Options{
		JSON:         json,
		AutoRedirect: true,
		Headers:      headers,
		MaxRetries:   3,
	})
	if err != nil {
		return "", err
	}
	return resp.Body, nil
}

// Get performs a GET request with default options.
func (e *Executor) Get(ctx context.Context, rawURL string) (string, error) {
	return e.SendString(ctx, http.MethodGet, rawURL, "", false, nil)
}

// Send issues a request, following redirects manually (bounded at 30
// hops) and retrying non-200 responses up to opts.MaxRetries with a
// fixed delay. A 400 response flagged as queue-expired is surfaced
// immediately as ErrQueueExpired and never retried here.
func (e *Executor) Send(ctx context.Context, method, rawURL string, body []byte, opts Options) (*Response, error) {
	currentURL := rawURL
	redirects := 0
	retries := 0

	for {
		resp, location, err := e.attempt(ctx, method, currentURL, body, opts)
		if err != nil {
			var reqErr *ctlerrors.RequestError
			if ctlerrors.Is(err, ctlerrors.ErrTooManyRedirects) || ctlerrors.Is(err, ctlerrors.ErrQueueExpired) || ctlerrors.As(err, &reqErr) {
				return nil, err
			}
			// transport-level failure, retry like any bad status
			e.log("[transport] %s %s: %v", method, currentURL, err)
			retries++
			if retries > opts.MaxRetries {
				return nil, fmt.Errorf("request to %s failed: %w", rawURL, err)
			}
			if err := sleepCtx(ctx, e.retryDelay); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return resp, nil

		case resp.StatusCode == http.StatusMovedPermanently || resp.StatusCode == http.StatusFound:
			if location == "" {
				return resp, nil
			}
			redirects++
			if redirects > maxRedirects {
				return nil, ctlerrors.ErrTooManyRedirects
			}
			resp.Location = location
			if opts.AutoRedirect {
				e.log("[transport] redirected to %s", location)
				currentURL = location
				continue
			}
			return resp, nil

		case resp.StatusCode == http.StatusBadRequest && resp.Header.Get("x-amzn-error") == "QUEUE_EXPIRED":
			return nil, ctlerrors.ErrQueueExpired

		default:
			e.log("[transport] retry %s %s after status %d", method, currentURL, resp.StatusCode)
			retries++
			if retries > opts.MaxRetries {
				return nil, &ctlerrors.RequestError{
					Method:  method,
					URL:     rawURL,
					Code:    resp.StatusCode,
					Message: http.StatusText(resp.StatusCode),
				}
			}
			if err := sleepCtx(ctx, e.retryDelay); err != nil {
				return nil, err
			}
		}
	}
}

// attempt issues exactly one HTTP request and captures cookies and the
// redirect target from the response.
func (e *Executor) attempt(ctx context.Context, method, rawURL string, body []byte, opts Options) (*Response, string, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept-Language", "en-US")
	if _, ok := opts.Headers["User-Agent"]; !ok {
		req.Header.Set("User-Agent", UserAgent)
	}
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("DNT", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	for key, value := range opts.Headers {
		if value != "" {
			req.Header.Set(key, value)
		}
	}

	// A caller-supplied Cookie header (even an empty one) suppresses
	// jar injection for this call.
	if _, ok := opts.Headers["Cookie"]; !ok {
		e.injectCookies(req)
	}

	if body != nil {
		if opts.JSON {
			req.Header.Set("Content-Type", "application/json; charset=UTF-8")
		} else {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	e.jar.SetCookies(req.URL, resp.Cookies())

	location := resolveLocation(req.URL, resp.Header.Get("Location"))

	decoded, err := decodeBody(resp)
	if err != nil {
		return nil, "", err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       decoded,
	}, location, nil
}

func (e *Executor) injectCookies(req *http.Request) {
	cookies := e.jar.Cookies(req.URL)
	if len(cookies) == 0 {
		return
	}
	var b strings.Builder
	for i, c := range cookies {
		if i > 0 {
			b.WriteString(";")
		}
		b.WriteString(c.Name)
		b.WriteString("=")
		b.WriteString(c.Value)
		if c.Name == "csrf" {
			req.Header.Set("csrf", c.Value)
		}
	}
	req.Header.Set("Cookie", b.String())
}

// resolveLocation resolves a Location header against the request URL
// and rewrites any http:// target to https://.
func resolveLocation(base *url.URL, location string) string {
	if location == "" {
		return ""
	}
	ref, err := url.Parse(location)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref).String()
	if strings.HasPrefix(strings.ToLower(resolved), "http://") {
		resolved = "https://" + resolved[len("http://"):]
	}
	return resolved
}

// decodeBody fully reads the response body, transparently handling
// gzip and the charset declared in the content type (default UTF-8).
func decodeBody(resp *http.Response) (string, error) {
	var reader io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	if charset := detectCharset(resp.Header.Get("Content-Type")); charset != "" && !strings.EqualFold(charset, "utf-8") {
		enc, err := htmlindex.Get(charset)
		if err == nil && enc != nil {
			reader = enc.NewDecoder().Reader(reader)
		}
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(data), nil
}

func detectCharset(contentType string) string {
	m := charsetPattern.FindStringSubmatch(contentType)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
