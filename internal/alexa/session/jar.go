package session

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Cookie is a stored cookie with the full attribute set the session
// blob preserves across restarts.
type Cookie struct {
	Name       string
	Value      string
	Comment    string
	CommentURL string
	Domain     string
	MaxAge     int64
	Path       string
	Portlist   string
	Version    int
	Secure     bool
	Discard    bool
}

// Jar is an ordered, enumerable cookie store. Unlike net/http/cookiejar
// it can list every cookie it holds, which session serialization needs.
// It implements http.CookieJar.
type Jar struct {
	mu      sync.Mutex
	cookies []*Cookie
}

// NewJar creates an empty cookie jar.
func NewJar() *Jar {
	return &Jar{}
}

// SetCookies stores the cookies received in a response to u. A cookie
// without an explicit domain is keyed to the request host.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for _, c := range cookies {
		domain := c.Domain
		if domain == "" && u != nil {
			domain = u.Hostname()
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		j.put(&Cookie{
			Name:   c.Name,
			Value:  c.Value,
			Domain: domain,
			MaxAge: int64(c.MaxAge),
			Path:   path,
			Secure: c.Secure,
		})
	}
}

// Add stores a single cookie, replacing any existing cookie with the
// same name, domain and path.
func (j *Jar) Add(c *Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.put(c)
}

func (j *Jar) put(c *Cookie) {
	for i, existing := range j.cookies {
		if existing.Name == c.Name && existing.Domain == c.Domain && existing.Path == c.Path {
			j.cookies[i] = c
			return
		}
	}
	j.cookies = append(j.cookies, c)
}

// Cookies returns the cookies applicable to a request to u, in
// insertion order.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	var result []*http.Cookie
	for _, c := range j.cookies {
		if !domainMatch(u.Hostname(), c.Domain) {
			continue
		}
		if !pathMatch(u.Path, c.Path) {
			continue
		}
		if c.Secure && u.Scheme != "https" {
			continue
		}
		result = append(result, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return result
}

// All returns a snapshot of every stored cookie in insertion order.
func (j *Jar) All() []Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	result := make([]Cookie, len(j.cookies))
	for i, c := range j.cookies {
		result[i] = *c
	}
	return result
}

// Replace drops all cookies and installs the given set.
func (j *Jar) Replace(cookies []Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.cookies = j.cookies[:0]
	for i := range cookies {
		c := cookies[i]
		j.put(&c)
	}
}

// Clear removes every cookie.
func (j *Jar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.cookies = nil
}

func domainMatch(host, domain string) bool {
	if domain == "" {
		return true
	}
	domain = strings.TrimPrefix(domain, ".")
	host = strings.ToLower(host)
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func pathMatch(requestPath, cookiePath string) bool {
	if requestPath == "" {
		requestPath = "/"
	}
	if cookiePath == "" || cookiePath == "/" {
		return true
	}
	return requestPath == cookiePath || strings.HasPrefix(requestPath, strings.TrimSuffix(cookiePath, "/")+"/")
}
