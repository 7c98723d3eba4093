package session

import (
	"net/http"
	"net/url"
	"testing"
)

func TestJarDomainMatching(t *testing.T) {
	jar := NewJar()
	jar.Add(&Cookie{Name: "at-main", Value: "token", Domain: ".amazon.com", Path: "/"})
	jar.Add(&Cookie{Name: "local", Value: "x", Domain: "alexa.amazon.de", Path: "/"})

	tests := []struct {
		url  string
		want []string
	}{
		{"https://www.amazon.com/", []string{"at-main"}},
		{"https://alexa.amazon.com/api/bootstrap", []string{"at-main"}},
		{"https://alexa.amazon.de/", []string{"local"}},
		{"https://example.com/", nil},
	}
	for _, tt := range tests {
		u, _ := url.Parse(tt.url)
		got := jar.Cookies(u)
		if len(got) != len(tt.want) {
			t.Errorf("%s: expected %d cookies, got %d", tt.url, len(tt.want), len(got))
			continue
		}
		for i, c := range got {
			if c.Name != tt.want[i] {
				t.Errorf("%s: expected cookie %q, got %q", tt.url, tt.want[i], c.Name)
			}
		}
	}
}

func TestJarSecureCookieNeedsHTTPS(t *testing.T) {
	jar := NewJar()
	jar.Add(&Cookie{Name: "sess", Value: "x", Domain: ".amazon.com", Path: "/", Secure: true})

	insecure, _ := url.Parse("http://www.amazon.com/")
	if got := jar.Cookies(insecure); len(got) != 0 {
		t.Errorf("expected secure cookie withheld on http, got %d cookies", len(got))
	}

	secure, _ := url.Parse("https://www.amazon.com/")
	if got := jar.Cookies(secure); len(got) != 1 {
		t.Errorf("expected secure cookie on https, got %d cookies", len(got))
	}
}

func TestJarReplacesByIdentity(t *testing.T) {
	jar := NewJar()
	jar.Add(&Cookie{Name: "sid", Value: "one", Domain: ".amazon.com", Path: "/"})
	jar.Add(&Cookie{Name: "sid", Value: "two", Domain: ".amazon.com", Path: "/"})
	jar.Add(&Cookie{Name: "sid", Value: "other", Domain: ".amazon.de", Path: "/"})

	all := jar.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(all))
	}
	if all[0].Value != "two" {
		t.Errorf("expected replacement in place, got %q", all[0].Value)
	}
}

func TestJarSetCookiesFromResponse(t *testing.T) {
	jar := NewJar()
	u, _ := url.Parse("https://www.amazon.com/ap/signin")
	jar.SetCookies(u, []*http.Cookie{
		{Name: "session-id", Value: "abc"},
		{Name: "ubid-main", Value: "def", Domain: ".amazon.com"},
	})

	all := jar.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(all))
	}
	// cookie without explicit domain is keyed to the request host
	if all[0].Domain != "www.amazon.com" {
		t.Errorf("expected host-keyed domain, got %q", all[0].Domain)
	}
	if all[1].Domain != ".amazon.com" {
		t.Errorf("expected explicit domain kept, got %q", all[1].Domain)
	}
}

func TestJarClear(t *testing.T) {
	jar := NewJar()
	jar.Add(&Cookie{Name: "x", Value: "1", Domain: ".amazon.com", Path: "/"})
	jar.Clear()
	if got := jar.All(); len(got) != 0 {
		t.Errorf("expected empty jar after clear, got %d cookies", len(got))
	}
}
