package ratefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"unitconvert/internal/config"
	"unitconvert/internal/errors"
)

const doc = `<Cube><Cube time="2024-05-17"><Cube currency="USD" rate="1.0866"/></Cube></Cube>`

func newTestAdapter(t *testing.T, url string, mutate func(*Config)) *Adapter {
	t.Helper()
	cfg := DefaultConfig()
	cfg.URL = url
	if mutate != nil {
		mutate(cfg)
	}
	return New(cfg, zaptest.NewLogger(t))
}

func TestFetch(t *testing.T) {
	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte(doc))
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL, func(c *Config) { c.Headers["X-Trace"] = "abc" })
	body, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(body) != doc {
		t.Errorf("unexpected body %q", body)
	}
	h := <-headers
	if got := h.Get("User-Agent"); got != "unitconvert/1.0" {
		t.Errorf("unexpected user agent %q", got)
	}
	if got := h.Get("X-Trace"); got != "abc" {
		t.Errorf("custom header not sent, got %q", got)
	}
}

func TestFetchFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		mutate  func(*Config)
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "maintenance", http.StatusServiceUnavailable)
			},
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.NotFound(w, r)
			},
		},
		{
			name: "oversized",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(strings.Repeat("x", 2048)))
			},
			mutate: func(c *Config) { c.MaxBytes = 1024 },
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(2 * time.Second):
				case <-r.Context().Done():
				}
			},
			mutate: func(c *Config) { c.Timeout = 50 * time.Millisecond },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			a := newTestAdapter(t, srv.URL, tt.mutate)
			_, err := a.Fetch(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.IsType(err, errors.TypeNetwork) {
				t.Errorf("expected network error, got %v", err)
			}
		})
	}
}

func TestFetchHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	a := newTestAdapter(t, srv.URL, nil)
	start := time.Now()
	if _, err := a.Fetch(ctx); !errors.IsType(err, errors.TypeNetwork) {
		t.Errorf("expected network error, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled context did not stop the request")
	}
}

func TestInvalidURL(t *testing.T) {
	a := newTestAdapter(t, "://bad", nil)
	if _, err := a.Fetch(context.Background()); !errors.IsType(err, errors.TypeConfig) {
		t.Errorf("expected config error, got %v", err)
	}
	if a.Reachable() {
		t.Error("invalid url must not be reachable")
	}
}

func TestReachable(t *testing.T) {
	methods := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods <- r.Method
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))

	a := newTestAdapter(t, srv.URL, nil)
	if !a.Reachable() {
		t.Error("any HTTP response means the host is reachable")
	}
	if method := <-methods; method != http.MethodHead {
		t.Errorf("expected HEAD probe, got %s", method)
	}

	srv.Close()
	if a.Reachable() {
		t.Error("closed server must be unreachable")
	}
}

func TestConfigFrom(t *testing.T) {
	cc := config.Default().Currency
	cc.FeedURL = "http://example.test/rates.xml"
	cc.FetchTimeoutSeconds = 5
	cc.MaxDocumentBytes = 4096

	cfg := ConfigFrom(cc)
	if cfg.URL != cc.FeedURL || cfg.Timeout != 5*time.Second || cfg.MaxBytes != 4096 {
		t.Errorf("unexpected config %+v", cfg)
	}

	empty := ConfigFrom(config.CurrencyConfig{})
	if empty.URL != config.DefaultFeedURL || empty.Timeout != 30*time.Second {
		t.Errorf("empty settings must keep defaults, got %+v", empty)
	}
}
