package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/scene-hub/scene-hub/internal/crateid"
	"github.com/scene-hub/scene-hub/internal/errs"
)

func TestIndexPath(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"a", "1/a"},
		{"ab", "2/ab"},
		{"abc", "3/a/abc"},
		{"bevyhub_api", "be/vy/bevyhub_api"},
		{"Serde", "se/rd/serde"},
	}
	for _, tc := range cases {
		if got := IndexPath(tc.name); got != tc.want {
			t.Fatalf("IndexPath(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	throttle := NewThrottle(time.Millisecond)
	return NewClient(server.Client(), server.URL, server.URL, throttle, nil), server
}

func TestVersionsParsesSparseIndex(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"name":"bevyhub_template","vers":"0.0.1-rc.1","yanked":false}` + "\n" +
			`{"name":"bevyhub_template","vers":"0.0.2","yanked":false}` + "\n\n"))
	}))

	versions, err := client.Versions(context.Background(), "bevyhub_template")
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if gotPath != "/be/vy/bevyhub_template" {
		t.Fatalf("index path mismatch: %s", gotPath)
	}
	if len(versions) != 2 || versions[0].String() != "0.0.1-rc.1" || versions[1].String() != "0.0.2" {
		t.Fatalf("versions mismatch: %v", versions)
	}
}

func TestVersionsFailsFastOnBadLine(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"x","vers":"1.0.0"}` + "\n" + `{broken` + "\n"))
	}))

	if _, err := client.Versions(context.Background(), "x"); !errors.Is(err, errs.ErrMalformedData) {
		t.Fatalf("expected ErrMalformedData, got %v", err)
	}
}

func TestVersionsNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	if _, err := client.Versions(context.Background(), "missing"); !errors.Is(err, errs.ErrNotFoundUpstream) {
		t.Fatalf("expected ErrNotFoundUpstream, got %v", err)
	}
}

func TestVersionsUpstreamDown(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	if _, err := client.Versions(context.Background(), "x"); !errors.Is(err, errs.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestLatestVersionSkipsYanked(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"x","vers":"1.0.0","yanked":false}` + "\n" +
			`{"name":"x","vers":"1.1.0","yanked":true}` + "\n"))
	}))

	latest, err := client.LatestVersion(context.Background(), "x")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.String() != "1.0.0" {
		t.Fatalf("yanked release must not win: %s", latest)
	}
}

func TestResolveVersion(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"x","vers":"1.2.0","yanked":false}` + "\n"))
	}))

	v, err := client.ResolveVersion(context.Background(), "x", "latest")
	if err != nil || v.String() != "1.2.0" {
		t.Fatalf("latest token: %v %v", v, err)
	}

	v, err = client.ResolveVersion(context.Background(), "x", "0.3.1")
	if err != nil || v.String() != "0.3.1" {
		t.Fatalf("exact token: %v %v", v, err)
	}

	if _, err := client.ResolveVersion(context.Background(), "x", "not-a-version"); !errors.Is(err, errs.ErrMalformedData) {
		t.Fatalf("expected ErrMalformedData, got %v", err)
	}
}

func TestTarballURLAndThrottleSharing(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte("tarball-bytes"))
	}))
	t.Cleanup(server.Close)

	interval := 50 * time.Millisecond
	throttle := NewThrottle(interval)
	client := NewClient(server.Client(), server.URL, server.URL, throttle, nil)

	id := &crateid.RegistryCrate{Name: "Bevyhub_Template", Version: mustVersion(t, "0.0.1-rc.1")}

	start := time.Now()
	if _, err := client.Tarball(context.Background(), id); err != nil {
		t.Fatalf("tarball: %v", err)
	}
	// 不同 crate 的请求也共享同一个节流器
	other := &crateid.RegistryCrate{Name: "other", Version: mustVersion(t, "1.0.0")}
	if _, err := client.Tarball(context.Background(), other); err != nil {
		t.Fatalf("tarball: %v", err)
	}
	if elapsed := time.Since(start); elapsed < interval {
		t.Fatalf("back-to-back fetches finished in %v, want at least %v", elapsed, interval)
	}

	if paths[0] != "/api/v1/crates/bevyhub_template/0.0.1-rc.1/download" {
		t.Fatalf("download path mismatch: %s", paths[0])
	}
}

func TestThrottleNoExtraDelayAfterIdle(t *testing.T) {
	interval := 30 * time.Millisecond
	throttle := NewThrottle(interval)

	if err := throttle.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	time.Sleep(interval + 10*time.Millisecond)

	start := time.Now()
	if err := throttle.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > interval/2 {
		t.Fatalf("idle throttle must not delay, took %v", elapsed)
	}
}

func TestThrottleContextCancel(t *testing.T) {
	throttle := NewThrottle(time.Hour)
	if err := throttle.Wait(context.Background()); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := throttle.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
