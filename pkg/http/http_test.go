package http_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	httpmod "github.com/NamanBalaji/segfetch/pkg/http"
)

func TestGetFilename(t *testing.T) {
	tests := []struct {
		name string
		resp *http.Response
		want string
	}{
		{
			name: "Content-Disposition filename",
			resp: &http.Response{
				Header: http.Header{
					"Content-Disposition": []string{`attachment; filename="example.txt"`},
				},
				Request: &http.Request{URL: mustParseURL("http://example.com/ignored")},
			},
			want: "example.txt",
		},
		{
			name: "URL path fallback",
			resp: &http.Response{
				Header:  http.Header{},
				Request: &http.Request{URL: mustParseURL("http://example.com/path/to/file.bin")},
			},
			want: "file.bin",
		},
		{
			name: "URL query filename param",
			resp: &http.Response{
				Header:  http.Header{},
				Request: &http.Request{URL: mustParseURL("http://example.com/download?filename=data.zip")},
			},
			want: "data.zip",
		},
		{
			name: "Default when no path or param",
			resp: &http.Response{
				Header:  http.Header{},
				Request: &http.Request{URL: mustParseURL("http://example.com/")},
			},
			want: "download",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := httpmod.GetFilename(tt.resp)
			if got != tt.want {
				t.Errorf("GetFilename() = %q; want %q", got, tt.want)
			}
		})
	}
}

func mustParseURL(raw string) *url.URL {
	u, _ := url.Parse(raw)
	return u
}

func TestClient_Open(t *testing.T) {
	var gotRange, gotUA, gotCustom string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		gotUA = r.Header.Get("User-Agent")
		gotCustom = r.Header.Get("X-Test")

		if r.URL.Path == "/missing" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write([]byte("payload"))
	}))
	defer ts.Close()

	client := httpmod.NewClient(httpmod.WithUserAgent("tester/2"))

	t.Run("headers are forwarded", func(t *testing.T) {
		resp, err := client.Open(context.Background(), ts.URL, map[string]string{"Range": "bytes=5-", "X-Test": "value"})
		if err != nil {
			t.Fatalf("Open() error = %v; want nil", err)
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		if string(body) != "payload" || resp.StatusCode != http.StatusPartialContent {
			t.Errorf("Open() = %d %q; want 206 payload", resp.StatusCode, body)
		}

		if gotRange != "bytes=5-" || gotUA != "tester/2" || gotCustom != "value" {
			t.Errorf("headers not forwarded: range=%q ua=%q custom=%q", gotRange, gotUA, gotCustom)
		}
	})

	t.Run("error statuses are returned, not converted", func(t *testing.T) {
		resp, err := client.Open(context.Background(), ts.URL+"/missing", nil)
		if err != nil {
			t.Fatalf("Open() error = %v; want nil", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Open() status = %d; want 404", resp.StatusCode)
		}
	})

	t.Run("invalid URL", func(t *testing.T) {
		_, err := client.Open(context.Background(), "http://[::1]:named", nil)
		if !errors.Is(err, httpmod.ErrRequestCreation) {
			t.Errorf("Open() error = %v; want ErrRequestCreation", err)
		}
	})

	t.Run("unreachable host", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		deadURL := dead.URL
		dead.Close()

		_, err := client.Open(context.Background(), deadURL, nil)
		if !errors.Is(err, httpmod.ErrNetworkProblem) {
			t.Errorf("Open() error = %v; want ErrNetworkProblem", err)
		}
	})
}

func TestIsHTTPURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"http://example.com/file.bin", true},
		{"https://example.com", true},
		{"ftp://example.com/file", false},
		{"/relative/path", false},
		{"https://", false},
		{"://bad", false},
	}

	for _, tt := range tests {
		if got := httpmod.IsHTTPURL(tt.url); got != tt.want {
			t.Errorf("IsHTTPURL(%q) = %v; want %v", tt.url, got, tt.want)
		}
	}
}
