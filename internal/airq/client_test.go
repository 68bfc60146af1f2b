package airq

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hamed0406/airqmon/internal/domain"
)

func testEndpoint(srv *httptest.Server, path string) domain.SensorEndpoint {
	return domain.SensorEndpoint{
		Host: strings.TrimPrefix(srv.URL, "http://"),
		Path: domain.SensorPath(path),
	}
}

func TestClient_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/livingroom/data/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"content":"c29tZS1jaXBoZXJ0ZXh0"}`))
	}))
	defer srv.Close()

	c := NewClient("http", time.Second, false)
	raw, err := c.Fetch(context.Background(), testEndpoint(srv, "/livingroom"))
	require.NoError(t, err)
	require.Equal(t, "c29tZS1jaXBoZXJ0ZXh0", raw.Content)
	require.Equal(t, http.StatusOK, raw.Status)
	require.GreaterOrEqual(t, raw.LatencyMS, 0.0)
	require.False(t, raw.FetchedAt.IsZero())
}

func TestClient_TrailingSlashPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/a/data/" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"content":"eA=="}`))
	}))
	defer srv.Close()

	c := NewClient("http", time.Second, false)
	_, err := c.Fetch(context.Background(), testEndpoint(srv, "/a/"))
	require.NoError(t, err)
}

func TestClient_HTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient("http", time.Second, false)
	_, err := c.Fetch(context.Background(), testEndpoint(srv, "/a"))
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, FetchHTTPStatus, fe.Kind)
	require.Equal(t, http.StatusServiceUnavailable, fe.Status)
}

func TestClient_MalformedEnvelope(t *testing.T) {
	cases := map[string]string{
		"not json":        `<html>device setup page</html>`,
		"missing content": `{"status":"ok"}`,
		"empty content":   `{"content":""}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer srv.Close()

			c := NewClient("http", time.Second, false)
			_, err := c.Fetch(context.Background(), testEndpoint(srv, "/a"))
			var fe *FetchError
			require.ErrorAs(t, err, &fe)
			require.Equal(t, FetchMalformed, fe.Kind)
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient("http", 50*time.Millisecond, false)
	_, err := c.Fetch(context.Background(), testEndpoint(srv, "/a"))
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, FetchTimeout, fe.Kind)
}

func TestClient_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient("http", time.Minute, false)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Fetch(ctx, testEndpoint(srv, "/a"))
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, FetchTimeout, fe.Kind)
}

func TestClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ep := testEndpoint(srv, "/a")
	srv.Close() // nobody listening anymore

	c := NewClient("http", time.Second, false)
	_, err := c.Fetch(context.Background(), ep)
	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	require.Equal(t, FetchConnectionRefused, fe.Kind)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("", 0, false)
	require.Equal(t, "https", c.Scheme)
	require.Equal(t, 3*time.Second, c.HTTP.Timeout)
}
