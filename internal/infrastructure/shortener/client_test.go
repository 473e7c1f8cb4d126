package shortener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShorten(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.URL.Query().Get("api"))
		assert.Equal(t, "https://relay.example.com/verify/abc", r.URL.Query().Get("url"))
		_, _ = w.Write([]byte(`{"status":"success","shortenedUrl":"https://s.rt/x"}`))
	}))
	defer srv.Close()

	got, err := New(srv.URL+"/api", "key").Shorten(context.Background(), "https://relay.example.com/verify/abc")
	require.NoError(t, err)
	assert.Equal(t, "https://s.rt/x", got)
}

func TestShorten_EmptyLinkIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","message":"invalid api key"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "bad").Shorten(context.Background(), "https://x")
	assert.ErrorContains(t, err, "invalid api key")
}

func TestShorten_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "key").Shorten(context.Background(), "https://x")
	assert.ErrorContains(t, err, "429")
}
