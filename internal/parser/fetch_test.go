package parser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageFetcherStatic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>static page</body></html>"))
	}))
	defer server.Close()

	f := NewPageFetcher(nil, "")

	html, err := f.Fetch(context.Background(), server.URL, false, 5*time.Second)
	require.NoError(t, err)
	assert.Contains(t, html, "static page")
}

func TestPageFetcherRendered(t *testing.T) {
	render := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/function", r.URL.Path)
		var body struct {
			Code    string            `json:"code"`
			Context map[string]string `json:"context"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotEmpty(t, body.Code)
		assert.Equal(t, "https://amazon.fr/dp/B0XYZ", body.Context["url"])
		w.Write([]byte("<html><body>rendered page</body></html>"))
	}))
	defer render.Close()

	f := NewPageFetcher(nil, render.URL)

	html, err := f.Fetch(context.Background(), "https://amazon.fr/dp/B0XYZ", true, 5*time.Second)
	require.NoError(t, err)
	assert.Contains(t, html, "rendered page")
}

func TestPageFetcherRenderFallback(t *testing.T) {
	static := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>static fallback</body></html>"))
	}))
	defer static.Close()

	render := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer render.Close()

	f := NewPageFetcher(nil, render.URL)

	html, err := f.Fetch(context.Background(), static.URL, true, 5*time.Second)
	require.NoError(t, err)
	assert.Contains(t, html, "static fallback")
}

func TestPageFetcherStaticFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewPageFetcher(nil, "")

	_, err := f.Fetch(context.Background(), server.URL, false, 5*time.Second)
	require.Error(t, err)
}

func TestParseDocument(t *testing.T) {
	doc, err := ParseDocument("<html><body><h1>Titre</h1></body></html>")
	require.NoError(t, err)
	assert.Equal(t, "Titre", doc.Find("h1").Text())
}
