package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchRejectsNonHTTPScheme(t *testing.T) {
	s := New()
	_, err := s.Fetch(context.Background(), "ftp://example.com/file")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http")
}

func TestFetchExtractsArticleBodyAndSkipsNav(t *testing.T) {
	html := `<html><head><script>var x=1;</script></head><body>
		<nav>Home About Contact</nav>
		<article><h1>Great Title</h1><p>` + strings.Repeat("This is the article body. ", 5) + `</p></article>
		<footer>Copyright 2026</footer>
	</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(html))
	}))
	defer srv.Close()

	s := New()
	text, err := s.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, text, "Great Title")
	assert.Contains(t, text, "article body")
	assert.NotContains(t, text, "Copyright")
	assert.NotContains(t, text, "Home About Contact")
}

func TestFetchRejectsShortContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>hi</p></body></html>`))
	}))
	defer srv.Close()

	s := New()
	_, err := s.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}

func TestFetchPropagatesNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := New()
	_, err := s.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
