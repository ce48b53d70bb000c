package parsers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articlePage = `<!DOCTYPE html>
<html lang="en">
<head>
  <title>Harbor Lights Return | Coastal Gazette</title>
  <meta property="og:site_name" content="Coastal Gazette">
  <meta name="author" content="Mira Santos">
</head>
<body>
  <nav><a href="/">Home</a> <a href="/news">News</a></nav>
  <article>
    <h1>Harbor Lights Return</h1>
    <p>The harbor lights were switched back on last night after a restoration that lasted most of the year.
    Volunteers replaced every lamp along the breakwater and repainted the old signal tower by hand.</p>
    <p>Fishing crews said the lights make the evening approach safer, especially in the autumn fog that
    rolls in from the bay. The town council has promised to keep them running through the winter months.</p>
    <p>A small ceremony gathered residents on the pier, where the mayor thanked the volunteers and the
    local school choir sang while the lamps came on one after another along the water.</p>
  </article>
  <footer>Copyright Coastal Gazette</footer>
</body>
</html>`

func newPageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/article":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, articlePage)
		case "/agent":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprintf(w, "<html><body><article><p>%s</p></article></body></html>", r.UserAgent())
		case "/huge":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, "<html><body><article>")
			for range 2000 {
				fmt.Fprint(w, "<p>The lamps along the breakwater burn through the night.</p>")
				if f, ok := w.(http.Flusher); ok {
					f.Flush()
				}
			}
			fmt.Fprint(w, "</article></body></html>")
		case "/declared":
			page := strings.Repeat("x", 64<<10)
			w.Header().Set("Content-Length", fmt.Sprint(len(page)))
			fmt.Fprint(w, page)
		case "/slow":
			time.Sleep(200 * time.Millisecond)
			fmt.Fprint(w, articlePage)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestURL(t *testing.T) {
	srv := newPageServer(t)
	parse, err := URL()
	require.NoError(t, err)

	got, err := parse(srv.URL + "/article")
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/article", got[FieldURL])
	assert.Equal(t, http.StatusOK, got[FieldStatus])
	assert.Contains(t, got[FieldTitle], "Harbor Lights Return")
	text, ok := got[FieldText].(string)
	require.True(t, ok)
	assert.Contains(t, text, "breakwater")
	assert.Greater(t, got[FieldWords], 50)
}

func TestURL_MaxChars(t *testing.T) {
	srv := newPageServer(t)
	parse, err := URL(WithMaxChars(40))
	require.NoError(t, err)

	got, err := parse(srv.URL + "/article")
	require.NoError(t, err)
	assert.LessOrEqual(t, got[FieldChars], 40)
}

func TestURL_UserAgent(t *testing.T) {
	srv := newPageServer(t)
	parse, err := URL(WithUserAgent("test-agent/2"))
	require.NoError(t, err)

	got, err := parse(srv.URL + "/agent")
	require.NoError(t, err)
	assert.True(t, strings.Contains(got[FieldText].(string), "test-agent/2"))
}

func TestURL_Errors(t *testing.T) {
	srv := newPageServer(t)

	parse, err := URL(WithFetchTimeout(50 * time.Millisecond))
	require.NoError(t, err)

	_, err = parse(srv.URL + "/missing")
	assert.ErrorIs(t, err, ErrHTTPStatus)

	_, err = parse(srv.URL + "/slow")
	assert.Error(t, err)

	_, err = parse("ftp://example.com/file")
	assert.ErrorIs(t, err, ErrUnsupportedItem)

	_, err = parse("not a url")
	assert.ErrorIs(t, err, ErrUnsupportedItem)

	_, err = parse(12)
	assert.ErrorIs(t, err, ErrUnsupportedItem)
}

func TestURL_MaxBodyBytes(t *testing.T) {
	srv := newPageServer(t)
	parse, err := URL(WithMaxBodyBytes(8 << 10))
	require.NoError(t, err)

	got, err := parse(srv.URL + "/article")
	require.NoError(t, err)
	assert.Contains(t, got[FieldTitle], "Harbor Lights Return")

	_, err = parse(srv.URL + "/huge")
	assert.ErrorIs(t, err, ErrBodyTooLarge)

	_, err = parse(srv.URL + "/declared")
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestURL_InvalidOptions(t *testing.T) {
	_, err := URL(WithHTTPClient(nil))
	assert.Error(t, err)
	_, err = URL(WithFetchTimeout(0))
	assert.Error(t, err)
	_, err = URL(WithMaxChars(0))
	assert.Error(t, err)
	_, err = URL(WithMaxBodyBytes(0))
	assert.Error(t, err)
}
