package pptdeck

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connctd/pptdeck/internal/store"
	"github.com/connctd/pptdeck/pptx"
)

func newTestServer(t *testing.T, opts ServerOptions) (*PresentationServer, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if opts.Builder == nil {
		opts.Builder, _ = testBuilder(&stubFetcher{})
	}
	if opts.Log == nil {
		opts.Log, _ = test.NewNullLogger()
	}
	p, err := NewPresentationServer(ctx, opts)
	require.NoError(t, err)
	srv := httptest.NewServer(p.Handler())
	t.Cleanup(srv.Close)
	return p, srv
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "decks.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := ioutil.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func post(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := ioutil.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func requirePPTX(t *testing.T, data []byte, slides int) {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var n int
	for _, f := range zr.File {
		if matched, _ := filepath.Match("ppt/slides/slide*.xml", f.Name); matched {
			n++
		}
	}
	assert.Equal(t, slides, n)
}

func TestHealth(t *testing.T) {
	_, srv := newTestServer(t, ServerOptions{})
	resp, body := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestGenerateAndDownload(t *testing.T) {
	_, srv := newTestServer(t, ServerOptions{Store: testStore(t)})

	resp, body := post(t, srv.URL+"/generate-ppt", `[{"title":"My Talk","content":["**hi**"]},{"title":"Two"}]`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var gen generateResponse
	require.NoError(t, json.Unmarshal(body, &gen))
	assert.Equal(t, "PPT generated successfully", gen.Message)
	assert.Equal(t, "My_Talk.pptx", gen.OutputFile)
	assert.Equal(t, 2, gen.SlidesCount)
	require.NotEmpty(t, gen.PPTID)

	resp, data := get(t, srv.URL+"/download/"+gen.PPTID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, pptx.ContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "My_Talk.pptx")
	requirePPTX(t, data, 2)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/download/"+gen.PPTID, nil)
	require.NoError(t, err)
	req.Header.Set("If-None-Match", resp.Header.Get("ETag"))
	cached, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	cached.Body.Close()
	assert.Equal(t, http.StatusNotModified, cached.StatusCode)

	resp, body = get(t, srv.URL+"/decks")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var records []store.Record
	require.NoError(t, json.Unmarshal(body, &records))
	require.Len(t, records, 1)
	assert.Equal(t, gen.PPTID, records[0].ID)
}

func TestGenerateTrailingSlash(t *testing.T) {
	_, srv := newTestServer(t, ServerOptions{Store: testStore(t)})
	resp, body := post(t, srv.URL+"/generate-ppt/", `[{"slides":[{"title":"a"}]}]`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"slides_count":1`)
}

func TestGenerateBadRequests(t *testing.T) {
	_, srv := newTestServer(t, ServerOptions{Store: testStore(t)})
	for _, body := range []string{"", "{", "[]", `{"title":"x"}`} {
		resp, out := post(t, srv.URL+"/generate-ppt", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %q", body)
		assert.Contains(t, string(out), `"error"`)
	}
}

func TestGenerateWithoutStore(t *testing.T) {
	_, srv := newTestServer(t, ServerOptions{})
	resp, data := post(t, srv.URL+"/generate-ppt", `[{"title":"Solo"}]`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, pptx.ContentType, resp.Header.Get("Content-Type"))
	requirePPTX(t, data, 1)

	resp, _ = get(t, srv.URL+"/download/anything")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := get(t, srv.URL+"/decks")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestDownloadUnknown(t *testing.T) {
	_, srv := newTestServer(t, ServerOptions{Store: testStore(t)})
	resp, _ := get(t, srv.URL+"/download/does-not-exist")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWatchedDeck(t *testing.T) {
	path := writeTemp(t, "slides.json", `[{"title":"Watched","slides":[{"title":"a"}]}]`)
	p, srv := newTestServer(t, ServerOptions{DeckPath: path})

	resp, data := get(t, srv.URL+"/deck.pptx")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	requirePPTX(t, data, 1)

	resp, body := get(t, srv.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Watched.pptx")
	assert.Contains(t, string(body), "/livereload")

	// a broken edit keeps the last good build
	require.NoError(t, ioutil.WriteFile(path, []byte(`[`), 0644))
	assert.Error(t, p.Rerender())
	resp, data = get(t, srv.URL+"/deck.pptx")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	requirePPTX(t, data, 1)
	_, body = get(t, srv.URL+"/")
	assert.Contains(t, string(body), "Last build failed")
}

func TestNoWatchedDeck(t *testing.T) {
	_, srv := newTestServer(t, ServerOptions{})
	resp, _ := get(t, srv.URL+"/deck.pptx")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLivereload(t *testing.T) {
	path := writeTemp(t, "slides.json", `[{"slides":[{"title":"a"}]}]`)
	p, srv := newTestServer(t, ServerOptions{DeckPath: path})

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/livereload", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return p.connectionCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, ioutil.WriteFile(path, []byte(`[{"slides":[{"title":"a"},{"title":"b"}]}]`), 0644))
	require.NoError(t, p.Rerender())

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "Reload", string(msg))

	resp, data := get(t, srv.URL+"/deck.pptx")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	requirePPTX(t, data, 2)

	conn.Close()
	assert.Eventually(t, func() bool { return p.connectionCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestCORS(t *testing.T) {
	_, srv := newTestServer(t, ServerOptions{AllowedOrigins: []string{"http://allowed.example"}})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/generate-ppt", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://allowed.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://allowed.example", resp.Header.Get("Access-Control-Allow-Origin"))

	req, err = http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://other.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}
