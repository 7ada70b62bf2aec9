package http

import (
	"bytes"
	"encoding/json"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"asyncimage"
	"asyncimage/internal/codec"
	"asyncimage/internal/config"
)

func newTestHandlers(t *testing.T) (*Handlers, *httptest.Server) {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 800, 600))))
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		w.Write(buf.Bytes())
	}))
	t.Cleanup(origin.Close)

	loader, err := asyncimage.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { loader.Close() })

	cfg := &config.Config{RequestTimeout: 5 * time.Second}
	return New(cfg, zap.NewNop(), loader, codec.NewStd(codec.DefaultQuality)), origin
}

func TestHandleImage(t *testing.T) {
	h, origin := newTestHandlers(t)
	target := origin.URL + "/photo.png"

	req := httptest.NewRequest(http.MethodGet, "/api/image?width=150&height=150&url="+url.QueryEscape(target), nil)
	rec := httptest.NewRecorder()
	h.RequestLoggingMiddleware(http.HandlerFunc(h.HandleImage)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "200x150", rec.Header().Get("X-Image-Size"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	cfg, err := jpeg.DecodeConfig(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Width)
}

func TestHandleImageErrors(t *testing.T) {
	h, origin := newTestHandlers(t)

	tests := []struct {
		name   string
		method string
		target string
		want   int
	}{
		{"missing url", http.MethodGet, "/api/image", http.StatusBadRequest},
		{"bad width", http.MethodGet, "/api/image?width=x&url=http://a/b.png", http.StatusBadRequest},
		{"bad force", http.MethodGet, "/api/image?force=maybe&url=http://a/b.png", http.StatusBadRequest},
		{"wrong method", http.MethodPost, "/api/image?url=http://a/b.png", http.StatusMethodNotAllowed},
		{"upstream 404", http.MethodGet, "/api/image?url=" + url.QueryEscape(origin.URL+"/missing.png"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleImage(rec, httptest.NewRequest(tt.method, tt.target, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestHandleCache(t *testing.T) {
	h, origin := newTestHandlers(t)
	target := origin.URL + "/photo.png"

	rec := httptest.NewRecorder()
	h.HandleImage(rec, httptest.NewRequest(http.MethodHead, "/api/image?url="+url.QueryEscape(target), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())

	rec = httptest.NewRecorder()
	h.HandleCache(rec, httptest.NewRequest(http.MethodGet, "/api/cache?url="+url.QueryEscape(target), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var info map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.Equal(t, true, info["cached"])
	assert.Len(t, info["fingerprint"], 64)

	rec = httptest.NewRecorder()
	h.HandleCache(rec, httptest.NewRequest(http.MethodDelete, "/api/cache", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleCache(rec, httptest.NewRequest(http.MethodGet, "/api/cache?url="+url.QueryEscape(target), nil))
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	assert.Equal(t, false, info["cached"])
}

func TestCORSAndHealthz(t *testing.T) {
	h, _ := newTestHandlers(t)
	handler := h.CORSMiddleware(http.HandlerFunc(h.HandleHealthz))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "ok", rec.Body.String())
}
