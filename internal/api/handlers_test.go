package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/adilg123/lzhuff/internal/compression"
	"github.com/adilg123/lzhuff/internal/config"
	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newTestRouter(maxFileSize int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Port:        "0",
		Environment: "test",
		MaxFileSize: maxFileSize,
		LogLevel:    "info",

		CompareCacheSize: 4,
	}
	return NewRouter(cfg, zap.NewNop())
}

func uploadRequest(t *testing.T, path, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestCompressThenDecompress(t *testing.T) {
	router := newTestRouter(1 << 20)
	original := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 50))

	for _, prefix := range []string{"/api/v1", ""} {
		rec := serve(router, uploadRequest(t, prefix+"/compress", "notes.txt", original))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s/compress: status %d: %s", prefix, rec.Code, rec.Body.String())
		}
		if got := rec.Header().Get("Content-Disposition"); got != "attachment; filename=notes.lzh" {
			t.Errorf("Content-Disposition = %q", got)
		}
		if got := rec.Header().Get("X-Original-Size"); got != strconv.Itoa(len(original)) {
			t.Errorf("X-Original-Size = %q", got)
		}
		wantSum := strconv.FormatUint(xxhash.Sum64(original), 16)
		if got := rec.Header().Get("X-Content-Checksum"); got != wantSum {
			t.Errorf("X-Content-Checksum = %q, want %q", got, wantSum)
		}
		archived := rec.Body.Bytes()
		if len(archived) >= len(original) {
			t.Errorf("archive of %d bytes for %d input bytes", len(archived), len(original))
		}

		rec = serve(router, uploadRequest(t, prefix+"/decompress", "notes.lzh", archived))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s/decompress: status %d: %s", prefix, rec.Code, rec.Body.String())
		}
		if !bytes.Equal(rec.Body.Bytes(), original) {
			t.Fatal("decompressed body differs from the upload")
		}
		if got := rec.Header().Get("Content-Disposition"); got != "attachment; filename=notes" {
			t.Errorf("Content-Disposition = %q", got)
		}
		if got := rec.Header().Get("X-Content-Checksum"); got != wantSum {
			t.Errorf("X-Content-Checksum = %q, want %q", got, wantSum)
		}
	}
}

func TestDecompressCorruptArchive(t *testing.T) {
	router := newTestRouter(1 << 20)
	archived, _, err := compression.Compress([]byte("abracadabra abracadabra"), compression.Options{})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
		kind string
	}{
		{"not an archive", []byte("hello"), "malformed_archive"},
		{"trailing bytes", append(bytes.Clone(archived), 0), "malformed_archive"},
		{"truncated payload", archived[:len(archived)-1], "unexpected_end_of_stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(router, uploadRequest(t, "/api/v1/decompress", "x.lzh", tt.data))
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
			}
			if resp := decodeError(t, rec); resp.Kind != tt.kind {
				t.Fatalf("kind %q, want %q", resp.Kind, tt.kind)
			}
		})
	}
}

func TestUploadErrors(t *testing.T) {
	router := newTestRouter(16)

	rec := serve(router, uploadRequest(t, "/api/v1/compress", "big.bin", make([]byte, 17)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized upload: status %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/compress", strings.NewReader("plain body"))
	req.Header.Set("Content-Type", "text/plain")
	rec = serve(router, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing file: status %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != http.StatusBadRequest || resp.Kind != "" {
		t.Fatalf("unexpected body %+v", resp)
	}
}

func TestCompare(t *testing.T) {
	router := newTestRouter(1 << 20)
	content := []byte(strings.Repeat("abcabcabd", 200))

	rec := serve(router, uploadRequest(t, "/api/v1/compare", "abc.txt", content))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	var resp CompareResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.OriginalSize != len(content) || resp.Filename != "abc.txt" {
		t.Fatalf("unexpected response %+v", resp)
	}
	found := false
	for _, r := range resp.Results {
		if !r.RoundTrip {
			t.Errorf("%s did not round trip", r.Name)
		}
		if r.Name == compression.Format {
			found = true
		}
	}
	if !found {
		t.Fatalf("%s missing from %+v", compression.Format, resp.Results)
	}
	if got := rec.Header().Get("X-Cache"); got != "miss" {
		t.Fatalf("first comparison X-Cache = %q", got)
	}

	rec = serve(router, uploadRequest(t, "/api/v1/compare", "again.txt", content))
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "hit" {
		t.Fatalf("repeat comparison: status %d, X-Cache %q", rec.Code, rec.Header().Get("X-Cache"))
	}
	var again CompareResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &again); err != nil {
		t.Fatal(err)
	}
	if again.Filename != "again.txt" || len(again.Results) != len(resp.Results) {
		t.Fatalf("unexpected cached response %+v", again)
	}
}

func TestCompareWithoutCache(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(&config.Config{Port: "0", MaxFileSize: 1 << 20, LogLevel: "info"}, zap.NewNop())
	for i := 0; i < 2; i++ {
		rec := serve(router, uploadRequest(t, "/api/v1/compare", "x", []byte("xyzxyzxyz")))
		if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
			t.Fatalf("status %d, X-Cache %q", rec.Code, rec.Header().Get("X-Cache"))
		}
	}
}

func TestCompareChart(t *testing.T) {
	router := newTestRouter(1 << 20)
	rec := serve(router, uploadRequest(t, "/api/v1/compare?format=svg", "abc.txt", []byte(strings.Repeat("abc", 300))))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/svg+xml" {
		t.Fatalf("Content-Type = %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "<svg") {
		t.Fatal("body is not an svg document")
	}
}

func TestInfoAndHealth(t *testing.T) {
	router := newTestRouter(1 << 20)
	for _, path := range []string{"/", "/info", "/api/v1/info"} {
		rec := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
		var info map[string]interface{}
		if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
			t.Fatal(err)
		}
		format, _ := info["format"].(map[string]interface{})
		if format["name"] != compression.Format || format["magic"] != "L1" {
			t.Fatalf("%s: unexpected format %v", path, format)
		}
	}

	for _, path := range []string{"/health", "/api/v1/health"} {
		rec := serve(router, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "healthy") {
			t.Fatalf("%s: status %d body %s", path, rec.Code, rec.Body.String())
		}
	}
}

func TestMiddleware(t *testing.T) {
	router := newTestRouter(1 << 20)

	rec := serve(router, httptest.NewRequest(http.MethodOptions, "/api/v1/compress", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/health", nil))
	if _, err := uuid.Parse(rec.Header().Get(requestIDHeader)); err != nil {
		t.Fatalf("generated request id: %v", err)
	}

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, id)
	rec = serve(router, req)
	if got := rec.Header().Get(requestIDHeader); got != id {
		t.Fatalf("request id %q, want %q", got, id)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "not-a-uuid")
	rec = serve(router, req)
	if got := rec.Header().Get(requestIDHeader); got == "not-a-uuid" {
		t.Fatal("invalid request id was echoed back")
	}
}

func TestDecompressedFilename(t *testing.T) {
	tests := map[string]string{
		"report.pdf.lzh": "report.pdf",
		"data.bin":       "data_decompressed",
		".lzh":           "_decompressed",
		"":               "file_decompressed",
	}
	for in, want := range tests {
		if got := decompressedFilename(in); got != want {
			t.Errorf("decompressedFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRequestLoggerWritesEntries(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := zap.New(zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(&buf),
		zapcore.DebugLevel,
	))

	router := gin.New()
	SetupRoutes(router, NewHandler(&config.Config{MaxFileSize: 1 << 20}, logger), logger)
	serve(router, httptest.NewRequest(http.MethodGet, "/health", nil))

	out, _ := io.ReadAll(&buf)
	if !strings.Contains(string(out), `"path":"/health"`) || !strings.Contains(string(out), `"status":200`) {
		t.Fatalf("unexpected log output %s", out)
	}
}
