package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/adilg123/lzhuff/internal/compression"
	"github.com/adilg123/lzhuff/internal/compression/archive"
	"github.com/adilg123/lzhuff/internal/compression/compare"
	"github.com/adilg123/lzhuff/internal/config"
	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const (
	version          = "1.0.0"
	archiveExtension = ".lzh"
)

// Handler serves the compression endpoints within the configured limits.
type Handler struct {
	cfg    *config.Config
	logger *zap.Logger

	// compared caches comparison results by upload content; nil when
	// disabled.
	compared *lru.Cache[contentKey, []compare.Result]
}

type contentKey struct {
	checksum uint64
	size     int
}

// NewHandler returns a Handler. A nil logger discards log output.
func NewHandler(cfg *config.Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{cfg: cfg, logger: logger}
	if cfg.CompareCacheSize > 0 {
		// lru.New only fails for a non-positive size.
		h.compared, _ = lru.New[contentKey, []compare.Result](cfg.CompareCacheSize)
	}
	return h
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// CompareResponse lists how every codec did on the uploaded file.
type CompareResponse struct {
	Filename     string           `json:"filename"`
	OriginalSize int              `json:"original_size"`
	Results      []compare.Result `json:"results"`
}

func (h *Handler) fail(c *gin.Context, code int, title, message string) {
	c.JSON(code, ErrorResponse{
		Error:   title,
		Code:    code,
		Message: message,
	})
}

// readUpload reads the multipart "file" field, refusing anything above the
// configured size. It writes the error response itself and returns ok=false
// when the request cannot proceed.
func (h *Handler) readUpload(c *gin.Context) (content []byte, header *multipart.FileHeader, ok bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxFileSize+(1<<20))

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.fail(c, http.StatusRequestEntityTooLarge, "File too large", fmt.Sprintf("Maximum file size is %d bytes", h.cfg.MaxFileSize))
			return nil, nil, false
		}
		h.fail(c, http.StatusBadRequest, "File upload error", "No file provided or file upload failed")
		return nil, nil, false
	}
	defer file.Close()

	// Check file size
	if header.Size > h.cfg.MaxFileSize {
		h.fail(c, http.StatusRequestEntityTooLarge, "File too large", fmt.Sprintf("Maximum file size is %d bytes", h.cfg.MaxFileSize))
		return nil, nil, false
	}

	content, err = io.ReadAll(io.LimitReader(file, h.cfg.MaxFileSize))
	if err != nil {
		_ = c.Error(err)
		h.fail(c, http.StatusInternalServerError, "File read error", "Failed to read uploaded file")
		return nil, nil, false
	}
	return content, header, true
}

func (h *Handler) sendFile(c *gin.Context, filename string, data []byte, stats *compression.Stats) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header("Content-Length", strconv.Itoa(len(data)))
	c.Header("X-Content-Checksum", strconv.FormatUint(stats.Checksum, 16))
	c.Header("X-Original-Size", strconv.Itoa(stats.OriginalSize))
	c.Header("X-Compression-Ratio", strconv.FormatFloat(stats.CompressionRatio, 'f', 2, 64))
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// HandleCompress handles file compression requests
func (h *Handler) HandleCompress(c *gin.Context) {
	content, header, ok := h.readUpload(c)
	if !ok {
		return
	}

	reader, writer := compression.NewCompressionReaderAndWriter(compression.Options{})
	defer reader.Close()
	if _, err := writer.Write(content); err != nil {
		_ = c.Error(err)
		h.fail(c, http.StatusInternalServerError, "Compression failed", err.Error())
		return
	}
	if err := writer.Close(); err != nil {
		_ = c.Error(err)
		h.fail(c, http.StatusInternalServerError, "Compression failed", err.Error())
		return
	}
	compressedData, err := io.ReadAll(reader)
	if err != nil {
		_ = c.Error(err)
		h.fail(c, http.StatusInternalServerError, "Compression failed", err.Error())
		return
	}
	stats := reader.Stats()

	h.logger.Debug("compressed upload",
		zap.String("filename", header.Filename),
		zap.Int("original_size", stats.OriginalSize),
		zap.Int("processed_size", stats.ProcessedSize),
		zap.Int("tokens", stats.TokenCount))

	h.sendFile(c, getBaseFilename(header.Filename)+archiveExtension, compressedData, stats)
}

// HandleDecompress handles file decompression requests
func (h *Handler) HandleDecompress(c *gin.Context) {
	content, header, ok := h.readUpload(c)
	if !ok {
		return
	}

	reader, writer := compression.NewDecompressionReaderAndWriter()
	defer reader.Close()
	if _, err := writer.Write(content); err != nil {
		_ = c.Error(err)
		h.fail(c, http.StatusInternalServerError, "Decompression failed", err.Error())
		return
	}
	if err := writer.Close(); err != nil {
		_ = c.Error(err)
		if kind := errorKind(err); kind != "" {
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Error:   "Corrupt archive",
				Code:    http.StatusUnprocessableEntity,
				Message: err.Error(),
				Kind:    kind,
			})
			return
		}
		h.fail(c, http.StatusInternalServerError, "Decompression failed", err.Error())
		return
	}
	decompressedData, err := io.ReadAll(reader)
	if err != nil {
		_ = c.Error(err)
		h.fail(c, http.StatusInternalServerError, "Decompression failed", err.Error())
		return
	}

	h.sendFile(c, decompressedFilename(header.Filename), decompressedData, reader.Stats())
}

// HandleCompare runs the upload through lzhuff and the reference codecs.
func (h *Handler) HandleCompare(c *gin.Context) {
	content, header, ok := h.readUpload(c)
	if !ok {
		return
	}

	results, err := h.compareContent(c, content)
	if err != nil {
		_ = c.Error(err)
		h.fail(c, http.StatusInternalServerError, "Comparison failed", err.Error())
		return
	}

	if c.Query("format") == "svg" {
		var buf bytes.Buffer
		if err := compare.WriteChart(&buf, header.Filename, results); err != nil {
			_ = c.Error(err)
			h.fail(c, http.StatusInternalServerError, "Comparison failed", err.Error())
			return
		}
		c.Data(http.StatusOK, "image/svg+xml", buf.Bytes())
		return
	}

	c.JSON(http.StatusOK, CompareResponse{
		Filename:     header.Filename,
		OriginalSize: len(content),
		Results:      results,
	})
}

func (h *Handler) compareContent(c *gin.Context, content []byte) ([]compare.Result, error) {
	if h.compared == nil {
		return compare.Run(content)
	}

	key := contentKey{checksum: xxhash.Sum64(content), size: len(content)}
	if results, ok := h.compared.Get(key); ok {
		c.Header("X-Cache", "hit")
		return results, nil
	}
	results, err := compare.Run(content)
	if err != nil {
		return nil, err
	}
	h.compared.Add(key, results)
	c.Header("X-Cache", "miss")
	return results, nil
}

// HandleInfo provides information about the archive format
func (h *Handler) HandleInfo(c *gin.Context) {
	codecs := compare.Codecs()
	names := make([]string, 0, len(codecs))
	for _, codec := range codecs {
		names = append(names, codec.Name)
	}

	info := map[string]interface{}{
		"service": "lzhuff compression service",
		"version": version,
		"format": map[string]interface{}{
			"name":        compression.Format,
			"description": "LZ77 sliding-window tokens entropy coded with a Huffman tree",
			"magic":       string(archive.Magic[:]),
			"extension":   archiveExtension,
		},
		"compare": names,
		"limits": map[string]interface{}{
			"max_file_size": fmt.Sprintf("%d bytes (%.1f MB)", h.cfg.MaxFileSize, float64(h.cfg.MaxFileSize)/(1024*1024)),
		},
		"endpoints": map[string]interface{}{
			"compress":   "POST /api/v1/compress - Upload file for compression",
			"decompress": "POST /api/v1/decompress - Upload archive for decompression",
			"compare":    "POST /api/v1/compare[?format=svg] - Compare lzhuff with reference codecs",
			"info":       "GET /info - Get service information",
			"health":     "GET /health - Health check",
		},
	}

	c.JSON(http.StatusOK, info)
}

// HandleHealth provides a simple health check endpoint
func (h *Handler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "lzhuff",
	})
}

// errorKind names the archive error class of err, or "" for anything else.
func errorKind(err error) string {
	switch {
	case errors.Is(err, compression.ErrUnexpectedEndOfStream):
		return "unexpected_end_of_stream"
	case errors.Is(err, compression.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, compression.ErrMalformedArchive):
		return "malformed_archive"
	}
	return ""
}

// Helper functions
func getBaseFilename(filename string) string {
	if filename == "" {
		return "file"
	}

	// Remove extension
	for i := len(filename) - 1; i >= 0; i-- {
		if filename[i] == '.' {
			return filename[:i]
		}
	}
	return filename
}

func decompressedFilename(filename string) string {
	if base, ok := strings.CutSuffix(filename, archiveExtension); ok && base != "" {
		return base
	}
	return getBaseFilename(filename) + "_decompressed"
}
