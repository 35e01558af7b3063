// Package compare measures the lzhuff archive against established codecs on
// the same input.
package compare

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/adilg123/lzhuff/internal/compression"
	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec is one compressor/decompressor pair taking part in a comparison.
type Codec struct {
	Name       string
	Compress   func([]byte) ([]byte, error)
	Decompress func([]byte) ([]byte, error)
}

// Result describes how one codec did on the input.
type Result struct {
	Name      string        `json:"name"`
	Size      int           `json:"size"`
	Ratio     float64       `json:"ratio"`
	Duration  time.Duration `json:"duration_ns"`
	RoundTrip bool          `json:"round_trip"`
}

// Codecs returns lzhuff followed by the reference codecs.
func Codecs() []Codec {
	return []Codec{
		{
			Name: compression.Format,
			Compress: func(src []byte) ([]byte, error) {
				dst, _, err := compression.Compress(src, compression.Options{})
				return dst, err
			},
			Decompress: func(src []byte) ([]byte, error) {
				dst, _, err := compression.Decompress(src)
				return dst, err
			},
		},
		{
			Name: "flate",
			Compress: func(src []byte) ([]byte, error) {
				return writeAll(src, func(w io.Writer) (io.WriteCloser, error) {
					return flate.NewWriter(w, flate.DefaultCompression)
				})
			},
			Decompress: func(src []byte) ([]byte, error) {
				r := flate.NewReader(bytes.NewReader(src))
				defer r.Close()
				return io.ReadAll(r)
			},
		},
		{
			Name: "zstd",
			Compress: func(src []byte) ([]byte, error) {
				enc, err := zstd.NewWriter(nil)
				if err != nil {
					return nil, err
				}
				defer enc.Close()
				return enc.EncodeAll(src, nil), nil
			},
			Decompress: func(src []byte) ([]byte, error) {
				dec, err := zstd.NewReader(nil)
				if err != nil {
					return nil, err
				}
				defer dec.Close()
				return dec.DecodeAll(src, nil)
			},
		},
		{
			Name: "snappy",
			Compress: func(src []byte) ([]byte, error) {
				return snappy.Encode(nil, src), nil
			},
			Decompress: func(src []byte) ([]byte, error) {
				return snappy.Decode(nil, src)
			},
		},
		{
			Name: "lz4",
			Compress: func(src []byte) ([]byte, error) {
				return writeAll(src, func(w io.Writer) (io.WriteCloser, error) {
					return lz4.NewWriter(w), nil
				})
			},
			Decompress: func(src []byte) ([]byte, error) {
				return io.ReadAll(lz4.NewReader(bytes.NewReader(src)))
			},
		},
		{
			Name: "brotli",
			Compress: func(src []byte) ([]byte, error) {
				return writeAll(src, func(w io.Writer) (io.WriteCloser, error) {
					return brotli.NewWriterLevel(w, brotli.DefaultCompression), nil
				})
			},
			Decompress: func(src []byte) ([]byte, error) {
				return io.ReadAll(brotli.NewReader(bytes.NewReader(src)))
			},
		},
	}
}

func writeAll(src []byte, newWriter func(io.Writer) (io.WriteCloser, error)) ([]byte, error) {
	var buf bytes.Buffer
	w, err := newWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(src); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Run compresses and decompresses data with every codec in Codecs.
func Run(data []byte) ([]Result, error) {
	return RunCodecs(data, Codecs())
}

// RunCodecs is Run over an explicit codec list. Results are ordered by
// compressed size, then by name.
func RunCodecs(data []byte, codecs []Codec) ([]Result, error) {
	results := make([]Result, 0, len(codecs))
	for _, c := range codecs {
		start := time.Now()
		compressed, err := c.Compress(data)
		if err != nil {
			return nil, fmt.Errorf("%s: compress: %w", c.Name, err)
		}
		elapsed := time.Since(start)
		decompressed, err := c.Decompress(compressed)
		if err != nil {
			return nil, fmt.Errorf("%s: decompress: %w", c.Name, err)
		}
		r := Result{
			Name:      c.Name,
			Size:      len(compressed),
			Duration:  elapsed,
			RoundTrip: bytes.Equal(decompressed, data),
		}
		if len(data) > 0 {
			r.Ratio = float64(len(compressed)) / float64(len(data)) * 100
		}
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Size != results[j].Size {
			return results[i].Size < results[j].Size
		}
		return results[i].Name < results[j].Name
	})
	return results, nil
}
