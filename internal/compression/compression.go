package compression

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/adilg123/lzhuff/internal/compression/algorithms/bitstream"
	"github.com/adilg123/lzhuff/internal/compression/algorithms/huffman"
	"github.com/adilg123/lzhuff/internal/compression/algorithms/lzss"
	"github.com/adilg123/lzhuff/internal/compression/archive"
	"github.com/cespare/xxhash/v2"
	pb "github.com/cheggaaa/pb/v3"
)

const Format = "lzhuff"

var (
	// ErrMalformedArchive reports an archive whose header, tree or token
	// stream is inconsistent.
	ErrMalformedArchive = archive.ErrMalformedArchive
	// ErrUnexpectedEndOfStream reports a payload that ran out of bits before
	// the declared token stream length was reached.
	ErrUnexpectedEndOfStream = huffman.ErrUnexpectedEndOfStream
	// ErrInvalidToken reports a match that reaches back past the start of the
	// output.
	ErrInvalidToken = lzss.ErrInvalidToken

	ErrInputTooLarge = errors.New("compression: input too large for the archive format")
)

// Options contains compression options
type Options struct {
	// Progress, when set, receives a progress bar for the match finding stage.
	Progress io.Writer
}

// Stats contains compression statistics
type Stats struct {
	OriginalSize     int
	ProcessedSize    int
	CompressionRatio float64
	TokenCount       int
	Checksum         uint64 // xxhash64 of the uncompressed bytes
}

// Compress compresses data into a self-contained archive.
func Compress(data []byte, options Options) ([]byte, *Stats, error) {
	tokens := lzss.FindTokens(data, progressFunc(len(data), options.Progress))

	stream, err := lzss.EncodeTokens(tokens)
	if err != nil {
		return nil, nil, fmt.Errorf("compression failed: %w", err)
	}
	if uint64(len(stream)) > math.MaxUint32 {
		return nil, nil, ErrInputTooLarge
	}

	tree, table := huffman.Build(stream)
	w := bitstream.NewWriter()
	if err := huffman.Encode(w, stream, table); err != nil {
		return nil, nil, fmt.Errorf("compression failed: %w", err)
	}
	payload, err := w.Bytes()
	if err != nil {
		return nil, nil, fmt.Errorf("compression failed: %w", err)
	}

	compressedData, err := archive.Pack(tree, payload, uint32(len(stream)))
	if err != nil {
		return nil, nil, fmt.Errorf("compression failed: %w", err)
	}

	stats := &Stats{
		OriginalSize:  len(data),
		ProcessedSize: len(compressedData),
		TokenCount:    len(tokens),
		Checksum:      xxhash.Sum64(data),
	}
	if len(data) > 0 {
		stats.CompressionRatio = float64(len(compressedData)) / float64(len(data)) * 100
	}
	return compressedData, stats, nil
}

// Decompress rebuilds the original bytes from an archive produced by
// Compress. Any failure satisfies errors.Is for exactly one of
// ErrMalformedArchive, ErrUnexpectedEndOfStream or ErrInvalidToken.
func Decompress(data []byte) ([]byte, *Stats, error) {
	arc, err := archive.Unpack(data)
	if err != nil {
		return nil, nil, fmt.Errorf("decompression failed: %w", err)
	}

	if uint64(arc.TokenLength) > math.MaxInt {
		return nil, nil, fmt.Errorf("decompression failed: %w: token stream length %d", ErrMalformedArchive, arc.TokenLength)
	}
	r := bitstream.NewReader(arc.Payload)
	stream, err := huffman.Decode(r, arc.Tree, int(arc.TokenLength))
	if err != nil {
		return nil, nil, fmt.Errorf("decompression failed: %w", classify(err))
	}
	if r.Remaining() > 0 {
		return nil, nil, fmt.Errorf("decompression failed: %w: %d bytes after payload", ErrMalformedArchive, r.Remaining())
	}

	tokens, err := lzss.DecodeTokens(stream)
	if err != nil {
		return nil, nil, fmt.Errorf("decompression failed: %w", classify(err))
	}
	decompressedData, err := lzss.Replay(tokens)
	if err != nil {
		return nil, nil, fmt.Errorf("decompression failed: %w", classify(err))
	}

	stats := &Stats{
		OriginalSize:  len(data),
		ProcessedSize: len(decompressedData),
		TokenCount:    len(tokens),
		Checksum:      xxhash.Sum64(decompressedData),
	}
	if len(decompressedData) > 0 {
		stats.CompressionRatio = float64(len(data)) / float64(len(decompressedData)) * 100
	}
	return decompressedData, stats, nil
}

// classify folds the stage-specific errors that have no public kind of their
// own into ErrMalformedArchive.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrUnexpectedEndOfStream), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrMalformedArchive):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrMalformedArchive, err)
	}
}

func progressFunc(total int, out io.Writer) func(int) {
	if out == nil || total == 0 {
		return nil
	}
	bar := pb.New(total)
	bar.Set(pb.Bytes, true)
	bar.SetWriter(out)
	bar.Start()
	done := 0
	return func(n int) {
		bar.Add(n)
		done += n
		if done >= total {
			bar.Finish()
		}
	}
}
