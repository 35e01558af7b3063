package compression

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"strings"
	"sync"
	"testing"

	"github.com/adilg123/lzhuff/internal/compression/algorithms/bitstream"
	"github.com/adilg123/lzhuff/internal/compression/algorithms/huffman"
	"github.com/adilg123/lzhuff/internal/compression/algorithms/lzss"
	"github.com/adilg123/lzhuff/internal/compression/archive"
)

func randomBytes(seed int64, n int) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

func allBytes(repeat int) []byte {
	b := make([]byte, 0, 256*repeat)
	for r := 0; r < repeat; r++ {
		for i := 0; i < 256; i++ {
			b = append(b, byte(i))
		}
	}
	return b
}

func roundTripInputs() map[string][]byte {
	return map[string][]byte{
		"empty":          {},
		"single byte":    {0x7F},
		"below minmatch": []byte("ab"),
		"abracadabra":    []byte("ABRACADABRA"),
		"one symbol":     []byte("AAAAAAAAAA"),
		"period two":     []byte("abababababab"),
		"long run":       bytes.Repeat([]byte{0}, 3*lzss.WindowSize+17),
		"text":           []byte(strings.Repeat("It was the best of times, it was the worst of times. ", 200)),
		"random":         randomBytes(42, 20000),
		"all bytes":      allBytes(2),
	}
}

func mustCompress(t testing.TB, data []byte) []byte {
	t.Helper()
	compressed, _, err := Compress(data, Options{})
	if err != nil {
		t.Fatal(err)
	}
	return compressed
}

func TestRoundTrip(t *testing.T) {
	for name, data := range roundTripInputs() {
		t.Run(name, func(t *testing.T) {
			compressed, stats, err := Compress(data, Options{})
			if err != nil {
				t.Fatal(err)
			}
			if stats.OriginalSize != len(data) || stats.ProcessedSize != len(compressed) {
				t.Fatalf("stats = %+v", stats)
			}
			decompressed, dstats, err := Decompress(compressed)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.Equal(decompressed, data) {
				t.Fatalf("round trip mismatch: got %d bytes, want %d", len(decompressed), len(data))
			}
			if dstats.Checksum != stats.Checksum {
				t.Fatalf("checksum mismatch %x != %x", dstats.Checksum, stats.Checksum)
			}
		})
	}
}

func TestEmptyInputArchive(t *testing.T) {
	compressed := mustCompress(t, nil)
	if len(compressed) != archive.HeaderSize {
		t.Fatalf("empty archive is %d bytes, want %d", len(compressed), archive.HeaderSize)
	}
	out, _, err := Decompress(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d bytes", len(out))
	}
}

func TestDeterministic(t *testing.T) {
	for name, data := range roundTripInputs() {
		a := mustCompress(t, data)
		b := mustCompress(t, data)
		if !bytes.Equal(a, b) {
			t.Errorf("%s: archives differ between runs", name)
		}
	}
}

func TestCompressesRepetitiveInput(t *testing.T) {
	data := roundTripInputs()["text"]
	compressed := mustCompress(t, data)
	if len(compressed) >= len(data)/4 {
		t.Fatalf("compressed %d bytes to %d", len(data), len(compressed))
	}
}

func TestTruncatedPayload(t *testing.T) {
	for _, data := range [][]byte{[]byte("x"), []byte("ABRACADABRA"), randomBytes(9, 3000)} {
		compressed := mustCompress(t, data)
		_, _, err := Decompress(compressed[:len(compressed)-1])
		if !errors.Is(err, ErrUnexpectedEndOfStream) {
			t.Fatalf("%d-byte input: got %v, want ErrUnexpectedEndOfStream", len(data), err)
		}
		if errors.Is(err, ErrMalformedArchive) || errors.Is(err, ErrInvalidToken) {
			t.Fatalf("error matches more than one kind: %v", err)
		}
	}
}

func TestTrailingBytes(t *testing.T) {
	compressed := append(mustCompress(t, []byte("ABRACADABRA")), 0x00)
	if _, _, err := Decompress(compressed); !errors.Is(err, ErrMalformedArchive) {
		t.Fatalf("got %v, want ErrMalformedArchive", err)
	}
}

func TestMalformedHeader(t *testing.T) {
	compressed := mustCompress(t, []byte("ABRACADABRA"))
	compressed[0] = 'X'
	if _, _, err := Decompress(compressed); !errors.Is(err, ErrMalformedArchive) {
		t.Fatalf("got %v, want ErrMalformedArchive", err)
	}
	if _, _, err := Decompress(nil); !errors.Is(err, ErrMalformedArchive) {
		t.Fatalf("got %v, want ErrMalformedArchive", err)
	}
}

// packStream wraps an arbitrary token stream in an otherwise valid archive.
func packStream(t *testing.T, stream []byte) []byte {
	t.Helper()
	tree, table := huffman.Build(stream)
	w := bitstream.NewWriter()
	if err := huffman.Encode(w, stream, table); err != nil {
		t.Fatal(err)
	}
	payload, err := w.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	data, err := archive.Pack(tree, payload, uint32(len(stream)))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestCorruptTokenStream(t *testing.T) {
	tests := []struct {
		name   string
		stream []byte
		want   error
	}{
		{"match before any output", []byte{0x00, 0x00, 0x00}, ErrInvalidToken},
		{"match past output", []byte{0x03, 'a', 'b', 0x00, 0x30}, ErrInvalidToken},
		{"flag without tokens", append([]byte{0xFF}, "abcdefgh\x01"...), ErrMalformedArchive},
		{"group cut short", []byte{0x03, 'a'}, ErrMalformedArchive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Decompress(packStream(t, tt.stream))
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSelfOverlappingMatchUsed(t *testing.T) {
	data := []byte("abababababab")
	tokens := lzss.FindTokens(data, nil)
	overlapping := false
	for _, tok := range tokens {
		if tok.Kind == lzss.MatchToken && tok.Length > tok.Offset {
			overlapping = true
		}
	}
	if !overlapping {
		t.Fatalf("no self-overlapping match in %v", tokens)
	}
	out, _, err := Decompress(mustCompress(t, data))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("got %q", out)
	}
}

func TestConcurrentCalls(t *testing.T) {
	inputs := roundTripInputs()
	var wg sync.WaitGroup
	errs := make(chan error, len(inputs)*4)
	for i := 0; i < 4; i++ {
		for name, data := range inputs {
			wg.Add(1)
			go func(name string, data []byte) {
				defer wg.Done()
				compressed, _, err := Compress(data, Options{})
				if err != nil {
					errs <- err
					return
				}
				out, _, err := Decompress(compressed)
				if err != nil {
					errs <- err
					return
				}
				if !bytes.Equal(out, data) {
					errs <- errors.New(name + ": mismatch")
				}
			}(name, data)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestProgressOutput(t *testing.T) {
	var buf bytes.Buffer
	data := roundTripInputs()["text"]
	compressed, _, err := Compress(data, Options{Progress: &buf})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(compressed, mustCompress(t, data)) {
		t.Fatal("progress reporting changed the archive")
	}
}

func TestReaderAndWriterPair(t *testing.T) {
	data := roundTripInputs()["text"]

	cr, cw := NewCompressionReaderAndWriter(Options{})
	if _, err := cr.Read(make([]byte, 1)); err == nil {
		t.Fatal("read before close should fail")
	}
	if _, err := io.Copy(cw, bytes.NewReader(data)); err != nil {
		t.Fatal(err)
	}
	if err := cw.Close(); err != nil {
		t.Fatal(err)
	}
	compressed, err := io.ReadAll(cr)
	if err != nil {
		t.Fatal(err)
	}
	if cr.Stats() == nil || cr.Stats().OriginalSize != len(data) {
		t.Fatalf("stats = %+v", cr.Stats())
	}
	cr.Close()

	dr, dw := NewDecompressionReaderAndWriter()
	if _, err := dw.Write(compressed); err != nil {
		t.Fatal(err)
	}
	if err := dw.Close(); err != nil {
		t.Fatal(err)
	}
	out, err := io.ReadAll(dr)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, data) {
		t.Fatal("stream round trip mismatch")
	}
	if _, err := dw.Write([]byte{0}); err == nil {
		t.Fatal("write after close should fail")
	}
}

func TestDecompressionWriterReportsCorruption(t *testing.T) {
	_, dw := NewDecompressionReaderAndWriter()
	dw.Write([]byte("not an archive"))
	if err := dw.Close(); !errors.Is(err, ErrMalformedArchive) {
		t.Fatalf("got %v, want ErrMalformedArchive", err)
	}
}

func BenchmarkCompress(b *testing.B) {
	data := roundTripInputs()["text"]
	compressed := mustCompress(b, data)
	b.ReportMetric(float64(len(data))/float64(len(compressed)), "ratio")
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Compress(data, Options{})
	}
}

func BenchmarkDecompress(b *testing.B) {
	data := roundTripInputs()["text"]
	compressed := mustCompress(b, data)
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Decompress(compressed)
	}
}
