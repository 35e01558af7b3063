package compression

import (
	"bytes"
	"errors"
	"io"
	"sync"
)

type CompressionReader struct {
	core *streamCore
}

type CompressionWriter struct {
	core *streamCore
}

type DecompressionReader struct {
	core *streamCore
}

type DecompressionWriter struct {
	core *streamCore
}

// streamCore buffers everything written to the writer half and runs the
// pipeline once on Close.
type streamCore struct {
	isInputBufferClosed bool
	lock                sync.Mutex
	inputBuffer         *bytes.Buffer
	outputBuffer        *bytes.Buffer
	stats               *Stats
	process             func([]byte) ([]byte, *Stats, error)
}

func newStreamCore(process func([]byte) ([]byte, *Stats, error)) *streamCore {
	return &streamCore{
		inputBuffer:  new(bytes.Buffer),
		outputBuffer: new(bytes.Buffer),
		process:      process,
	}
}

func (core *streamCore) write(data []byte) (int, error) {
	core.lock.Lock()
	defer core.lock.Unlock()
	if core.isInputBufferClosed {
		return 0, errors.New("write after close")
	}
	return core.inputBuffer.Write(data)
}

func (core *streamCore) close() error {
	core.lock.Lock()
	defer core.lock.Unlock()
	if core.isInputBufferClosed {
		return nil
	}
	core.isInputBufferClosed = true
	result, stats, err := core.process(core.inputBuffer.Bytes())
	core.inputBuffer.Reset()
	if err != nil {
		return err
	}
	core.stats = stats
	_, err = core.outputBuffer.Write(result)
	return err
}

func (core *streamCore) read(data []byte) (int, error) {
	core.lock.Lock()
	defer core.lock.Unlock()
	if !core.isInputBufferClosed {
		return 0, errors.New("input buffer not closed")
	}
	return core.outputBuffer.Read(data)
}

func (core *streamCore) reset() error {
	core.lock.Lock()
	defer core.lock.Unlock()
	core.inputBuffer.Reset()
	core.outputBuffer.Reset()
	return nil
}

func (core *streamCore) Stats() *Stats {
	core.lock.Lock()
	defer core.lock.Unlock()
	return core.stats
}

func (cw *CompressionWriter) Write(data []byte) (int, error) { return cw.core.write(data) }
func (cw *CompressionWriter) Close() error                   { return cw.core.close() }
func (cr *CompressionReader) Read(data []byte) (int, error)  { return cr.core.read(data) }
func (cr *CompressionReader) Close() error                   { return cr.core.reset() }

// Stats returns the statistics of the finished compression, or nil before the
// writer is closed.
func (cr *CompressionReader) Stats() *Stats { return cr.core.Stats() }

func (dw *DecompressionWriter) Write(data []byte) (int, error) { return dw.core.write(data) }
func (dw *DecompressionWriter) Close() error                   { return dw.core.close() }
func (dr *DecompressionReader) Read(data []byte) (int, error)  { return dr.core.read(data) }
func (dr *DecompressionReader) Close() error                   { return dr.core.reset() }
func (dr *DecompressionReader) Stats() *Stats                  { return dr.core.Stats() }

// NewCompressionReaderAndWriter returns a connected pair: bytes written to the
// writer are compressed when it is closed and can then be read from the reader.
func NewCompressionReaderAndWriter(options Options) (*CompressionReader, *CompressionWriter) {
	core := newStreamCore(func(data []byte) ([]byte, *Stats, error) {
		return Compress(data, options)
	})
	return &CompressionReader{core: core}, &CompressionWriter{core: core}
}

// NewDecompressionReaderAndWriter is the decompressing counterpart of
// NewCompressionReaderAndWriter. Closing the writer reports any archive error.
func NewDecompressionReaderAndWriter() (*DecompressionReader, *DecompressionWriter) {
	core := newStreamCore(Decompress)
	return &DecompressionReader{core: core}, &DecompressionWriter{core: core}
}

var (
	_ io.ReadCloser  = (*CompressionReader)(nil)
	_ io.WriteCloser = (*CompressionWriter)(nil)
	_ io.ReadCloser  = (*DecompressionReader)(nil)
	_ io.WriteCloser = (*DecompressionWriter)(nil)
)
