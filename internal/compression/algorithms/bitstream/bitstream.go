// Package bitstream packs and unpacks individual bits, most significant bit
// first, on top of github.com/icza/bitio. Both sides keep an exact count of the
// bits that went through them so callers can record and enforce bit lengths.
package bitstream

import (
	"bytes"
	"errors"
	"io"

	"github.com/icza/bitio"
)

// ErrUnexpectedEOF is returned when a read needs more bits than are available.
var ErrUnexpectedEOF = errors.New("bitstream: unexpected end of stream")

// Writer appends bits to an in-memory buffer.
type Writer struct {
	buf   *bytes.Buffer
	w     *bitio.Writer
	nbits uint64
}

func NewWriter() *Writer {
	buf := new(bytes.Buffer)
	return &Writer{buf: buf, w: bitio.NewWriter(buf)}
}

// WriteBit appends a single bit.
func (w *Writer) WriteBit(bit bool) error {
	if err := w.w.WriteBool(bit); err != nil {
		return err
	}
	w.nbits++
	return nil
}

// WriteBits appends the n low-order bits of value, high bit first.
func (w *Writer) WriteBits(value uint64, n uint8) error {
	if n == 0 {
		return nil
	}
	if err := w.w.WriteBits(value, n); err != nil {
		return err
	}
	w.nbits += uint64(n)
	return nil
}

// WriteByte appends the 8 bits of b.
func (w *Writer) WriteByte(b byte) error {
	return w.WriteBits(uint64(b), 8)
}

// Len returns the number of bits written so far, not counting padding.
func (w *Writer) Len() uint64 {
	return w.nbits
}

// Bytes pads the stream with zero bits up to the next byte boundary and
// returns the packed bytes. The Writer must not be used afterwards.
func (w *Writer) Bytes() ([]byte, error) {
	if err := w.w.Close(); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

// Reader consumes bits from a byte slice. A Reader may be limited to fewer
// bits than the slice holds, in which case the trailing pad bits are never
// handed out.
type Reader struct {
	src   *bytes.Reader
	r     *bitio.Reader
	nbits uint64
	limit uint64
}

// NewReader returns a Reader over every bit of data.
func NewReader(data []byte) *Reader {
	return NewLimitedReader(data, uint64(len(data))*8)
}

// NewLimitedReader returns a Reader that yields at most limit bits of data.
func NewLimitedReader(data []byte, limit uint64) *Reader {
	if max := uint64(len(data)) * 8; limit > max {
		limit = max
	}
	src := bytes.NewReader(data)
	return &Reader{src: src, r: bitio.NewReader(src), limit: limit}
}

// ReadBit consumes one bit.
func (r *Reader) ReadBit() (bool, error) {
	if r.nbits >= r.limit {
		return false, ErrUnexpectedEOF
	}
	bit, err := r.r.ReadBool()
	if err != nil {
		return false, mapEOF(err)
	}
	r.nbits++
	return bit, nil
}

// ReadBits consumes n bits and returns them as the low-order bits of the
// result, first bit read in the highest position.
func (r *Reader) ReadBits(n uint8) (uint64, error) {
	if r.nbits+uint64(n) > r.limit {
		return 0, ErrUnexpectedEOF
	}
	v, err := r.r.ReadBits(n)
	if err != nil {
		return 0, mapEOF(err)
	}
	r.nbits += uint64(n)
	return v, nil
}

// ReadByte consumes 8 bits.
func (r *Reader) ReadByte() (byte, error) {
	v, err := r.ReadBits(8)
	return byte(v), err
}

// Consumed returns the number of bits read so far.
func (r *Reader) Consumed() uint64 {
	return r.nbits
}

// Available returns the number of bits that can still be read.
func (r *Reader) Available() uint64 {
	return r.limit - r.nbits
}

// Remaining returns the number of whole bytes that no read has touched yet.
func (r *Reader) Remaining() int {
	return r.src.Len()
}

func mapEOF(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrUnexpectedEOF
	}
	return err
}
