// Package archive lays out the self-contained container produced by the
// compressor:
//
//	magic        2 bytes  "L1"
//	token length 4 bytes  length of the token stream the payload decodes to
//	tree bits    4 bytes  bit length of the serialized tree
//	tree         serialized tree, zero-padded to a byte boundary
//	payload      Huffman-coded token stream, zero-padded to a byte boundary
//
// Integers are big-endian. Pad bits carry no meaning; readers stop on the
// declared lengths alone.
package archive

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/adilg123/lzhuff/internal/compression/algorithms/bitstream"
	"github.com/adilg123/lzhuff/internal/compression/algorithms/huffman"
)

const HeaderSize = 10

var Magic = [2]byte{'L', '1'}

var ErrMalformedArchive = errors.New("archive: malformed archive")

// Archive is the parsed form of an archive.
type Archive struct {
	TokenLength uint32
	TreeBits    uint32
	Tree        *huffman.Tree
	Payload     []byte
}

// Pack serializes tree and assembles the archive around payload.
func Pack(tree *huffman.Tree, payload []byte, tokenLength uint32) ([]byte, error) {
	w := bitstream.NewWriter()
	if err := tree.Serialize(w); err != nil {
		return nil, err
	}
	treeBits := w.Len()
	treeBytes, err := w.Bytes()
	if err != nil {
		return nil, err
	}
	if treeBits > 1<<32-1 {
		return nil, fmt.Errorf("archive: tree of %d bits does not fit the header", treeBits)
	}

	out := make([]byte, HeaderSize, HeaderSize+len(treeBytes)+len(payload))
	copy(out, Magic[:])
	binary.BigEndian.PutUint32(out[2:6], tokenLength)
	binary.BigEndian.PutUint32(out[6:10], uint32(treeBits))
	out = append(out, treeBytes...)
	return append(out, payload...), nil
}

// Unpack parses the header and rebuilds the tree. Every inconsistency is
// reported as ErrMalformedArchive.
func Unpack(data []byte) (*Archive, error) {
	if len(data) < HeaderSize {
		return nil, malformed("%d bytes is shorter than the header", len(data))
	}
	if data[0] != Magic[0] || data[1] != Magic[1] {
		return nil, malformed("bad magic %#x %#x", data[0], data[1])
	}
	arc := &Archive{
		TokenLength: binary.BigEndian.Uint32(data[2:6]),
		TreeBits:    binary.BigEndian.Uint32(data[6:10]),
	}
	treeBytes := (uint64(arc.TreeBits) + 7) / 8
	if treeBytes > uint64(len(data)-HeaderSize) {
		return nil, malformed("tree of %d bits exceeds the %d bytes left", arc.TreeBits, len(data)-HeaderSize)
	}
	treeEnd := HeaderSize + int(treeBytes)
	arc.Payload = data[treeEnd:]

	if arc.TokenLength == 0 {
		if arc.TreeBits != 0 || len(arc.Payload) != 0 {
			return nil, malformed("empty token stream with %d tree bits and %d payload bytes", arc.TreeBits, len(arc.Payload))
		}
		arc.Tree = huffman.BuildTree(huffman.FrequencyTable{})
		return arc, nil
	}
	if arc.TreeBits == 0 {
		return nil, malformed("%d token bytes declared without a tree", arc.TokenLength)
	}

	r := bitstream.NewLimitedReader(data[HeaderSize:treeEnd], uint64(arc.TreeBits))
	tree, err := huffman.Deserialize(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedArchive, err)
	}
	if r.Consumed() != uint64(arc.TreeBits) {
		return nil, malformed("tree used %d of %d declared bits", r.Consumed(), arc.TreeBits)
	}
	arc.Tree = tree
	return arc, nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedArchive, fmt.Sprintf(format, args...))
}
