package huffman

import (
	"errors"
	"fmt"

	"github.com/adilg123/lzhuff/internal/compression/algorithms/bitstream"
)

// A tree over at most 256 leaves is never deeper than 255 edges.
const maxDepth = 255

// Deserialize reads a tree written by Serialize. Frequencies are not carried
// and are left at zero.
func Deserialize(r *bitstream.Reader) (*Tree, error) {
	tree := new(Tree)
	var seen [256]bool
	var read func(depth int) (int, error)
	read = func(depth int) (int, error) {
		if depth > maxDepth {
			return 0, fmt.Errorf("%w: deeper than %d", ErrMalformedTree, maxDepth)
		}
		leaf, err := r.ReadBit()
		if err != nil {
			return 0, treeError(err)
		}
		if leaf {
			symbol, err := r.ReadByte()
			if err != nil {
				return 0, treeError(err)
			}
			if seen[symbol] {
				return 0, fmt.Errorf("%w: symbol %#02x appears twice", ErrMalformedTree, symbol)
			}
			seen[symbol] = true
			return tree.addLeaf(symbol, 0), nil
		}
		left, err := read(depth + 1)
		if err != nil {
			return 0, err
		}
		right, err := read(depth + 1)
		if err != nil {
			return 0, err
		}
		tree.nodes = append(tree.nodes, Node{Kind: InternalNode, Left: left, Right: right})
		return len(tree.nodes) - 1, nil
	}
	root, err := read(0)
	if err != nil {
		return nil, err
	}
	tree.root = root
	return tree, nil
}

func treeError(err error) error {
	if errors.Is(err, bitstream.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: marker bits exhausted", ErrMalformedTree)
	}
	return err
}

// Decode walks tree one bit at a time and stops after exactly n symbols. A
// single-leaf tree consumes one bit per symbol.
func Decode(r *bitstream.Reader, tree *Tree, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: negative symbol count %d", ErrMalformedTree, n)
	}
	if n == 0 {
		return []byte{}, nil
	}
	if tree.Empty() {
		return nil, fmt.Errorf("%w: no tree for %d symbols", ErrMalformedTree, n)
	}
	// every symbol costs at least one bit
	out := make([]byte, 0, min(uint64(n), r.Available()))
	for len(out) < n {
		node := tree.nodes[tree.root]
		if node.Kind == LeafNode {
			if _, err := r.ReadBit(); err != nil {
				return nil, payloadError(err, len(out), n)
			}
		}
		for node.Kind == InternalNode {
			bit, err := r.ReadBit()
			if err != nil {
				return nil, payloadError(err, len(out), n)
			}
			if bit {
				node = tree.nodes[node.Right]
			} else {
				node = tree.nodes[node.Left]
			}
		}
		out = append(out, node.Symbol)
	}
	return out, nil
}

func payloadError(err error, have, want int) error {
	if errors.Is(err, bitstream.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: decoded %d of %d bytes", ErrUnexpectedEndOfStream, have, want)
	}
	return err
}
