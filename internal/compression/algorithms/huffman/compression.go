package huffman

import (
	"container/heap"
	"fmt"

	"github.com/adilg123/lzhuff/internal/compression/algorithms/bitstream"
)

func CountFrequencies(data []byte) FrequencyTable {
	var freq FrequencyTable
	for _, b := range data {
		freq[b]++
	}
	return freq
}

// BuildTree builds the prefix-code tree for freq. Leaves are created in
// ascending byte order, so on equal frequency the lower byte value, and then
// the older merged node, is extracted first. The first of each extracted pair
// becomes the left child. A table with no counts yields an empty tree.
func BuildTree(freq FrequencyTable) *Tree {
	tree := new(Tree)
	for symbol, count := range freq {
		if count > 0 {
			tree.addLeaf(byte(symbol), count)
		}
	}
	if len(tree.nodes) == 0 {
		tree.root = -1
		return tree
	}
	treehub := &huffmanHeap{tree: tree}
	for i := range tree.nodes {
		treehub.items = append(treehub.items, i)
	}
	heap.Init(treehub)
	for treehub.Len() > 1 {
		x := heap.Pop(treehub).(int)
		y := heap.Pop(treehub).(int)
		heap.Push(treehub, tree.addInternal(x, y))
	}
	tree.root = heap.Pop(treehub).(int)
	return tree
}

// Build counts data and returns its tree and code table.
func Build(data []byte) (*Tree, *CodeTable) {
	tree := BuildTree(CountFrequencies(data))
	return tree, tree.Codes()
}

// Codes derives the code table: 0 for every left edge, 1 for every right edge.
// A tree made of a single leaf gives that leaf the one-bit code "0".
func (t *Tree) Codes() *CodeTable {
	table := new(CodeTable)
	if t.Empty() {
		return table
	}
	root := t.nodes[t.root]
	if root.Kind == LeafNode {
		table[root.Symbol] = Code{Bits: 0, Len: 1}
		return table
	}
	var walk func(i int, prefix Code)
	walk = func(i int, prefix Code) {
		node := t.nodes[i]
		if node.Kind == LeafNode {
			table[node.Symbol] = prefix
			return
		}
		walk(node.Left, Code{Bits: prefix.Bits << 1, Len: prefix.Len + 1})
		walk(node.Right, Code{Bits: prefix.Bits<<1 | 1, Len: prefix.Len + 1})
	}
	walk(t.root, Code{})
	return table
}

// Encode appends the code of every byte of data to w, in order.
func Encode(w *bitstream.Writer, data []byte, table *CodeTable) error {
	for i, b := range data {
		code := table[b]
		if code.Len == 0 {
			return fmt.Errorf("huffman: symbol %#02x at %d has no code", b, i)
		}
		if err := w.WriteBits(code.Bits, code.Len); err != nil {
			return err
		}
	}
	return nil
}

// Serialize writes the tree shape in pre-order: a 0 bit for an internal node
// followed by its left and right subtrees, a 1 bit for a leaf followed by its
// 8-bit symbol. An empty tree writes nothing.
func (t *Tree) Serialize(w *bitstream.Writer) error {
	if t.Empty() {
		return nil
	}
	var walk func(i int) error
	walk = func(i int) error {
		node := t.nodes[i]
		if node.Kind == LeafNode {
			if err := w.WriteBit(true); err != nil {
				return err
			}
			return w.WriteByte(node.Symbol)
		}
		if err := w.WriteBit(false); err != nil {
			return err
		}
		if err := walk(node.Left); err != nil {
			return err
		}
		return walk(node.Right)
	}
	return walk(t.root)
}
