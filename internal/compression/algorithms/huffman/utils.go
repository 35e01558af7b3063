package huffman

import (
	"errors"
	"strings"
)

var (
	ErrUnexpectedEndOfStream = errors.New("huffman: payload exhausted before declared length")
	ErrMalformedTree         = errors.New("huffman: malformed tree")
)

type NodeKind uint8

const (
	LeafNode NodeKind = iota
	InternalNode
)

// Node is an entry in a Tree's arena. Leaves carry a Symbol; internal nodes
// carry the arena indexes of their children.
type Node struct {
	Kind        NodeKind
	Symbol      byte
	Freq        uint64
	Left, Right int
}

// Tree is a binary prefix-code tree stored as an arena. Node indexes double as
// creation order, which is what breaks frequency ties while building.
type Tree struct {
	nodes []Node
	root  int
}

func (t *Tree) Empty() bool {
	return t == nil || len(t.nodes) == 0
}

// Leaves returns the number of distinct symbols in the tree.
func (t *Tree) Leaves() int {
	if t == nil {
		return 0
	}
	n := 0
	for _, node := range t.nodes {
		if node.Kind == LeafNode {
			n++
		}
	}
	return n
}

func (t *Tree) addLeaf(symbol byte, freq uint64) int {
	t.nodes = append(t.nodes, Node{Kind: LeafNode, Symbol: symbol, Freq: freq, Left: -1, Right: -1})
	return len(t.nodes) - 1
}

func (t *Tree) addInternal(left, right int) int {
	freq := t.nodes[left].Freq + t.nodes[right].Freq
	t.nodes = append(t.nodes, Node{Kind: InternalNode, Freq: freq, Left: left, Right: right})
	return len(t.nodes) - 1
}

// Code is a bit string of Len bits stored in the low-order bits of Bits, the
// first bit in the highest position.
type Code struct {
	Bits uint64
	Len  uint8
}

func (c Code) String() string {
	var b strings.Builder
	for i := int(c.Len) - 1; i >= 0; i-- {
		if c.Bits>>uint(i)&1 == 1 {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// CodeTable maps each byte value to its code. Symbols absent from the tree
// have a zero-length code.
type CodeTable [256]Code

// FrequencyTable counts occurrences of each byte value.
type FrequencyTable [256]uint64

type huffmanHeap struct {
	tree  *Tree
	items []int
}

func (hub *huffmanHeap) Push(item any) {
	hub.items = append(hub.items, item.(int))
}

func (hub *huffmanHeap) Pop() any {
	popped := hub.items[len(hub.items)-1]
	hub.items = hub.items[:len(hub.items)-1]
	return popped
}

func (hub huffmanHeap) Len() int {
	return len(hub.items)
}

func (hub huffmanHeap) Less(i, j int) bool {
	a, b := hub.items[i], hub.items[j]
	fa, fb := hub.tree.nodes[a].Freq, hub.tree.nodes[b].Freq
	if fa != fb {
		return fa < fb
	}
	return a < b
}

func (hub huffmanHeap) Swap(i, j int) {
	hub.items[i], hub.items[j] = hub.items[j], hub.items[i]
}
