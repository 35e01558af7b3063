package lzss

const (
	hashBits = 15
	hashSize = 1 << hashBits
)

func hash3(b []byte) uint32 {
	v := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	return (v * 2654435761) >> (32 - hashBits)
}

// FindTokens runs the greedy match finder over content. At every position it
// takes the longest match of at least MinMatch bytes that starts within the
// previous WindowSize bytes, preferring the nearest one on equal length, and
// falls back to a literal. Matches may run into the bytes they reproduce.
//
// Candidates are found through hash chains over 3-byte prefixes. A chain lists
// every earlier position with the same hash, newest first, so walking it in
// full visits the same candidates an exhaustive window scan would, in order of
// increasing distance.
//
// progress, if not nil, is called after every token with the number of input
// bytes that token covered.
func FindTokens(content []byte, progress func(int)) []Token {
	if len(content) == 0 {
		return nil
	}
	head := make([]int32, hashSize)
	for i := range head {
		head[i] = -1
	}
	prev := make([]int32, len(content))

	insert := func(i int) {
		if i+MinMatch > len(content) {
			return
		}
		h := hash3(content[i:])
		prev[i] = head[h]
		head[h] = int32(i)
	}

	tokens := make([]Token, 0, len(content)/2+1)
	for i := 0; i < len(content); {
		offset, length := longestMatch(content, i, head, prev)
		advance := 1
		if length >= MinMatch {
			tokens = append(tokens, Match(offset, length))
			advance = length
		} else {
			tokens = append(tokens, Literal(content[i]))
		}
		for k := 0; k < advance; k++ {
			insert(i + k)
		}
		i += advance
		if progress != nil {
			progress(advance)
		}
	}
	return tokens
}

func longestMatch(content []byte, pos int, head, prev []int32) (offset, length int) {
	if pos+MinMatch > len(content) {
		return 0, 0
	}
	limit := min(MaxMatch, len(content)-pos)
	bestLen := MinMatch - 1
	for c := int(head[hash3(content[pos:])]); c >= 0; c = int(prev[c]) {
		dist := pos - c
		if dist > WindowSize {
			break
		}
		l := 0
		for l < limit && content[c+l] == content[pos+l] {
			l++
		}
		if l > bestLen {
			bestLen, offset = l, dist
			if l == limit {
				break
			}
		}
	}
	if offset == 0 {
		return 0, 0
	}
	return offset, bestLen
}
