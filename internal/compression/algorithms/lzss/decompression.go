package lzss

import "fmt"

// Replay rebuilds the original bytes from tokens using a fresh window. Match
// bytes are copied one at a time so a match can read bytes it has just
// written.
func Replay(tokens []Token) ([]byte, error) {
	size := 0
	for _, t := range tokens {
		size += t.Size()
	}
	out := make([]byte, 0, size)
	win := NewWindow()
	for _, t := range tokens {
		switch t.Kind {
		case LiteralToken:
			out = append(out, t.Value)
			win.Append(t.Value)
		case MatchToken:
			if err := t.validate(); err != nil {
				return nil, err
			}
			if t.Offset > win.Len() {
				return nil, fmt.Errorf("%w: offset %d exceeds %d bytes produced", ErrInvalidToken, t.Offset, win.Len())
			}
			for i := 0; i < t.Length; i++ {
				b := win.At(t.Offset)
				out = append(out, b)
				win.Append(b)
			}
		default:
			return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidToken, t.Kind)
		}
	}
	return out, nil
}
