package lzss

import "fmt"

// EncodeTokens packs tokens eight to a group behind a flag byte. Bit i of the
// flag byte (least significant first) is 1 when token i of the group is a
// literal and 0 when it is a match. A literal takes one byte. A match takes two
// bytes, big-endian: the offset in the top 12 bits and length-MinMatch in the
// low 4. An offset of WindowSize does not fit and is stored as 0. Flag bits
// past the end of a short final group are zero.
func EncodeTokens(tokens []Token) ([]byte, error) {
	out := make([]byte, 0, len(tokens)+len(tokens)/groupSize+1)
	for g := 0; g < len(tokens); g += groupSize {
		flagPos := len(out)
		out = append(out, 0)
		var flags byte
		for i, t := range tokens[g:min(g+groupSize, len(tokens))] {
			switch t.Kind {
			case LiteralToken:
				flags |= 1 << i
				out = append(out, t.Value)
			case MatchToken:
				if err := t.validate(); err != nil {
					return nil, err
				}
				v := uint16(t.Offset&windowMask)<<4 | uint16(t.Length-MinMatch)
				out = append(out, byte(v>>8), byte(v))
			default:
				return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidToken, t.Kind)
			}
		}
		out[flagPos] = flags
	}
	return out, nil
}

// DecodeTokens is the inverse of EncodeTokens. data must be exactly the
// encoded stream: decoding ends when data is consumed on a token boundary, and
// any flag bit still set at that point means the stream was cut short. A match
// reaching further back than the output produced so far is rejected with
// ErrInvalidToken.
func DecodeTokens(data []byte) ([]Token, error) {
	tokens := make([]Token, 0, len(data))
	produced := 0
	pos := 0
	for pos < len(data) {
		flags := data[pos]
		pos++
		for i := 0; i < groupSize; i++ {
			if pos == len(data) {
				if i == 0 {
					return nil, fmt.Errorf("%w: flag byte at %d has no tokens", ErrTruncatedToken, pos-1)
				}
				if flags>>i != 0 {
					return nil, fmt.Errorf("%w: %d tokens missing from final group", ErrTruncatedToken, groupSize-i)
				}
				break
			}
			if flags&(1<<i) != 0 {
				tokens = append(tokens, Literal(data[pos]))
				pos++
				produced++
				continue
			}
			if pos+2 > len(data) {
				return nil, fmt.Errorf("%w: match at %d cut short", ErrTruncatedToken, pos)
			}
			v := uint16(data[pos])<<8 | uint16(data[pos+1])
			pos += 2
			offset := int(v >> 4)
			if offset == 0 {
				offset = WindowSize
			}
			t := Match(offset, int(v&0xF)+MinMatch)
			if t.Offset > produced {
				return nil, fmt.Errorf("%w: offset %d exceeds %d bytes produced", ErrInvalidToken, t.Offset, produced)
			}
			tokens = append(tokens, t)
			produced += t.Length
		}
	}
	return tokens, nil
}
