package lzss

import (
	"errors"
	"fmt"
)

const (
	WindowSize = 4096
	MinMatch   = 3
	MaxMatch   = MinMatch + 15

	windowMask = WindowSize - 1
	groupSize  = 8
)

var (
	ErrInvalidToken   = errors.New("lzss: invalid token")
	ErrTruncatedToken = errors.New("lzss: truncated token stream")
)

type TokenKind uint8

const (
	LiteralToken TokenKind = iota
	MatchToken
)

// Token is either a literal byte or a back-reference of Length bytes starting
// Offset bytes behind the current output position.
type Token struct {
	Kind   TokenKind
	Value  byte
	Offset int
	Length int
}

func Literal(b byte) Token {
	return Token{Kind: LiteralToken, Value: b}
}

func Match(offset, length int) Token {
	return Token{Kind: MatchToken, Offset: offset, Length: length}
}

// Size returns the number of output bytes the token stands for.
func (t Token) Size() int {
	if t.Kind == MatchToken {
		return t.Length
	}
	return 1
}

func (t Token) String() string {
	if t.Kind == MatchToken {
		return fmt.Sprintf("<%d,%d>", t.Offset, t.Length)
	}
	return fmt.Sprintf("%q", t.Value)
}

func (t Token) validate() error {
	if t.Kind != MatchToken {
		return nil
	}
	if t.Offset < 1 || t.Offset > WindowSize {
		return fmt.Errorf("%w: offset %d out of range", ErrInvalidToken, t.Offset)
	}
	if t.Length < MinMatch || t.Length > MaxMatch {
		return fmt.Errorf("%w: length %d out of range", ErrInvalidToken, t.Length)
	}
	return nil
}
