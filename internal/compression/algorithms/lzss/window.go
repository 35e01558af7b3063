package lzss

// Window is a circular buffer holding the last WindowSize bytes of output.
type Window struct {
	buf    [WindowSize]byte
	pos    int
	filled int
}

func NewWindow() *Window {
	return new(Window)
}

// Append pushes b into the window, evicting the oldest byte once full.
func (w *Window) Append(b byte) {
	w.buf[w.pos] = b
	w.pos = (w.pos + 1) & windowMask
	if w.filled < WindowSize {
		w.filled++
	}
}

// At returns the byte offset positions behind the next write position.
// offset must be in [1, Len()].
func (w *Window) At(offset int) byte {
	return w.buf[(w.pos-offset+WindowSize)&windowMask]
}

// Len returns how many bytes can currently be referenced.
func (w *Window) Len() int {
	return w.filled
}
