package slip

// buffer is a growable byte buffer with capacity and length tracked
// separately. Capacity doubles when full.
type buffer struct {
	data []byte
	n    int
	size int
}

func newBuffer(size int) *buffer {
	return &buffer{
		data: make([]byte, size),
		size: size,
	}
}

func (b *buffer) add(v byte) {
	if b.n >= len(b.data) {
		b.data = expand(b.data)
	}
	b.data[b.n] = v
	b.n++
}

func (b *buffer) len() int {
	return b.n
}

func (b *buffer) cap() int {
	return len(b.data)
}

// clone returns a copy of the buffered bytes.
func (b *buffer) clone() []byte {
	out := make([]byte, b.n)
	copy(out, b.data[:b.n])
	return out
}

func (b *buffer) reset() {
	b.n = 0
}

// shrink drops storage grown beyond the initial size.
func (b *buffer) shrink() {
	b.n = 0
	if len(b.data) > b.size {
		b.data = make([]byte, b.size)
	}
}
