package slip

import (
	"bytes"
	"testing"
)

func TestBuffer_GrowAndShrink(t *testing.T) {
	b := newBuffer(2)
	for i := 0; i < 5; i++ {
		b.add(byte(i))
	}

	if b.len() != 5 {
		t.Errorf("len() = %d, want 5", b.len())
	}
	if b.cap() != 8 {
		t.Errorf("cap() = %d, want 8", b.cap())
	}
	if got := b.clone(); !bytes.Equal(got, []byte{0, 1, 2, 3, 4}) {
		t.Errorf("clone() = %v, want [0 1 2 3 4]", got)
	}

	b.reset()
	if b.len() != 0 || b.cap() != 8 {
		t.Errorf("after reset len=%d cap=%d, want 0 and 8", b.len(), b.cap())
	}

	b.add(9)
	b.shrink()
	if b.len() != 0 || b.cap() != 2 {
		t.Errorf("after shrink len=%d cap=%d, want 0 and 2", b.len(), b.cap())
	}
}
