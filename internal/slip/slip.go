// Package slip implements SLIP (RFC 1055) framing: byte-stuffed messages
// delimited by END bytes.
package slip

const (
	End    = 0xC0
	Esc    = 0xDB
	EscEnd = 0xDC
	EscEsc = 0xDD
)

// DefaultBufferPadding is the slack reserved beyond the payload length when
// allocating an encode buffer.
const DefaultBufferPadding = 4

// EncodeOptions controls EncodeWithOptions.
type EncodeOptions struct {
	// Offset and Length select a window of the input. Length <= 0 means
	// "through the end of the input". Out-of-range windows are clamped.
	Offset int
	Length int

	// BufferPadding is the number of bytes reserved beyond the payload
	// length before the output buffer has to grow. The initial buffer size
	// is rounded up to a multiple of 4.
	BufferPadding int
}

// Encode wraps data in SLIP framing.
// Adds END byte at start and end, escapes special bytes.
func Encode(data []byte) []byte {
	return EncodeWithOptions(data, EncodeOptions{})
}

// EncodeWithOptions encodes a window of data into a freshly allocated frame.
func EncodeWithOptions(data []byte, o EncodeOptions) []byte {
	data = window(data, o.Offset, o.Length)

	padding := o.BufferPadding
	if padding <= 0 {
		padding = DefaultBufferPadding
	}

	encoded := make([]byte, (len(data)+padding+3)&^3)
	encoded[0] = End
	j := 1

	for _, b := range data {
		// Room for an escape pair plus the trailing END.
		if j > len(encoded)-3 {
			encoded = expand(encoded)
		}

		switch b {
		case End:
			encoded[j] = Esc
			encoded[j+1] = EscEnd
			j += 2
		case Esc:
			encoded[j] = Esc
			encoded[j+1] = EscEsc
			j += 2
		default:
			encoded[j] = b
			j++
		}
	}

	encoded[j] = End
	return encoded[:j+1:j+1]
}

// AppendEncode appends the SLIP frame for data to dst and returns the
// extended slice.
func AppendEncode(dst, data []byte) []byte {
	dst = append(dst, End)
	for _, b := range data {
		switch b {
		case End:
			dst = append(dst, Esc, EscEnd)
		case Esc:
			dst = append(dst, Esc, EscEsc)
		default:
			dst = append(dst, b)
		}
	}
	return append(dst, End)
}

// EncodedLen returns the length of the frame Encode would produce for data.
func EncodedLen(data []byte) int {
	n := len(data) + 2
	for _, b := range data {
		if b == End || b == Esc {
			n++
		}
	}
	return n
}

// Decode extracts the first message from a complete SLIP frame.
// Returns nil if the frame carries no message.
func Decode(frame []byte) []byte {
	var msg []byte
	d := NewDecoder(DecoderOptions{
		OnMessage: func(m []byte) {
			if msg == nil {
				msg = m
			}
		},
		MaxMessageSize: len(frame) + 1,
	})
	d.Decode(frame)
	if msg == nil && d.Buffered() > 0 {
		// Frame without a trailing END.
		msg = d.buf.clone()
	}
	return msg
}

func window(data []byte, offset, length int) []byte {
	if offset < 0 {
		offset = 0
	}
	if offset > len(data) {
		offset = len(data)
	}
	data = data[offset:]
	if length > 0 && length < len(data) {
		data = data[:length]
	}
	return data
}

func expand(b []byte) []byte {
	expanded := make([]byte, len(b)*2)
	copy(expanded, b)
	return expanded
}
