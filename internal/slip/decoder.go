package slip

import (
	"errors"
	"fmt"
)

const (
	DefaultMaxMessageSize = 10 << 20 // 10 MiB
	DefaultBufferSize     = 1 << 10  // 1 KiB
)

// ErrMessageTooLarge is matched by every *MessageTooLargeError.
var ErrMessageTooLarge = errors.New("slip: message too large")

// MessageTooLargeError reports a message that reached the decoder's
// maximum size before its END byte arrived.
type MessageTooLargeError struct {
	Partial []byte
	Limit   int
}

func (e *MessageTooLargeError) Error() string {
	return fmt.Sprintf("slip: message too large; the maximum message size is %gKB, use a larger MaxMessageSize if necessary",
		float64(e.Limit)/1024)
}

func (e *MessageTooLargeError) Is(target error) bool {
	return target == ErrMessageTooLarge
}

// DecoderOptions configures a Decoder. Zero values select the defaults.
type DecoderOptions struct {
	// OnMessage is called once per decoded message, in stream order.
	// The slice is owned by the callee.
	OnMessage func(msg []byte)

	// OnError is called once per oversized message with the bytes
	// accumulated so far and a description of the violation.
	OnError func(partial []byte, message string)

	// MaxMessageSize bounds the decoded length of a single message: a
	// message reaching this many bytes is rejected. The bound is on length,
	// so it holds exactly whatever BufferSize is.
	MaxMessageSize int

	// BufferSize is the initial capacity of the accumulation buffer.
	BufferSize int
}

// Decoder incrementally decodes a SLIP byte stream. Messages may span any
// number of Decode calls and a single call may complete many messages.
//
// A byte following ESC that is neither ESC_END nor ESC_ESC is kept as-is
// rather than rejected; RFC 1055 leaves this case undefined.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	onMessage      func([]byte)
	onError        func([]byte, string)
	maxMessageSize int
	buf            *buffer
	escape         bool
}

// NewDecoder creates a new Decoder.
func NewDecoder(o DecoderOptions) *Decoder {
	maxSize := o.MaxMessageSize
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}
	bufSize := o.BufferSize
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	if bufSize > maxSize {
		bufSize = maxSize
	}

	return &Decoder{
		onMessage:      o.OnMessage,
		onError:        o.OnError,
		maxMessageSize: maxSize,
		buf:            newBuffer(bufSize),
	}
}

// Decode feeds chunk into the decoder. It returns the last message completed
// during this call, or nil. If a message outgrew MaxMessageSize during the
// call, the last such violation is returned as a *MessageTooLargeError; the
// decoder has already recovered and keeps going with the following bytes.
func (d *Decoder) Decode(chunk []byte) ([]byte, error) {
	var (
		msg []byte
		err error
	)

	for _, v := range chunk {
		if d.escape {
			switch v {
			case EscEnd:
				v = End
			case EscEsc:
				v = Esc
			}
			d.escape = false
		} else {
			switch v {
			case Esc:
				d.escape = true
				continue
			case End:
				if m := d.handleEnd(); m != nil {
					msg = m
				}
				continue
			}
		}

		d.buf.add(v)
		if d.buf.len() >= d.maxMessageSize {
			err = d.handleMessageMax()
		}
	}

	return msg, err
}

// Reset discards any partially decoded message.
func (d *Decoder) Reset() {
	d.buf.shrink()
	d.escape = false
}

// Buffered returns the number of bytes of the message currently being
// assembled.
func (d *Decoder) Buffered() int {
	return d.buf.len()
}

func (d *Decoder) handleEnd() []byte {
	if d.buf.len() == 0 {
		// Opening or repeated END.
		return nil
	}

	msg := d.buf.clone()
	d.buf.reset()
	if d.onMessage != nil {
		d.onMessage(msg)
	}
	return msg
}

func (d *Decoder) handleMessageMax() error {
	err := &MessageTooLargeError{
		Partial: d.buf.clone(),
		Limit:   d.maxMessageSize,
	}
	if d.onError != nil {
		d.onError(err.Partial, err.Error())
	}

	d.Reset()
	return err
}
