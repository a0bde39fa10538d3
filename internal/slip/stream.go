package slip

import (
	"io"

	"github.com/valyala/bytebufferpool"
)

type entry struct {
	msg []byte
	err error
}

// Reader reads SLIP messages from an underlying byte stream.
type Reader struct {
	r       io.Reader
	dec     *Decoder
	chunk   []byte
	pending []entry
	err     error
}

// NewReader returns a Reader decoding r with the given options. The
// callbacks in o, if set, still fire for every message and error.
func NewReader(r io.Reader, o DecoderOptions) *Reader {
	rd := &Reader{r: r}

	onMessage, onError := o.OnMessage, o.OnError
	o.OnMessage = func(msg []byte) {
		rd.pending = append(rd.pending, entry{msg: msg})
		if onMessage != nil {
			onMessage(msg)
		}
	}
	o.OnError = func(partial []byte, message string) {
		rd.pending = append(rd.pending, entry{err: &MessageTooLargeError{
			Partial: partial,
			Limit:   rd.dec.maxMessageSize,
		}})
		if onError != nil {
			onError(partial, message)
		}
	}

	rd.dec = NewDecoder(o)
	rd.chunk = make([]byte, rd.dec.buf.size)
	return rd
}

// ReadMessage returns the next decoded message. A *MessageTooLargeError is
// returned in stream order for every oversized message; the Reader remains
// usable afterwards. At the end of the stream it returns io.EOF, or
// io.ErrUnexpectedEOF if the stream stopped in the middle of a message.
func (r *Reader) ReadMessage() ([]byte, error) {
	for {
		if len(r.pending) > 0 {
			e := r.pending[0]
			r.pending[0] = entry{}
			r.pending = r.pending[1:]
			return e.msg, e.err
		}

		if r.err != nil {
			return nil, r.err
		}

		n, err := r.r.Read(r.chunk)
		if n > 0 {
			r.dec.Decode(r.chunk[:n])
		}
		if err != nil {
			if err == io.EOF && r.dec.Buffered() > 0 {
				r.dec.Reset()
				err = io.ErrUnexpectedEOF
			}
			r.err = err
		}
	}
}

// Writer writes SLIP-framed messages to an underlying writer.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer framing messages onto w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteMessage frames msg and writes it with a single Write call.
func (w *Writer) WriteMessage(msg []byte) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.B = AppendEncode(buf.B[:0], msg)
	_, err := w.w.Write(buf.B)
	return err
}

// Write implements io.Writer; each call is written as one message.
func (w *Writer) Write(p []byte) (int, error) {
	if err := w.WriteMessage(p); err != nil {
		return 0, err
	}
	return len(p), nil
}
