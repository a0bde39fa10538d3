package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/bigbag/slipstream/internal/slip"
)

const (
	formatHex = "hex"
	formatRaw = "raw"
)

var (
	outputFlag   string
	offsetFlag   int
	lengthFlag   int
	paddingFlag  int
	formatFlag   string
	chunkFlag    int
	maxSizeFlag  int
	bufSizeFlag  int
	progressFlag bool
)

func newEncodeCmd() *cobra.Command {
	encodeCmd := &cobra.Command{
		Use:   "encode [file]",
		Short: "Frame a payload as one SLIP message",
		Long: `Read a payload from a file (or standard input) and write it as a single
SLIP frame: END, the escaped payload, END.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runEncode,
	}
	encodeCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file (default stdout)")
	encodeCmd.Flags().IntVar(&offsetFlag, "offset", 0, "Start of the payload window")
	encodeCmd.Flags().IntVar(&lengthFlag, "length", 0, "Length of the payload window (0 = to the end)")
	encodeCmd.Flags().IntVar(&paddingFlag, "padding", slip.DefaultBufferPadding, "Encode buffer padding in bytes")
	return encodeCmd
}

func newDecodeCmd() *cobra.Command {
	decodeCmd := &cobra.Command{
		Use:   "decode [file]",
		Short: "Decode a SLIP stream into messages",
		Long: `Read a SLIP byte stream from a file (or standard input) and print every
decoded message.

With --format hex each message is printed as one line of hex; with
--format raw the message bytes are written back to back.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDecode,
	}
	decodeCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output file (default stdout)")
	decodeCmd.Flags().StringVarP(&formatFlag, "format", "f", formatHex, "Output format: hex or raw")
	decodeCmd.Flags().IntVar(&chunkFlag, "chunk-size", 4096, "Read size in bytes")
	decodeCmd.Flags().IntVar(&maxSizeFlag, "max-message-size", slip.DefaultMaxMessageSize, "Largest accepted message in bytes")
	decodeCmd.Flags().IntVar(&bufSizeFlag, "buffer-size", slip.DefaultBufferSize, "Initial decode buffer size in bytes")
	decodeCmd.Flags().BoolVar(&progressFlag, "progress", false, "Show a progress bar for file input")
	return decodeCmd
}

// openInput returns the named file, or stdin when no file is given, with
// its size when known.
func openInput(cmd *cobra.Command, args []string) (io.ReadCloser, int64, string, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), -1, "stdin", nil
	}

	f, err := os.Open(args[0])
	if err != nil {
		return nil, 0, "", fmt.Errorf("failed to open input: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, "", fmt.Errorf("failed to stat input: %w", err)
	}
	return f, info.Size(), args[0], nil
}

func openOutput(cmd *cobra.Command) (io.WriteCloser, error) {
	if outputFlag == "" || outputFlag == "-" {
		return nopWriteCloser{cmd.OutOrStdout()}, nil
	}
	f, err := os.Create(outputFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func runEncode(cmd *cobra.Command, args []string) error {
	in, _, name, err := openInput(cmd, args)
	if err != nil {
		return err
	}
	data, err := io.ReadAll(in)
	in.Close()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	padding := intOverride(cmd, "padding", cfg.Encoder.BufferPadding)
	frame := slip.EncodeWithOptions(data, slip.EncodeOptions{
		Offset:        offsetFlag,
		Length:        lengthFlag,
		BufferPadding: padding,
	})

	out, err := openOutput(cmd)
	if err != nil {
		return err
	}
	if _, err := out.Write(frame); err != nil {
		out.Close()
		return fmt.Errorf("failed to write frame: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	log.Debugf("encoded %s: %d payload bytes -> %d frame bytes", name, len(data), len(frame))
	return nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	if formatFlag != formatHex && formatFlag != formatRaw {
		return fmt.Errorf("unknown format %q (want %s or %s)", formatFlag, formatHex, formatRaw)
	}
	if chunkFlag <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", chunkFlag)
	}

	in, size, name, err := openInput(cmd, args)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := openOutput(cmd)
	if err != nil {
		return err
	}
	defer out.Close()

	var (
		messages int
		dropped  int
		writeErr error
	)

	opts := cfg.DecoderOptions()
	opts.MaxMessageSize = intOverride(cmd, "max-message-size", opts.MaxMessageSize)
	opts.BufferSize = intOverride(cmd, "buffer-size", opts.BufferSize)
	opts.OnMessage = func(msg []byte) {
		messages++
		if writeErr == nil {
			writeErr = writeMessage(out, msg, formatFlag)
		}
	}
	opts.OnError = func(partial []byte, message string) {
		dropped++
		log.Warnf("%s: %s (%d bytes discarded)", name, message, len(partial))
	}
	dec := slip.NewDecoder(opts)

	var r io.Reader = in
	if progressFlag && size > 0 {
		bar := progressbar.NewOptions64(size,
			progressbar.OptionSetDescription("Decoding"),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(100),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		r = io.TeeReader(in, bar)
	}

	chunk := make([]byte, chunkFlag)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			dec.Decode(chunk[:n])
			if writeErr != nil {
				return fmt.Errorf("failed to write message: %w", writeErr)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
	}

	if n := dec.Buffered(); n > 0 {
		log.Warnf("%s: stream ended inside a message (%d bytes discarded)", name, n)
	}
	log.Infof("%s: decoded %d message(s), %d oversized", name, messages, dropped)
	return nil
}

func writeMessage(w io.Writer, msg []byte, format string) error {
	if format == formatRaw {
		_, err := w.Write(msg)
		return err
	}
	_, err := fmt.Fprintln(w, hex.EncodeToString(msg))
	return err
}
