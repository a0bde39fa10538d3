package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/bigbag/slipstream/internal/serial"
	"github.com/bigbag/slipstream/internal/slip"
)

var (
	portFlag    string
	baudFlag    int
	linesFlag   bool
	countFlag   int
	detailsFlag bool
)

// serialPort is the part of *serial.Port the commands use.
type serialPort interface {
	io.ReadWriter
	Close() error
	Drain() error
	Flush() error
	PortName() string
	BaudRate() int
}

var openSerial = func(portName string, baudRate int) (serialPort, error) {
	return serial.Open(portName, baudRate)
}

func addPortFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&portFlag, "port", "p", "", "Serial port (default from config)")
	cmd.Flags().IntVarP(&baudFlag, "baud", "b", 0, "Baud rate (default from config)")
}

func newSendCmd() *cobra.Command {
	sendCmd := &cobra.Command{
		Use:   "send <file>",
		Short: "Send a file as SLIP messages over a serial port",
		Long: `Frame a file and write it to a serial port.

By default the whole file is sent as one message. With --lines every
non-empty line becomes its own message.`,
		Args: cobra.ExactArgs(1),
		RunE: runSend,
	}
	addPortFlags(sendCmd)
	sendCmd.Flags().BoolVar(&linesFlag, "lines", false, "Send each line as a separate message")
	return sendCmd
}

func newMonitorCmd() *cobra.Command {
	monitorCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Print SLIP messages received on a serial port",
		Long:  "Decode the byte stream arriving on a serial port and print every message as hex until interrupted.",
		Args:  cobra.NoArgs,
		RunE:  runMonitor,
	}
	addPortFlags(monitorCmd)
	monitorCmd.Flags().IntVarP(&countFlag, "count", "n", 0, "Exit after this many messages (0 = run until interrupted)")
	return monitorCmd
}

func newListCmd() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available serial ports",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}
	listCmd.Flags().BoolVar(&detailsFlag, "details", false, "Show USB vendor/product details")
	return listCmd
}

func openPort(cmd *cobra.Command) (serialPort, error) {
	portName := portFlag
	if portName == "" {
		portName = cfg.Serial.Port
	}
	if portName == "" {
		return nil, errors.New("no serial port given (use --port or serial.port in the config)")
	}
	baud := intOverride(cmd, "baud", cfg.Serial.Baud)

	port, err := openSerial(portName, baud)
	if err != nil {
		return nil, err
	}
	log.Infof("opened %s @ %d baud", port.PortName(), port.BaudRate())
	return port, nil
}

// splitMessages returns the messages to send for data.
func splitMessages(data []byte, lines bool) [][]byte {
	if !lines {
		return [][]byte{data}
	}

	var messages [][]byte
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(data)+1)
	for scanner.Scan() {
		line := bytes.TrimRight(scanner.Bytes(), "\r")
		if len(line) == 0 {
			continue
		}
		messages = append(messages, append([]byte(nil), line...))
	}
	return messages
}

func runSend(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	messages := splitMessages(data, linesFlag)
	if len(messages) == 0 {
		return fmt.Errorf("nothing to send in %s", args[0])
	}

	port, err := openPort(cmd)
	if err != nil {
		return err
	}
	defer port.Close()

	bar := progressbar.NewOptions(len(messages),
		progressbar.OptionSetDescription("Sending"),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	w := slip.NewWriter(port)
	sent := 0
	for i, msg := range messages {
		if err := w.WriteMessage(msg); err != nil {
			return fmt.Errorf("failed to send message %d: %w", i+1, err)
		}
		sent += slip.EncodedLen(msg)
		bar.Add(1)
	}
	bar.Finish()

	if err := port.Drain(); err != nil {
		log.Warnf("drain failed: %v", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Sent %d message(s), %d bytes to %s\n", len(messages), sent, port.PortName())
	return nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	port, err := openPort(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Closing the port unblocks the pending read.
	go func() {
		<-ctx.Done()
		port.Close()
	}()
	defer port.Close()

	// Bytes already queued may start mid-message; the decoder cannot resync.
	if err := port.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", port.PortName(), err)
	}

	reader := slip.NewReader(port, cfg.DecoderOptions())
	out := cmd.OutOrStdout()
	received := 0

	for countFlag <= 0 || received < countFlag {
		msg, err := reader.ReadMessage()
		if errors.Is(err, slip.ErrMessageTooLarge) {
			log.Warnf("%s: %v", port.PortName(), err)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("failed to read from %s: %w", port.PortName(), err)
		}

		received++
		fmt.Fprintf(out, "%s  %4d  %s\n", time.Now().Format("15:04:05.000"), len(msg), hex.EncodeToString(msg))
	}

	log.Infof("received %d message(s)", received)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if detailsFlag {
		ports, err := serial.ListPortDetails()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			fmt.Fprintln(out, "No serial ports found")
			return nil
		}
		fmt.Fprintln(out, "Available serial ports:")
		for _, p := range ports {
			if p.IsUSB {
				fmt.Fprintf(out, "  %s  USB %s:%s  %s %s\n", p.Name, p.VID, p.PID, p.Product, p.SerialNumber)
			} else {
				fmt.Fprintf(out, "  %s\n", p.Name)
			}
		}
		return nil
	}

	ports, err := serial.ListPorts()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Fprintln(out, "No serial ports found")
		return nil
	}

	fmt.Fprintln(out, "Available serial ports:")
	for _, p := range ports {
		fmt.Fprintf(out, "  %s\n", p)
	}

	return nil
}
