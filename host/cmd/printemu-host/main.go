package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/google/shlex"

	"printemu/gcode"
	"printemu/host/bridge"
	"printemu/host/serial"
	"printemu/protocol"
)

var (
	device        = flag.String("device", "", "Serial device to expose the printer on (empty for interactive console)")
	baud          = flag.Int("baud", 115200, "Baud rate")
	forceChecksum = flag.Bool("force-checksum", false, "Reject command lines that carry no checksum")
	verbose       = flag.Bool("verbose", false, "Log serial traffic to stderr")
)

func main() {
	flag.Parse()

	fmt.Printf("Printemu %s - virtual G-code printer serial port\n\n", protocol.Version)

	logger := slog.New(slog.DiscardHandler)
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	printer := &demoPrinter{}

	cfg := protocol.DefaultConfig()
	cfg.Logger = logger
	if *device == "" {
		// The console drains responses after every command; a short read
		// timeout keeps it snappy.
		cfg.ReadTimeout = 200 * time.Millisecond
	}

	port := protocol.NewPort(printer.handle, protocol.SettingsFunc(func() bool {
		return *forceChecksum
	}), cfg)
	printer.port = port
	defer port.Close()

	if *device != "" {
		runBridge(port, logger)
		return
	}
	runConsole(port)
}

// runBridge exposes the virtual printer on a physical serial device.
func runBridge(port *protocol.Port, logger *slog.Logger) {
	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud

	phys, err := serial.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer phys.Close()

	fmt.Printf("Exposing virtual printer on %s (%d baud), Ctrl-C to stop\n", *device, *baud)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Device reads block; closing the port is what unsticks the bridge's
	// inbound pump on Ctrl-C.
	go func() {
		<-ctx.Done()
		phys.Close()
	}()

	if err := bridge.New(phys, port, logger).Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runConsole drives the virtual printer from stdin.
func runConsole(port *protocol.Port) {
	fmt.Println("Interactive console. Type 'help' for available commands, 'quit' to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	lineNumber := 0

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		parts, err := shlex.Split(input)
		if err != nil || len(parts) == 0 {
			fmt.Printf("Cannot parse input: %v\n", err)
			continue
		}

		switch parts[0] {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return

		case "help", "?":
			printHelp()

		case "send":
			if len(parts) < 2 {
				fmt.Println("Usage: send <gcode>")
				continue
			}
			lineNumber++
			payload := fmt.Sprintf("N%d %s", lineNumber, strings.Join(parts[1:], " "))
			framed := fmt.Sprintf("%s*%d\n", payload, protocol.Checksum([]byte(payload)))
			writeAndPrint(port, framed)

		case "raw":
			if len(parts) < 2 {
				fmt.Println("Usage: raw <line>")
				continue
			}
			writeAndPrint(port, strings.Join(parts[1:], " ")+"\n")

		case "prompt":
			if len(parts) < 3 {
				fmt.Println("Usage: prompt \"text\" choice [choice...]")
				continue
			}
			port.ShowPrompt(parts[1], parts[2:])
			printResponses(port)

		case "reset":
			port.Reset()
			payload := "N0 M110"
			writeAndPrint(port, fmt.Sprintf("%s*%d\n", payload, protocol.Checksum([]byte(payload))))
			lineNumber = 0

		default:
			fmt.Printf("Unknown command: %s (type 'help' for available commands)\n", parts[0])
		}
	}
}

func writeAndPrint(port *protocol.Port, framed string) {
	if _, err := port.Write([]byte(framed)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	printResponses(port)
}

// printResponses drains the outgoing queue until the read timeout reports
// it empty.
func printResponses(port *protocol.Port) {
	for {
		line := port.ReadLine()
		if len(line) == 0 {
			return
		}
		fmt.Printf("< %s\n", line)
	}
}

func printHelp() {
	fmt.Println("Available commands:")
	fmt.Println("  send <gcode>                - frame <gcode> with a line number and checksum and send it")
	fmt.Println("  raw <line>                  - send <line> verbatim (no numbering, no checksum)")
	fmt.Println("  prompt \"text\" choice...     - show an action prompt with the given choices")
	fmt.Println("  reset                       - drain the channel and resync line numbering")
	fmt.Println("  help, ?                     - show this help")
	fmt.Println("  quit, exit, q               - exit")
}

// maxHotendTemp is the ceiling the demo firmware enforces on M104.
const maxHotendTemp = 275.0

// demoPrinter is a minimal command interpreter behind the virtual port:
// enough G/M handling to exercise a host conversation.
type demoPrinter struct {
	port *protocol.Port

	x, y, z      float64
	hotendTarget float64
	bedTarget    float64
}

func (d *demoPrinter) handle(letter byte, command string, line []byte) {
	cmd, err := gcode.ParseLine(strings.TrimSpace(string(line)))
	if err != nil || cmd == nil {
		d.port.SendOk()
		return
	}

	switch command {
	case "G0", "G1":
		d.x = cmd.Param('X', d.x)
		d.y = cmd.Param('Y', d.y)
		d.z = cmd.Param('Z', d.z)

	case "G28":
		d.x, d.y, d.z = 0, 0, 0

	case "M104":
		if s := cmd.Param('S', 0); s > maxHotendTemp {
			d.port.Send(protocol.FormatError(protocol.ErrorMaxtemp))
		} else {
			d.hotendTarget = s
		}

	case "M140":
		d.bedTarget = cmd.Param('S', d.bedTarget)

	case "M105":
		d.port.Send(fmt.Sprintf("ok T:%.1f /%.1f B:%.1f /%.1f",
			d.hotendTarget, d.hotendTarget, d.bedTarget, d.bedTarget))
		return

	case "M114":
		d.port.Send(fmt.Sprintf("X:%.2f Y:%.2f Z:%.2f", d.x, d.y, d.z))

	default:
		if letter == 'M' {
			d.port.Send(protocol.FormatError(protocol.ErrorCommandUnknown, command))
		}
	}

	d.port.SendOk()
}
