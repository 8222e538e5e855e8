// Package serial abstracts the physical serial device the emulated printer
// is exposed on.
package serial

import (
	"io"
)

// Port represents a serial port interface.
// This abstraction allows for different implementations:
// - Native serial (using github.com/tarm/serial)
// - In-memory pipes for testing
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string

	// Baud rate (typically 115200 for Marlin-style hosts)
	Baud int

	// Read timeout in milliseconds. 0 means blocking reads, which is what
	// a long-lived G-code link wants: with a timeout, tarm/serial opens
	// the tty with VMIN=0 and a timed-out read comes back as io.EOF,
	// indistinguishable from a disconnect. Shut a blocking reader down by
	// closing the port instead.
	ReadTimeout int
}

// DefaultConfig returns a default configuration for a G-code host link
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200, // Common G-code host baud rate
		ReadTimeout: 0,      // Blocking reads; see Config.ReadTimeout
	}
}
