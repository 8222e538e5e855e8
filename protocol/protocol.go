// Package protocol emulates the printer side of a Marlin-style G-code serial
// link. It reassembles a raw byte stream into newline-terminated command
// lines, validates optional XOR checksums and N-prefixed line numbers,
// requests retransmission on corruption or sequence gaps, and dispatches
// recognized G/M commands to a registered handler. Reads and writes carry the
// blocking, timeout-bound semantics of a real serial device.
package protocol

import "time"

// Version of the emulated firmware, reported by hosting binaries.
const Version = "0.1.0"

// Default channel parameters, matching a typical hardware serial setup:
// a small receive buffer and generous host-facing timeouts.
const (
	DefaultRxBufferSize = 64
	DefaultReadTimeout  = 5 * time.Second
	DefaultWriteTimeout = 10 * time.Second
	DefaultPollInterval = 10 * time.Millisecond
)
