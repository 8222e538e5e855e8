package protocol

import (
	"bytes"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// CommandHandler is called for every recognized command line. letter is the
// command letter ('G' or 'M'), command the full letter+digits token, and
// line the validated line bytes with numbering and checksum stripped and a
// trailing newline appended. Handlers must not block indefinitely: the
// driving loop has no liveness check on them.
type CommandHandler func(letter byte, command string, line []byte)

// Settings supplies the checksum policy. ForceChecksum is consulted for
// every line that arrives without one.
type Settings interface {
	ForceChecksum() bool
}

// SettingsFunc adapts a plain function to the Settings interface.
type SettingsFunc func() bool

func (f SettingsFunc) ForceChecksum() bool { return f() }

// State is the lifecycle state of a Port.
type State int32

const (
	StateRunning State = iota
	StateStopped
	StateClosed
)

// Config holds the tunable parameters of a virtual port.
type Config struct {
	// ReadTimeout bounds how long ReadLine blocks for a response.
	ReadTimeout time.Duration

	// WriteTimeout bounds how long Write blocks for receive buffer space.
	WriteTimeout time.Duration

	// RxBufferSize is the receive buffer capacity in bytes.
	RxBufferSize int

	// PollInterval is the driving loop's idle tick, bounding shutdown
	// latency. It is not a correctness parameter.
	PollInterval time.Duration

	// Logger receives the serial traffic log. Nil discards it.
	Logger *slog.Logger
}

// DefaultConfig returns the standard virtual port configuration.
func DefaultConfig() *Config {
	return &Config{
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
		RxBufferSize: DefaultRxBufferSize,
		PollInterval: DefaultPollInterval,
	}
}

// Port emulates the printer side of a serial connection. A host writes raw
// command bytes with Write and reads response lines with ReadLine; a single
// background worker reassembles, validates, and dispatches the commands.
type Port struct {
	handler  CommandHandler
	settings Settings
	log      *slog.Logger

	readTimeout  time.Duration
	writeTimeout time.Duration
	pollInterval time.Duration

	state atomic.Int32

	// mu serializes the write path, resend reporting, and lifecycle
	// transitions. The driving loop never holds it while validating, so
	// no acquisition ever nests.
	mu sync.Mutex

	incoming *CharQueue
	outgoing *LineQueue

	// buffered is reserved for a buffered-streaming extension; nothing
	// produces or consumes it yet.
	buffered chan []byte

	// Sequencing state, owned by the driving loop. currentLine counts
	// checksum-validated lines; lastN is the last accepted explicit line
	// number. resend reporting touches lastN under mu.
	currentLine int
	lastN       int

	done chan struct{}
}

// NewPort creates a virtual port and starts its driving loop. A nil cfg
// uses DefaultConfig. The port keeps running until Stop or Close.
func NewPort(handler CommandHandler, settings Settings, cfg *Config) *Port {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	rxSize := cfg.RxBufferSize
	if rxSize <= 0 {
		rxSize = DefaultRxBufferSize
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	p := &Port{
		handler:      handler,
		settings:     settings,
		log:          log,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		pollInterval: pollInterval,
		incoming:     NewCharQueue(rxSize),
		outgoing:     NewLineQueue(),
		buffered:     make(chan []byte, 4),
		done:         make(chan struct{}),
	}

	go p.run()

	return p
}

// State returns the current lifecycle state.
func (p *Port) State() State {
	return State(p.state.Load())
}

// IsClosed reports whether Close has been called.
func (p *Port) IsClosed() bool {
	return p.State() == StateClosed
}

// Write pushes raw bytes toward the printer. It accepts as many bytes as fit
// into the remaining receive buffer capacity, blocking up to the write
// timeout, and returns the count actually accepted. A full buffer yields
// ErrWriteTimeout; a closed port accepts nothing and reports no error.
func (p *Port) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.State() == StateClosed {
		return 0, nil
	}

	n, ok := p.incoming.Put(data, true, p.writeTimeout)
	if !ok {
		p.log.Error("incoming queue is full, returning write timeout")
		return n, ErrWriteTimeout
	}
	p.log.Debug("<<< " + toText(data))
	return n, nil
}

// ReadLine returns the next response line, blocking up to the read timeout.
// An empty result means no response is currently available; a closed port
// returns immediately.
func (p *Port) ReadLine() []byte {
	if p.State() == StateClosed {
		return nil
	}

	line, ok := p.outgoing.Get(p.readTimeout)
	if !ok {
		return nil
	}
	p.log.Debug(">>> " + strings.TrimSpace(line))
	return []byte(line)
}

// Send enqueues a response line for the host to read.
func (p *Port) Send(line string) {
	if p.State() == StateClosed {
		return
	}
	p.outgoing.Put(line)
}

// SendOk enqueues the standard acknowledgement.
func (p *Port) SendOk() {
	p.Send("ok")
}

// Reset drains both directions of the channel without touching sequencing
// or lifecycle state, recovering a desynchronized link in place.
func (p *Port) Reset() {
	if p.State() == StateClosed {
		return
	}
	p.incoming.Clear()
	p.outgoing.Clear()
}

// Stop halts the driving loop. The port can no longer process input but
// Write and ReadLine keep their usual semantics.
func (p *Port) Stop() {
	p.state.CompareAndSwap(int32(StateRunning), int32(StateStopped))
}

// Close stops the driving loop, waits for it to exit, and discards all
// buffered data. Subsequent writes accept nothing and subsequent reads
// return immediately.
func (p *Port) Close() error {
	p.mu.Lock()
	if p.State() == StateClosed {
		p.mu.Unlock()
		return nil
	}
	p.state.Store(int32(StateClosed))
	p.mu.Unlock()

	<-p.done
	p.incoming.Clear()
	p.outgoing.Clear()
	return nil
}

// run is the driving loop. Each iteration handles at most one complete
// line: a buffered one if present, otherwise it polls the receive queue
// for the next chunk. All sequencing state is mutated here.
func (p *Port) run() {
	defer close(p.done)

	var buf []byte
	for p.State() == StateRunning {
		if nl := bytes.IndexByte(buf, '\n'); nl >= 0 {
			line := make([]byte, nl+1)
			copy(line, buf)
			buf = buf[nl+1:]
			p.processLine(line)
			continue
		}

		chunk, ok := p.incoming.Get(p.pollInterval)
		if !ok {
			continue
		}
		buf = append(buf, chunk...)
	}

	p.log.Debug("closing down read loop")
}

// processLine validates one newline-terminated line and dispatches it.
func (p *Port) processLine(data []byte) {
	// Strip and verify the trailing checksum, if any. The checksum covers
	// every byte before the '*', including an N prefix.
	if star := bytes.LastIndexByte(data, '*'); star >= 0 {
		claimed, err := strconv.Atoi(string(bytes.TrimSpace(data[star+1:])))
		payload := data[:star]
		if err != nil || claimed != int(Checksum(payload)) {
			p.resendChecksum(p.currentLine + 1)
			return
		}
		data = payload
		p.currentLine++
	} else if p.settings != nil && p.settings.ForceChecksum() {
		p.Send(FormatError(ErrorChecksumMissing))
		return
	}

	// Track explicit line numbers: N must advance by exactly 1 unless the
	// line carries M110, which resets the counter to its own N value.
	if len(data) > 0 && data[0] == 'N' {
		n, ok := parseLineNumber(data)
		if !ok {
			return
		}
		if bytes.Contains(data, []byte("M110")) {
			p.lastN = n
			p.currentLine = n
			p.SendOk()
			return
		}
		if expected := p.lastN + 1; n != expected {
			p.resendLineNumber(n)
			return
		}
		p.lastN = n
		data = stripFirstField(data)
	}

	data = append(bytes.TrimRight(data, " \t\r\n"), '\n')

	command := strings.TrimSpace(toText(data))
	if letter, token, ok := MatchCommand(command); ok && p.handler != nil {
		p.handler(letter, token, data)
	}
}

// resendChecksum reports a checksum mismatch and asks the host to resend
// starting from expected. A line arriving without a checksum under the
// force-checksum policy is rejected without a resend cycle, so mismatches
// are the only checksum problem reported here.
func (p *Port) resendChecksum(expected int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastN = expected - 1
	p.Send(FormatError(ErrorChecksumMismatch))
	p.requestResend(expected)
}

// resendLineNumber reports a sequence gap for the received line number and
// asks the host to resend starting from the expected one.
func (p *Port) resendLineNumber(actual int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	expected := p.lastN + 1
	p.Send(FormatError(ErrorLinenoMismatch, expected, actual))
	p.requestResend(expected)
}

// requestResend emits the resend directive and its acknowledgement.
// Callers must hold p.mu.
func (p *Port) requestResend(expected int) {
	p.Send(fmt.Sprintf("Resend:%d", expected))
	p.SendOk()
}

// toText renders possibly invalid bytes for logging and matching, replacing
// undecodable sequences instead of rejecting them.
func toText(data []byte) string {
	return strings.ToValidUTF8(string(data), "�")
}
