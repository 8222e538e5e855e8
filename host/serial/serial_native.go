package serial

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// NativePort exposes a real serial device through the Port interface,
// backed by tarm/serial.
type NativePort struct {
	port *serial.Port
	cfg  *Config
}

// Open opens the configured serial device. With ReadTimeout 0 the port
// reads block until data arrives; Close unsticks a blocked reader.
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Device == "" {
		return nil, fmt.Errorf("no serial device configured")
	}

	serialConfig := &serial.Config{
		Name: cfg.Device,
		Baud: cfg.Baud,
	}
	if cfg.ReadTimeout > 0 {
		// Timed reads surface their expiry as io.EOF (VMIN=0); only ask
		// for them when the caller explicitly wants polling semantics.
		serialConfig.ReadTimeout = time.Duration(cfg.ReadTimeout) * time.Millisecond
	}

	port, err := serial.OpenPort(serialConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}

	return &NativePort{
		port: port,
		cfg:  cfg,
	}, nil
}

// Read reads data from the serial port
func (p *NativePort) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Write writes data to the serial port
func (p *NativePort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close closes the serial port, waking any blocked Read
func (p *NativePort) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

// Flush flushes the serial port buffers
func (p *NativePort) Flush() error {
	// tarm/serial doesn't expose flush; Write already pushes everything
	// to the driver.
	return nil
}
