// Package bridge connects a physical serial device to a virtual printer
// port, so a host controller plugged into the real device talks to the
// emulated firmware.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"printemu/protocol"
)

// Bridge pumps bytes between a physical serial connection and a virtual
// printer port: device reads feed the port's write path, port responses are
// written back to the device one line at a time.
type Bridge struct {
	phys io.ReadWriter
	virt *protocol.Port
	log  *slog.Logger
}

// New creates a bridge between phys and virt. A nil logger discards logs.
func New(phys io.ReadWriter, virt *protocol.Port, log *slog.Logger) *Bridge {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Bridge{phys: phys, virt: virt, log: log}
}

// Run pumps both directions until the context is cancelled, the device
// reports EOF, or either direction fails. Cancellation is observed at the
// next read or response timeout. A clean shutdown returns nil.
func (b *Bridge) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// A finished inbound pump ends the whole bridge, EOF included.
		defer cancel()
		return b.pumpInbound(ctx)
	})
	g.Go(func() error { return b.pumpOutbound(ctx) })

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// pumpInbound moves raw bytes from the device into the virtual port.
func (b *Bridge) pumpInbound(ctx context.Context) error {
	buf := make([]byte, 256)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := b.phys.Read(buf)
		if err != nil {
			if errors.Is(err, io.EOF) {
				b.log.Debug("device closed, stopping inbound pump")
				return nil
			}
			// A cancelled bridge closes the device to unstick this read;
			// report that as cancellation, not a device failure.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("device read: %w", err)
		}
		if n == 0 {
			continue
		}

		if _, err := b.virt.Write(buf[:n]); err != nil {
			return fmt.Errorf("virtual port write: %w", err)
		}
	}
}

// pumpOutbound moves response lines from the virtual port to the device.
func (b *Bridge) pumpOutbound(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := b.virt.ReadLine()
		if len(line) == 0 {
			if b.virt.IsClosed() {
				b.log.Debug("virtual port closed, stopping outbound pump")
				return nil
			}
			continue
		}

		if _, err := b.phys.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("device write: %w", err)
		}
	}
}
