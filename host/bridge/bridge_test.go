package bridge

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"printemu/protocol"
)

func TestBridgeRoundTrip(t *testing.T) {
	hostSide, deviceSide := net.Pipe()
	defer hostSide.Close()
	defer deviceSide.Close()

	cfg := protocol.DefaultConfig()
	cfg.ReadTimeout = 20 * time.Millisecond
	cfg.PollInterval = time.Millisecond

	var port *protocol.Port
	port = protocol.NewPort(func(letter byte, command string, line []byte) {
		port.SendOk()
	}, nil, cfg)
	defer port.Close()

	b := New(deviceSide, port, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	_, err := hostSide.Write([]byte("G28\n"))
	require.NoError(t, err)

	hostSide.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := bufio.NewReader(hostSide).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "ok\n", line)

	// Closing the host side ends the bridge cleanly.
	hostSide.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not stop after the device closed")
	}
}

func TestBridgeSurvivesIdleLink(t *testing.T) {
	hostSide, deviceSide := net.Pipe()
	defer hostSide.Close()
	defer deviceSide.Close()

	cfg := protocol.DefaultConfig()
	cfg.ReadTimeout = 20 * time.Millisecond
	cfg.PollInterval = time.Millisecond

	var port *protocol.Port
	port = protocol.NewPort(func(letter byte, command string, line []byte) {
		port.SendOk()
	}, nil, cfg)
	defer port.Close()

	b := New(deviceSide, port, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	reader := bufio.NewReader(hostSide)
	for i := 0; i < 2; i++ {
		// A silent stretch between commands must not end the bridge.
		time.Sleep(150 * time.Millisecond)

		select {
		case err := <-done:
			t.Fatalf("bridge stopped during an idle gap: %v", err)
		default:
		}

		_, err := hostSide.Write([]byte("G28\n"))
		require.NoError(t, err)

		hostSide.SetReadDeadline(time.Now().Add(2 * time.Second))
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "ok\n", line)
	}
}

func TestBridgeStopsOnCancel(t *testing.T) {
	hostSide, deviceSide := net.Pipe()
	defer hostSide.Close()
	defer deviceSide.Close()

	cfg := protocol.DefaultConfig()
	cfg.ReadTimeout = 20 * time.Millisecond
	cfg.PollInterval = time.Millisecond

	port := protocol.NewPort(nil, nil, cfg)
	defer port.Close()

	b := New(deviceSide, port, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	cancel()
	// The inbound pump sits in a pipe read; unstick it.
	hostSide.Close()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not stop after cancellation")
	}
}
