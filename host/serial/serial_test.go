package serial

import "testing"

func TestDefaultConfigUsesBlockingReads(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyUSB0")

	if cfg.Device != "/dev/ttyUSB0" {
		t.Errorf("Expected device /dev/ttyUSB0, got %s", cfg.Device)
	}

	if cfg.Baud != 115200 {
		t.Errorf("Expected baud 115200, got %d", cfg.Baud)
	}

	// A read timeout makes tarm/serial open the tty with VMIN=0, and an
	// idle link then reads as io.EOF. The default must block instead.
	if cfg.ReadTimeout != 0 {
		t.Errorf("Expected blocking reads (timeout 0), got %d ms", cfg.ReadTimeout)
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Error("Open(nil) should fail")
	}

	if _, err := Open(&Config{}); err == nil {
		t.Error("Open without a device should fail")
	}
}
