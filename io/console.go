package io

import (
	"bytes"
	"io"
	"sync"

	vmirq "github.com/go8080/vm80/irq"
)

// Console ports, following the status/data pair most 8080 monitor ROMs
// and CP/M BIOS serial stubs expose for a single UART-like channel.
const (
	kStatusPort = uint8(0x00)
	kDataPort   = uint8(0x01)

	kMaskInputReady  = uint8(0x01)
	kMaskOutputReady = uint8(0x02)
)

// Console implements Device as a simple interrupt-capable serial
// console: writes to the data port are appended to an output sink
// (normally stdout or a display.Terminal), and reads from the data port
// drain a FIFO of bytes a host can feed in (e.g. piped stdin).
//
// Grounded on pia6532.Chip's pattern of a small stateful peripheral
// exposing a status register and a data register, generalized from a
// parallel port pair down to the single port pair an 8080 console needs.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	in      bytes.Buffer
	enabled bool // mirrors the CPU's iff, updated via Interrupt()
}

var _ Device = (*Console)(nil)
var _ vmirq.Line = (*Console)(nil)

// NewConsole creates a Console that appends output bytes to sink.
func NewConsole(sink io.Writer) *Console {
	return &Console{out: sink}
}

// Feed queues bytes to be returned by subsequent reads of the data port,
// as if typed at a keyboard.
func (c *Console) Feed(b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.in.Write(b)
}

// Input implements Device.
func (c *Console) Input(port uint8) uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch port {
	case kStatusPort:
		st := kMaskOutputReady
		if c.in.Len() > 0 {
			st |= kMaskInputReady
		}
		return st
	case kDataPort:
		b, err := c.in.ReadByte()
		if err != nil {
			return 0
		}
		return b
	default:
		return 0
	}
}

// Output implements Device.
func (c *Console) Output(port uint8, value uint8) {
	if port != kDataPort {
		return
	}
	c.mu.Lock()
	sink := c.out
	c.mu.Unlock()
	if sink != nil {
		_, _ = sink.Write([]byte{value})
	}
}

// Interrupt implements Device, tracking whether the CPU currently has
// interrupts enabled so Raised() only ever reports true when the host
// would actually be able to service it.
func (c *Console) Interrupt(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled = enabled
}

// Raised implements irq.Line: true once queued input exists and the
// CPU has interrupts enabled, modeling the console's "data available"
// request line.
func (c *Console) Raised() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled && c.in.Len() > 0
}
