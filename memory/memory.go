// Package memory defines the basic interfaces for working with an 8080
// family memory map. The CPU never owns storage directly; it always
// addresses memory through this interface so a host can map ROM, RAM,
// bank switching, or memory-mapped peripherals behind it.
package memory

import (
	"math/rand"
	"time"
)

// Bank is the memory back-end the CPU core consumes. addr is always
// masked to 16 bits by the caller before Read/Write is invoked.
// stackRequest is true for PUSH/POP/XTHL/CALL/RET/RST bus cycles and
// false for everything else, including instruction fetch; a host is
// free to ignore it, but some historical peripherals (and test
// harnesses that want to distinguish stack traffic) care.
type Bank interface {
	// Read returns the data byte stored at addr.
	Read(addr uint16, stackRequest bool) uint8
	// Write updates addr with the new value.
	Write(addr uint16, val uint8, stackRequest bool)
	// PowerOn resets the bank to its power-on state.
	PowerOn()
}

// FlatRAM implements Bank as a single unbanked 64K address space, which
// is the entire 8080 memory map (no paging, no aliasing). This is the
// RAM an 8080 system is built around for everything this repository
// needs: CP/M program images, BDOS-facing scratch space, and test
// fixtures.
type FlatRAM struct {
	ram       [65536]uint8
	fillValue uint8
	random    bool
}

// NewFlatRAM creates a 64K RAM bank. If random is true, PowerOn fills it
// with pseudo-random bytes (closer to real hardware, and a good way to
// shake out code that assumes zeroed memory); otherwise PowerOn fills it
// with fillValue.
func NewFlatRAM(random bool, fillValue uint8) *FlatRAM {
	r := &FlatRAM{fillValue: fillValue, random: random}
	r.PowerOn()
	return r
}

// Read implements Bank.
func (r *FlatRAM) Read(addr uint16, _ bool) uint8 {
	return r.ram[addr]
}

// Write implements Bank.
func (r *FlatRAM) Write(addr uint16, val uint8, _ bool) {
	r.ram[addr] = val
}

// PowerOn implements Bank.
func (r *FlatRAM) PowerOn() {
	if r.random {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		for i := range r.ram {
			r.ram[i] = uint8(rnd.Intn(256))
		}
		return
	}
	for i := range r.ram {
		r.ram[i] = r.fillValue
	}
}

// LoadAt copies image into the bank starting at addr, wrapping modulo
// 64K if image runs past the end of the address space.
func (r *FlatRAM) LoadAt(addr uint16, image []byte) {
	for _, b := range image {
		r.ram[addr] = b
		addr++
	}
}

// Bytes returns the full address space as a slice backed by the bank's
// own storage (not a copy), for reading memory without going through the
// stackRequest-tracking Bank interface. Writes through the slice change
// the bank's contents.
func (r *FlatRAM) Bytes() []byte {
	return r.ram[:]
}
