// Package io defines the basic interfaces for working with an 8080
// family I/O port space. Port I/O on the 8080 is a separate address
// space from memory (IN/OUT instructions take an 8-bit port number),
// reached only through this interface.
package io

// Device is the I/O back-end the CPU core consumes.
type Device interface {
	// Input returns the current value on the given input port. Called
	// for IN d8.
	Input(port uint8) uint8
	// Output latches value onto the given output port. Called for
	// OUT d8.
	Output(port uint8, value uint8)
	// Interrupt is a notification fired whenever the CPU's interrupt
	// flip-flop transitions, so a device that queues interrupts knows
	// when it is safe to assert one.
	Interrupt(enabled bool)
}

// NullDevice implements Device as a quiescent back-end: every port
// reads zero, writes and interrupt notifications are no-ops. Useful for
// core tests that exercise no I/O instructions.
type NullDevice struct{}

// Input implements Device.
func (NullDevice) Input(uint8) uint8 { return 0 }

// Output implements Device.
func (NullDevice) Output(uint8, uint8) {}

// Interrupt implements Device.
func (NullDevice) Interrupt(bool) {}
