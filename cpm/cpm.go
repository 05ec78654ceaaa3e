// Package cpm is the host test-harness this repository ships around the
// CPU core: it loads a CP/M-style .COM image, wires a cpu.Chip to a flat
// memory.Bank and an io.Device, and runs it to completion while emulating
// just enough of CP/M's BDOS to observe program output (function 2,
// print a character; function 9, print a $-terminated string).
//
// Grounded on atari2600.Init/VCS.Tick (wiring a cpu.Chip to its back-ends
// and stepping it in a loop) generalized from the VCS's three-way
// TIA/PIA/CPU clock-division scheme to the much simpler single-clock-
// domain loop an 8080 host needs, and on atari2600/cart.go's role of
// placing a fixed-format image into the address space.
package cpm

import (
	"context"
	"fmt"
	stdio "io"
	"os"

	"github.com/go8080/vm80/cpu"
	"github.com/go8080/vm80/disasm"
	vmio "github.com/go8080/vm80/io"
	"github.com/go8080/vm80/memory"
)

const (
	// loadAddr is the fixed CP/M TPA base every .COM image is linked against.
	loadAddr = uint16(0x0100)

	// bdosEntry is the well-known BDOS entry point CP/M programs CALL.
	bdosEntry = uint16(0x0005)

	// warmBoot is what a CP/M program jumps to (or falls through to, via
	// the stack RET0 CP/M installs at 0x0000) to signal normal exit.
	warmBoot = uint16(0x0000)

	bdosPrintChar   = uint8(2)
	bdosPrintString = uint8(9)
	stringTerminator = byte('$')
)

// StopReason explains why Run stopped.
type StopReason int

const (
	// StopWarmBoot means the program jumped to 0x0000, CP/M's normal exit path.
	StopWarmBoot StopReason = iota
	// StopHalt means the program executed HLT.
	StopHalt
	// StopContext means the provided context was canceled or timed out.
	StopContext
)

func (s StopReason) String() string {
	switch s {
	case StopWarmBoot:
		return "warm boot"
	case StopHalt:
		return "halt"
	case StopContext:
		return "context canceled"
	default:
		return "unknown"
	}
}

// Result summarizes one run of a loaded program.
type Result struct {
	Reason       StopReason
	Output       string
	Instructions int64
	Cycles       int64
}

// Machine owns one CP/M-hosted 8080: its memory, its I/O back-end, and
// the CPU core itself.
type Machine struct {
	mem *memory.FlatRAM
	io  vmio.Device
	cpu *cpu.Chip

	out    []byte
	tracer stdio.Writer
}

// SetTracer, if w is non-nil, makes Run log a disassembly of every
// instruction (via disasm.Format) to w before executing it. Intended for
// cmd/vm80run's -trace flag; off by default since it is expensive.
func (m *Machine) SetTracer(w stdio.Writer) {
	m.tracer = w
}

// Load reads a .COM image from disk.
func Load(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cpm: reading %s: %w", path, err)
	}
	return b, nil
}

// New places image at the CP/M TPA base, installs a RET at the BDOS
// entry point so the harness's Run loop can intercept CALL 0x0005
// before it executes, and returns a Machine with PC set to the image's
// entry point. dev is the I/O back-end wired to the CPU; pass
// io.NullDevice{} for programs that do no port I/O directly.
func New(image []byte, dev vmio.Device) *Machine {
	mem := memory.NewFlatRAM(false, 0x00)
	mem.LoadAt(loadAddr, image)
	// A CALL to BDOS returns here immediately; the harness notices PC ==
	// bdosEntry _before_ stepping and services the call itself, so this
	// RET only matters if something falls through without going through
	// the harness's own interception (defensive, matches real CP/M BIOS
	// stubs that always have *something* executable at 0x0005).
	mem.Write(bdosEntry, 0xC9, false)

	m := &Machine{mem: mem, io: dev}
	m.cpu = cpu.New(mem, dev)
	m.cpu.Jump(loadAddr)
	return m
}

// Run steps the CPU until the program warm-boots, halts, or ctx is done,
// emulating BDOS functions 2 and 9 each time PC reaches the BDOS entry
// point.
func (m *Machine) Run(ctx context.Context) (Result, error) {
	var instructions, cycles int64
	for {
		select {
		case <-ctx.Done():
			return Result{Reason: StopContext, Output: string(m.out), Instructions: instructions, Cycles: cycles}, ctx.Err()
		default:
		}

		pc := m.cpu.PC()
		if pc == warmBoot {
			return Result{Reason: StopWarmBoot, Output: string(m.out), Instructions: instructions, Cycles: cycles}, nil
		}
		if pc == bdosEntry {
			m.serviceBDOS()
			continue
		}

		wasHalted := m.mem.Read(pc, false) == 0x76
		if m.tracer != nil {
			line, _ := disasm.Format(pc, m.mem)
			fmt.Fprintln(m.tracer, line)
		}
		c, err := m.cpu.Instruction()
		if err != nil {
			return Result{Reason: StopHalt, Output: string(m.out), Instructions: instructions, Cycles: cycles}, fmt.Errorf("cpm: cpu error at %#04x: %w", pc, err)
		}
		instructions++
		cycles += int64(c)
		if wasHalted {
			return Result{Reason: StopHalt, Output: string(m.out), Instructions: instructions, Cycles: cycles}, nil
		}
	}
}

// serviceBDOS emulates the handful of BDOS calls this harness supports,
// then pops the return address the program's CALL pushed so execution
// resumes right after the call site.
func (m *Machine) serviceBDOS() {
	switch m.cpu.C() {
	case bdosPrintChar:
		m.out = append(m.out, m.cpu.E())
	case bdosPrintString:
		addr := m.cpu.DE()
		for {
			b := m.mem.Read(addr, false)
			if b == stringTerminator {
				break
			}
			m.out = append(m.out, b)
			addr++
		}
	}
	ret := m.popReturnAddress()
	m.cpu.Jump(ret)
}

// popReturnAddress reads and discards the stack frame the program's CALL
// 0x0005 pushed, mirroring what a real RET at the BDOS entry would do.
func (m *Machine) popReturnAddress() uint16 {
	sp := m.cpu.SP()
	lo := m.mem.Read(sp, true)
	hi := m.mem.Read(sp+1, true)
	m.cpu.SetSP(sp + 2)
	return uint16(hi)<<8 | uint16(lo)
}
