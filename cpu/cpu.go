// Package cpu implements the Intel 8080 (KR580VM80A) instruction set
// architecture and provides the methods needed to run the processor and
// interface with it for emulation. It decodes all 256 opcodes —
// including the documented and the undocumented aliases — computes
// flag outcomes for every arithmetic/logical operation, sequences
// memory and stack transactions through a host-supplied memory.Bank,
// and reports T-state counts per instruction.
package cpu

import (
	"fmt"

	"github.com/go8080/vm80/io"
	"github.com/go8080/vm80/memory"
)

// Register indices into Chip.regs. M is never stored in regs; every
// read or write of index 6 is redirected to memory[HL].
const (
	RegB = uint8(iota)
	RegC
	RegD
	RegE
	RegH
	RegL
	RegM
	RegA
)

// Flag byte bit positions, used by PUSH PSW / POP PSW.
const (
	flagBitS = uint8(0x80)
	flagBitZ = uint8(0x40)
	flagBitH = uint8(0x10)
	flagBitP = uint8(0x04)
	flagBitC = uint8(0x01)
	// flagBitAlwaysOne is forced to 1 whenever the flag byte is stored.
	flagBitAlwaysOne = uint8(0x02)
)

// ErrUnreachableOpcode indicates the dispatcher fell through a branch
// that the 256-entry opcode space is supposed to make impossible. The
// 8080 core has no undefined opcodes (every byte value is either a real
// instruction or a documented alias, see instructions.go), so seeing
// this error means the dispatch tables themselves are broken.
var ErrUnreachableOpcode = fmt.Errorf("cpu: unreachable opcode")

// Chip is the complete architectural state of one 8080 core. It is
// mutated only by Instruction() and the handful of host-facing setters
// below (Jump, SetSP, New's initial zero state). There is no other way
// to change it.
type Chip struct {
	pc, sp uint16
	regs   [8]uint8 // indexed by RegB..RegA; regs[RegM] is never used.

	sf, zf, hf, pf, cf bool // sign, zero, auxiliary carry, parity, carry

	iff        bool // interrupts enabled
	iffPending int  // instructions remaining before EI takes effect (0, 1, or 2)

	cpuCycles int // T-states consumed by the most recent instruction
	vcycles   int // composite sub-phase breakdown of the most recent instruction

	mem memory.Bank
	io  io.Device
}

// New constructs an 8080 core wired to the given memory and I/O
// back-ends, in the power-on state: all registers and flags zero,
// interrupts disabled. It does not reset or power on mem/io; the host
// owns that.
func New(mem memory.Bank, ioDev io.Device) *Chip {
	return &Chip{mem: mem, io: ioDev}
}

// Jump sets PC directly, masked to 16 bits.
func (p *Chip) Jump(addr uint16) {
	p.pc = addr & 0xFFFF
}

// SetSP sets SP directly. Exposed for hosts (cpm.Machine) that need to
// unwind a stack frame they pushed on the program's behalf, such as a
// trapped CALL to a BDOS entry point; the core itself never calls this.
func (p *Chip) SetSP(addr uint16) {
	p.sp = addr
}

// PC returns the program counter.
func (p *Chip) PC() uint16 { return p.pc }

// SP returns the stack pointer.
func (p *Chip) SP() uint16 { return p.sp }

// A returns the accumulator.
func (p *Chip) A() uint8 { return p.regs[RegA] }

// B, C, D, E, H, L return the corresponding general-purpose register.
func (p *Chip) B() uint8 { return p.regs[RegB] }
func (p *Chip) C() uint8 { return p.regs[RegC] }
func (p *Chip) D() uint8 { return p.regs[RegD] }
func (p *Chip) E() uint8 { return p.regs[RegE] }
func (p *Chip) H() uint8 { return p.regs[RegH] }
func (p *Chip) L() uint8 { return p.regs[RegL] }

// BC, DE, HL return the corresponding 16-bit register pair.
func (p *Chip) BC() uint16 { return pair(p.regs[RegB], p.regs[RegC]) }
func (p *Chip) DE() uint16 { return pair(p.regs[RegD], p.regs[RegE]) }
func (p *Chip) HL() uint16 { return pair(p.regs[RegH], p.regs[RegL]) }

// SF, ZF, HF, PF, CF return the architectural flag bits.
func (p *Chip) SF() bool { return p.sf }
func (p *Chip) ZF() bool { return p.zf }
func (p *Chip) HF() bool { return p.hf }
func (p *Chip) PF() bool { return p.pf }
func (p *Chip) CF() bool { return p.cf }

// IFF reports whether interrupts are currently enabled.
func (p *Chip) IFF() bool { return p.iff }

// CPUCycles returns the T-states consumed by the most recently executed
// instruction.
func (p *Chip) CPUCycles() int { return p.cpuCycles }

// VCycles returns the sub-phase (machine-cycle) breakdown of the most
// recently executed instruction, encoded as successive T-state counts
// concatenated in decimal, most-significant phase first (e.g. a 4+3
// two-phase instruction reports 43, a 5+3+3 three-phase instruction
// reports 533). This is a documentation-friendly encoding of the bus
// timing pattern, not itself architectural state the 8080 exposes.
func (p *Chip) VCycles() int { return p.vcycles }

func pair(hi, lo uint8) uint16 {
	return uint16(hi)<<8 | uint16(lo)
}

func setPair(hi, lo *uint8, v uint16) {
	*hi = uint8(v >> 8)
	*lo = uint8(v)
}

func (p *Chip) setBC(v uint16) { setPair(&p.regs[RegB], &p.regs[RegC], v) }
func (p *Chip) setDE(v uint16) { setPair(&p.regs[RegD], &p.regs[RegE], v) }
func (p *Chip) setHL(v uint16) { setPair(&p.regs[RegH], &p.regs[RegL], v) }

// reg returns the value of register index i, redirecting the M
// pseudo-register (index 6) through memory[HL].
func (p *Chip) reg(i uint8) uint8 {
	if i == RegM {
		return p.mem.Read(p.HL(), false)
	}
	return p.regs[i]
}

// setReg writes register index i, redirecting M through memory[HL].
func (p *Chip) setReg(i uint8, v uint8) {
	if i == RegM {
		p.mem.Write(p.HL(), v, false)
		return
	}
	p.regs[i] = v
}

// rp reads the 16-bit register pair selected by a clean 0..3 pair code:
// 0=BC, 1=DE, 2=HL, 3=SP. This is the encoding LXI/DAD/INX/DCX use.
func (p *Chip) rp(code uint8) uint16 {
	switch code {
	case 0:
		return p.BC()
	case 1:
		return p.DE()
	case 2:
		return p.HL()
	default:
		return p.sp
	}
}

// setRP writes the 16-bit register pair selected by code, see rp.
func (p *Chip) setRP(code uint8, v uint16) {
	switch code {
	case 0:
		p.setBC(v)
	case 1:
		p.setDE(v)
	case 2:
		p.setHL(v)
	default:
		p.sp = v
	}
}

// flagsByte packs the five architectural flags into the PSW low byte:
// bit 1 is forced to 1, bits 3 and 5 are forced to 0.
func (p *Chip) flagsByte() uint8 {
	b := flagBitAlwaysOne
	if p.sf {
		b |= flagBitS
	}
	if p.zf {
		b |= flagBitZ
	}
	if p.hf {
		b |= flagBitH
	}
	if p.pf {
		b |= flagBitP
	}
	if p.cf {
		b |= flagBitC
	}
	return b
}

// setFlagsByte unpacks the PSW low byte into the five architectural
// flags; the unused bits are ignored on load.
func (p *Chip) setFlagsByte(b uint8) {
	p.sf = b&flagBitS != 0
	p.zf = b&flagBitZ != 0
	p.hf = b&flagBitH != 0
	p.pf = b&flagBitP != 0
	p.cf = b&flagBitC != 0
}

// condFlag returns the current value of the flag selected by a
// condition-group selector: 0=ZF, 1=CF, 2=PF, 3=SF.
func (p *Chip) condFlag(sel uint8) bool {
	switch sel {
	case 0:
		return p.zf
	case 1:
		return p.cf
	case 2:
		return p.pf
	default:
		return p.sf
	}
}

// condTaken decodes the full condition-group encoding from a control
// transfer opcode: selector in bits 4-5, expected value in bit 3.
func (p *Chip) condTaken(op uint8) bool {
	sel := (op >> 4) & 0x3
	want := op&0x08 != 0
	return p.condFlag(sel) == want
}

func (p *Chip) memRead(addr uint16) uint8     { return p.mem.Read(addr, false) }
func (p *Chip) memWrite(addr uint16, v uint8) { p.mem.Write(addr, v, false) }

// readWord performs a little-endian two-byte memory transaction.
func (p *Chip) readWord(addr uint16, stackRequest bool) uint16 {
	lo := p.mem.Read(addr, stackRequest)
	hi := p.mem.Read(addr+1, stackRequest)
	return pair(hi, lo)
}

// writeWord performs a little-endian two-byte memory transaction.
func (p *Chip) writeWord(addr uint16, v uint16, stackRequest bool) {
	p.mem.Write(addr, uint8(v), stackRequest)
	p.mem.Write(addr+1, uint8(v>>8), stackRequest)
}

// nextPCByte reads the byte at PC and advances PC by one, wrapping
// modulo 2^16.
func (p *Chip) nextPCByte() uint8 {
	v := p.mem.Read(p.pc, false)
	p.pc++
	return v
}

// nextPCWord reads a little-endian word at PC and advances PC by two.
func (p *Chip) nextPCWord() uint16 {
	lo := p.nextPCByte()
	hi := p.nextPCByte()
	return pair(hi, lo)
}

// push decrements SP by 2 and writes v as a little-endian stack
// transaction.
func (p *Chip) push(v uint16) {
	p.sp -= 2
	p.writeWord(p.sp, v, true)
}

// pop reads a little-endian word at SP as a stack transaction and
// advances SP by 2.
func (p *Chip) pop() uint16 {
	v := p.readWord(p.sp, true)
	p.sp += 2
	return v
}

// vcyclesFrom packs a sequence of machine-cycle T-state counts into the
// decimal encoding documented on Chip.VCycles.
func vcyclesFrom(parts ...int) int {
	v := 0
	for _, part := range parts {
		v = v*10 + part
	}
	return v
}

// Instruction executes exactly one instruction: it fetches the opcode
// at PC, dispatches it, updates PC/SP/registers/flags and performs any
// required memory/IO transactions, and returns the number of T-states
// consumed. It never returns a non-nil error for any of the 256 opcode
// values; the error return exists only to surface ErrUnreachableOpcode
// if the dispatch tables themselves are ever corrupted, which cannot
// happen through the public API.
func (p *Chip) Instruction() (int, error) {
	op := p.nextPCByte()

	var err error
	switch {
	case op == 0x76: // HLT
		p.iHLT()
	case op >= 0x40 && op <= 0x7F:
		p.iMOV(op)
	case op >= 0x80 && op <= 0xBF:
		p.iALUReg(op)
	case op < 0x40:
		err = p.dispatchBlock0(op)
	default:
		err = p.dispatchBlock3(op)
	}

	p.tickEIPending()

	if err != nil {
		return 0, err
	}
	return p.cpuCycles, nil
}

// tickEIPending implements the one-instruction EI delay: iffPending
// counts down after every instruction, and reaching zero
// both flips iff on and notifies the I/O back-end.
func (p *Chip) tickEIPending() {
	if p.iffPending > 0 {
		p.iffPending--
		if p.iffPending == 0 {
			p.iff = true
			p.io.Interrupt(true)
		}
	}
}
