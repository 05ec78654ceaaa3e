// Package disasm renders 8080 machine code as text, the way
// disassemble.Step renders 6502 machine code in the wider retrieval
// pack: given a program counter and a memory.Bank, produce a
// human-readable line and the number of bytes the instruction occupies.
package disasm

import (
	"fmt"

	"github.com/go8080/vm80/memory"
)

// addrMode names the operand shapes an 8080 instruction can have. Format
// does not consult it; it renders operands from Info.Len. Unlike the 6502, the 8080's operand shape is fully determined by the
// opcode's bit fields, so this table has far fewer distinct modes than
// disassemble.go's.
type addrMode int

const (
	modeImplied addrMode = iota // no operand bytes: MOV, ALU reg, HLT, RET, ...
	modeD8                      // one immediate data byte: MVI, ALU immediate, IN/OUT
	modeD16                     // one 16-bit immediate: LXI
	modeAddr                    // one 16-bit address: JMP/CALL/Jcc/Ccc/SHLD/LHLD/STA/LDA
)

var regName = [8]string{"B", "C", "D", "E", "H", "L", "M", "A"}
var rpName = [4]string{"B", "D", "H", "SP"}
var rpPushName = [4]string{"B", "D", "H", "PSW"}
var condName = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
var aluName = [8]string{"ADD", "ADC", "SUB", "SBB", "ANA", "XRA", "ORA", "CMP"}

// Info describes one opcode's static shape, independent of any memory.
type Info struct {
	Mnemonic string
	Len      int
}

// infoTable is built once in init from the same bit-field rules cpu's
// dispatcher uses, plus the literal exceptions (HLT, the condition and
// RST groups, and the 0xC0-0xFF special cases) cpu/instructions.go
// hand-cases for the same reason.
var infoTable [256]Info

func init() {
	for op := 0; op < 256; op++ {
		infoTable[op] = decode(uint8(op))
	}
}

func decode(op uint8) Info {
	switch {
	case op == 0x76:
		return Info{"HLT", 1}
	case op >= 0x40 && op <= 0x7F:
		dst, src := (op>>3)&0x7, op&0x7
		return Info{fmt.Sprintf("MOV %s,%s", regName[dst], regName[src]), 1}
	case op >= 0x80 && op <= 0xBF:
		sel, src := (op>>3)&0x7, op&0x7
		return Info{fmt.Sprintf("%s %s", aluName[sel], regName[src]), 1}
	case op < 0x40:
		return decodeBlock0(op)
	default:
		return decodeBlock3(op)
	}
}

func decodeBlock0(op uint8) Info {
	low3 := op & 0x07
	pp := (op >> 4) & 0x3
	bit3 := op&0x08 != 0
	reg := (op >> 3) & 0x7

	switch low3 {
	case 0:
		return Info{"NOP", 1}
	case 1:
		if !bit3 {
			return Info{fmt.Sprintf("LXI %s,d16", rpName[pp]), 3}
		}
		return Info{fmt.Sprintf("DAD %s", rpName[pp]), 1}
	case 2:
		names := [4]string{"STAX B", "STAX D", "SHLD a16", "STA a16"}
		loadNames := [4]string{"LDAX B", "LDAX D", "LHLD a16", "LDA a16"}
		if !bit3 {
			if pp >= 2 {
				return Info{names[pp], 3}
			}
			return Info{names[pp], 1}
		}
		if pp >= 2 {
			return Info{loadNames[pp], 3}
		}
		return Info{loadNames[pp], 1}
	case 3:
		if !bit3 {
			return Info{fmt.Sprintf("INX %s", rpName[pp]), 1}
		}
		return Info{fmt.Sprintf("DCX %s", rpName[pp]), 1}
	case 4:
		return Info{fmt.Sprintf("INR %s", regName[reg]), 1}
	case 5:
		return Info{fmt.Sprintf("DCR %s", regName[reg]), 1}
	case 6:
		return Info{fmt.Sprintf("MVI %s,d8", regName[reg]), 2}
	case 7:
		names := [4]string{"RLC", "RAL", "DAA", "STC"}
		altNames := [4]string{"RRC", "RAR", "CMA", "CMC"}
		if !bit3 {
			return Info{names[pp], 1}
		}
		return Info{altNames[pp], 1}
	}
	return Info{"???", 1}
}

func decodeBlock3(op uint8) Info {
	low3 := op & 0x07
	pp := (op >> 4) & 0x3
	bit3 := op&0x08 != 0
	sel := (op >> 3) & 0x7
	cc := (op >> 3) & 0x7

	switch low3 {
	case 0:
		return Info{fmt.Sprintf("R%s", condName[cc]), 1}
	case 1:
		if !bit3 {
			return Info{fmt.Sprintf("POP %s", rpPushName[pp]), 1}
		}
		names := [4]string{"RET", "RET", "PCHL", "SPHL"}
		return Info{names[pp], 1}
	case 2:
		return Info{fmt.Sprintf("J%s a16", condName[cc]), 3}
	case 3:
		if !bit3 {
			names := [4]string{"JMP a16", "OUT d8", "XTHL", "DI"}
			if pp == 0 || pp == 1 {
				return Info{names[pp], map[uint8]int{0: 3, 1: 2}[pp]}
			}
			return Info{names[pp], 1}
		}
		names := [4]string{"JMP a16", "IN d8", "XCHG", "EI"}
		if pp == 0 || pp == 1 {
			return Info{names[pp], map[uint8]int{0: 3, 1: 2}[pp]}
		}
		return Info{names[pp], 1}
	case 4:
		return Info{fmt.Sprintf("C%s a16", condName[cc]), 3}
	case 5:
		if !bit3 {
			return Info{fmt.Sprintf("PUSH %s", rpPushName[pp]), 1}
		}
		return Info{"CALL a16", 3}
	case 6:
		return Info{fmt.Sprintf("%s d8", aluName[sel]), 2}
	case 7:
		return Info{fmt.Sprintf("RST %d", sel), 1}
	}
	return Info{"???", 1}
}

// Lookup returns the static Info for an opcode byte.
func Lookup(op uint8) Info { return infoTable[op] }

// Format disassembles the instruction at pc, returning a listing line
// laid out as address, raw bytes, mnemonic, and the number of bytes pc
// should advance by.
func Format(pc uint16, mem memory.Bank) (string, int) {
	op := mem.Read(pc, false)
	info := infoTable[op]

	var raw, operand string
	switch info.Len {
	case 1:
		raw = fmt.Sprintf("%02X", op)
	case 2:
		b := mem.Read(pc+1, false)
		raw = fmt.Sprintf("%02X %02X", op, b)
		operand = fmt.Sprintf("%02X", b)
	case 3:
		lo := mem.Read(pc+1, false)
		hi := mem.Read(pc+2, false)
		raw = fmt.Sprintf("%02X %02X %02X", op, lo, hi)
		operand = fmt.Sprintf("%04X", uint16(hi)<<8|uint16(lo))
	}

	mnemonic := info.Mnemonic
	if operand != "" {
		// Substitute the placeholder ("d8"/"d16"/"a16") with the real value.
		for _, placeholder := range []string{"d16", "a16", "d8"} {
			if idx := indexOf(mnemonic, placeholder); idx >= 0 {
				mnemonic = mnemonic[:idx] + operand + mnemonic[idx+len(placeholder):]
				break
			}
		}
	}
	return fmt.Sprintf("%04X  %-8s  %s", pc, raw, mnemonic), info.Len
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
