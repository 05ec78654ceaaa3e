package cpu

// This file holds the instruction handlers dispatched from Instruction()
// in cpu.go. Grouped instructions (MOV, the ALU family, and the bulk of
// the 0x00-0x3F and 0xC0-0xFF ranges) decode their register/pair/
// condition fields directly from the opcode byte rather than getting
// one case per opcode value — the 8080's opcode map is
// regular enough that this stays exhaustive without being a 256-line
// wall of near-duplicate cases.

// iMOV handles the 0x40-0x7F block (MOV dst,src) aside from 0x76 (HLT),
// which Instruction() special-cases before reaching here.
func (p *Chip) iMOV(op uint8) {
	dst := (op >> 3) & 0x7
	src := op & 0x7
	p.setReg(dst, p.reg(src))
	if dst == RegM || src == RegM {
		p.cpuCycles, p.vcycles = 7, vcyclesFrom(4, 3)
		return
	}
	p.cpuCycles, p.vcycles = 5, vcyclesFrom(5)
}

// iHLT parks the CPU at the HLT instruction by rewinding PC so the next
// call to Instruction() refetches and re-executes the same 0x76,
// leaving PC stalled for the host's halt-detection loop to observe.
func (p *Chip) iHLT() {
	p.pc--
	p.cpuCycles, p.vcycles = 7, vcyclesFrom(4, 3)
}

// aluSelector names the 3-bit operation field shared by the register,
// immediate, and (conceptually) memory forms of the ALU group.
const (
	aluADD = uint8(iota)
	aluADC
	aluSUB
	aluSBB
	aluANA
	aluXRA
	aluORA
	aluCMP
)

// iALUReg handles the 0x80-0xBF block: ADD/ADC/SUB/SBB/ANA/XRA/ORA/CMP
// against a register or memory[HL].
func (p *Chip) iALUReg(op uint8) {
	sel := (op >> 3) & 0x7
	src := op & 0x7
	p.aluOp(sel, p.reg(src))
	if src == RegM {
		p.cpuCycles, p.vcycles = 7, vcyclesFrom(4, 3)
		return
	}
	p.cpuCycles, p.vcycles = 4, vcyclesFrom(4)
}

// aluOp performs the selected 8-bit ALU operation against the
// accumulator and v. CMP computes SUB's flags but suppresses the
// accumulator write.
func (p *Chip) aluOp(sel uint8, v uint8) {
	a := p.regs[RegA]
	switch sel {
	case aluADD:
		r, sf, zf, hf, pf, cf := add8(a, v, false)
		p.regs[RegA] = r
		p.sf, p.zf, p.hf, p.pf, p.cf = sf, zf, hf, pf, cf
	case aluADC:
		r, sf, zf, hf, pf, cf := add8(a, v, p.cf)
		p.regs[RegA] = r
		p.sf, p.zf, p.hf, p.pf, p.cf = sf, zf, hf, pf, cf
	case aluSUB:
		r, sf, zf, hf, pf, cf := sub8(a, v, false)
		p.regs[RegA] = r
		p.sf, p.zf, p.hf, p.pf, p.cf = sf, zf, hf, pf, cf
	case aluSBB:
		r, sf, zf, hf, pf, cf := sub8(a, v, p.cf)
		p.regs[RegA] = r
		p.sf, p.zf, p.hf, p.pf, p.cf = sf, zf, hf, pf, cf
	case aluANA:
		r, sf, zf, hf, pf := ana8(a, v)
		p.regs[RegA] = r
		p.sf, p.zf, p.hf, p.pf, p.cf = sf, zf, hf, pf, false
	case aluXRA:
		r, sf, zf, pf := xra8(a, v)
		p.regs[RegA] = r
		p.sf, p.zf, p.hf, p.pf, p.cf = sf, zf, false, pf, false
	case aluORA:
		r, sf, zf, pf := ora8(a, v)
		p.regs[RegA] = r
		p.sf, p.zf, p.hf, p.pf, p.cf = sf, zf, false, pf, false
	case aluCMP:
		_, sf, zf, hf, pf, cf := sub8(a, v, false)
		p.sf, p.zf, p.hf, p.pf, p.cf = sf, zf, hf, pf, cf
	}
}

// dispatchBlock0 handles opcodes 0x00-0x3F. The low 3 bits select an
// operation family; for the families that need a 4th bit to disambiguate
// (LXI/DAD, the store/load groups, INX/DCX, and the rotate/misc group)
// bit 3 of the opcode makes the choice and bits 4-5 select the register
// pair or row variant.
func (p *Chip) dispatchBlock0(op uint8) error {
	low3 := op & 0x07
	pp := (op >> 4) & 0x3
	bit3 := op&0x08 != 0

	switch low3 {
	case 0:
		p.iNOP()
	case 1:
		if !bit3 {
			p.iLXI(pp)
		} else {
			p.iDAD(pp)
		}
	case 2:
		if !bit3 {
			p.iStoreGroup(pp)
		} else {
			p.iLoadGroup(pp)
		}
	case 3:
		if !bit3 {
			p.iINX(pp)
		} else {
			p.iDCX(pp)
		}
	case 4:
		p.iINR((op >> 3) & 0x7)
	case 5:
		p.iDCR((op >> 3) & 0x7)
	case 6:
		p.iMVI((op >> 3) & 0x7)
	case 7:
		if !bit3 {
			p.iRotateGroup(pp)
		} else {
			p.iMiscGroup(pp)
		}
	default:
		return ErrUnreachableOpcode
	}
	return nil
}

// iNOP covers the real NOP (0x00) and the undocumented aliases
// 0x08/0x10/0x18/0x20/0x28/0x30/0x38, all of which share low3==0.
func (p *Chip) iNOP() {
	p.cpuCycles, p.vcycles = 4, vcyclesFrom(4)
}

func (p *Chip) iLXI(pp uint8) {
	p.setRP(pp, p.nextPCWord())
	p.cpuCycles, p.vcycles = 10, vcyclesFrom(4, 3, 3)
}

func (p *Chip) iDAD(pp uint8) {
	result, cf := dad16(p.HL(), p.rp(pp))
	p.setHL(result)
	p.cf = cf
	p.cpuCycles, p.vcycles = 10, vcyclesFrom(4, 3, 3)
}

func (p *Chip) iINX(pp uint8) {
	p.setRP(pp, p.rp(pp)+1)
	p.cpuCycles, p.vcycles = 5, vcyclesFrom(5)
}

func (p *Chip) iDCX(pp uint8) {
	p.setRP(pp, p.rp(pp)-1)
	p.cpuCycles, p.vcycles = 5, vcyclesFrom(5)
}

// iStoreGroup handles STAX B/D, SHLD, and STA (bit3==0, low3==2).
func (p *Chip) iStoreGroup(pp uint8) {
	switch pp {
	case 0:
		p.memWrite(p.BC(), p.regs[RegA])
		p.cpuCycles, p.vcycles = 7, vcyclesFrom(4, 3)
	case 1:
		p.memWrite(p.DE(), p.regs[RegA])
		p.cpuCycles, p.vcycles = 7, vcyclesFrom(4, 3)
	case 2:
		addr := p.nextPCWord()
		p.writeWord(addr, p.HL(), false)
		p.cpuCycles, p.vcycles = 16, vcyclesFrom(4, 3, 3, 3, 3)
	case 3:
		addr := p.nextPCWord()
		p.memWrite(addr, p.regs[RegA])
		p.cpuCycles, p.vcycles = 13, vcyclesFrom(4, 3, 3, 3)
	}
}

// iLoadGroup handles LDAX B/D, LHLD, and LDA (bit3==1, low3==2).
func (p *Chip) iLoadGroup(pp uint8) {
	switch pp {
	case 0:
		p.regs[RegA] = p.memRead(p.BC())
		p.cpuCycles, p.vcycles = 7, vcyclesFrom(4, 3)
	case 1:
		p.regs[RegA] = p.memRead(p.DE())
		p.cpuCycles, p.vcycles = 7, vcyclesFrom(4, 3)
	case 2:
		addr := p.nextPCWord()
		p.setHL(p.readWord(addr, false))
		p.cpuCycles, p.vcycles = 16, vcyclesFrom(4, 3, 3, 3, 3)
	case 3:
		addr := p.nextPCWord()
		p.regs[RegA] = p.memRead(addr)
		p.cpuCycles, p.vcycles = 13, vcyclesFrom(4, 3, 3, 3)
	}
}

func (p *Chip) iINR(r uint8) {
	result, sf, zf, hf, pf := inr8(p.reg(r))
	p.setReg(r, result)
	p.sf, p.zf, p.hf, p.pf = sf, zf, hf, pf
	if r == RegM {
		p.cpuCycles, p.vcycles = 10, vcyclesFrom(4, 3, 3)
		return
	}
	p.cpuCycles, p.vcycles = 5, vcyclesFrom(5)
}

func (p *Chip) iDCR(r uint8) {
	result, sf, zf, hf, pf := dcr8(p.reg(r))
	p.setReg(r, result)
	p.sf, p.zf, p.hf, p.pf = sf, zf, hf, pf
	if r == RegM {
		p.cpuCycles, p.vcycles = 10, vcyclesFrom(4, 3, 3)
		return
	}
	p.cpuCycles, p.vcycles = 5, vcyclesFrom(5)
}

func (p *Chip) iMVI(r uint8) {
	v := p.nextPCByte()
	p.setReg(r, v)
	if r == RegM {
		p.cpuCycles, p.vcycles = 10, vcyclesFrom(4, 3, 3)
		return
	}
	p.cpuCycles, p.vcycles = 7, vcyclesFrom(4, 3)
}

// iRotateGroup handles RLC/RAL/DAA/STC (bit3==0, low3==7).
func (p *Chip) iRotateGroup(pp uint8) {
	p.cpuCycles, p.vcycles = 4, vcyclesFrom(4)
	switch pp {
	case 0:
		r, cf := rlc(p.regs[RegA])
		p.regs[RegA], p.cf = r, cf
	case 1:
		r, cf := ral(p.regs[RegA], p.cf)
		p.regs[RegA], p.cf = r, cf
	case 2:
		r, sf, zf, hf, pf, cf := daa(p.regs[RegA], p.hf, p.cf)
		p.regs[RegA] = r
		p.sf, p.zf, p.hf, p.pf, p.cf = sf, zf, hf, pf, cf
	case 3:
		p.cf = true
	}
}

// iMiscGroup handles RRC/RAR/CMA/CMC (bit3==1, low3==7).
func (p *Chip) iMiscGroup(pp uint8) {
	p.cpuCycles, p.vcycles = 4, vcyclesFrom(4)
	switch pp {
	case 0:
		r, cf := rrc(p.regs[RegA])
		p.regs[RegA], p.cf = r, cf
	case 1:
		r, cf := rar(p.regs[RegA], p.cf)
		p.regs[RegA], p.cf = r, cf
	case 2:
		p.regs[RegA] = ^p.regs[RegA]
	case 3:
		p.cf = !p.cf
	}
}

// dispatchBlock3 handles opcodes 0xC0-0xFF: conditional and
// unconditional control transfer, stack operations, immediate ALU, RST,
// and the handful of opcodes (XTHL, XCHG, PCHL, SPHL, DI, EI, IN, OUT)
// that ride along in the same bit fields.
func (p *Chip) dispatchBlock3(op uint8) error {
	low3 := op & 0x07
	pp := (op >> 4) & 0x3
	bit3 := op&0x08 != 0

	switch low3 {
	case 0:
		p.iRcc(op)
	case 1:
		if !bit3 {
			p.iPop(pp)
		} else {
			p.iRetFamily(pp)
		}
	case 2:
		p.iJcc(op)
	case 3:
		if !bit3 {
			p.iControlGroupA(pp)
		} else {
			p.iControlGroupB(pp)
		}
	case 4:
		p.iCcc(op)
	case 5:
		if !bit3 {
			p.iPush(pp)
		} else {
			p.iCALL()
		}
	case 6:
		v := p.nextPCByte()
		p.aluOp((op>>3)&0x7, v)
		p.cpuCycles, p.vcycles = 7, vcyclesFrom(4, 3)
	case 7:
		p.iRST((op >> 3) & 0x7)
	default:
		return ErrUnreachableOpcode
	}
	return nil
}

// iRcc handles RNZ/RZ/RNC/RC/RPO/RPE/RP/RM.
func (p *Chip) iRcc(op uint8) {
	if p.condTaken(op) {
		p.pc = p.pop()
		p.cpuCycles, p.vcycles = 11, vcyclesFrom(5, 3, 3)
		return
	}
	p.cpuCycles, p.vcycles = 5, vcyclesFrom(5)
}

// iJcc handles JNZ/JZ/JNC/JC/JPO/JPE/JP/JM. The 16-bit operand is always
// fetched so PC advances regardless of whether the jump is taken.
func (p *Chip) iJcc(op uint8) {
	target := p.nextPCWord()
	if p.condTaken(op) {
		p.pc = target
	}
	p.cpuCycles, p.vcycles = 10, vcyclesFrom(4, 3, 3)
}

// iCcc handles CNZ/CZ/CNC/CC/CPO/CPE/CP/CM.
func (p *Chip) iCcc(op uint8) {
	target := p.nextPCWord()
	if p.condTaken(op) {
		p.push(p.pc)
		p.pc = target
		p.cpuCycles, p.vcycles = 17, vcyclesFrom(5, 3, 3, 3, 3)
		return
	}
	p.cpuCycles, p.vcycles = 11, vcyclesFrom(4, 3, 4)
}

// iCALL handles the unconditional CALL opcode 0xCD and its undocumented
// aliases 0xDD, 0xED, 0xFD.
func (p *Chip) iCALL() {
	target := p.nextPCWord()
	p.push(p.pc)
	p.pc = target
	p.cpuCycles, p.vcycles = 17, vcyclesFrom(5, 3, 3, 3, 3)
}

// iPop handles POP B/D/H/PSW.
func (p *Chip) iPop(pp uint8) {
	w := p.pop()
	switch pp {
	case 0:
		p.setBC(w)
	case 1:
		p.setDE(w)
	case 2:
		p.setHL(w)
	case 3:
		p.regs[RegA] = uint8(w >> 8)
		p.setFlagsByte(uint8(w))
	}
	p.cpuCycles, p.vcycles = 10, vcyclesFrom(4, 3, 3)
}

// iPush handles PUSH B/D/H/PSW.
func (p *Chip) iPush(pp uint8) {
	var w uint16
	switch pp {
	case 0:
		w = p.BC()
	case 1:
		w = p.DE()
	case 2:
		w = p.HL()
	case 3:
		w = pair(p.regs[RegA], p.flagsByte())
	}
	p.push(w)
	p.cpuCycles, p.vcycles = 11, vcyclesFrom(5, 3, 3)
}

// iRetFamily handles the four opcodes sharing low3==1, bit3==1: RET
// (0xC9), its undocumented alias (0xD9), PCHL (0xE9), and SPHL (0xF9).
func (p *Chip) iRetFamily(pp uint8) {
	switch pp {
	case 0, 1:
		p.pc = p.pop()
		p.cpuCycles, p.vcycles = 10, vcyclesFrom(4, 3, 3)
	case 2:
		p.pc = p.HL()
		p.cpuCycles, p.vcycles = 5, vcyclesFrom(5)
	case 3:
		p.sp = p.HL()
		p.cpuCycles, p.vcycles = 5, vcyclesFrom(5)
	}
}

// iControlGroupA handles the four opcodes sharing low3==3, bit3==0:
// JMP (0xC3), OUT d8 (0xD3), XTHL (0xE3), DI (0xF3).
func (p *Chip) iControlGroupA(pp uint8) {
	switch pp {
	case 0:
		p.pc = p.nextPCWord()
		p.cpuCycles, p.vcycles = 10, vcyclesFrom(4, 3, 3)
	case 1:
		port := p.nextPCByte()
		p.io.Output(port, p.regs[RegA])
		p.cpuCycles, p.vcycles = 10, vcyclesFrom(4, 3, 3)
	case 2:
		p.iXTHL()
	case 3:
		p.iDI()
	}
}

// iControlGroupB handles the four opcodes sharing low3==3, bit3==1: the
// undocumented JMP alias (0xCB), IN d8 (0xDB), XCHG (0xEB), EI (0xFB).
func (p *Chip) iControlGroupB(pp uint8) {
	switch pp {
	case 0:
		p.pc = p.nextPCWord()
		p.cpuCycles, p.vcycles = 10, vcyclesFrom(4, 3, 3)
	case 1:
		port := p.nextPCByte()
		p.regs[RegA] = p.io.Input(port)
		p.cpuCycles, p.vcycles = 10, vcyclesFrom(4, 3, 3)
	case 2:
		p.iXCHG()
	case 3:
		p.iEI()
	}
}

func (p *Chip) iXTHL() {
	w := p.readWord(p.sp, true)
	p.writeWord(p.sp, p.HL(), true)
	p.setHL(w)
	p.cpuCycles, p.vcycles = 18, vcyclesFrom(4, 3, 3, 3, 5)
}

func (p *Chip) iXCHG() {
	hl, de := p.HL(), p.DE()
	p.setHL(de)
	p.setDE(hl)
	p.cpuCycles, p.vcycles = 4, vcyclesFrom(4)
}

// iDI disables interrupts immediately and cancels any pending EI delay.
func (p *Chip) iDI() {
	p.iff = false
	p.io.Interrupt(false)
	p.iffPending = 0
	p.cpuCycles, p.vcycles = 4, vcyclesFrom(4)
}

// iEI arms the one-instruction delay before interrupts actually become
// enabled; tickEIPending (cpu.go) carries it out.
func (p *Chip) iEI() {
	p.iffPending = 2
	p.cpuCycles, p.vcycles = 4, vcyclesFrom(4)
}

// iRST pushes PC and jumps to n*8.
func (p *Chip) iRST(n uint8) {
	p.push(p.pc)
	p.pc = uint16(n) * 8
	p.cpuCycles, p.vcycles = 11, vcyclesFrom(5, 3, 3)
}
