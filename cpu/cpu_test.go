package cpu

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"

	"github.com/go8080/vm80/io"
	"github.com/go8080/vm80/memory"
)

// asm assembles a tiny raw byte program into a fresh FlatRAM at address
// 0, wires up a Chip with a NullDevice, and returns both ready to step.
// Most tests here build their program as a literal []byte rather than
// going through the asm package, poking raw opcode bytes directly into
// a flat memory harness.
func asm(t *testing.T, program []byte) (*Chip, *memory.FlatRAM) {
	t.Helper()
	mem := memory.NewFlatRAM(false, 0x00)
	mem.LoadAt(0, program)
	return New(mem, io.NullDevice{}), mem
}

func step(t *testing.T, p *Chip) int {
	t.Helper()
	cycles, err := p.Instruction()
	if err != nil {
		t.Fatalf("Instruction() returned unexpected error: %v\nstate: %s", err, spew.Sdump(p))
	}
	return cycles
}

func TestNOPFamily(t *testing.T) {
	// Every opcode with low3==0, including the undocumented aliases, must
	// behave identically to the real NOP: 4 T-states, PC+1, no state change.
	for _, op := range []uint8{0x00, 0x08, 0x10, 0x18, 0x20, 0x28, 0x30, 0x38} {
		op := op
		t.Run(spew.Sprintf("%#02x", op), func(t *testing.T) {
			p, _ := asm(t, []byte{op})
			cycles := step(t, p)
			if cycles != 4 {
				t.Errorf("cycles = %d, want 4", cycles)
			}
			if p.PC() != 1 {
				t.Errorf("PC = %#04x, want 0x0001", p.PC())
			}
		})
	}
}

func TestMVIAndMOV(t *testing.T) {
	// MVI B,0x42 ; MOV A,B
	p, _ := asm(t, []byte{0x06, 0x42, 0x78})
	if cycles := step(t, p); cycles != 7 {
		t.Errorf("MVI cycles = %d, want 7", cycles)
	}
	if p.B() != 0x42 {
		t.Errorf("B = %#02x, want 0x42", p.B())
	}
	if cycles := step(t, p); cycles != 5 {
		t.Errorf("MOV cycles = %d, want 5", cycles)
	}
	if p.A() != 0x42 {
		t.Errorf("A = %#02x, want 0x42", p.A())
	}
}

func TestMOVThroughMemory(t *testing.T) {
	// LXI H,0x2000 ; MVI M,0x99 ; MOV A,M
	p, mem := asm(t, []byte{0x21, 0x00, 0x20, 0x36, 0x99, 0x7E})
	step(t, p)
	if cycles := step(t, p); cycles != 10 {
		t.Errorf("MVI M cycles = %d, want 10", cycles)
	}
	if got := mem.Read(0x2000, false); got != 0x99 {
		t.Errorf("memory[0x2000] = %#02x, want 0x99", got)
	}
	if cycles := step(t, p); cycles != 7 {
		t.Errorf("MOV A,M cycles = %d, want 7", cycles)
	}
	if p.A() != 0x99 {
		t.Errorf("A = %#02x, want 0x99", p.A())
	}
}

func TestADDFlags(t *testing.T) {
	tests := []struct {
		name     string
		a, b     uint8
		wantA    uint8
		sf, zf, hf, pf, cf bool
	}{
		{name: "0x0F+0x01 half carry", a: 0x0F, b: 0x01, wantA: 0x10, hf: true, pf: false},
		{name: "overflow to zero with carry", a: 0xFF, b: 0x01, wantA: 0x00, zf: true, hf: true, cf: true, pf: true},
		{name: "sign set", a: 0x70, b: 0x10, wantA: 0x80, sf: true, hf: false, pf: false},
		{name: "even parity result", a: 0x03, b: 0x00, wantA: 0x03, pf: true},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			// MVI A,a ; MVI B,b ; ADD B
			p, _ := asm(t, []byte{0x3E, tc.a, 0x06, tc.b, 0x80})
			step(t, p)
			step(t, p)
			step(t, p)
			if p.A() != tc.wantA {
				t.Errorf("A = %#02x, want %#02x", p.A(), tc.wantA)
			}
			if diff := deep.Equal(
				[]bool{p.SF(), p.ZF(), p.HF(), p.PF(), p.CF()},
				[]bool{tc.sf, tc.zf, tc.hf, tc.pf, tc.cf},
			); diff != nil {
				t.Errorf("flags [S Z H P C] diff: %v", diff)
			}
		})
	}
}

func TestDAABCDAddition(t *testing.T) {
	// The canonical DAA example: 0x15 (BCD 15) + 0x27 (BCD 27) = 0x42 (BCD 42).
	// MVI A,0x15 ; MVI B,0x27 ; ADD B ; DAA
	p, _ := asm(t, []byte{0x3E, 0x15, 0x06, 0x27, 0x80, 0x27})
	step(t, p)
	step(t, p)
	step(t, p)
	if cycles := step(t, p); cycles != 4 {
		t.Errorf("DAA cycles = %d, want 4", cycles)
	}
	if p.A() != 0x42 {
		t.Errorf("A = %#02x, want 0x42", p.A())
	}
	if p.CF() {
		t.Error("CF set, want clear")
	}
}

func TestINRDoesNotAffectCarry(t *testing.T) {
	// STC ; MVI A,0xFF ; INR A
	p, _ := asm(t, []byte{0x37, 0x3E, 0xFF, 0x3C})
	step(t, p)
	step(t, p)
	step(t, p)
	if !p.CF() {
		t.Error("CF cleared by INR, want preserved from STC")
	}
	if !p.ZF() || p.A() != 0x00 {
		t.Errorf("A = %#02x ZF=%t, want A=0x00 ZF=true", p.A(), p.ZF())
	}
}

func TestPushPopPSW(t *testing.T) {
	// MVI A,0x81 ; STC ; PUSH PSW ; POP PSW reconstructs A and the flag byte.
	p, _ := asm(t, []byte{0x3E, 0x81, 0x37, 0xF5, 0xF1})
	step(t, p)
	step(t, p)
	if cycles := step(t, p); cycles != 11 {
		t.Errorf("PUSH PSW cycles = %d, want 11", cycles)
	}
	wantA, wantCF := p.A(), p.CF()
	p.regs[RegA] = 0
	p.cf = false
	if cycles := step(t, p); cycles != 10 {
		t.Errorf("POP PSW cycles = %d, want 10", cycles)
	}
	if p.A() != wantA || p.CF() != wantCF {
		t.Errorf("after POP PSW A=%#02x CF=%t, want A=%#02x CF=%t", p.A(), p.CF(), wantA, wantCF)
	}
}

func TestFlagsBytePSWLayout(t *testing.T) {
	p, _ := asm(t, nil)
	p.sf, p.zf, p.hf, p.pf, p.cf = true, true, true, true, true
	b := p.flagsByte()
	if b&flagBitAlwaysOne == 0 {
		t.Error("bit 1 not forced to 1")
	}
	if b&0x28 != 0 {
		t.Errorf("bits 3/5 not forced to 0, got %#02x", b)
	}
}

func TestCallRetStack(t *testing.T) {
	// LXI SP,0x2100 ; CALL 0x0007 ; HLT ; (at 7) RET
	p, mem := asm(t, []byte{0x31, 0x00, 0x21, 0xCD, 0x07, 0x00, 0x76, 0xC9})
	step(t, p)
	if cycles := step(t, p); cycles != 17 {
		t.Errorf("CALL cycles = %d, want 17", cycles)
	}
	if p.PC() != 7 {
		t.Errorf("PC after CALL = %#04x, want 0x0007", p.PC())
	}
	if p.SP() != 0x20FE {
		t.Errorf("SP after CALL = %#04x, want 0x20FE", p.SP())
	}
	if got := mem.Read(0x20FE, true); got != 0x06 {
		t.Errorf("return address low byte = %#02x, want 0x06", got)
	}
	if cycles := step(t, p); cycles != 10 {
		t.Errorf("RET cycles = %d, want 10", cycles)
	}
	if p.PC() != 6 {
		t.Errorf("PC after RET = %#04x, want 0x0006", p.PC())
	}
	if p.SP() != 0x2100 {
		t.Errorf("SP after RET = %#04x, want 0x2100", p.SP())
	}
}

func TestConditionalJumpNotTaken(t *testing.T) {
	// XRA A sets ZF ; JNZ 0x0010 should not be taken.
	p, _ := asm(t, []byte{0xAF, 0xC2, 0x10, 0x00})
	step(t, p)
	if cycles := step(t, p); cycles != 10 {
		t.Errorf("JNZ cycles = %d, want 10", cycles)
	}
	if p.PC() != 4 {
		t.Errorf("PC = %#04x, want 0x0004 (fallthrough)", p.PC())
	}
}

func TestConditionalCallTaken(t *testing.T) {
	// LXI SP,0x2100 ; XRA A (ZF=1) ; CZ 0x0008
	p, _ := asm(t, []byte{0x31, 0x00, 0x21, 0xAF, 0xCC, 0x08, 0x00})
	step(t, p)
	step(t, p)
	if cycles := step(t, p); cycles != 17 {
		t.Errorf("CZ (taken) cycles = %d, want 17", cycles)
	}
	if p.PC() != 8 {
		t.Errorf("PC = %#04x, want 0x0008", p.PC())
	}
}

func TestRST(t *testing.T) {
	// LXI SP,0x2100 ; RST 5 should push PC and jump to 0x28.
	p, _ := asm(t, []byte{0x31, 0x00, 0x21, 0xEF})
	step(t, p)
	if cycles := step(t, p); cycles != 11 {
		t.Errorf("RST cycles = %d, want 11", cycles)
	}
	if p.PC() != 0x28 {
		t.Errorf("PC = %#04x, want 0x0028", p.PC())
	}
}

func TestXCHGAndXTHL(t *testing.T) {
	// LXI H,0x1234 ; LXI D,0x5678 ; XCHG ; LXI SP,0x2100 ; XTHL
	p, mem := asm(t, []byte{0x21, 0x34, 0x12, 0x11, 0x78, 0x56, 0xEB, 0x31, 0x00, 0x21, 0xE3})
	mem.Write(0x2100, 0xCD, true)
	mem.Write(0x2101, 0xAB, true)
	step(t, p)
	step(t, p)
	step(t, p)
	if p.HL() != 0x5678 || p.DE() != 0x1234 {
		t.Errorf("after XCHG HL=%#04x DE=%#04x, want HL=0x5678 DE=0x1234", p.HL(), p.DE())
	}
	step(t, p)
	if cycles := step(t, p); cycles != 18 {
		t.Errorf("XTHL cycles = %d, want 18", cycles)
	}
	if p.HL() != 0xABCD {
		t.Errorf("after XTHL HL=%#04x, want 0xABCD", p.HL())
	}
	if lo, hi := mem.Read(0x2100, true), mem.Read(0x2101, true); lo != 0x78 || hi != 0x56 {
		t.Errorf("after XTHL stack word = %#02x%02x, want 0x5678", hi, lo)
	}
}

func TestHLTStallsPC(t *testing.T) {
	p, _ := asm(t, []byte{0x76})
	for i := 0; i < 3; i++ {
		if cycles := step(t, p); cycles != 7 {
			t.Errorf("HLT cycles = %d, want 7", cycles)
		}
		if p.PC() != 0 {
			t.Errorf("PC after HLT = %#04x, want 0x0000 (stalled)", p.PC())
		}
	}
}

func TestEIDelaysOneInstruction(t *testing.T) {
	var notified []bool
	dev := &recordingDevice{onInterrupt: func(enabled bool) { notified = append(notified, enabled) }}
	mem := memory.NewFlatRAM(false, 0x00)
	// EI ; NOP ; NOP
	mem.LoadAt(0, []byte{0xFB, 0x00, 0x00})
	p := New(mem, dev)

	step(t, p)
	if p.IFF() {
		t.Error("IFF set immediately after EI, want delayed by one instruction")
	}
	step(t, p)
	if !p.IFF() {
		t.Error("IFF not set after the instruction following EI")
	}
	if len(notified) != 1 || !notified[0] {
		t.Errorf("io.Interrupt notifications = %v, want exactly one true", notified)
	}
}

func TestDIClearsIFFImmediately(t *testing.T) {
	mem := memory.NewFlatRAM(false, 0x00)
	// EI ; DI ; NOP
	mem.LoadAt(0, []byte{0xFB, 0xF3, 0x00})
	p := New(mem, io.NullDevice{})
	step(t, p)
	step(t, p)
	if p.IFF() {
		t.Error("IFF set, want DI to cancel the pending EI before it lands")
	}
	step(t, p)
	if p.IFF() {
		t.Error("IFF set after the DI window, want it to stay cleared")
	}
}

func TestUndocumentedOpcodeAliases(t *testing.T) {
	tests := []struct {
		op     uint8
		mirror uint8
	}{
		{op: 0xCB, mirror: 0xC3}, // JMP alias
		{op: 0xD9, mirror: 0xC9}, // RET alias
		{op: 0xDD, mirror: 0xCD}, // CALL alias
		{op: 0xED, mirror: 0xCD},
		{op: 0xFD, mirror: 0xCD},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(spew.Sprintf("%#02x", tc.op), func(t *testing.T) {
			pAlias, _ := asm(t, []byte{tc.op, 0x10, 0x20, 0x76})
			pAlias.Jump(0)
			pAlias.sp = 0x2100
			pMirror, _ := asm(t, []byte{tc.mirror, 0x10, 0x20, 0x76})
			pMirror.Jump(0)
			pMirror.sp = 0x2100

			cAlias := step(t, pAlias)
			cMirror := step(t, pMirror)
			if cAlias != cMirror {
				t.Errorf("cycles = %d, want %d (matching %#02x)", cAlias, cMirror, tc.mirror)
			}
			if pAlias.PC() != pMirror.PC() {
				t.Errorf("PC = %#04x, want %#04x", pAlias.PC(), pMirror.PC())
			}
		})
	}
}

// recordingDevice lets tests observe Interrupt() notifications without
// pulling in the full io.Console peripheral.
type recordingDevice struct {
	io.NullDevice
	onInterrupt func(enabled bool)
}

func (d *recordingDevice) Interrupt(enabled bool) {
	if d.onInterrupt != nil {
		d.onInterrupt(enabled)
	}
}
