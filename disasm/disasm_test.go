package disasm

import (
	"testing"

	"github.com/go8080/vm80/memory"
)

// TestTableIsExhaustive walks every opcode value and checks that Lookup
// returns a length in the only three shapes the 8080 encoding produces:
// one, two, or three bytes.
func TestTableIsExhaustive(t *testing.T) {
	for op := 0; op < 256; op++ {
		info := Lookup(uint8(op))
		if info.Len < 1 || info.Len > 3 {
			t.Errorf("opcode %#02x: Len = %d, want 1..3", op, info.Len)
		}
		if info.Mnemonic == "" || info.Mnemonic == "???" {
			t.Errorf("opcode %#02x: no mnemonic decoded", op)
		}
	}
}

// TestFormatAdvancesByOperandLength checks that Format's reported length
// is the expected instruction length for a representative opcode of each
// shape, and that the mnemonic or substituted operand appears in the line.
func TestFormatAdvancesByOperandLength(t *testing.T) {
	tests := []struct {
		name    string
		program []byte
		wantLen int
		wantSub string // substring expected in the formatted line
	}{
		{name: "implied (HLT)", program: []byte{0x76}, wantLen: 1, wantSub: "HLT"},
		{name: "MVI d8", program: []byte{0x3E, 0x42}, wantLen: 2, wantSub: "42"},
		{name: "LXI d16", program: []byte{0x21, 0x34, 0x12}, wantLen: 3, wantSub: "1234"},
		{name: "JMP a16", program: []byte{0xC3, 0x00, 0x01}, wantLen: 3, wantSub: "0100"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			mem := memory.NewFlatRAM(false, 0x00)
			mem.LoadAt(0, tc.program)
			line, n := Format(0, mem)
			if n != tc.wantLen {
				t.Errorf("length = %d, want %d", n, tc.wantLen)
			}
			if !contains(line, tc.wantSub) {
				t.Errorf("line = %q, want substring %q", line, tc.wantSub)
			}
		})
	}
}

func contains(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}
