package cpu

// Flag arithmetic primitives. Every ALU-writing instruction computes its
// result and flag outcomes through one of these pure functions; none of
// them touch Chip state directly, which keeps the half-carry/parity
// bookkeeping (the genuinely non-obvious part of an 8080 core) testable
// in isolation from dispatch.
//
// The half-carry tables are the Go realization of the bit-3 overflow
// trick real 8080 silicon and most software emulators use instead of
// nibble arithmetic; the construction mirrors the sz53/half-carry lookup
// tables a Z80 core builds for the same purpose, generalized to the
// 8080's simpler (no N, no 5/3) flag set.

// parityTable[v] is true if v has an even number of set bits.
var parityTable [256]bool

// halfCarryAddTable and halfCarrySubTable are indexed by the 3-bit value
// (A bit3, operand bit3, result bit3) packed as described in
// halfCarryIndex. halfCarryAddTable gives HF directly for the ADD
// family; halfCarrySubTable gives the complement of HF for the SUB
// family (HF = !halfCarrySubTable[idx]).
var halfCarryAddTable = [8]bool{false, false, true, false, true, false, true, true}
var halfCarrySubTable = [8]bool{false, true, true, true, false, false, false, true}

func init() {
	for i := 0; i < 256; i++ {
		bits := 0
		for v := i; v != 0; v &= v - 1 {
			bits++
		}
		parityTable[i] = bits%2 == 0
	}
}

// halfCarryIndex packs bit 3 of a, v, and result into a 3-bit table
// index via ((a&0x88)>>1)|((v&0x88)>>2)|((result&0x88)>>3) (the bit-7
// copies land above bit 2 and are discarded by the final 3-bit mask).
func halfCarryIndex(a, v, result uint8) int {
	return int(((a&0x88)>>1)|((v&0x88)>>2)|((result&0x88)>>3)) & 0x7
}

// szp computes the sign, zero, and parity flags shared by every
// accumulator-writing ALU op.
func szp(result uint8) (sf, zf, pf bool) {
	return result&0x80 != 0, result == 0, parityTable[result]
}

// inr8 computes INR r: result = r+1 mod 256. Does not affect CF.
func inr8(v uint8) (result uint8, sf, zf, hf, pf bool) {
	result = v + 1
	sf, zf, pf = szp(result)
	hf = result&0x0F == 0
	return
}

// dcr8 computes DCR r: result = r-1 mod 256. Does not affect CF.
func dcr8(v uint8) (result uint8, sf, zf, hf, pf bool) {
	result = v - 1
	sf, zf, pf = szp(result)
	hf = result&0x0F != 0x0F
	return
}

// addSub8 is the shared core of ADD/ADC/SUB/SBB/CMP: w is the
// already-computed 9-bit-plus-carry intermediate result (A+v+c for the
// ADD family, A-v-c masked to 9 bits for the SUB family) and sub selects which
// half-carry table applies.
func addSub8(a, v uint8, w int, sub bool) (result uint8, sf, zf, hf, pf, cf bool) {
	result = uint8(w & 0xFF)
	sf, zf, pf = szp(result)
	cf = w&0x100 != 0
	idx := halfCarryIndex(a, v, result)
	if sub {
		hf = !halfCarrySubTable[idx]
	} else {
		hf = halfCarryAddTable[idx]
	}
	return
}

// add8 computes the ADD/ADC family: A + v + carryIn.
func add8(a, v uint8, carryIn bool) (result uint8, sf, zf, hf, pf, cf bool) {
	c := 0
	if carryIn {
		c = 1
	}
	return addSub8(a, v, int(a)+int(v)+c, false)
}

// sub8 computes the SUB/SBB/CMP family: A - v - borrowIn, masked to 9
// bits before extracting CF (so a borrow shows up as bit 8 set, matching
// the ADD family's carry-out convention).
func sub8(a, v uint8, borrowIn bool) (result uint8, sf, zf, hf, pf, cf bool) {
	b := 0
	if borrowIn {
		b = 1
	}
	w := (int(a) - int(v) - b) & 0x1FF
	return addSub8(a, v, w, true)
}

// ana8 computes ANA: result = A & v. CF is always cleared; HF is set
// whenever either operand has bit 3 set (a quirk of the real 8080's
// internal AND gating that DAA-adjacent code relies on).
func ana8(a, v uint8) (result uint8, sf, zf, hf, pf bool) {
	result = a & v
	sf, zf, pf = szp(result)
	hf = (a|v)&0x08 != 0
	return
}

// xra8 computes XRA: result = A ^ v. CF and HF are always cleared.
func xra8(a, v uint8) (result uint8, sf, zf, pf bool) {
	result = a ^ v
	sf, zf, pf = szp(result)
	return
}

// ora8 computes ORA: result = A | v. CF and HF are always cleared.
func ora8(a, v uint8) (result uint8, sf, zf, pf bool) {
	result = a | v
	sf, zf, pf = szp(result)
	return
}

// rlc rotates a left circular: new CF is the old bit 7.
func rlc(a uint8) (result uint8, cf bool) {
	cf = a&0x80 != 0
	result = a<<1 | a>>7
	return
}

// rrc rotates a right circular: new CF is the old bit 0.
func rrc(a uint8) (result uint8, cf bool) {
	cf = a&0x01 != 0
	result = a>>1 | a<<7
	return
}

// ral rotates a left through the carry flag.
func ral(a uint8, carryIn bool) (result uint8, cf bool) {
	cf = a&0x80 != 0
	var in uint8
	if carryIn {
		in = 1
	}
	result = a<<1 | in
	return
}

// rar rotates a right through the carry flag.
func rar(a uint8, carryIn bool) (result uint8, cf bool) {
	cf = a&0x01 != 0
	var in uint8
	if carryIn {
		in = 0x80
	}
	result = a>>1 | in
	return
}

// dad16 computes DAD: HL + rp, masked to 16 bits. Only CF is affected.
func dad16(hl, rp uint16) (result uint16, cf bool) {
	w := uint32(hl) + uint32(rp)
	return uint16(w), w&0x10000 != 0
}

// daa computes the decimal-adjust-accumulator algorithm: given the
// accumulator and its current HF/CF, returns the adjusted accumulator
// and the full flag set DAA leaves behind. Implemented as a literal ADD
// of the computed correction amount so the ordinary add8 half-carry/
// parity logic stays the single source of truth, with CF patched
// afterward per the datasheet's correction rule.
func daa(a uint8, hf, cf bool) (result uint8, sf, zf, hfOut, pf, cfOut bool) {
	add := uint8(0)
	carry := cf
	if hf || a&0x0F > 9 {
		add |= 0x06
	}
	hi := a >> 4
	lo := a & 0x0F
	if cf || hi > 9 || (hi >= 9 && lo > 9) {
		add |= 0x60
		carry = true
	}
	result, sf, zf, hfOut, pf, _ = add8(a, add, false)
	// Recomputes PF from the adjusted A (redundant with add8's own szp
	// call above, but made explicit since DAA is the one place the 8080
	// datasheet calls it out by name) and then overwrites CF with the
	// carry computed above instead of add8's.
	sf, zf, pf = szp(result)
	cfOut = carry
	return
}
