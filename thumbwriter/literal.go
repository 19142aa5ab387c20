package thumbwriter

import (
	"encoding/binary"
	"errors"
)

type literalRef struct {
	value   uint32
	insnOff int
	refPC   uint64
}

// isNarrowLiteralLoad reports whether insn is the narrow (T1) ldr Rd, [pc,
// #imm] placeholder, the one case that forces the pool to start on a
// 4-byte-aligned pc.
func isNarrowLiteralLoad(insn uint16) bool {
	return insn&0xF800 == 0x4800
}

func (w *Writer) addLiteralRef(value uint32) error {
	if len(w.literalRefs) >= MaxLiteralRefs {
		return errors.New("thumbwriter: literal reference table full")
	}
	w.literalRefs = append(w.literalRefs, literalRef{value: value, insnOff: w.code, refPC: w.pc + 4})
	return nil
}

// PutLdrRegU32 appends a placeholder ldr Rd, [pc, #imm] — narrow if reg is a
// low register, wide otherwise — and records a pending literal-pool
// reference. The displacement field is left as zero and patched by Flush.
func (w *Writer) PutLdrRegU32(reg Reg, val uint32) error {
	ri := Describe(reg)

	if err := w.addLiteralRef(val); err != nil {
		return err
	}

	if ri.IsLow() {
		w.PutInstruction(0x4800 | uint16(ri.Index)<<8)
	} else {
		w.PutInstruction(0xF85F | (1 << 7))
		w.PutInstruction(uint16(ri.Index) << 12)
	}
	return nil
}

// PutLdrRegAddress is PutLdrRegU32 with the address truncated to 32 bits, as
// AArch32 targets have no wider address space to load.
func (w *Writer) PutLdrRegAddress(reg Reg, address uint64) error {
	return w.PutLdrRegU32(reg, uint32(address))
}

// emitLiteralPool lays down the pending literal pool immediately after the
// last emitted instruction, coalescing duplicate 32-bit values into a single
// slot and patching every reference to point at its slot. It never fails:
// unlike label displacements, the encoder does not range-check the patched
// literal offset (the pool always follows its references at a small,
// bounded distance in the workloads this encoder is used for).
func (w *Writer) emitLiteralPool() {
	if len(w.literalRefs) == 0 {
		return
	}

	needAligned := false
	for _, r := range w.literalRefs {
		if isNarrowLiteralLoad(binary.LittleEndian.Uint16(w.buf[r.insnOff:])) {
			needAligned = true
			break
		}
	}
	if needAligned && w.pc&3 != 0 {
		w.PutNop()
	}

	poolPC := w.pc
	poolOff := w.code
	var slots []uint32

	for _, r := range w.literalRefs {
		idx := -1
		for i, v := range slots {
			if v == r.value {
				idx = i
				break
			}
		}
		if idx == -1 {
			idx = len(slots)
			slots = append(slots, r.value)
		}

		slotPC := poolPC + uint64(idx)*4
		distance := slotPC - (r.refPC &^ 3)

		insn := binary.LittleEndian.Uint16(w.buf[r.insnOff:])
		if isNarrowLiteralLoad(insn) {
			insn |= uint16(distance / 4)
			binary.LittleEndian.PutUint16(w.buf[r.insnOff:], insn)
		} else {
			insn2 := binary.LittleEndian.Uint16(w.buf[r.insnOff+2:])
			insn2 |= uint16(distance)
			binary.LittleEndian.PutUint16(w.buf[r.insnOff+2:], insn2)
		}
	}

	for _, v := range slots {
		binary.LittleEndian.PutUint32(w.buf[poolOff:], v)
		poolOff += 4
	}
	w.code += 4 * len(slots)
	w.pc += uint64(4 * len(slots))
}
