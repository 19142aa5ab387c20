package thumbwriter

// ConditionCode is an ARM condition code, as used by PutBCondLabel. Values
// are the standard ARM encoding plus 1; PutBCondLabel subtracts 1 before
// packing cc into the opcode, the way gum_thumb_writer_put_b_cond_label
// does.
type ConditionCode uint8

const (
	CCEQ ConditionCode = 1
	CCNE ConditionCode = 2
	CCCS ConditionCode = 3
	CCCC ConditionCode = 4
	CCMI ConditionCode = 5
	CCPL ConditionCode = 6
	CCVS ConditionCode = 7
	CCVC ConditionCode = 8
	CCHI ConditionCode = 9
	CCLS ConditionCode = 10
	CCGE ConditionCode = 11
	CCLT ConditionCode = 12
	CCGT ConditionCode = 13
	CCLE ConditionCode = 14
)

// PutBImm appends an unconditional B to an immediate Thumb target.
func (w *Writer) PutBImm(target uint64) {
	w.putBranchImm(target, false, true)
}

// PutBlImm appends a BL to an immediate Thumb target.
func (w *Writer) PutBlImm(target uint64) {
	w.putBranchImm(target, true, true)
}

// PutBlxImm appends a BLX to an immediate ARM (non-Thumb) target.
func (w *Writer) PutBlxImm(target uint64) {
	w.putBranchImm(target, true, false)
}

// putBranchImm implements the shared BL/BLX/B-to-immediate T4/T2 32-bit
// encoding: the displacement's sign bit S, the inverted J1/J2 bits, and the
// imm10:imm11 split, per the ARMv7-M architecture reference manual.
func (w *Writer) putBranchImm(target uint64, link, thumb bool) {
	distance := int32((int64(target) &^ 1) - int64(w.pc+4)) / 2
	u := uint32(distance)

	s := uint16(u>>31) & 1
	j1 := ^(uint16(u>>22) ^ s) & 1
	j2 := ^(uint16(u>>21) ^ s) & 1
	imm10 := uint16(u>>11) & int10Mask
	imm11 := uint16(u) & int11Mask

	w.PutInstruction(0xF000 | (s << 10) | imm10)
	w.PutInstruction(0x8000 | (boolBit(link) << 14) | (j1 << 13) | (boolBit(thumb) << 12) | (j2 << 11) | imm11)
}

// PutBxReg appends a BX reg.
func (w *Writer) PutBxReg(reg Reg) {
	ri := Describe(reg)
	w.PutInstruction(0x4700 | uint16(ri.Index)<<3)
}

// PutBlxReg appends a BLX reg.
func (w *Writer) PutBlxReg(reg Reg) {
	ri := Describe(reg)
	w.PutInstruction(0x4780 | uint16(ri.Index)<<3)
}

// PutCmpRegImm appends a CMP reg, #imm8.
func (w *Writer) PutCmpRegImm(reg Reg, imm uint8) {
	ri := Describe(reg)
	w.PutInstruction(0x2800 | uint16(ri.Index)<<8 | uint16(imm))
}

// PutBLabel appends a bare B opcode and records a forward reference to
// labelID, patched by Flush.
func (w *Writer) PutBLabel(labelID Label) error {
	if err := w.addLabelRef(labelID); err != nil {
		return err
	}
	w.PutInstruction(0xE000)
	return nil
}

// PutBeqLabel appends a conditional branch to labelID taken when equal.
func (w *Writer) PutBeqLabel(labelID Label) error {
	return w.PutBCondLabel(CCEQ, labelID)
}

// PutBneLabel appends a conditional branch to labelID taken when not equal.
func (w *Writer) PutBneLabel(labelID Label) error {
	return w.PutBCondLabel(CCNE, labelID)
}

// PutBCondLabel appends a conditional branch to labelID, recording a forward
// reference patched by Flush.
func (w *Writer) PutBCondLabel(cc ConditionCode, labelID Label) error {
	if err := w.addLabelRef(labelID); err != nil {
		return err
	}
	w.PutInstruction(0xD000 | uint16(cc-1)<<8)
	return nil
}

// PutCbzRegLabel appends a CBZ reg, labelID, recording a forward reference
// patched by Flush.
func (w *Writer) PutCbzRegLabel(reg Reg, labelID Label) error {
	ri := Describe(reg)
	if err := w.addLabelRef(labelID); err != nil {
		return err
	}
	w.PutInstruction(0xB100 | uint16(ri.Index))
	return nil
}

// PutCbnzRegLabel appends a CBNZ reg, labelID, recording a forward reference
// patched by Flush.
func (w *Writer) PutCbnzRegLabel(reg Reg, labelID Label) error {
	ri := Describe(reg)
	if err := w.addLabelRef(labelID); err != nil {
		return err
	}
	w.PutInstruction(0xB900 | uint16(ri.Index))
	return nil
}
