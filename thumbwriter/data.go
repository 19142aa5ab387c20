package thumbwriter

import "fmt"

// PutMovRegReg appends a MOV Rd, Rs: the narrow low-register form if both
// operands are low registers, otherwise the high-register MOV (0x4600) with
// a bit indicating whether the destination is high and the destination
// index biased by 8.
func (w *Writer) PutMovRegReg(dst, src Reg) {
	d, s := Describe(dst), Describe(src)

	var insn uint16
	if d.IsLow() && s.IsLow() {
		insn = 0x1C00 | uint16(s.Index)<<3 | uint16(d.Index)
	} else {
		var dstIsHigh uint16
		dstIndex := d.Index
		if !d.IsLow() {
			dstIsHigh = 1
			dstIndex = d.Index - 8
		}
		insn = 0x4600 | dstIsHigh<<7 | uint16(s.Index)<<3 | uint16(dstIndex)
	}
	w.PutInstruction(insn)
}

// PutMovRegU8 appends a MOV Rd, #imm8. dst must be a low register.
func (w *Writer) PutMovRegU8(dst Reg, imm uint8) {
	d := Describe(dst)
	w.PutInstruction(0x2000 | uint16(d.Index)<<8 | uint16(imm))
}

// PutAddRegImm appends an add-immediate to dst. If dst is SP, the immediate
// must be a multiple of 4 and the SP-adjust form (0xB000) is used; otherwise
// the general form (0x3000) is used and the immediate magnitude must fit in
// 8 bits.
func (w *Writer) PutAddRegImm(dst Reg, imm int32) error {
	d := Describe(dst)

	var signMask, insn uint16
	if d.Meta == MetaSP {
		if imm%4 != 0 {
			return fmt.Errorf("PutAddRegImm: SP-relative immediate %d not a multiple of 4", imm)
		}
		if imm < 0 {
			signMask = 0x0080
		}
		insn = 0xB000 | signMask | uint16(abs32(imm)/4)
	} else {
		if abs32(imm) > 0xFF {
			return fmt.Errorf("PutAddRegImm: immediate %d does not fit in 8 bits", imm)
		}
		if imm < 0 {
			signMask = 0x0800
		}
		insn = 0x3000 | signMask | uint16(d.Index)<<8 | uint16(abs32(imm))
	}
	w.PutInstruction(insn)
	return nil
}

// PutSubRegImm is PutAddRegImm(dst, -imm).
func (w *Writer) PutSubRegImm(dst Reg, imm int32) error {
	return w.PutAddRegImm(dst, -imm)
}

// PutAddRegReg appends dst += src (PutAddRegRegReg(dst, dst, src)).
func (w *Writer) PutAddRegReg(dst, src Reg) {
	w.PutAddRegRegReg(dst, dst, src)
}

// PutAddRegRegReg appends dst = left + right. If dst == left, the short
// in-place form (0x4400) is used, with high-register encoding if needed;
// otherwise the three-register form (0x1800) is used.
func (w *Writer) PutAddRegRegReg(dst, left, right Reg) {
	d, l, r := Describe(dst), Describe(left), Describe(right)

	var insn uint16
	if l.Meta == d.Meta {
		insn = 0x4400
		if d.IsLow() {
			insn |= uint16(d.Index)
		} else {
			insn |= 0x0080 | uint16(d.Index-8)
		}
		insn |= uint16(r.Index) << 3
	} else {
		insn = 0x1800 | uint16(r.Index)<<6 | uint16(l.Index)<<3 | uint16(d.Index)
	}
	w.PutInstruction(insn)
}

// PutAddRegRegImm appends dst = left + imm. Three shapes are possible: if
// dst == left, this delegates to PutAddRegImm; if left is SP or PC, the
// scaled SP/PC-relative form (0xA000) is used and imm must be a non-negative
// multiple of 4; otherwise the narrow three-bit-immediate form (0x1C00) is
// used and |imm| must not exceed 7.
func (w *Writer) PutAddRegRegImm(dst, left Reg, imm int32) error {
	d, l := Describe(dst), Describe(left)

	if l.Meta == d.Meta {
		return w.PutAddRegImm(dst, imm)
	}

	var insn uint16
	if l.Meta == MetaSP || l.Meta == MetaPC {
		if imm < 0 || imm%4 != 0 {
			return fmt.Errorf("PutAddRegRegImm: SP/PC-relative immediate %d must be a non-negative multiple of 4", imm)
		}
		var baseMask uint16
		if l.Meta == MetaSP {
			baseMask = 0x0800
		}
		insn = 0xA000 | baseMask | uint16(d.Index)<<8 | uint16(imm/4)
	} else {
		if abs32(imm) > 7 {
			return fmt.Errorf("PutAddRegRegImm: immediate %d does not fit in 3 bits", imm)
		}
		var signMask uint16
		if imm < 0 {
			signMask = 0x0200
		}
		insn = 0x1C00 | signMask | uint16(abs32(imm))<<6 | uint16(l.Index)<<3 | uint16(d.Index)
	}
	w.PutInstruction(insn)
	return nil
}

// PutSubRegReg appends dst -= src (PutSubRegRegReg(dst, dst, src)).
func (w *Writer) PutSubRegReg(dst, src Reg) {
	w.PutSubRegRegReg(dst, dst, src)
}

// PutSubRegRegReg appends dst = left - right (0x1A00). Unlike add, there is
// no short in-place SUB form in Thumb-1.
func (w *Writer) PutSubRegRegReg(dst, left, right Reg) {
	d, l, r := Describe(dst), Describe(left), Describe(right)
	insn := 0x1A00 | uint16(r.Index)<<6 | uint16(l.Index)<<3 | uint16(d.Index)
	w.PutInstruction(insn)
}

// PutSubRegRegImm is PutAddRegRegImm(dst, left, -imm).
func (w *Writer) PutSubRegRegImm(dst, left Reg, imm int32) error {
	return w.PutAddRegRegImm(dst, left, -imm)
}
