package thumbwriter

import "errors"

// PutPushRegs appends a PUSH of the given registers, LR-eligible for the
// narrow encoding the way gum_thumb_writer_put_push_regs treats LR.
func (w *Writer) PutPushRegs(regs ...Reg) error {
	return w.putPushOrPopRegs(0xB400, 0xE92D, MetaLR, regs)
}

// PutPopRegs appends a POP of the given registers, PC-eligible for the
// narrow encoding the way gum_thumb_writer_put_pop_regs treats PC.
func (w *Writer) PutPopRegs(regs ...Reg) error {
	return w.putPushOrPopRegs(0xBC00, 0xE8BD, MetaPC, regs)
}

// putPushOrPopRegs picks the narrow single-halfword encoding when every
// register is either a low register or the opcode's eligible special
// register (LR for push, PC for pop), and falls back to the wide
// LDM/STM-style encoding (a full 16-bit register mask) otherwise.
func (w *Writer) putPushOrPopRegs(narrowOpcode, wideOpcode uint16, specialReg MetaReg, regs []Reg) error {
	if len(regs) == 0 {
		return errors.New("thumbwriter: push/pop: no registers given")
	}

	infos := make([]RegInfo, len(regs))
	needWide := false
	for i, r := range regs {
		ri := Describe(r)
		infos[i] = ri
		if !ri.IsLow() && ri.Meta != specialReg {
			needWide = true
		}
	}

	if needWide {
		var mask uint16
		for _, ri := range infos {
			mask |= 1 << ri.Index
		}
		w.PutInstruction(wideOpcode)
		w.PutInstruction(mask)
		return nil
	}

	insn := narrowOpcode
	for _, ri := range infos {
		if ri.Meta == specialReg {
			insn |= 0x0100
		} else {
			insn |= 1 << ri.Index
		}
	}
	w.PutInstruction(insn)
	return nil
}

// PutLdrRegReg appends ldr dst, [src].
func (w *Writer) PutLdrRegReg(dst, src Reg) error {
	return w.PutLdrRegRegOffset(dst, src, 0)
}

// PutLdrRegRegOffset appends ldr dst, [src, #offset]: the narrow
// low-register or SP-relative form when the operands and offset qualify, the
// wide immediate form (0xF8C0-based) otherwise. An offset that is not a
// multiple of 4 selects the wide form; offsets above 4095 are rejected.
func (w *Writer) PutLdrRegRegOffset(dst, src Reg, offset uint32) error {
	return w.putTransferRegRegOffset(true, dst, src, offset)
}

// PutStrRegReg appends str src, [dst].
func (w *Writer) PutStrRegReg(src, dst Reg) error {
	return w.PutStrRegRegOffset(src, dst, 0)
}

// PutStrRegRegOffset appends str src, [dst, #offset], mirroring
// PutLdrRegRegOffset's encoding selection.
func (w *Writer) PutStrRegRegOffset(src, dst Reg, offset uint32) error {
	return w.putTransferRegRegOffset(false, src, dst, offset)
}

// putTransferRegRegOffset implements the shared ldr/str encoding selector:
// a narrow form when the left register is low, the right
// register is low or SP, the offset is a multiple of 4 and within the
// narrow form's range (1020 for SP-relative, 124 otherwise), and a wide
// 32-bit immediate-offset form otherwise.
func (w *Writer) putTransferRegRegOffset(isLoad bool, leftReg, rightReg Reg, rightOffset uint32) error {
	lr, rr := Describe(leftReg), Describe(rightReg)

	narrowRange := rr.Meta == MetaSP && rightOffset <= 1020
	if rr.Meta != MetaSP {
		narrowRange = rightOffset <= 124
	}

	if lr.IsLow() && (rr.IsLow() || rr.Meta == MetaSP) && narrowRange && rightOffset%4 == 0 {
		var insn uint16
		if rr.Meta == MetaSP {
			insn = 0x9000 | uint16(lr.Index)<<8 | uint16(rightOffset/4)
		} else {
			insn = 0x6000 | uint16(rightOffset/4)<<6 | uint16(rr.Index)<<3 | uint16(lr.Index)
		}
		if isLoad {
			insn |= 0x0800
		}
		w.PutInstruction(insn)
		return nil
	}

	if rightOffset > 4095 {
		return errors.New("thumbwriter: ldr/str: offset exceeds wide encoding's 4095 limit")
	}

	var loadBit uint16
	if isLoad {
		loadBit = 0x0010
	}
	w.PutInstruction(0xF8C0 | loadBit | uint16(rr.Index))
	w.PutInstruction(uint16(lr.Index)<<12 | uint16(rightOffset))
	return nil
}
