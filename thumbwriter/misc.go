package thumbwriter

// PutNop appends a NOP (MOV r8, r8, encoded as 0x46C0).
func (w *Writer) PutNop() {
	w.PutInstruction(0x46C0)
}

// PutBkptImm appends a BKPT #imm instruction.
func (w *Writer) PutBkptImm(imm uint8) {
	w.PutInstruction(0xBE00 | uint16(imm))
}

// PutBreakpoint appends an OS-appropriate trap: the Linux/Android undefined-
// instruction trap on those targets, else BKPT #0 followed by BX LR.
func (w *Writer) PutBreakpoint() {
	switch w.targetOS {
	case OSLinux, OSAndroid:
		w.PutInstruction(0xDE01)
	default:
		w.PutBkptImm(0)
		w.PutBxReg(LR)
	}
}
