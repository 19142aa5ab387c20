package thumbwriter

import "testing"

func TestLdrRegRegOffsetNarrowWideBoundary(t *testing.T) {
	for _, tc := range []struct {
		name     string
		dst, src Reg
		offset   uint32
		wantWide bool
	}{
		{"low_low_in_range", R0, R1, 4, false},
		{"low_sp_in_range", R0, SP, 1020, false},
		{"low_sp_out_of_range", R0, SP, 1024, true},
		{"low_low_out_of_range", R0, R1, 128, true},
		{"unaligned_forces_wide", R0, R1, 2, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			buf := make([]byte, 16)
			w := New(buf, 0x1000)
			if err := w.PutLdrRegRegOffset(tc.dst, tc.src, tc.offset); err != nil {
				t.Fatalf("PutLdrRegRegOffset: %v", err)
			}
			gotWide := w.Offset() == 4
			if gotWide != tc.wantWide {
				t.Errorf("offset=%d: expected wide=%t, got offset bytes=%d", tc.offset, tc.wantWide, w.Offset())
			}
		})
	}
}

func TestLdrRegRegOffsetRejectsExcessiveWideOffset(t *testing.T) {
	buf := make([]byte, 16)
	w := New(buf, 0x1000)
	if err := w.PutLdrRegRegOffset(R0, R8, 4096); err == nil {
		t.Errorf("expected error for offset exceeding wide encoding's range")
	}
}

func TestStrRegRegOffsetRoundTripsViaLdr(t *testing.T) {
	buf := make([]byte, 16)
	w := New(buf, 0x1000)
	if err := w.PutStrRegRegOffset(R2, R3, 8); err != nil {
		t.Fatalf("PutStrRegRegOffset: %v", err)
	}
	// Narrow str has bit 0x0800 clear (the load/store bit); confirm it's str, not ldr.
	insn := uint16(buf[0]) | uint16(buf[1])<<8
	if insn&0x0800 != 0 {
		t.Errorf("expected store form (load bit clear), got insn=%04X", insn)
	}
	// The matching ldr differs only in the load bit.
	if err := w.PutLdrRegRegOffset(R2, R3, 8); err != nil {
		t.Fatalf("PutLdrRegRegOffset: %v", err)
	}
	ldr := uint16(buf[2]) | uint16(buf[3])<<8
	if ldr != insn|0x0800 {
		t.Errorf("expected ldr %04X, got %04X", insn|0x0800, ldr)
	}
}

func TestPushOrPopRegsRejectsEmpty(t *testing.T) {
	buf := make([]byte, 16)
	w := New(buf, 0x1000)
	if err := w.PutPushRegs(); err == nil {
		t.Errorf("expected error for empty register list")
	}
}

func TestCallAddressWithArgumentsReverseMarshalling(t *testing.T) {
	buf := make([]byte, 128)
	w := New(buf, 0x1000)
	if err := w.PutCallAddressWithArguments(0x2000,
		ArgAddr(0x10), ArgAddr(0x20), ArgAddr(0x30), ArgAddr(0x40), ArgAddr(0x50),
	); err != nil {
		t.Fatalf("PutCallAddressWithArguments: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if w.Offset() == 0 {
		t.Errorf("expected non-empty emission for a five-argument call")
	}
	// The fifth (stack) argument is marshalled first: ldr r0, =0x50; push {r0}.
	first := uint16(buf[0]) | uint16(buf[1])<<8
	if first&0xFF00 != 0x4800 {
		t.Errorf("expected ldr r0, [pc, #imm] first, got %04X", first)
	}
	second := uint16(buf[2]) | uint16(buf[3])<<8
	if second != 0xB401 {
		t.Errorf("expected push {r0} second, got %04X", second)
	}
}

func TestCallRegWithArgumentsRegisterPassthrough(t *testing.T) {
	buf := make([]byte, 64)
	w := New(buf, 0x1000)
	// R0 already holds its own argument, so no MOV should be needed for it.
	before := w.Offset()
	if err := w.PutCallRegWithArguments(R4, ArgReg(R0)); err != nil {
		t.Fatalf("PutCallRegWithArguments: %v", err)
	}
	after := w.Offset()
	// Only the BLX instruction (2 bytes) should have been emitted.
	if after-before != 2 {
		t.Errorf("expected only a BLX to be emitted when arg register already matches, got %d bytes", after-before)
	}
}

func TestPushNarrowMaskBits(t *testing.T) {
	buf := make([]byte, 16)
	w := New(buf, 0x1000)
	if err := w.PutPushRegs(R0, R7, LR); err != nil {
		t.Fatalf("PutPushRegs: %v", err)
	}
	insn := uint16(buf[0]) | uint16(buf[1])<<8
	if want := uint16(0xB581); insn != want {
		t.Errorf("expected %04X, got %04X", want, insn)
	}
}

func TestPushWideMaskBits(t *testing.T) {
	buf := make([]byte, 16)
	w := New(buf, 0x1000)
	if err := w.PutPushRegs(R0, R8); err != nil {
		t.Fatalf("PutPushRegs: %v", err)
	}
	mask := uint16(buf[2]) | uint16(buf[3])<<8
	if want := uint16(0x0101); mask != want {
		t.Errorf("expected mask %04X, got %04X", want, mask)
	}
}

func TestMovRegRegHighLow(t *testing.T) {
	buf := make([]byte, 16)
	w := New(buf, 0x1000)
	w.PutMovRegReg(R8, R1)
	insn := uint16(buf[0]) | uint16(buf[1])<<8
	if insn&0x4600 != 0x4600 {
		t.Errorf("expected high-register MOV form, got %04X", insn)
	}
}
