package thumbwriter

import (
	"bytes"
	"fmt"
	"testing"
)

func TestNop(t *testing.T) {
	buf := make([]byte, 16)
	w := New(buf, 0x1000)
	w.PutNop()
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := buf[:w.Offset()]; !bytes.Equal(got, []byte{0xC0, 0x46}) {
		t.Errorf("expected C0 46, got % X", got)
	}
	if w.Offset() != 2 {
		t.Errorf("expected offset 2, got %d", w.Offset())
	}
}

func TestBreakpointLinux(t *testing.T) {
	buf := make([]byte, 16)
	w := New(buf, 0x1000)
	w.SetTargetOS(OSLinux)
	w.PutBreakpoint()
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := buf[:w.Offset()]; !bytes.Equal(got, []byte{0x01, 0xDE}) {
		t.Errorf("expected 01 DE, got % X", got)
	}
}

func TestBreakpointOther(t *testing.T) {
	buf := make([]byte, 16)
	w := New(buf, 0x1000)
	w.PutBreakpoint()
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := buf[:w.Offset()]; !bytes.Equal(got, []byte{0x00, 0xBE, 0x70, 0x47}) {
		t.Errorf("expected 00 BE 70 47, got % X", got)
	}
}

func TestBranchForwardToLabel(t *testing.T) {
	buf := make([]byte, 16)
	w := New(buf, 0x1000)

	const L = "L"
	if err := w.PutBLabel(L); err != nil {
		t.Fatalf("PutBLabel: %v", err)
	}
	w.PutNop()
	if err := w.PutLabel(L); err != nil {
		t.Fatalf("PutLabel: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	if got := buf[:w.Offset()]; !bytes.Equal(got, []byte{0x00, 0xE0, 0xC0, 0x46}) {
		t.Errorf("expected 00 E0 C0 46, got % X", got)
	}
}

func TestLiteralLoadWithAlignmentNop(t *testing.T) {
	buf := make([]byte, 16)
	w := New(buf, 0x1000)

	if err := w.PutLdrRegU32(R0, 0xDEADBEEF); err != nil {
		t.Fatalf("PutLdrRegU32: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	want := []byte{0x01, 0x48, 0xC0, 0x46, 0xEF, 0xBE, 0xAD, 0xDE}
	if got := buf[:w.Offset()]; !bytes.Equal(got, want) {
		t.Errorf("expected % X, got % X", want, got)
	}
}

func TestPushRegsNarrow(t *testing.T) {
	buf := make([]byte, 16)
	w := New(buf, 0x1000)
	if err := w.PutPushRegs(R4, R5, LR); err != nil {
		t.Fatalf("PutPushRegs: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := buf[:w.Offset()]; !bytes.Equal(got, []byte{0x30, 0xB5}) {
		t.Errorf("expected 30 B5, got % X", got)
	}
}

func TestPushRegsWide(t *testing.T) {
	buf := make([]byte, 16)
	w := New(buf, 0x1000)
	if err := w.PutPushRegs(R4, R8, LR); err != nil {
		t.Fatalf("PutPushRegs: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := buf[:w.Offset()]; !bytes.Equal(got, []byte{0x2D, 0xE9, 0x10, 0x41}) {
		t.Errorf("expected 2D E9 10 41, got % X", got)
	}
}

func TestOffsetTracksCode(t *testing.T) {
	buf := make([]byte, 32)
	w := New(buf, 0x2000)
	w.PutNop()
	w.PutNop()
	if w.Offset() != 4 {
		t.Errorf("expected offset 4 after two NOPs, got %d", w.Offset())
	}
}

func TestPcTracksOffsetWithoutSkip(t *testing.T) {
	buf := make([]byte, 32)
	base := uint64(0x2000)
	w := New(buf, base)
	w.PutNop()
	w.PutBkptImm(0)
	if w.pc-base != uint64(w.Offset()) {
		t.Errorf("expected pc - base == offset, got pc-base=%d offset=%d", w.pc-base, w.Offset())
	}
}

func TestFlushIsIdempotentAfterSuccess(t *testing.T) {
	buf := make([]byte, 16)
	w := New(buf, 0x1000)
	w.PutNop()
	if err := w.Flush(); err != nil {
		t.Fatalf("first flush: %v", err)
	}
	if len(w.labelRefs) != 0 || len(w.literalRefs) != 0 {
		t.Fatalf("expected empty fixup tables after flush")
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("second flush should be a no-op success, got: %v", err)
	}
}

func TestDeterministicOutput(t *testing.T) {
	buf1 := make([]byte, 32)
	buf2 := make([]byte, 32)
	w1 := New(buf1, 0x4000)
	w2 := New(buf2, 0x4000)

	run := func(w *Writer) {
		w.PutMovRegU8(R0, 5)
		_ = w.PutLdrRegU32(R1, 0x12345678)
		w.PutNop()
	}
	run(w1)
	run(w2)
	if err := w1.Flush(); err != nil {
		t.Fatalf("flush w1: %v", err)
	}
	if err := w2.Flush(); err != nil {
		t.Fatalf("flush w2: %v", err)
	}
	if w1.Offset() != w2.Offset() {
		t.Fatalf("offsets differ: %d vs %d", w1.Offset(), w2.Offset())
	}
	if !bytes.Equal(buf1[:w1.Offset()], buf2[:w2.Offset()]) {
		t.Errorf("expected byte-identical output for identical call sequences")
	}
}

func TestLiteralPoolDeduplication(t *testing.T) {
	buf := make([]byte, 64)
	w := New(buf, 0x1000)
	if err := w.PutLdrRegU32(R0, 0xAAAAAAAA); err != nil {
		t.Fatalf("PutLdrRegU32 #1: %v", err)
	}
	if err := w.PutLdrRegU32(R1, 0xAAAAAAAA); err != nil {
		t.Fatalf("PutLdrRegU32 #2: %v", err)
	}
	if err := w.PutLdrRegU32(R2, 0xBBBBBBBB); err != nil {
		t.Fatalf("PutLdrRegU32 #3: %v", err)
	}
	before := w.Offset()
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	poolBytes := w.Offset() - before
	// Two distinct 32-bit values plus at most one alignment NOP.
	if poolBytes != 8 && poolBytes != 10 {
		t.Errorf("expected pool of two slots (8 bytes, plus optional 2-byte align NOP), got %d bytes", poolBytes)
	}
}

func TestPushOrPopRegsNarrowWideBoundary(t *testing.T) {
	for _, tc := range []struct {
		name     string
		regs     []Reg
		wantWide bool
	}{
		{"all-low-plus-lr", []Reg{R0, R7, LR}, false},
		{"one-high-forces-wide", []Reg{R0, R8}, true},
		{"pc-in-pop-is-eligible", []Reg{R0, PC}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			buf := make([]byte, 16)
			w := New(buf, 0x1000)
			var err error
			if tc.name == "pc-in-pop-is-eligible" {
				err = w.PutPopRegs(tc.regs...)
			} else {
				err = w.PutPushRegs(tc.regs...)
			}
			if err != nil {
				t.Fatalf("push/pop: %v", err)
			}
			gotWide := w.Offset() == 4
			if gotWide != tc.wantWide {
				t.Errorf("expected wide=%t, got offset=%d", tc.wantWide, w.Offset())
			}
		})
	}
}

func TestBranchImmEncoding(t *testing.T) {
	// PC bias of 4 applies: base 0x1000, so pc after two halfwords is 0x1004.
	for _, tc := range []struct {
		base, target uint64
		link, thumb  bool
	}{
		{0x1000, 0x2000, true, true},
		{0x1000, 0x900, false, true},
		{0x8000, 0x4000, true, false},
	} {
		t.Run(fmt.Sprintf("%X_to_%X", tc.base, tc.target), func(t *testing.T) {
			buf := make([]byte, 16)
			w := New(buf, tc.base)
			w.putBranchImm(tc.target, tc.link, tc.thumb)
			if err := w.Flush(); err != nil {
				t.Fatalf("flush: %v", err)
			}
			if w.Offset() != 4 {
				t.Fatalf("expected 4-byte wide branch, got %d", w.Offset())
			}
		})
	}
}

func TestPutBytesRejectsOddLength(t *testing.T) {
	buf := make([]byte, 16)
	w := New(buf, 0x1000)
	if err := w.PutBytes([]byte{0x01, 0x02, 0x03}); err == nil {
		t.Errorf("expected error for odd-length PutBytes")
	}
}

func TestPutLabelRejectsDuplicate(t *testing.T) {
	buf := make([]byte, 16)
	w := New(buf, 0x1000)
	if err := w.PutLabel("dup"); err != nil {
		t.Fatalf("first PutLabel: %v", err)
	}
	if err := w.PutLabel("dup"); err == nil {
		t.Errorf("expected error redefining a label")
	}
}

func TestFlushFailsOnUnresolvedLabel(t *testing.T) {
	buf := make([]byte, 16)
	w := New(buf, 0x1000)
	if err := w.PutBLabel("missing"); err != nil {
		t.Fatalf("PutBLabel: %v", err)
	}
	if err := w.Flush(); err == nil {
		t.Errorf("expected flush to fail on unresolved label")
	}
	if len(w.labelRefs) != 0 || len(w.literalRefs) != 0 {
		t.Errorf("expected both fixup tables cleared after a failed flush")
	}
}

func TestRefUnref(t *testing.T) {
	buf := make([]byte, 16)
	w := New(buf, 0x1000)
	w.Ref()
	if err := w.Unref(); err != nil {
		t.Fatalf("first unref: %v", err)
	}
	if err := w.PutLabel("still-alive"); err != nil {
		t.Errorf("expected writer to still be usable after non-terminal unref: %v", err)
	}
	if err := w.Unref(); err != nil {
		t.Fatalf("terminal unref: %v", err)
	}
	if w.labels != nil {
		t.Errorf("expected labels table cleared after terminal unref")
	}
}
