// Package hwdump formats a raw Thumb code blob as an address-annotated
// halfword listing: no mnemonics, just enough structure to eyeball a
// thumbwriter.Writer's output by hand. It deliberately stops short of a
// real disassembler.
package hwdump

import (
	"encoding/binary"
	"fmt"
	"io"
)

// isNarrowLdrLiteral guesses whether a halfword looks like the narrow
// ldr Rd, [pc, #imm] placeholder/patched form, purely for annotation
// purposes; it is not a decoder.
func isNarrowLdrLiteral(insn uint16) bool {
	return insn&0xF800 == 0x4800
}

// isWidePrefix guesses whether a halfword looks like the first halfword of
// a 32-bit Thumb-2 instruction (bits [15:11] of 0b11101, 0b11110, or
// 0b11111 mark a wide instruction per the Thumb-2 encoding rules).
func isWidePrefix(insn uint16) bool {
	top5 := insn >> 11
	return top5 == 0b11101 || top5 == 0b11110 || top5 == 0b11111
}

// Write prints one line per halfword in buf to w: address, raw hex bytes,
// the halfword value, and a best-effort "wide-prefix"/"narrow-ldr-literal"
// annotation. buf's length must be even.
func Write(w io.Writer, buf []byte, base uint64) error {
	if len(buf)%2 != 0 {
		return fmt.Errorf("hwdump: odd-length buffer")
	}

	for off := 0; off < len(buf); off += 2 {
		insn := binary.LittleEndian.Uint16(buf[off:])

		note := ""
		switch {
		case isWidePrefix(insn):
			note = "wide-prefix"
		case isNarrowLdrLiteral(insn):
			note = "narrow-ldr-literal"
		}

		if _, err := fmt.Fprintf(w, "%08X: %02X %02X  %04X  %s\n",
			base+uint64(off), buf[off], buf[off+1], insn, note); err != nil {
			return err
		}
	}

	return nil
}
