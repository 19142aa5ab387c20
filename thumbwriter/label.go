package thumbwriter

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MaxLabels, MaxLabelRefs, and MaxLiteralRefs are the minimum table
// capacities this encoder guarantees. Go slices here grow on demand, but
// PutLabel and the label/literal-ref recorders still enforce these as hard
// ceilings so capacity exhaustion stays a recoverable error rather than an
// implementation detail that quietly changes behavior under load.
const (
	MaxLabels      = 100
	MaxLabelRefs   = 300
	MaxLiteralRefs = 100
)

// Label is an opaque forward-reference token. Identity is by equality of the
// dynamic value, not by contents — callers typically use a small comparable
// type (an int, a string, or a pointer) as a stable handle. Passing an
// uncomparable value will panic on the first table lookup, same as using it
// as a map key would.
type Label = interface{}

type labelMapping struct {
	id      Label
	address uint64
}

type labelRef struct {
	id      Label
	insnOff int
	refPC   uint64
}

func (w *Writer) lookupLabel(id Label) (uint64, bool) {
	for _, m := range w.labels {
		if m.id == id {
			return m.address, true
		}
	}
	return 0, false
}

// PutLabel records the current pc as the resolved address for id. It fails
// if id is already resolved (each label is single-assignment) or if the
// label table is full.
func (w *Writer) PutLabel(id Label) error {
	if _, ok := w.lookupLabel(id); ok {
		return fmt.Errorf("thumbwriter: PutLabel: label %s already defined", fmtLabel(id))
	}
	if len(w.labels) >= MaxLabels {
		return errors.New("thumbwriter: PutLabel: label table full")
	}
	w.labels = append(w.labels, labelMapping{id: id, address: w.pc})
	return nil
}

// addLabelRef records an unresolved forward reference to id at the
// placeholder instruction about to be written at the cursor. ref_pc is pc+4,
// the pipeline offset
// Thumb branch displacement arithmetic uses.
func (w *Writer) addLabelRef(id Label) error {
	if len(w.labelRefs) >= MaxLabelRefs {
		return errors.New("thumbwriter: label reference table full")
	}
	w.labelRefs = append(w.labelRefs, labelRef{id: id, insnOff: w.code, refPC: w.pc + 4})
	return nil
}

// resolveLabelRefs patches every pending label reference in place. It
// inspects each placeholder opcode to pick the patch shape: conditional
// branch (0xD000), unconditional branch (0xE000), or compare-and-branch
// (anything else — CBZ/CBNZ are the only other label-referencing selector).
func (w *Writer) resolveLabelRefs() error {
	for _, r := range w.labelRefs {
		addr, ok := w.lookupLabel(r.id)
		if !ok {
			return fmt.Errorf("thumbwriter: flush: unresolved label %s", fmtLabel(r.id))
		}

		distance := (int64(addr) - int64(r.refPC)) / 2
		insn := binary.LittleEndian.Uint16(w.buf[r.insnOff:])

		switch {
		case insn&0xF000 == 0xD000:
			if !fitsInInt8(int32(distance)) {
				return fmt.Errorf("thumbwriter: flush: Bcc displacement %d out of int8 range", distance)
			}
			insn |= uint16(distance) & int8Mask
		case insn&0xF800 == 0xE000:
			if !fitsInInt11(int32(distance)) {
				return fmt.Errorf("thumbwriter: flush: B displacement %d out of int11 range", distance)
			}
			insn |= uint16(distance) & int11Mask
		default:
			if !fitsInUint7(int32(distance)) {
				return fmt.Errorf("thumbwriter: flush: CBZ/CBNZ displacement %d out of uint7 range", distance)
			}
			i := uint16(distance>>5) & 1
			imm5 := uint16(distance) & int5Mask
			insn |= (i << 9) | (imm5 << 3)
		}

		binary.LittleEndian.PutUint16(w.buf[r.insnOff:], insn)
	}
	return nil
}
