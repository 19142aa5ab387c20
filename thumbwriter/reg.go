package thumbwriter

// Register descriptor: a pure lookup from an architectural register
// identifier to a small {index, meta-class} record. Sized the way
// patchlib/blx.go's small bit-helpers are: no exported surface beyond what
// the encoding selectors need.

// Reg is an architectural Thumb/Thumb-2 register identifier.
type Reg uint8

const (
	R0 Reg = iota
	R1
	R2
	R3
	R4
	R5
	R6
	R7
	R8
	R9
	R10
	R11
	R12
	SP
	LR
	PC
)

// MetaReg classifies a register the way the encoding selectors care about:
// whether it is a low register (R0-R7), a high general-purpose register
// (R8-R12), or one of the three special registers.
type MetaReg int

const (
	MetaR0 MetaReg = iota
	MetaR1
	MetaR2
	MetaR3
	MetaR4
	MetaR5
	MetaR6
	MetaR7
	MetaR8
	MetaR9
	MetaR10
	MetaR11
	MetaR12
	MetaSP
	MetaLR
	MetaPC
)

// RegInfo is a register's {index, meta-class} pair.
type RegInfo struct {
	Index uint8
	Meta  MetaReg
}

// IsLow reports whether the register is a low register (R0-R7), the
// distinction narrow-vs-wide encoding selection turns on.
func (ri RegInfo) IsLow() bool {
	return ri.Meta >= MetaR0 && ri.Meta <= MetaR7
}

// Describe looks up a register's descriptor. It has no failure mode for
// the sixteen documented register identifiers.
func Describe(r Reg) RegInfo {
	switch {
	case r <= R12:
		return RegInfo{Index: uint8(r), Meta: MetaReg(r)}
	case r == SP:
		return RegInfo{Index: 13, Meta: MetaSP}
	case r == LR:
		return RegInfo{Index: 14, Meta: MetaLR}
	case r == PC:
		return RegInfo{Index: 15, Meta: MetaPC}
	default:
		panic("thumbwriter: invalid register id")
	}
}
