// Package thumbyaml implements the "thumbyaml" stub-script format: a YAML
// document mapping stub names to sequences of tagged-union instructions,
// each instruction corresponding to one thumbwriter operation. It follows
// the same decoding strategy as kobopatch's native YAML patch format
// (yaml.Node.DecodeStrict for per-bullet tagged-union dispatch), adapted
// from binary find/replace instructions to Thumb code-generation
// instructions.
package thumbyaml

import (
	"reflect"
	"strings"

	"github.com/geek1011/thumbforge/stubfile"
	"github.com/geek1011/thumbforge/thumbwriter"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// StubSet is a parsed thumbyaml document: a map of stub name to its
// instruction sequence.
type StubSet map[string]Stub

// Stub is a single named sequence of instructions.
type Stub []*Instruction

type stubSetNode map[string][]yaml.Node

// Parse parses buf as a thumbyaml document. It performs strict tagged-union
// decoding of every instruction but does not call Validate.
func Parse(buf []byte) (stubfile.StubSet, error) {
	stubfile.Log("parsing stub script\n")

	var raw stubSetNode
	if err := yaml.Unmarshal(buf, &raw); err != nil {
		return nil, errors.Wrap(err, "error parsing stub script")
	}

	ss := StubSet{}
	for name, nodes := range raw {
		stub := make(Stub, len(nodes))
		for i, n := range nodes {
			var in InstructionNode
			if err := n.DecodeStrict(&in); err != nil {
				return nil, errors.Wrapf(err, "stub `%s`: line %d: error decoding instruction", name, n.Line)
			}
			inst, err := in.ToInstruction()
			if err != nil {
				return nil, errors.Wrapf(err, "stub `%s`: error decoding instruction", name)
			}
			stub[i] = inst
		}
		ss[name] = stub
	}

	return &ss, nil
}

func init() {
	stubfile.RegisterFormat("thumbyaml", Parse)
}

// InstructionNode is the single-key map an instruction bullet decodes into
// before being resolved to a concrete Instruction field by name.
type InstructionNode map[string]yaml.Node

// ToInstruction resolves a single-key InstructionNode to a typed
// Instruction, erroring if the bullet has zero or more than one key (the
// "missing a -" mistake kobopatch's native format also guards against) or
// names a field Instruction does not have.
func (i InstructionNode) ToInstruction() (*Instruction, error) {
	if len(i) == 0 {
		return nil, errors.New("empty instruction")
	}
	if len(i) > 1 {
		return nil, errors.New("more than one instruction type in a single bullet (you might be missing a -)")
	}

	var inst Instruction
	for name, node := range i {
		field := reflect.ValueOf(&inst).Elem().FieldByName(name)
		if !field.IsValid() {
			return nil, errors.Errorf("line %d: unknown instruction type `%s`", node.Line, name)
		}
		if err := node.DecodeStrict(field.Addr().Interface()); err != nil {
			return nil, errors.Wrapf(err, "line %d: error decoding `%s`", node.Line, name)
		}
	}
	return &inst, nil
}

// Instruction is the tagged union of every stub operation. Exactly one
// field must be set per bullet.
type Instruction struct {
	Enabled     *bool        `yaml:"Enabled,omitempty"`
	Description *string      `yaml:"Description,omitempty"`
	DefineLabel *DefineLabel `yaml:"DefineLabel,omitempty"`
	Nop         *Nop         `yaml:"Nop,omitempty"`
	Breakpoint  *Breakpoint  `yaml:"Breakpoint,omitempty"`
	Bkpt        *Bkpt        `yaml:"Bkpt,omitempty"`
	Mov         *Mov         `yaml:"Mov,omitempty"`
	Add         *Add         `yaml:"Add,omitempty"`
	Sub         *Sub         `yaml:"Sub,omitempty"`
	Cmp         *Cmp         `yaml:"Cmp,omitempty"`
	Push        *RegList     `yaml:"Push,omitempty"`
	Pop         *RegList     `yaml:"Pop,omitempty"`
	Ldr         *Ldr         `yaml:"Ldr,omitempty"`
	Str         *Str         `yaml:"Str,omitempty"`
	B           *Branch      `yaml:"B,omitempty"`
	Bl          *Branch      `yaml:"Bl,omitempty"`
	Blx         *Branch      `yaml:"Blx,omitempty"`
	Bx          *Reg         `yaml:"Bx,omitempty"`
	BlxReg      *Reg         `yaml:"BlxReg,omitempty"`
	Cbz         *CondBranch  `yaml:"Cbz,omitempty"`
	Cbnz        *CondBranch  `yaml:"Cbnz,omitempty"`
	Call        *Call        `yaml:"Call,omitempty"`
}

// Reg is a Thumb register operand, decoded from its assembly mnemonic
// (case-insensitive: r0-r12, sp, lr, pc).
type Reg string

var regNames = map[string]thumbwriter.Reg{
	"r0": thumbwriter.R0, "r1": thumbwriter.R1, "r2": thumbwriter.R2, "r3": thumbwriter.R3,
	"r4": thumbwriter.R4, "r5": thumbwriter.R5, "r6": thumbwriter.R6, "r7": thumbwriter.R7,
	"r8": thumbwriter.R8, "r9": thumbwriter.R9, "r10": thumbwriter.R10, "r11": thumbwriter.R11,
	"r12": thumbwriter.R12, "sp": thumbwriter.SP, "lr": thumbwriter.LR, "pc": thumbwriter.PC,
}

// Resolve looks up the register this operand names.
func (r Reg) Resolve() (thumbwriter.Reg, error) {
	if reg, ok := regNames[strings.ToLower(string(r))]; ok {
		return reg, nil
	}
	return 0, errors.Errorf("unknown register `%s`", r)
}

// DefineLabel marks the current emission address as the target of Name,
// the one stub-script instruction with no thumbwriter.Put* counterpart of
// its own (it maps to Writer.PutLabel).
type DefineLabel struct {
	Name string `yaml:"Name"`
}

func (d DefineLabel) ApplyTo(w *thumbwriter.Writer) error {
	stubfile.Log("  PutLabel(%#v)\n", d.Name)
	return w.PutLabel(d.Name)
}

// Nop emits a NOP.
type Nop struct{}

func (n Nop) ApplyTo(w *thumbwriter.Writer) error {
	stubfile.Log("  PutNop()\n")
	w.PutNop()
	return nil
}

// Breakpoint emits the OS-appropriate trap sequence.
type Breakpoint struct{}

func (b Breakpoint) ApplyTo(w *thumbwriter.Writer) error {
	stubfile.Log("  PutBreakpoint()\n")
	w.PutBreakpoint()
	return nil
}

// Bkpt emits BKPT #Imm.
type Bkpt struct {
	Imm uint8 `yaml:"Imm"`
}

func (b Bkpt) ApplyTo(w *thumbwriter.Writer) error {
	stubfile.Log("  PutBkptImm(%#v)\n", b.Imm)
	w.PutBkptImm(b.Imm)
	return nil
}

// Mov emits either a register-to-register or immediate-to-register move.
// Exactly one of Src, Imm must be set.
type Mov struct {
	Dst Reg    `yaml:"Dst"`
	Src *Reg   `yaml:"Src,omitempty"`
	Imm *uint8 `yaml:"Imm,omitempty"`
}

func (m Mov) ApplyTo(w *thumbwriter.Writer) error {
	dst, err := m.Dst.Resolve()
	if err != nil {
		return errors.Wrap(err, "Mov")
	}
	switch {
	case m.Src != nil && m.Imm == nil:
		src, err := m.Src.Resolve()
		if err != nil {
			return errors.Wrap(err, "Mov")
		}
		stubfile.Log("  PutMovRegReg(%#v, %#v)\n", dst, src)
		w.PutMovRegReg(dst, src)
		return nil
	case m.Imm != nil && m.Src == nil:
		stubfile.Log("  PutMovRegU8(%#v, %#v)\n", dst, *m.Imm)
		w.PutMovRegU8(dst, *m.Imm)
		return nil
	default:
		return errors.New("Mov: exactly one of Src, Imm must be set")
	}
}

// Add emits dst = left + (right or imm). If Left is omitted, dst is used
// in place (dst += right/imm).
type Add struct {
	Dst   Reg    `yaml:"Dst"`
	Left  *Reg   `yaml:"Left,omitempty"`
	Right *Reg   `yaml:"Right,omitempty"`
	Imm   *int32 `yaml:"Imm,omitempty"`
}

func (a Add) ApplyTo(w *thumbwriter.Writer) error {
	dst, err := a.Dst.Resolve()
	if err != nil {
		return errors.Wrap(err, "Add")
	}
	left := dst
	if a.Left != nil {
		if left, err = a.Left.Resolve(); err != nil {
			return errors.Wrap(err, "Add")
		}
	}

	switch {
	case a.Right != nil && a.Imm == nil:
		right, err := a.Right.Resolve()
		if err != nil {
			return errors.Wrap(err, "Add")
		}
		if a.Left == nil {
			stubfile.Log("  PutAddRegReg(%#v, %#v)\n", dst, right)
			w.PutAddRegReg(dst, right)
		} else {
			stubfile.Log("  PutAddRegRegReg(%#v, %#v, %#v)\n", dst, left, right)
			w.PutAddRegRegReg(dst, left, right)
		}
		return nil
	case a.Imm != nil && a.Right == nil:
		if a.Left == nil {
			stubfile.Log("  PutAddRegImm(%#v, %#v)\n", dst, *a.Imm)
			return errors.Wrap(w.PutAddRegImm(dst, *a.Imm), "Add")
		}
		stubfile.Log("  PutAddRegRegImm(%#v, %#v, %#v)\n", dst, left, *a.Imm)
		return errors.Wrap(w.PutAddRegRegImm(dst, left, *a.Imm), "Add")
	default:
		return errors.New("Add: exactly one of Right, Imm must be set")
	}
}

// Sub mirrors Add for subtraction.
type Sub struct {
	Dst   Reg    `yaml:"Dst"`
	Left  *Reg   `yaml:"Left,omitempty"`
	Right *Reg   `yaml:"Right,omitempty"`
	Imm   *int32 `yaml:"Imm,omitempty"`
}

func (s Sub) ApplyTo(w *thumbwriter.Writer) error {
	dst, err := s.Dst.Resolve()
	if err != nil {
		return errors.Wrap(err, "Sub")
	}
	left := dst
	if s.Left != nil {
		if left, err = s.Left.Resolve(); err != nil {
			return errors.Wrap(err, "Sub")
		}
	}

	switch {
	case s.Right != nil && s.Imm == nil:
		right, err := s.Right.Resolve()
		if err != nil {
			return errors.Wrap(err, "Sub")
		}
		if s.Left == nil {
			stubfile.Log("  PutSubRegReg(%#v, %#v)\n", dst, right)
			w.PutSubRegReg(dst, right)
		} else {
			stubfile.Log("  PutSubRegRegReg(%#v, %#v, %#v)\n", dst, left, right)
			w.PutSubRegRegReg(dst, left, right)
		}
		return nil
	case s.Imm != nil && s.Right == nil:
		if s.Left == nil {
			stubfile.Log("  PutSubRegImm(%#v, %#v)\n", dst, *s.Imm)
			return errors.Wrap(w.PutSubRegImm(dst, *s.Imm), "Sub")
		}
		stubfile.Log("  PutSubRegRegImm(%#v, %#v, %#v)\n", dst, left, *s.Imm)
		return errors.Wrap(w.PutSubRegRegImm(dst, left, *s.Imm), "Sub")
	default:
		return errors.New("Sub: exactly one of Right, Imm must be set")
	}
}

// Cmp emits CMP Reg, #Imm.
type Cmp struct {
	Reg Reg   `yaml:"Reg"`
	Imm uint8 `yaml:"Imm"`
}

func (c Cmp) ApplyTo(w *thumbwriter.Writer) error {
	reg, err := c.Reg.Resolve()
	if err != nil {
		return errors.Wrap(err, "Cmp")
	}
	stubfile.Log("  PutCmpRegImm(%#v, %#v)\n", reg, c.Imm)
	w.PutCmpRegImm(reg, c.Imm)
	return nil
}

// RegList is the operand list for Push/Pop.
type RegList struct {
	Regs []Reg `yaml:"Regs"`
}

func (r RegList) resolve() ([]thumbwriter.Reg, error) {
	out := make([]thumbwriter.Reg, len(r.Regs))
	for i, rr := range r.Regs {
		reg, err := rr.Resolve()
		if err != nil {
			return nil, err
		}
		out[i] = reg
	}
	return out, nil
}

func (r RegList) applyPush(w *thumbwriter.Writer) error {
	regs, err := r.resolve()
	if err != nil {
		return errors.Wrap(err, "Push")
	}
	stubfile.Log("  PutPushRegs(%#v)\n", regs)
	return errors.Wrap(w.PutPushRegs(regs...), "Push")
}

func (r RegList) applyPop(w *thumbwriter.Writer) error {
	regs, err := r.resolve()
	if err != nil {
		return errors.Wrap(err, "Pop")
	}
	stubfile.Log("  PutPopRegs(%#v)\n", regs)
	return errors.Wrap(w.PutPopRegs(regs...), "Pop")
}

// Ldr loads a value into Dst: an immediate 32-bit value/address (via the
// literal pool, when Value or Address is set), or from [Src, #Offset] (when
// Src is set).
type Ldr struct {
	Dst     Reg     `yaml:"Dst"`
	Value   *uint32 `yaml:"Value,omitempty"`
	Address *uint64 `yaml:"Address,omitempty"`
	Src     *Reg    `yaml:"Src,omitempty"`
	Offset  uint32  `yaml:"Offset,omitempty"`
}

func (l Ldr) ApplyTo(w *thumbwriter.Writer) error {
	dst, err := l.Dst.Resolve()
	if err != nil {
		return errors.Wrap(err, "Ldr")
	}

	switch {
	case l.Value != nil:
		stubfile.Log("  PutLdrRegU32(%#v, %#v)\n", dst, *l.Value)
		return errors.Wrap(w.PutLdrRegU32(dst, *l.Value), "Ldr")
	case l.Address != nil:
		stubfile.Log("  PutLdrRegAddress(%#v, %#v)\n", dst, *l.Address)
		return errors.Wrap(w.PutLdrRegAddress(dst, *l.Address), "Ldr")
	case l.Src != nil:
		src, err := l.Src.Resolve()
		if err != nil {
			return errors.Wrap(err, "Ldr")
		}
		stubfile.Log("  PutLdrRegRegOffset(%#v, %#v, %#v)\n", dst, src, l.Offset)
		return errors.Wrap(w.PutLdrRegRegOffset(dst, src, l.Offset), "Ldr")
	default:
		return errors.New("Ldr: one of Value, Address, Src must be set")
	}
}

// Str stores Src into [Dst, #Offset].
type Str struct {
	Src    Reg    `yaml:"Src"`
	Dst    Reg    `yaml:"Dst"`
	Offset uint32 `yaml:"Offset,omitempty"`
}

func (s Str) ApplyTo(w *thumbwriter.Writer) error {
	src, err := s.Src.Resolve()
	if err != nil {
		return errors.Wrap(err, "Str")
	}
	dst, err := s.Dst.Resolve()
	if err != nil {
		return errors.Wrap(err, "Str")
	}
	stubfile.Log("  PutStrRegRegOffset(%#v, %#v, %#v)\n", src, dst, s.Offset)
	return errors.Wrap(w.PutStrRegRegOffset(src, dst, s.Offset), "Str")
}

// Branch is the operand for B/Bl/Blx: either a Target immediate address or
// a forward-referenced Label (B only; Bl/Blx always take an immediate
// target in this format, matching Writer's PutBlImm/PutBlxImm).
type Branch struct {
	Target *uint64 `yaml:"Target,omitempty"`
	Label  *string `yaml:"Label,omitempty"`
	Cond   *string `yaml:"Cond,omitempty"`
}

var condCodes = map[string]thumbwriter.ConditionCode{
	"eq": thumbwriter.CCEQ, "ne": thumbwriter.CCNE, "cs": thumbwriter.CCCS, "cc": thumbwriter.CCCC,
	"mi": thumbwriter.CCMI, "pl": thumbwriter.CCPL, "vs": thumbwriter.CCVS, "vc": thumbwriter.CCVC,
	"hi": thumbwriter.CCHI, "ls": thumbwriter.CCLS, "ge": thumbwriter.CCGE, "lt": thumbwriter.CCLT,
	"gt": thumbwriter.CCGT, "le": thumbwriter.CCLE,
}

func (b Branch) applyB(w *thumbwriter.Writer) error {
	switch {
	case b.Label != nil && b.Target == nil:
		if b.Cond == nil {
			stubfile.Log("  PutBLabel(%#v)\n", *b.Label)
			return errors.Wrap(w.PutBLabel(*b.Label), "B")
		}
		cc, ok := condCodes[*b.Cond]
		if !ok {
			return errors.Errorf("B: unknown condition `%s`", *b.Cond)
		}
		stubfile.Log("  PutBCondLabel(%#v, %#v)\n", cc, *b.Label)
		return errors.Wrap(w.PutBCondLabel(cc, *b.Label), "B")
	case b.Target != nil && b.Label == nil:
		stubfile.Log("  PutBImm(%#v)\n", *b.Target)
		w.PutBImm(*b.Target)
		return nil
	default:
		return errors.New("B: exactly one of Target, Label must be set")
	}
}

func (b Branch) applyBl(w *thumbwriter.Writer) error {
	if b.Target == nil {
		return errors.New("Bl: Target must be set")
	}
	stubfile.Log("  PutBlImm(%#v)\n", *b.Target)
	w.PutBlImm(*b.Target)
	return nil
}

func (b Branch) applyBlx(w *thumbwriter.Writer) error {
	if b.Target == nil {
		return errors.New("Blx: Target must be set")
	}
	stubfile.Log("  PutBlxImm(%#v)\n", *b.Target)
	w.PutBlxImm(*b.Target)
	return nil
}

// CondBranch is the operand for Cbz/Cbnz: a register and a forward label.
type CondBranch struct {
	Reg   Reg    `yaml:"Reg"`
	Label string `yaml:"Label"`
}

func (c CondBranch) applyCbz(w *thumbwriter.Writer) error {
	reg, err := c.Reg.Resolve()
	if err != nil {
		return errors.Wrap(err, "Cbz")
	}
	stubfile.Log("  PutCbzRegLabel(%#v, %#v)\n", reg, c.Label)
	return errors.Wrap(w.PutCbzRegLabel(reg, c.Label), "Cbz")
}

func (c CondBranch) applyCbnz(w *thumbwriter.Writer) error {
	reg, err := c.Reg.Resolve()
	if err != nil {
		return errors.Wrap(err, "Cbnz")
	}
	stubfile.Log("  PutCbnzRegLabel(%#v, %#v)\n", reg, c.Label)
	return errors.Wrap(w.PutCbnzRegLabel(reg, c.Label), "Cbnz")
}

func (r Reg) applyBx(w *thumbwriter.Writer) error {
	reg, err := r.Resolve()
	if err != nil {
		return errors.Wrap(err, "Bx")
	}
	stubfile.Log("  PutBxReg(%#v)\n", reg)
	w.PutBxReg(reg)
	return nil
}

func (r Reg) applyBlxReg(w *thumbwriter.Writer) error {
	reg, err := r.Resolve()
	if err != nil {
		return errors.Wrap(err, "BlxReg")
	}
	stubfile.Log("  PutBlxReg(%#v)\n", reg)
	w.PutBlxReg(reg)
	return nil
}

// Arg is one entry in Call's argument list.
type Arg struct {
	Address *uint64 `yaml:"Address,omitempty"`
	Reg     *Reg    `yaml:"Reg,omitempty"`
}

func (a Arg) resolve() (thumbwriter.Argument, error) {
	switch {
	case a.Address != nil && a.Reg == nil:
		return thumbwriter.ArgAddr(*a.Address), nil
	case a.Reg != nil && a.Address == nil:
		reg, err := a.Reg.Resolve()
		if err != nil {
			return thumbwriter.Argument{}, err
		}
		return thumbwriter.ArgReg(reg), nil
	default:
		return thumbwriter.Argument{}, errors.New("exactly one of Address, Reg must be set")
	}
}

// Call emits a full call sequence: argument marshalling followed by a
// BLX to either an immediate Target address or a register.
type Call struct {
	Target *uint64 `yaml:"Target,omitempty"`
	Reg    *Reg    `yaml:"Reg,omitempty"`
	Args   []Arg   `yaml:"Args,omitempty"`
}

func (c Call) ApplyTo(w *thumbwriter.Writer) error {
	args := make([]thumbwriter.Argument, len(c.Args))
	for i, a := range c.Args {
		arg, err := a.resolve()
		if err != nil {
			return errors.Wrapf(err, "Call: argument %d", i)
		}
		args[i] = arg
	}

	switch {
	case c.Target != nil && c.Reg == nil:
		stubfile.Log("  PutCallAddressWithArguments(%#v, %#v)\n", *c.Target, args)
		return errors.Wrap(w.PutCallAddressWithArguments(*c.Target, args...), "Call")
	case c.Reg != nil && c.Target == nil:
		reg, err := c.Reg.Resolve()
		if err != nil {
			return errors.Wrap(err, "Call")
		}
		stubfile.Log("  PutCallRegWithArguments(%#v, %#v)\n", reg, args)
		return errors.Wrap(w.PutCallRegWithArguments(reg, args...), "Call")
	default:
		return errors.New("Call: exactly one of Target, Reg must be set")
	}
}

// Validate checks every stub's instructions for well-formedness: exactly
// one instruction type set per bullet (already enforced during Parse) plus
// the Enabled/Description bookkeeping fields are used at most once per
// stub.
func (ss *StubSet) Validate() error {
	for name, stub := range *ss {
		ec, dc := 0, 0
		for _, i := range stub {
			if i.Enabled != nil {
				ec++
			}
			if i.Description != nil {
				dc++
			}
		}
		if ec > 1 {
			return errors.Errorf("stub `%s`: more than one Enabled instruction", name)
		}
		if dc > 1 {
			return errors.Errorf("stub `%s`: more than one Description instruction", name)
		}
	}
	return nil
}

// ApplyTo emits every enabled stub's instructions onto w, in file order,
// finishing with a single Flush so label and literal fixups across the
// whole stub set resolve together.
func (ss *StubSet) ApplyTo(w *thumbwriter.Writer) error {
	if err := ss.Validate(); err != nil {
		return errors.Wrap(err, "invalid stub script")
	}

	for name, stub := range *ss {
		enabled := true
		for _, i := range stub {
			if i.Enabled != nil {
				enabled = *i.Enabled
			}
		}
		if !enabled {
			stubfile.Log("  skipping disabled stub `%s`\n", name)
			continue
		}

		stubfile.Log("  emitting stub `%s`\n", name)
		for _, i := range stub {
			if err := i.applyTo(w); err != nil {
				return errors.Wrapf(err, "stub `%s`", name)
			}
		}
	}

	return errors.Wrap(w.Flush(), "flush")
}

// applyTo dispatches a single Instruction bullet to its operation.
func (i *Instruction) applyTo(w *thumbwriter.Writer) error {
	switch {
	case i.Enabled != nil, i.Description != nil:
		return nil
	case i.DefineLabel != nil:
		return i.DefineLabel.ApplyTo(w)
	case i.Nop != nil:
		return i.Nop.ApplyTo(w)
	case i.Breakpoint != nil:
		return i.Breakpoint.ApplyTo(w)
	case i.Bkpt != nil:
		return i.Bkpt.ApplyTo(w)
	case i.Mov != nil:
		return i.Mov.ApplyTo(w)
	case i.Add != nil:
		return i.Add.ApplyTo(w)
	case i.Sub != nil:
		return i.Sub.ApplyTo(w)
	case i.Cmp != nil:
		return i.Cmp.ApplyTo(w)
	case i.Push != nil:
		return i.Push.applyPush(w)
	case i.Pop != nil:
		return i.Pop.applyPop(w)
	case i.Ldr != nil:
		return i.Ldr.ApplyTo(w)
	case i.Str != nil:
		return i.Str.ApplyTo(w)
	case i.B != nil:
		return i.B.applyB(w)
	case i.Bl != nil:
		return i.Bl.applyBl(w)
	case i.Blx != nil:
		return i.Blx.applyBlx(w)
	case i.Bx != nil:
		return i.Bx.applyBx(w)
	case i.BlxReg != nil:
		return i.BlxReg.applyBlxReg(w)
	case i.Cbz != nil:
		return i.Cbz.applyCbz(w)
	case i.Cbnz != nil:
		return i.Cbnz.applyCbnz(w)
	case i.Call != nil:
		return i.Call.ApplyTo(w)
	default:
		return errors.New("empty instruction")
	}
}
