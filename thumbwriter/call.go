package thumbwriter

// ArgKind selects whether an Argument carries an immediate address or a
// register to be moved/pushed into place.
type ArgKind int

const (
	ArgAddress ArgKind = iota
	ArgRegister
)

// Argument is one entry in a call's argument list: either an
// immediate address to be materialized into the target register, or a
// register whose value is moved (or pushed, for the four-and-beyond stack
// arguments) into place.
type Argument struct {
	Kind    ArgKind
	Address uint64
	Reg     Reg
}

// ArgAddr constructs an Argument carrying an immediate address.
func ArgAddr(address uint64) Argument {
	return Argument{Kind: ArgAddress, Address: address}
}

// ArgReg constructs an Argument carrying a register.
func ArgReg(reg Reg) Argument {
	return Argument{Kind: ArgRegister, Reg: reg}
}

// PutCallAddressWithArguments appends a call to an immediate Thumb address:
// argument setup, then `ldr lr, =func` / `blx lr`. Nothing is emitted after
// the call (argument-list teardown is a no-op).
func (w *Writer) PutCallAddressWithArguments(target uint64, args ...Argument) error {
	if err := w.putArgumentListSetup(args); err != nil {
		return err
	}
	if err := w.PutLdrRegAddress(LR, target); err != nil {
		return err
	}
	w.PutBlxReg(LR)
	return nil
}

// PutCallRegWithArguments appends a call to an address held in a register:
// argument setup, `blx reg`, then teardown.
func (w *Writer) PutCallRegWithArguments(reg Reg, args ...Argument) error {
	if err := w.putArgumentListSetup(args); err != nil {
		return err
	}
	w.PutBlxReg(reg)
	return nil
}

// putArgumentListSetup marshals args into place in reverse order
// (gum_thumb_writer_put_argument_list_setup): the first four arguments
// go into R0-R3 (an address is loaded directly, a register already holding
// its value is left alone), and everything from the fifth argument onward is
// pushed onto the stack, address arguments first materialized into R0.
// Argument-list teardown is a no-op in this calling convention, matching the
// original, so there is no corresponding teardown step to call.
func (w *Writer) putArgumentListSetup(args []Argument) error {
	for i := len(args) - 1; i >= 0; i-- {
		arg := args[i]
		r := Reg(i)

		if i < 4 {
			if arg.Kind == ArgAddress {
				if err := w.PutLdrRegAddress(r, arg.Address); err != nil {
					return err
				}
			} else if arg.Reg != r {
				w.PutMovRegReg(r, arg.Reg)
			}
			continue
		}

		if arg.Kind == ArgAddress {
			if err := w.PutLdrRegAddress(R0, arg.Address); err != nil {
				return err
			}
			if err := w.PutPushRegs(R0); err != nil {
				return err
			}
		} else {
			if err := w.PutPushRegs(arg.Reg); err != nil {
				return err
			}
		}
	}
	return nil
}
