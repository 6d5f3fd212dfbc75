package tme

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// NewInstruction validates and forms an Instruction from raw integer codes.
//
// next is a 0-based state index or -1 for Halt.  Whether next is in range for a given machine is
// checked by Machine.Validate since an Instruction does not know the size of its machine.
func NewInstruction(write, move, next int) (Instruction, error) {
	if write != int(Blank) && write != int(Mark) {
		return Instruction{}, errors.Wrapf(ErrValidation, "write symbol %d", write)
	}
	if move != int(Left) && move != int(Right) {
		return Instruction{}, errors.Wrapf(ErrValidation, "direction %d", move)
	}
	if next < int(Halt) || next > MaxStateIndex {
		return Instruction{}, errors.Wrapf(ErrValidation, "next state %d", next)
	}
	return Instruction{
		Write: Symbol(write),
		Move:  Direction(move),
		Next:  StateRef(next),
	}, nil
}

// NewRule forms a Rule from the instructions taken on reading a blank and a mark.
func NewRule(onBlank, onMark Instruction) Rule {
	return Rule{onBlank, onMark}
}

func (r Rule) OnBlank() Instruction {
	return r[Blank]
}

func (r Rule) OnMark() Instruction {
	return r[Mark]
}

// Code returns the digit used for this StateRef in the mixed-radix index: 0 for Halt, i+1 for state i.
func (s StateRef) Code() int {
	return int(s) + 1
}

// StateRefFromCode is the inverse of StateRef.Code.
func StateRefFromCode(code int) StateRef {
	return StateRef(code - 1)
}

func (s StateRef) IsHalt() bool {
	return s == Halt
}

func (s Symbol) IsValid() bool {
	return s == Blank || s == Mark
}

func (d Direction) IsValid() bool {
	return d == Left || d == Right
}

// NumStates returns n, the number of states in this machine.
func (m Machine) NumStates() int {
	return len(m)
}

// Validate checks that m has at least one state and that every instruction is well-formed for a machine of size n.
func (m Machine) Validate() error {
	n := len(m)
	if n == 0 {
		return errors.Wrap(ErrUnsupported, "machine has no states")
	}
	for si, rule := range m {
		for read, inst := range rule {
			if !inst.Write.IsValid() || !inst.Move.IsValid() {
				return errors.Wrapf(ErrValidation, "state %d, read %c", si, SymbolGlyph(Symbol(read)))
			}
			if inst.Next < Halt || int(inst.Next) >= n {
				return errors.Wrapf(ErrValidation, "state %d, read %c: next state %d out of range for %d states", si, SymbolGlyph(Symbol(read)), inst.Next, n)
			}
		}
	}
	return nil
}

// IsEqual returns true if m and other have the same size and identical rules.
func (m Machine) IsEqual(other Machine) bool {
	if len(m) != len(other) {
		return false
	}
	for i := range m {
		if m[i] != other[i] {
			return false
		}
	}
	return true
}

// MakeCopy returns a copy of m that shares no storage with it.
func (m Machine) MakeCopy() Machine {
	return append(Machine(nil), m...)
}

// SymbolGlyph returns the table glyph for a symbol: '_' for Blank, '1' for Mark.
func SymbolGlyph(s Symbol) byte {
	if s == Mark {
		return '1'
	}
	return '_'
}

// DirectionGlyph returns the table glyph for a direction: 'l' or 'r'.
func DirectionGlyph(d Direction) byte {
	if d == Right {
		return 'r'
	}
	return 'l'
}

// AppendTable appends the readable transition table of m to dst.
//
// Lines are ordered by ascending state and, within a state, the blank case before the mark case.
// The print order is fixed independently of the digit order of the bijective index.
func (m Machine) AppendTable(dst []byte) []byte {
	for si, rule := range m {
		for read, inst := range rule {
			if si != 0 || read != 0 {
				dst = append(dst, '\n')
			}
			dst = strconv.AppendInt(dst, int64(si), 10)
			dst = append(dst, ' ', SymbolGlyph(Symbol(read)), ' ', SymbolGlyph(inst.Write), ' ', DirectionGlyph(inst.Move), ' ')
			if inst.Next.IsHalt() {
				dst = append(dst, HaltName...)
			} else {
				dst = strconv.AppendInt(dst, int64(inst.Next), 10)
			}
		}
	}
	return dst
}

// WriteAsTable writes the readable transition table of m to out.
func (m Machine) WriteAsTable(out io.Writer) error {
	var scrap [256]byte
	_, err := out.Write(m.AppendTable(scrap[:0]))
	return err
}

func (m Machine) String() string {
	b := strings.Builder{}
	m.WriteAsTable(&b)
	return b.String()
}
