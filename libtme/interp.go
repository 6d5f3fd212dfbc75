package libtme

import (
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/fine-structures/tme"
)

// RunOpts bounds a reference run.
type RunOpts struct {
	MaxSteps int64 // run stops (without halting) once this many steps have been taken
}

// DefaultRunOpts is enough for every champion machine up to 4 states.
var DefaultRunOpts = RunOpts{
	MaxSteps: 1 << 20,
}

// RunResult is the state of a reference run when it stopped.
type RunResult struct {
	Steps    int64
	Halted   bool
	State    tme.StateRef // Halt if Halted
	Position int          // head position; the run starts at 0
	Tape     *treemap.Map // position (int) => tme.Symbol, for every cell the head has visited
}

// Run is a reference interpreter: it starts m in its first state on an all-blank tape and applies
// instructions until m halts or opts.MaxSteps is reached.
func Run(m tme.Machine, opts RunOpts) (RunResult, error) {
	res := RunResult{
		Tape: treemap.NewWithIntComparator(),
	}
	if err := m.Validate(); err != nil {
		return res, err
	}

	state := tme.StateRef(0)
	for res.Steps < opts.MaxSteps {
		read := tme.Blank
		if sym, found := res.Tape.Get(res.Position); found {
			read = sym.(tme.Symbol)
		}
		inst := m[state][read]
		res.Tape.Put(res.Position, inst.Write)
		if inst.Move == tme.Right {
			res.Position++
		} else {
			res.Position--
		}
		state = inst.Next
		res.Steps++
		if state.IsHalt() {
			res.Halted = true
			break
		}
	}

	res.State = state
	return res, nil
}

// NumMarks returns the number of marks on the tape.
func (res *RunResult) NumMarks() int {
	count := 0
	for _, sym := range res.Tape.Values() {
		if sym.(tme.Symbol) == tme.Mark {
			count++
		}
	}
	return count
}

// AppendTape appends the visited span of the tape to dst as '_' and '1' glyphs, leftmost cell first.
func (res *RunResult) AppendTape(dst []byte) []byte {
	if res.Tape.Empty() {
		return dst
	}
	lo, _ := res.Tape.Min()
	hi, _ := res.Tape.Max()
	for pos := lo.(int); pos <= hi.(int); pos++ {
		sym := tme.Blank
		if val, found := res.Tape.Get(pos); found {
			sym = val.(tme.Symbol)
		}
		dst = append(dst, tme.SymbolGlyph(sym))
	}
	return dst
}
