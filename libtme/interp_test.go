package libtme

import (
	"errors"
	"testing"

	"github.com/fine-structures/tme"
)

func TestRunOneStep(t *testing.T) {
	m := mustParseTable(t, "0 _ 1 r halt\n0 1 1 l halt")
	res, err := Run(m, DefaultRunOpts)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Halted || res.Steps != 1 || res.State != tme.Halt {
		t.Fatalf("expected a halt after 1 step, got %+v", res)
	}
	if res.Position != 1 {
		t.Fatalf("expected head at 1, got %d", res.Position)
	}
	if sym, _ := res.Tape.Get(0); sym.(tme.Symbol) != tme.Mark {
		t.Fatal("expected a mark at cell 0")
	}
	if string(res.AppendTape(nil)) != "1" {
		t.Fatalf("unexpected tape %q", res.AppendTape(nil))
	}
}

func TestRunChampions(t *testing.T) {
	gT = t
	expect := []struct {
		idx   int64
		steps int64
		marks int
	}{
		{0, 1, 0},
		{20317, 6, 4},
		{22580604002, 107, 13},
	}
	for _, e := range expect {
		res, err := Run(decodeInt(e.idx), DefaultRunOpts)
		if err != nil {
			t.Fatal(err)
		}
		if !res.Halted || res.Steps != e.steps || res.NumMarks() != e.marks {
			t.Fatalf("machine %d: halted=%v steps=%d marks=%d, want %d steps, %d marks", e.idx, res.Halted, res.Steps, res.NumMarks(), e.steps, e.marks)
		}
	}

	bb2, _ := Run(decodeInt(20317), DefaultRunOpts)
	if got := string(bb2.AppendTape(nil)); got != "1111" {
		t.Fatalf("unexpected bb2 tape %q", got)
	}
}

func TestRunStepLimit(t *testing.T) {
	gT = t
	// Index 15: state 0 loops to itself on both symbols and never halts
	res, err := Run(decodeInt(15), RunOpts{MaxSteps: 500})
	if err != nil {
		t.Fatal(err)
	}
	if res.Halted || res.Steps != 500 || res.State != 0 {
		t.Fatalf("expected 500 steps without halting, got %+v", res)
	}

	if _, err = Run(tme.Machine{}, DefaultRunOpts); !errors.Is(err, tme.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
