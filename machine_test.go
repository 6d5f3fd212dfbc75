package tme

import (
	"errors"
	"testing"
)

func mustInst(t *testing.T, write, move, next int) Instruction {
	t.Helper()
	inst, err := NewInstruction(write, move, next)
	if err != nil {
		t.Fatal(err)
	}
	return inst
}

func TestNewInstruction(t *testing.T) {
	inst := mustInst(t, 1, 0, -1)
	if inst.Write != Mark || inst.Move != Left || !inst.Next.IsHalt() {
		t.Fatalf("unexpected instruction %+v", inst)
	}

	bad := [][3]int{
		{2, 0, 0},
		{-1, 0, 0},
		{0, 2, 0},
		{0, 0, -2},
	}
	for _, args := range bad {
		_, err := NewInstruction(args[0], args[1], args[2])
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("NewInstruction%v: expected ErrValidation, got %v", args, err)
		}
	}
}

func TestStateRefCode(t *testing.T) {
	if Halt.Code() != 0 {
		t.Fatal("halt should have code 0")
	}
	for i := -1; i < 5; i++ {
		s := StateRef(i)
		if StateRefFromCode(s.Code()) != s {
			t.Fatalf("code round trip failed for %d", i)
		}
	}
}

func TestValidate(t *testing.T) {
	var empty Machine
	if err := empty.Validate(); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}

	m := Machine{
		NewRule(mustInst(t, 1, 1, 1), mustInst(t, 1, 0, 0)),
	}
	if err := m.Validate(); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for out of range state, got %v", err)
	}

	m = append(m, NewRule(mustInst(t, 1, 0, 0), mustInst(t, 1, 1, -1)))
	if err := m.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestAppendTable(t *testing.T) {
	bb2 := Machine{
		NewRule(mustInst(t, 1, 1, 1), mustInst(t, 1, 0, 1)),
		NewRule(mustInst(t, 1, 0, 0), mustInst(t, 1, 1, -1)),
	}
	want := "0 _ 1 r 1\n0 1 1 l 1\n1 _ 1 l 0\n1 1 1 r halt"
	if got := bb2.String(); got != want {
		t.Fatalf("table mismatch:\n%s\nwant:\n%s", got, want)
	}
	if bb2[0].OnBlank().Next != 1 || bb2[1].OnMark().Next != Halt {
		t.Fatal("rule lookup failed")
	}

	cp := bb2.MakeCopy()
	if !cp.IsEqual(bb2) {
		t.Fatal("copy should be equal")
	}
	cp[1][Mark].Next = 0
	if cp.IsEqual(bb2) {
		t.Fatal("copy should not share storage")
	}
}
