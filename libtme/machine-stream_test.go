package libtme

import (
	"bytes"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/fine-structures/tme"
)

type memAdder struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func (set *memAdder) TryAddMachine(m tme.Machine) bool {
	set.mu.Lock()
	defer set.mu.Unlock()
	key := m.String()
	if _, exists := set.seen[key]; exists {
		return false
	}
	set.seen[key] = struct{}{}
	return true
}

type closingBuffer struct {
	bytes.Buffer
	closed bool
}

func (buf *closingBuffer) Close() error {
	buf.closed = true
	return nil
}

func TestEnumMachines(t *testing.T) {
	stream, err := EnumMachines(EnumOpts{Size: 1})
	if err != nil {
		t.Fatal(err)
	}
	all := stream.Collect()
	if len(all) != 64 {
		t.Fatalf("expected 64 one-state machines, got %d", len(all))
	}
	for i, m := range all {
		idx, _ := EncodeMachine(m)
		if idx.Int64() != int64(i) {
			t.Fatalf("machine %d has index %v", i, idx)
		}
	}

	stream, err = EnumMachines(EnumOpts{Start: big.NewInt(60), Count: 10})
	if err != nil {
		t.Fatal(err)
	}
	sel := tme.MachineSelector{MinStates: 2, MaxStates: 2}
	if n := stream.Select(sel).PullAll(); n != 6 {
		t.Fatalf("expected indices 64..69 to be 2-state, got %d", n)
	}

	if _, err = EnumMachines(EnumOpts{}); !errors.Is(err, tme.ErrRange) {
		t.Fatalf("expected ErrRange, got %v", err)
	}
	if _, err = EnumMachines(EnumOpts{Start: big.NewInt(-3), Count: 1}); !errors.Is(err, tme.ErrRange) {
		t.Fatalf("expected ErrRange, got %v", err)
	}
}

func TestStreamAddTo(t *testing.T) {
	set := &memAdder{seen: make(map[string]struct{})}

	stream, _ := EnumMachines(EnumOpts{Start: big.NewInt(0), Count: 20})
	if n := stream.AddTo(set).PullAll(); n != 20 {
		t.Fatalf("expected 20 new machines, got %d", n)
	}
	stream, _ = EnumMachines(EnumOpts{Start: big.NewInt(10), Count: 20})
	if n := stream.AddTo(set).PullAll(); n != 10 {
		t.Fatalf("expected 10 new machines, got %d", n)
	}
}

func TestStreamPrint(t *testing.T) {
	gT = t
	out := &closingBuffer{}
	opts := tme.PrintOpts{
		Label:  "bb",
		Format: tme.SpecDecimal,
		Index:  false,
	}
	n := StreamMachine(decodeInt(20317)).Print(out, opts).PullAll()
	if n != 1 || !out.closed {
		t.Fatal("print stage should pass the machine on and close its output")
	}
	if got := out.String(); got != "bb,000001,20317\n" {
		t.Fatalf("unexpected output %q", got)
	}

	out = &closingBuffer{}
	StreamMachine(decodeInt(20317)).Print(out, tme.DefaultPrintOpts).PullAll()
	want := "000001,20317,\n" + bb2Table + "\n"
	if got := out.String(); got != want {
		t.Fatalf("unexpected output %q", got)
	}

	out = &closingBuffer{}
	StreamMachine(decodeInt(20317)).Print(out, tme.PrintOpts{Format: tme.SpecBytes}).PullAll()
	if got := strings.TrimSpace(out.String()); got != "000001,4f5d" {
		t.Fatalf("unexpected output %q", got)
	}
}
