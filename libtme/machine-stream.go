package libtme

import (
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/fine-structures/tme"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

// MachineStream is one stage of a pipeline of machines.
// Each stage owns a goroutine that closes Outlet once its inlet is drained.
type MachineStream struct {
	Outlet chan tme.Machine
}

func NewMachineStream() *MachineStream {
	stream := &MachineStream{
		Outlet: make(chan tme.Machine, 1),
	}
	return stream
}

// EnumOpts specifies a run of consecutive bijective indices to enumerate.
type EnumOpts struct {
	Start *big.Int // first global index; nil implies BaseOffset(Size)
	Count int64    // number of machines; 0 implies through the last machine of Size
	Size  int      // machine size; used when Start is nil or Count is 0
}

// EnumMachines streams the machines with consecutive bijective indices described by opts.
func EnumMachines(opts EnumOpts) (*MachineStream, error) {
	start := opts.Start
	if start == nil {
		if opts.Size < 1 {
			return nil, errors.Wrap(tme.ErrRange, "enumeration needs a start index or a size")
		}
		start = BaseOffset(opts.Size)
	} else if start.Sign() < 0 {
		return nil, errors.Wrapf(tme.ErrRange, "negative start index %v", start)
	}

	end := new(big.Int)
	if opts.Count > 0 {
		end.Add(start, big.NewInt(opts.Count))
	} else if opts.Size >= 1 {
		end.Add(BaseOffset(opts.Size), CountForSize(opts.Size))
	} else {
		return nil, errors.Wrap(tme.ErrRange, "enumeration needs a count or a size")
	}

	next := NewMachineStream()
	go func() {
		idx := new(big.Int).Set(start)
		one := big.NewInt(1)
		for ; idx.Cmp(end) < 0; idx.Add(idx, one) {
			m, err := DecodeMachine(idx)
			if err != nil {
				panic(err)
			}
			next.Outlet <- m
		}
		next.Close()
	}()

	return next, nil
}

// StreamMachine returns a stream holding a copy of m.
func StreamMachine(m tme.Machine) *MachineStream {
	next := NewMachineStream()
	next.Outlet <- m.MakeCopy()
	next.Close()
	return next
}

func (stream *MachineStream) Close() {
	if stream.Outlet != nil {
		close(stream.Outlet)
	}
}

// PullAll drains the stream and returns how many machines it held.
func (stream *MachineStream) PullAll() int {
	count := int(0)
	for range stream.Outlet {
		count++
	}
	return count
}

// Collect drains the stream into a slice.
func (stream *MachineStream) Collect() []tme.Machine {
	var all []tme.Machine
	for m := range stream.Outlet {
		all = append(all, m)
	}
	return all
}

// Print writes each machine to out, then passes it on.  out is closed when the stream drains.
//
// Each entry is "[label,]count,[index,]" followed by the machine in opts.Format.
// Tables start on the next line; raw bytes are written as hex.
func (stream *MachineStream) Print(
	out io.WriteCloser,
	opts tme.PrintOpts) *MachineStream {

	next := NewMachineStream()

	go func() {
		buf := strings.Builder{}
		buf.Grow(256)

		count := 0
		for m := range stream.Outlet {
			if len(opts.Label) > 0 {
				buf.WriteString(opts.Label)
				buf.WriteByte(',')
			}

			count++
			fmt.Fprintf(&buf, "%06d,", count)
			if err := writeMachineEntry(&buf, m, opts); err != nil {
				klog.Warningf("skipping machine %d: %v", count, err)
			}
			buf.WriteByte('\n')
			out.Write([]byte(buf.String()))
			buf.Reset()
			next.Outlet <- m
		}
		out.Close()
		next.Close()
	}()

	return next
}

func writeMachineEntry(buf *strings.Builder, m tme.Machine, opts tme.PrintOpts) error {
	if opts.Index {
		idx, err := EncodeMachine(m)
		if err != nil {
			return err
		}
		buf.WriteString(idx.String())
		buf.WriteByte(',')
	}
	body, err := Encode(m, opts.Format)
	if err != nil {
		return err
	}
	switch opts.Format.Format {
	case tme.FormatTable:
		buf.WriteByte('\n')
		buf.Write(body)
	case tme.FormatBytes:
		buf.WriteString(hex.EncodeToString(body))
	default:
		buf.Write(body)
	}
	return nil
}

// AddTo offers each machine to target and passes on only those target reports as newly added.
func (stream *MachineStream) AddTo(target tme.MachineAdder) *MachineStream {
	next := NewMachineStream()

	go func() {
		added, total := 0, 0
		for m := range stream.Outlet {
			total++
			if target.TryAddMachine(m) {
				added++
				next.Outlet <- m
			}
		}
		klog.V(2).Infof("AddTo: added %d of %d machines", added, total)
		next.Close()
	}()

	return next
}

// Select passes on only the machines sel selects.
func (stream *MachineStream) Select(sel tme.MachineSelector) *MachineStream {
	next := NewMachineStream()

	go func() {
		for m := range stream.Outlet {
			if sel.Selects(m) {
				next.Outlet <- m
			}
		}
		next.Close()
	}()

	return next
}

// SelectFromCatalog streams the machines in cat selected by sel.
func SelectFromCatalog(cat tme.Catalog, sel tme.MachineSelector) *MachineStream {
	next := NewMachineStream()

	onHit := make(chan tme.Machine, 4)

	go func() {
		cat.Select(sel, onHit)
		close(onHit)
	}()

	go func() {
		for m := range onHit {
			if sel.Selects(m) {
				next.Outlet <- m
			}
		}
		next.Close()
	}()

	return next
}
