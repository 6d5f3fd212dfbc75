package libtme

import (
	"math/big"
	"sync"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/fine-structures/tme"
	"github.com/pkg/errors"
)

// CountForSize returns the number of distinct n-state machines: 16^n * (n+1)^(2n).
//
// Each instruction picks a write symbol (2), a direction (2) and a next state (n+1, including Halt),
// and each of the n states has two instructions.  A size less than 1 returns 0.
func CountForSize(n int) *big.Int {
	if n < 1 {
		return new(big.Int)
	}
	count := big.NewInt(int64(n) + 1)
	count.Exp(count, big.NewInt(2*int64(n)), nil)
	return count.Lsh(count, uint(4*n))
}

// BaseOffset returns the global index of the first n-state machine, the sum of CountForSize(i) for i < n.
func BaseOffset(n int) *big.Int {
	return gOffsets.baseOffset(n)
}

// Locate returns the machine size n and the index local to that size for a global index.
func Locate(idx *big.Int) (n int, local *big.Int, err error) {
	if idx == nil || idx.Sign() < 0 {
		return 0, nil, errors.Wrapf(tme.ErrRange, "no machine has index %v", idx)
	}
	n, offset := gOffsets.locate(idx)
	return n, new(big.Int).Sub(idx, offset), nil
}

// offsetTable caches cumulative offsets by size.
//
// Entries are only ever appended, so a value handed out is never mutated afterwards.
type offsetTable struct {
	mu      sync.Mutex
	offsets []*big.Int // offsets[n-1] is BaseOffset(n); the last entry is the first offset not yet in byOffset
	counts  []*big.Int // counts[n-1] is CountForSize(n)

	// byOffset maps each known BaseOffset(n) to n, so a global index resolves with a floor query.
	byOffset *redblacktree.Tree
}

var gOffsets = newOffsetTable()

func newOffsetTable() *offsetTable {
	tbl := &offsetTable{
		offsets: []*big.Int{new(big.Int)},
		byOffset: redblacktree.NewWith(func(a, b interface{}) int {
			return a.(*big.Int).Cmp(b.(*big.Int))
		}),
	}
	return tbl
}

// growTo extends the table so that it holds BaseOffset(n) and CountForSize(n).
// Caller holds tbl.mu.
func (tbl *offsetTable) growTo(n int) {
	for have := len(tbl.counts); have < n; have = len(tbl.counts) {
		size := have + 1
		count := CountForSize(size)
		offset := tbl.offsets[have]
		tbl.counts = append(tbl.counts, count)
		tbl.offsets = append(tbl.offsets, new(big.Int).Add(offset, count))
		tbl.byOffset.Put(offset, size)
	}
}

func (tbl *offsetTable) baseOffset(n int) *big.Int {
	if n < 1 {
		return new(big.Int)
	}
	tbl.mu.Lock()
	tbl.growTo(n)
	offset := tbl.offsets[n-1]
	tbl.mu.Unlock()
	return new(big.Int).Set(offset)
}

// locate returns the size whose range holds idx along with that size's base offset.
func (tbl *offsetTable) locate(idx *big.Int) (int, *big.Int) {
	tbl.mu.Lock()
	defer tbl.mu.Unlock()

	// Extend until the end of the last known range is past idx
	for {
		end := tbl.offsets[len(tbl.offsets)-1]
		if idx.Cmp(end) < 0 && len(tbl.counts) > 0 {
			break
		}
		tbl.growTo(len(tbl.counts) + 1)
	}

	node, found := tbl.byOffset.Floor(idx)
	if !found {
		panic("offset table has no floor for a non-negative index")
	}
	return node.Value.(int), new(big.Int).Set(node.Key.(*big.Int))
}
