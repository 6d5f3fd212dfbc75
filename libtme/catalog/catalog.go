package catalog

import (
	"math/big"
	"runtime"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/fine-structures/tme"
	"github.com/fine-structures/tme/libtme"
	proto "github.com/gogo/protobuf/proto"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

/***

Catalog database format:

	gCatalogStateKey => CatalogState (protobuf)

	NumStates (byte), LocalLen (uint16 BE), LocalIndex (big-endian, minimal) => nil
	...

LocalIndex is the machine's bijective index less BaseOffset(NumStates), so a key alone
identifies its machine.  Since LocalLen precedes LocalIndex, keys sort by size, then
numerically by index, which is the order Select() visits machines in.

***/

var (
	gCatalogStateKey = []byte{0x00, 0x00, 0x01}
)

const (
	kMajorVers = 2026
	kMinorVers = 1

	kKeyHeaderSz = 3
	kMaxLocalLen = 0xFFFF
)

// catalog is a db wrapper for a catalog of machines
type catalog struct {
	ctx        tme.CatalogContext
	readOnly   bool
	mu         sync.Mutex
	stateDirty bool
	state      CatalogState
	db         *badger.DB
}

// OpenCatalog opens (or creates) the catalog described by opts and attaches it to ctx.
func OpenCatalog(ctx tme.CatalogContext, opts tme.CatalogOpts) (tme.Catalog, error) {
	cat := &catalog{
		ctx:      ctx,
		readOnly: opts.ReadOnly,
	}

	dbOpts := badger.DefaultOptions(opts.DbPathName)
	dbOpts.ReadOnly = opts.ReadOnly
	dbOpts.DetectConflicts = false // not needed so disable for performance
	dbOpts.Logger = nil
	dbOpts.MetricsEnabled = false

	// Badger for windows currently does not support read-only mode
	if runtime.GOOS == "windows" {
		dbOpts.ReadOnly = false
	}

	if len(opts.DbPathName) == 0 {
		if opts.ReadOnly {
			return nil, errors.Wrap(tme.ErrBadCatalogParam, "DbPathName must be specified for read-only catalog")
		}
		dbOpts.InMemory = true
	}

	var err error
	cat.db, err = badger.Open(dbOpts)
	if err != nil {
		return nil, err
	}

	// Once the db is open, we consider the catalog ctx blocked until the catalog closes
	ctx.AttachCatalog(cat)

	err = cat.loadState()
	if err == badger.ErrKeyNotFound {
		err = nil
		cat.stateDirty = !cat.readOnly
		cat.state.MajorVers = kMajorVers
		cat.state.MinorVers = kMinorVers
		cat.state.NumMachines = make([]uint64, tme.MaxCatalogSize+1)
	}

	if err == nil && (cat.state.MajorVers != kMajorVers || cat.state.MinorVers != kMinorVers) {
		err = errors.Wrapf(tme.ErrCatalogVersion, "found v%d.%d", cat.state.MajorVers, cat.state.MinorVers)
	}

	if err != nil {
		cat.Close()
		return nil, err
	}

	klog.V(2).Infof("opened catalog %q (read-only: %v)", opts.DbPathName, opts.ReadOnly)
	return cat, nil
}

func (cat *catalog) IsReadOnly() bool {
	return cat.readOnly
}

func (cat *catalog) NumMachines(numStates int) int64 {
	cat.mu.Lock()
	defer cat.mu.Unlock()
	if numStates < 1 || numStates >= len(cat.state.NumMachines) {
		return 0
	}
	return int64(cat.state.NumMachines[numStates])
}

func (cat *catalog) loadState() error {
	err := cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(gCatalogStateKey)
		if err == nil {
			err = item.Value(func(val []byte) error {
				return proto.Unmarshal(val, &cat.state)
			})
		}
		return err
	})
	if err == nil && len(cat.state.NumMachines) <= tme.MaxCatalogSize {
		grown := make([]uint64, tme.MaxCatalogSize+1)
		copy(grown, cat.state.NumMachines)
		cat.state.NumMachines = grown
	}
	return err
}

func (cat *catalog) flushState() error {
	cat.mu.Lock()
	defer cat.mu.Unlock()

	if !cat.stateDirty || cat.db == nil {
		return nil
	}
	err := cat.db.Update(func(txn *badger.Txn) error {
		stateBuf, err := proto.Marshal(&cat.state)
		if err != nil {
			return err
		}
		return txn.Set(gCatalogStateKey, stateBuf)
	})
	if err == nil {
		cat.stateDirty = false
	}
	return err
}

func (cat *catalog) Close() error {
	err := cat.flushState()
	if cat.db != nil {
		if closeErr := cat.db.Close(); err == nil {
			err = closeErr
		}
		cat.db = nil
		cat.ctx.DetachCatalog(cat)
		klog.V(2).Infof("closed catalog")
	}
	return err
}

// AppendMachineKey appends the catalog key of m to key.
func AppendMachineKey(key []byte, m tme.Machine) ([]byte, error) {
	n := len(m)
	if n > tme.MaxCatalogSize {
		return nil, errors.Wrapf(tme.ErrUnsupported, "catalog holds at most %d states (got %d)", tme.MaxCatalogSize, n)
	}
	idx, err := libtme.EncodeMachine(m)
	if err != nil {
		return nil, err
	}
	local := idx.Sub(idx, libtme.BaseOffset(n)).Bytes()
	localLen := len(local)
	if localLen > kMaxLocalLen {
		return nil, errors.Wrapf(tme.ErrUnsupported, "local index of %d bytes", localLen)
	}

	key = append(key, byte(n), byte(localLen>>8), byte(localLen))
	return append(key, local...), nil
}

// MachineFromKey is the inverse of AppendMachineKey.
func MachineFromKey(key []byte) (tme.Machine, error) {
	if len(key) < kKeyHeaderSz || key[0] == 0 {
		return nil, errors.Wrap(tme.ErrFormat, "not a machine key")
	}
	localLen := int(key[1])<<8 | int(key[2])
	if len(key) != kKeyHeaderSz+localLen {
		return nil, errors.Wrap(tme.ErrFormat, "machine key length mismatch")
	}
	n := int(key[0])
	idx := new(big.Int).SetBytes(key[kKeyHeaderSz:])
	idx.Add(idx, libtme.BaseOffset(n))
	return libtme.DecodeMachine(idx)
}

// TryAddMachine adds m if it doesn't already exist.
//
// If true is returned, m was not present and was added.
// If false is returned, m already exists, the catalog is read-only, or m can't be cataloged.
func (cat *catalog) TryAddMachine(m tme.Machine) bool {
	if cat.readOnly {
		return false
	}

	var keyBuf [128]byte
	key, err := AppendMachineKey(keyBuf[:0], m)
	if err != nil {
		klog.Warningf("machine not cataloged: %v", err)
		return false
	}

	txn := cat.db.NewTransaction(true)
	defer txn.Discard()

	_, err = txn.Get(key)
	if err == nil {
		return false
	}
	if err != badger.ErrKeyNotFound {
		panic(err)
	}

	// Badger retains the key until commit, so it can't live on the stack
	if err = txn.Set(append([]byte(nil), key...), nil); err == nil {
		err = txn.Commit()
	}
	if err != nil {
		panic(err)
	}

	cat.mu.Lock()
	cat.state.NumMachines[len(m)]++
	cat.stateDirty = true
	cat.mu.Unlock()

	return true
}

// Select sends each cataloged machine within the bounds of sel to onHit in ascending index order.
func (cat *catalog) Select(sel tme.MachineSelector, onHit tme.OnMachineHit) {
	minStates := sel.MinStates
	if minStates < 1 {
		minStates = 1
	}
	if minStates > tme.MaxCatalogSize {
		return
	}
	minKey := [1]byte{byte(minStates)}

	txn := cat.db.NewTransaction(false)
	defer txn.Discard()

	it := txn.NewIterator(badger.IteratorOptions{
		PrefetchValues: false,
	})
	defer it.Close()

	for it.Seek(minKey[:]); it.Valid(); it.Next() {
		curKey := it.Item().Key()

		// Stop when the size is over the max
		if int(curKey[0]) > sel.MaxStates {
			break
		}

		m, err := MachineFromKey(curKey)
		if err != nil {
			panic(err)
		}
		onHit <- m
	}
}
