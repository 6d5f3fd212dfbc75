package tme

const (

	// MaxStateIndex is the largest 0-based state index an Instruction may reference.
	MaxStateIndex = 1<<30 - 1

	// MaxCatalogSize is the largest machine size (number of states) a Catalog stores.
	MaxCatalogSize = 255

	// HaltName is the table-format name of the halt state.
	HaltName = "halt"
)

// Symbol is a tape symbol of a 2-symbol machine.
type Symbol byte

const (
	Blank Symbol = 0
	Mark  Symbol = 1
)

// Direction is the head movement after an instruction is applied.
type Direction byte

const (
	Left  Direction = 0
	Right Direction = 1
)

// StateRef is a 0-based state index or Halt.
type StateRef int32

// Halt is the StateRef that stops a machine.
const Halt StateRef = -1

// Instruction is the action taken when the head reads a given symbol in a given state.
type Instruction struct {
	Write Symbol
	Move  Direction
	Next  StateRef
}

// Rule is the complete behavior of one state, indexed by the symbol under the head.
type Rule [2]Instruction

// Machine is an ordered list of n Rules where Machine[i] is human-facing "state i+1".
type Machine []Rule

// Format identifies a surface representation of a machine.
type Format int32

const (
	FormatBytes  Format = 0 // raw big-endian bytes of the bijective index
	FormatDigits Format = 1 // base-N digit text of the bijective index
	FormatTable  Format = 2 // readable transition table ("jsturing")
)

// FormatSpec is a Format along with its base (only meaningful for FormatDigits).
type FormatSpec struct {
	Format Format
	Base   int
}

var (
	SpecBytes   = FormatSpec{Format: FormatBytes, Base: 256}
	SpecDecimal = FormatSpec{Format: FormatDigits, Base: 10}
	SpecTable   = FormatSpec{Format: FormatTable}
)

// OnMachineHit is a channel used to return Machines meeting a set of selection criteria.
type OnMachineHit chan<- Machine

// CatalogContext is a container for open / active Catalog instances.
type CatalogContext interface {

	// Attaches the given Catalog to this context.
	AttachCatalog(cat Catalog)

	// Detaches the given Catalog from this context.
	DetachCatalog(cat Catalog)

	// Closes all open catalogs then closes.
	Close()

	// Signals when Close() completed and all open Catalogs have been closed
	Done() <-chan struct{}
}

// CatalogOpts specifies params for opening a Catalog
type CatalogOpts struct {
	DbPathName string // omit for an in-memory db
	ReadOnly   bool   // open in read-only mode
}

// MachineAdder accepts machines, reporting whether each was new.
type MachineAdder interface {

	// Tries to add the given machine.
	// If true is returned, m did not exist and was added.
	TryAddMachine(m Machine) bool
}

// Catalog wraps a database of machines keyed by their bijective index.
type Catalog interface {
	MachineAdder

	// Returns true if this catalog was opened for read-only access.
	IsReadOnly() bool

	// NumMachines returns the number of machines in this catalog having the given number of states.
	// An out of bounds size returns 0.
	NumMachines(numStates int) int64

	// Select sends each machine that meets the selection criteria to onHit, in ascending index order.
	Select(sel MachineSelector, onHit OnMachineHit)

	Close() error
}

// MachineSelector bounds the sizes of selected machines (inclusive).
type MachineSelector struct {
	MinStates int
	MaxStates int
}

// DefaultMachineSelector selects all machines a Catalog can hold.
var DefaultMachineSelector = MachineSelector{
	MinStates: 1,
	MaxStates: MaxCatalogSize,
}

// Selects returns true if m falls within the selection bounds.
func (sel *MachineSelector) Selects(m Machine) bool {
	n := len(m)
	return n >= sel.MinStates && n <= sel.MaxStates
}

// PrintOpts specifies how machines are printed by a stream
type PrintOpts struct {
	Label  string     // Prefix label
	Format FormatSpec // Output format of each machine
	Index  bool       // If set, the decimal bijective index is printed before the machine
}

// DefaultPrintOpts prints each machine as a table prefixed with its index.
var DefaultPrintOpts = PrintOpts{
	Format: SpecTable,
	Index:  true,
}
