package pytme

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fine-structures/tme"
	"github.com/fine-structures/tme/libtme"
	"github.com/fine-structures/tme/libtme/catalog"
	"github.com/go-python/gpython/py"
)

var (
	LIB_VERSION = "v1.2026.1"
)

var (
	pyMachineType       = py.NewType("Machine", "a Turing machine with 2 symbols and one or more states")
	pyMachineStreamType = py.NewType("MachineStream", "libtme.MachineStream")
	pyCatalogType       = py.NewType("Catalog", "tme.Catalog")
	pyWorkspaceType     = py.NewType("Workspace", "collects active session resources and catalogs")
)

// toBigInt accepts an int, a long int or a decimal string.
func toBigInt(obj py.Object) (*big.Int, error) {
	switch v := obj.(type) {
	case py.Int:
		return big.NewInt(int64(v)), nil
	case *py.BigInt:
		return new(big.Int).Set((*big.Int)(v)), nil
	case py.String:
		idx, err := libtme.ParseDigits(string(v), 10)
		if err != nil {
			return nil, py.ExceptionNewf(py.ValueError, "%v", err)
		}
		return idx, nil
	}
	return nil, py.ExceptionNewf(py.TypeError, "expected an int (got %v)", obj.Type().Name)
}

func fromBigInt(x *big.Int) py.Object {
	if x.IsInt64() {
		return py.Int(x.Int64())
	}
	return (*py.BigInt)(new(big.Int).Set(x))
}

func toSize(obj py.Object) (int, error) {
	n, err := py.GetInt(obj)
	if err != nil {
		return 0, err
	}
	if n < 1 || n > tme.MaxStateIndex {
		return 0, py.ExceptionNewf(py.ValueError, "machine size %d is out of range", n)
	}
	return int(n), nil
}

func toFormatSpec(obj py.Object) (tme.FormatSpec, error) {
	ext, isStr := obj.(py.String)
	if !isStr {
		return tme.FormatSpec{}, py.ExceptionNewf(py.TypeError, "expected a format suffix such as 'b10' or 'jst'")
	}
	spec, err := libtme.ParseSuffix(string(ext))
	if err != nil {
		return spec, py.ExceptionNewf(py.ValueError, "%v", err)
	}
	return spec, nil
}

func wrapError(err error) error {
	switch {
	case errors.Is(err, tme.ErrRange):
		return py.ExceptionNewf(py.IndexError, "%v", err)
	case errors.Is(err, tme.ErrFormat), errors.Is(err, tme.ErrValidation), errors.Is(err, tme.ErrUnsupported):
		return py.ExceptionNewf(py.ValueError, "%v", err)
	}
	return py.ExceptionNewf(py.RuntimeError, "%v", err)
}

func py_Count(module py.Object, args py.Tuple) (py.Object, error) {
	if len(args) != 1 {
		return nil, py.ExceptionNewf(py.TypeError, "Count() takes a machine size")
	}
	n, err := toSize(args[0])
	if err != nil {
		return nil, err
	}
	return fromBigInt(libtme.CountForSize(n)), nil
}

func py_Offset(module py.Object, args py.Tuple) (py.Object, error) {
	if len(args) != 1 {
		return nil, py.ExceptionNewf(py.TypeError, "Offset() takes a machine size")
	}
	n, err := toSize(args[0])
	if err != nil {
		return nil, err
	}
	return fromBigInt(libtme.BaseOffset(n)), nil
}

func py_FromIndex(module py.Object, args py.Tuple) (py.Object, error) {
	if len(args) != 1 {
		return nil, py.ExceptionNewf(py.TypeError, "FromIndex() takes an index")
	}
	idx, err := toBigInt(args[0])
	if err != nil {
		return nil, err
	}
	m, err := libtme.DecodeMachine(idx)
	if err != nil {
		return nil, wrapError(err)
	}
	return pyMachine{m}, nil
}

// Arg 1 (str|bytes): encoded machine
// Arg 2 (str): format suffix
func py_Decode(module py.Object, args py.Tuple) (py.Object, error) {
	if len(args) != 2 {
		return nil, py.ExceptionNewf(py.TypeError, "Decode() takes data and a format suffix")
	}
	spec, err := toFormatSpec(args[1])
	if err != nil {
		return nil, err
	}
	var data []byte
	switch v := args[0].(type) {
	case py.String:
		data = []byte(v)
	case py.Bytes:
		data = []byte(v)
	default:
		return nil, py.ExceptionNewf(py.TypeError, "expected str or bytes (got %v)", args[0].Type().Name)
	}
	m, err := libtme.Decode(data, spec)
	if err != nil {
		return nil, wrapError(err)
	}
	return pyMachine{m}, nil
}

// Arg 1 (Machine): machine to encode
// Arg 2 (str): format suffix; 'bin' returns bytes, all others return str
func py_Encode(module py.Object, args py.Tuple) (py.Object, error) {
	if len(args) != 2 {
		return nil, py.ExceptionNewf(py.TypeError, "Encode() takes a Machine and a format suffix")
	}
	m, err := getMachine(args[0])
	if err != nil {
		return nil, err
	}
	spec, err := toFormatSpec(args[1])
	if err != nil {
		return nil, err
	}
	data, err := libtme.Encode(m.Machine, spec)
	if err != nil {
		return nil, wrapError(err)
	}
	if spec.Format == tme.FormatBytes {
		return py.Bytes(data), nil
	}
	return py.String(data), nil
}

// Enum(size) streams every machine of the given size.
// Enum(start, count) streams count machines starting at global index start.
func py_Enum(module py.Object, args py.Tuple) (py.Object, error) {
	var opts libtme.EnumOpts
	switch len(args) {
	case 1:
		n, err := toSize(args[0])
		if err != nil {
			return nil, err
		}
		opts.Size = n
	case 2:
		start, err := toBigInt(args[0])
		if err != nil {
			return nil, err
		}
		count, err := py.GetInt(args[1])
		if err != nil {
			return nil, err
		}
		if count < 1 {
			return nil, py.ExceptionNewf(py.ValueError, "count must be positive")
		}
		opts.Start = start
		opts.Count = int64(count)
	default:
		return nil, py.ExceptionNewf(py.TypeError, "Enum() takes a size or a start index and count")
	}

	stream, err := libtme.EnumMachines(opts)
	if err != nil {
		return nil, wrapError(err)
	}
	return wrapMachineStream(stream), nil
}

func getMachine(obj py.Object) (pyMachine, error) {
	m, ok := obj.(pyMachine)
	if !ok {
		return m, py.ExceptionNewf(py.TypeError, "expected Machine object (got %v)", obj.Type().Name)
	}
	return m, nil
}

type pyMachine struct {
	tme.Machine
}

func (m pyMachine) Type() *py.Type {
	return pyMachineType
}

func (m pyMachine) M__str__() (py.Object, error) {
	return py.String(m.String()), nil
}

func (m pyMachine) M__repr__() (py.Object, error) {
	return m.M__str__()
}

func py_Machine_Index(self py.Object, args py.Tuple) (py.Object, error) {
	m := self.(pyMachine)
	idx, err := libtme.EncodeMachine(m.Machine)
	if err != nil {
		return nil, wrapError(err)
	}
	return fromBigInt(idx), nil
}

func py_Machine_NumStates(self py.Object, args py.Tuple) (py.Object, error) {
	m := self.(pyMachine)
	return py.Int(m.NumStates()), nil
}

func py_Machine_Table(self py.Object, args py.Tuple) (py.Object, error) {
	return self.(pyMachine).M__str__()
}

// Run([limit]) returns (halted, steps, marks, tape)
func py_Machine_Run(self py.Object, args py.Tuple) (py.Object, error) {
	m := self.(pyMachine)
	opts := libtme.DefaultRunOpts
	if len(args) > 0 {
		limit, err := py.GetInt(args[0])
		if err != nil {
			return nil, err
		}
		opts.MaxSteps = int64(limit)
	}
	res, err := libtme.Run(m.Machine, opts)
	if err != nil {
		return nil, wrapError(err)
	}
	halted := py.False
	if res.Halted {
		halted = py.True
	}
	return py.Tuple{
		halted,
		py.Int(res.Steps),
		py.Int(res.NumMarks()),
		py.String(res.AppendTape(nil)),
	}, nil
}

func py_Machine_Stream(self py.Object, args py.Tuple) (py.Object, error) {
	m := self.(pyMachine)
	return wrapMachineStream(libtme.StreamMachine(m.Machine)), nil
}

const (
	READ_ONLY = 0x01

	kWorkspaceAttr = "_Workspace"
)

type Workspace struct {
	CatalogCtx tme.CatalogContext
}

func (ws *Workspace) Close() {
	ws.CatalogCtx.Close()
	<-ws.CatalogCtx.Done()
}

func (ws *Workspace) Type() *py.Type {
	return pyWorkspaceType
}

func py_GetWorkspace(module py.Object, args py.Tuple) (py.Object, error) {
	wsObj, _ := py.GetAttrString(module, kWorkspaceAttr)
	if wsObj == nil {
		ws := &Workspace{
			CatalogCtx: tme.NewCatalogContext(),
		}
		wsObj = ws
		py.SetAttrString(module, kWorkspaceAttr, wsObj)
	}
	return wsObj, nil
}

func py_Workspace_CatalogExists(self py.Object, args py.Tuple) (py.Object, error) {
	_ = self.(*Workspace)

	var pathname string
	err := py.LoadTuple(args, []interface{}{&pathname})
	if err != nil {
		return nil, err
	}
	_, err = os.Stat(pathname)
	if os.IsNotExist(err) {
		return py.False, nil
	}
	return py.True, nil
}

// OpenCatalog([pathname[, flags]]) opens an in-memory catalog when pathname is empty or omitted.
func py_Workspace_OpenCatalog(self py.Object, args py.Tuple) (py.Object, error) {
	ws := self.(*Workspace)

	var pathname string
	var flags int32
	if len(args) > 0 {
		if err := py.LoadTuple(args[:1], []interface{}{&pathname}); err != nil {
			return nil, err
		}
	}
	if len(args) > 1 {
		if err := py.LoadTuple(args[1:2], []interface{}{&flags}); err != nil {
			return nil, err
		}
	}

	opts := tme.CatalogOpts{
		ReadOnly:   (flags & READ_ONLY) != 0,
		DbPathName: pathname,
	}

	cat, err := catalog.OpenCatalog(ws.CatalogCtx, opts)
	if err != nil {
		return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
	}

	return pyCatalog{cat}, nil
}

type pyCatalog struct {
	tme.Catalog
}

func (cat pyCatalog) Type() *py.Type {
	return pyCatalogType
}

func py_Catalog_Close(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	if cat.Catalog != nil {
		if err := cat.Close(); err != nil {
			return nil, py.ExceptionNewf(py.RuntimeError, "%v", err)
		}
	}
	return py.None, nil
}

func py_Catalog_Add(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	if len(args) != 1 {
		return nil, py.ExceptionNewf(py.TypeError, "Add() takes a Machine")
	}
	m, err := getMachine(args[0])
	if err != nil {
		return nil, err
	}
	if cat.IsReadOnly() {
		return nil, py.ExceptionNewf(py.PermissionError, "catalog is in read-only mode")
	}
	if cat.TryAddMachine(m.Machine) {
		return py.True, nil
	}
	return py.False, nil
}

func py_Catalog_NumMachines(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	if len(args) != 1 {
		return nil, py.ExceptionNewf(py.TypeError, "NumMachines() takes a machine size")
	}
	n, err := py.GetInt(args[0])
	if err != nil {
		return nil, err
	}
	return py.Int(cat.NumMachines(int(n))), nil
}

func py_Catalog_Select(self py.Object, args py.Tuple) (py.Object, error) {
	cat := self.(pyCatalog)
	sel, err := getMachineSelector(args)
	if err != nil {
		return nil, err
	}
	next := libtme.SelectFromCatalog(cat, sel)
	return wrapMachineStream(next), nil
}

// getMachineSelector reads ([min_states[, max_states]]) into a selector.
func getMachineSelector(args py.Tuple) (tme.MachineSelector, error) {
	sel := tme.DefaultMachineSelector
	if len(args) > 0 {
		lo, err := py.GetInt(args[0])
		if err != nil {
			return sel, err
		}
		sel.MinStates = int(lo)
		sel.MaxStates = int(lo)
	}
	if len(args) > 1 {
		hi, err := py.GetInt(args[1])
		if err != nil {
			return sel, err
		}
		sel.MaxStates = int(hi)
	}
	if sel.MinStates > sel.MaxStates {
		return sel, py.ExceptionNewf(py.ValueError, "min_states exceeds max_states")
	}
	return sel, nil
}

type machineStream struct {
	*libtme.MachineStream
}

func (stream machineStream) Type() *py.Type {
	return pyMachineStreamType
}

func wrapMachineStream(stream *libtme.MachineStream) py.Object {
	return py.Object(machineStream{stream})
}

func py_MachineStream_Go(self py.Object, args py.Tuple) (py.Object, error) {
	stream := self.(machineStream)
	count := stream.PullAll()
	return py.Int(count), nil
}

func py_MachineStream_AddTo(self py.Object, args py.Tuple) (py.Object, error) {
	stream := self.(machineStream)
	if len(args) != 1 {
		return nil, py.ExceptionNewf(py.TypeError, "AddTo() takes a Catalog")
	}
	cat, ok := args[0].(pyCatalog)
	if !ok {
		return nil, py.ExceptionNewf(py.TypeError, "expected Catalog object (got %v)", args[0].Type().Name)
	}
	if cat.IsReadOnly() {
		return nil, py.ExceptionNewf(py.PermissionError, "catalog is in read-only mode")
	}

	next := stream.AddTo(cat)
	return wrapMachineStream(next), nil
}

func py_MachineStream_Select(self py.Object, args py.Tuple) (py.Object, error) {
	stream := self.(machineStream)
	sel, err := getMachineSelector(args)
	if err != nil {
		return nil, err
	}
	next := stream.Select(sel)
	return wrapMachineStream(next), nil
}

type echoToWriter struct {
	stdout *os.File
	to     io.WriteCloser
}

func (echo *echoToWriter) Write(buf []byte) (int, error) {
	if echo.to == nil {
		return echo.stdout.Write(buf)
	}
	return echo.to.Write(buf)
}

func (echo *echoToWriter) Close() error {
	if echo.to != nil {
		return echo.to.Close()
	}
	return nil
}

var gOutCount = int32(0)

// Print([label], format='jst', index=True, file='')
func py_MachineStream_Print(self py.Object, args py.Tuple, kwargs py.StringDict) (py.Object, error) {
	stream := self.(machineStream)
	var pathname, suffix string

	opts := tme.DefaultPrintOpts

	py.LoadTuple(args, []interface{}{&opts.Label})
	if opts.Label == "" {
		py.LoadAttr(kwargs, "label", &opts.Label)
	}

	outCount := atomic.AddInt32(&gOutCount, 1)
	if opts.Label == "" {
		opts.Label = fmt.Sprintf("out[%d]", outCount)
	}

	py.LoadAttr(kwargs, "index", &opts.Index)
	py.LoadAttr(kwargs, "format", &suffix)
	py.LoadAttr(kwargs, "file", &pathname)

	if len(suffix) > 0 {
		spec, err := libtme.ParseSuffix(suffix)
		if err != nil {
			return nil, py.ExceptionNewf(py.ValueError, "%v", err)
		}
		opts.Format = spec
	}

	writer := &echoToWriter{
		stdout: os.Stdout,
	}
	if len(pathname) > 0 {
		os.MkdirAll(filepath.Dir(pathname), 0700)

		file, err := os.OpenFile(pathname, os.O_TRUNC|os.O_WRONLY|os.O_CREATE, 0600)
		if err != nil {
			return nil, py.ExceptionNewf(py.FileNotFoundError, "%v", err)
		}
		writer.to = file
	}

	next := stream.Print(writer, opts)
	return wrapMachineStream(next), nil
}

func init() {

	/////////////////////////////////
	// Machine
	{
		pyMachineType.Dict["Index"] = py.MustNewMethod("Index", py_Machine_Index, 0, "returns this Machine's bijective index")
		pyMachineType.Dict["NumStates"] = py.MustNewMethod("NumStates", py_Machine_NumStates, 0, "")
		pyMachineType.Dict["Table"] = py.MustNewMethod("Table", py_Machine_Table, 0, "returns this Machine as a transition table")
		pyMachineType.Dict["Run"] = py.MustNewMethod("Run", py_Machine_Run, 0, "runs this Machine on a blank tape; returns (halted, steps, marks, tape)")
		pyMachineType.Dict["Stream"] = py.MustNewMethod("Stream", py_Machine_Stream, 0, "")
	}

	/////////////////////////////////
	// Catalog
	{
		pyCatalogType.Dict["Add"] = py.MustNewMethod("Add", py_Catalog_Add, 0, "adds a Machine, returning True if it was new")
		pyCatalogType.Dict["NumMachines"] = py.MustNewMethod("NumMachines", py_Catalog_NumMachines, 0, "")
		pyCatalogType.Dict["Select"] = py.MustNewMethod("Select", py_Catalog_Select, 0, "")
		pyCatalogType.Dict["Close"] = py.MustNewMethod("Close", py_Catalog_Close, 0, "")
	}

	/////////////////////////////////
	// Workspace
	{
		pyWorkspaceType.Dict["OpenCatalog"] = py.MustNewMethod("OpenCatalog", py_Workspace_OpenCatalog, 0, "")
		pyWorkspaceType.Dict["CatalogExists"] = py.MustNewMethod("CatalogExists", py_Workspace_CatalogExists, 0, "")
	}

	/////////////////////////////////
	// MachineStream
	{
		pyMachineStreamType.Dict["Go"] = py.MustNewMethod("Go", py_MachineStream_Go, 0, "counts the number of machines output from the MachineStream")
		pyMachineStreamType.Dict["Print"] = py.MustNewMethod("Print", py_MachineStream_Print, 0, "prints each machine from the MachineStream")
		pyMachineStreamType.Dict["AddTo"] = py.MustNewMethod("AddTo", py_MachineStream_AddTo, 0, "")
		pyMachineStreamType.Dict["Select"] = py.MustNewMethod("Select", py_MachineStream_Select, 0, "")
	}

	{
		methods := []*py.Method{
			py.MustNewMethod("Count", py_Count, 0, "number of machines with the given number of states"),
			py.MustNewMethod("Offset", py_Offset, 0, "index of the first machine with the given number of states"),
			py.MustNewMethod("FromIndex", py_FromIndex, 0, ""),
			py.MustNewMethod("Decode", py_Decode, 0, ""),
			py.MustNewMethod("Encode", py_Encode, 0, ""),
			py.MustNewMethod("Enum", py_Enum, 0, ""),
			py.MustNewMethod("GetWorkspace", py_GetWorkspace, 0, ""),
		}

		globals := py.StringDict{
			"LIB_VERSION": py.String(LIB_VERSION),
			"READ_ONLY":   py.Int(READ_ONLY),
			"MAX_CATALOG": py.Int(tme.MaxCatalogSize),
		}

		py.RegisterModule(&py.ModuleImpl{
			Info: py.ModuleInfo{
				Name: "_pytme",
				Doc:  "Turing machine encoder gpython module",
			},
			Methods: methods,
			Globals: globals,
			OnContextClosed: func(m *py.Module) {
				wsObj, _ := py.GetAttrString(m, kWorkspaceAttr)
				if wsObj != nil {
					wsObj.(*Workspace).Close()
				}
			},
		})
	}
}
