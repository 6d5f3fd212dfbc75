package libtme

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/fine-structures/tme"
	"github.com/pkg/errors"
)

// Table format
//
//	<state> <read> <write> <dir> <target>   ; comment
//
// read and write are '_' (blank) or '1' (mark), dir is 'l' or 'r', and target is a state name or halt.
// State names are arbitrary tokens; each is given the next ordinal the first time it appears as a
// source state.

type tableExpr struct {
	Lines []*tableLine `parser:"@@*"`
}

type tableLine struct {
	Pos    lexer.Position
	Fields []string `parser:"@Field* EOL"`
}

var sTableLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `;[^\n]*`},
	{Name: "EOL", Pattern: `\n`},
	{Name: "Whitespace", Pattern: `[ \t\r\f\v]+`},
	{Name: "Field", Pattern: `[^\s;]+`},
})

var sParseTableExpr = participle.MustBuild[tableExpr](
	participle.Lexer(sTableLexer),
	participle.Elide("Comment", "Whitespace"),
)

// DefaultInstruction fills any (state, read) case a table leaves unspecified.
var DefaultInstruction = tme.Instruction{
	Write: tme.Blank,
	Move:  tme.Left,
	Next:  tme.Halt,
}

// TableOpts specifies how a readable table is parsed.
type TableOpts struct {

	// If set, every declared state must specify both its blank and mark case.
	// Otherwise, unspecified cases are filled with DefaultInstruction.
	RequireComplete bool
}

type tableBuilder struct {
	opts    TableOpts
	states  map[string]tme.StateRef
	lines   []*tableLine
	defined [][2]bool
	m       tme.Machine
}

// ParseTable reads a machine from its readable transition table.
func ParseTable(text string, opts TableOpts) (tme.Machine, error) {
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	expr, err := sParseTableExpr.ParseString("", text)
	if err != nil {
		return nil, errors.Wrapf(tme.ErrFormat, "%v", err)
	}

	tb := tableBuilder{
		opts:   opts,
		states: make(map[string]tme.StateRef),
	}
	if err = tb.declareStates(expr); err != nil {
		return nil, err
	}
	for _, line := range tb.lines {
		if err = tb.applyLine(line); err != nil {
			return nil, err
		}
	}
	if err = tb.checkComplete(); err != nil {
		return nil, err
	}
	return tb.m, nil
}

// declareStates assigns ordinals to source states in order of first appearance.
func (tb *tableBuilder) declareStates(expr *tableExpr) error {
	for _, line := range expr.Lines {
		numFields := len(line.Fields)
		if numFields == 0 {
			continue
		}
		if numFields != 5 {
			return errors.Wrapf(tme.ErrFormat, "line %d: expected 5 fields, got %d", line.Pos.Line, numFields)
		}
		name := line.Fields[0]
		if isHaltName(name) {
			return errors.Wrapf(tme.ErrFormat, "line %d: %q cannot have transitions", line.Pos.Line, name)
		}
		if _, exists := tb.states[name]; !exists {
			tb.states[name] = tme.StateRef(len(tb.m))
			tb.m = append(tb.m, tme.NewRule(DefaultInstruction, DefaultInstruction))
			tb.defined = append(tb.defined, [2]bool{})
		}
		tb.lines = append(tb.lines, line)
	}

	if len(tb.m) == 0 {
		return errors.Wrap(tme.ErrFormat, "table has no transitions")
	}
	return nil
}

func (tb *tableBuilder) applyLine(line *tableLine) error {
	fields := line.Fields
	lineNum := line.Pos.Line

	si := tb.states[fields[0]]
	read, ok := parseSymbolGlyph(fields[1])
	if !ok {
		return errors.Wrapf(tme.ErrFormat, "line %d: bad read symbol %q", lineNum, fields[1])
	}
	write, ok := parseSymbolGlyph(fields[2])
	if !ok {
		return errors.Wrapf(tme.ErrFormat, "line %d: bad write symbol %q", lineNum, fields[2])
	}
	move, ok := parseDirectionGlyph(fields[3])
	if !ok {
		return errors.Wrapf(tme.ErrFormat, "line %d: bad direction %q", lineNum, fields[3])
	}

	next := tme.Halt
	if target := fields[4]; !isHaltName(target) {
		next, ok = tb.states[target]
		if !ok {
			return errors.Wrapf(tme.ErrFormat, "line %d: unknown target state %q", lineNum, target)
		}
	}

	if tb.defined[si][read] {
		return errors.Wrapf(tme.ErrFormat, "line %d: state %q already has a %c case", lineNum, fields[0], tme.SymbolGlyph(read))
	}
	tb.defined[si][read] = true
	tb.m[si][read] = tme.Instruction{
		Write: write,
		Move:  move,
		Next:  next,
	}
	return nil
}

func (tb *tableBuilder) checkComplete() error {
	if !tb.opts.RequireComplete {
		return nil
	}
	for si, cases := range tb.defined {
		for read, isDefined := range cases {
			if !isDefined {
				return errors.Wrapf(tme.ErrFormat, "state %d has no %c case", si, tme.SymbolGlyph(tme.Symbol(read)))
			}
		}
	}
	return nil
}

func isHaltName(name string) bool {
	switch name {
	case tme.HaltName, "halt-accept", "halt-reject":
		return true
	}
	return false
}

func parseSymbolGlyph(tok string) (tme.Symbol, bool) {
	switch tok {
	case "_":
		return tme.Blank, true
	case "1":
		return tme.Mark, true
	}
	return 0, false
}

func parseDirectionGlyph(tok string) (tme.Direction, bool) {
	switch tok {
	case "l", "L":
		return tme.Left, true
	case "r", "R":
		return tme.Right, true
	}
	return 0, false
}
