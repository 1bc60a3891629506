// Package querydoc decodes query documents, YAML or CUE descriptions of
// one SQL statement, into an ast.Unit.
//
// A document is a mapping holding exactly one statement: a query (keys
// with, select or a set operation, order_by, limit, offset) or one of
// insert, update and delete. name and description are optional metadata.
//
//	name: open orders per user
//	select:
//	  columns: [u.id, {fn: count, args: ["*"], as: total}]
//	  from: {table: users, as: u}
//	  joins:
//	    - {kind: left, table: orders, as: o, on: {op: "=", args: [o.user_id, u.id]}}
//	  where: {op: "=", args: [o.status, {param: open}]}
//	  group_by: [u.id]
//	order_by: [{expr: total, desc: true, nulls: last}]
//	limit: 10
//
// In expression position a bare string is a column reference ("t.a", or
// "*" / "t.*" for a star), and bare numbers, booleans and null are inline
// literals. In value position (in lists, between bounds, like patterns,
// case results, insert rows, assignment values, limit and offset) every
// bare scalar is a literal.
// Bound parameters are always written {param: v}.
//
// Decoding never stops at the first malformed piece: every problem is
// recorded on the unit as an *ast.ConstructionError whose Field is the
// path to the offending node, and the compiler refuses such units. Only
// unreadable input (bad YAML or CUE syntax, an empty document) is
// returned as an error.
package querydoc

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlopt/internal/ast"
	"github.com/roach88/sqlopt/internal/ir"
)

// Document is one decoded query document.
type Document struct {
	Name        string
	Description string
	Unit        *ast.Unit
}

// LoadError is input that could not be decoded at all.
type LoadError struct {
	File    string
	Line    int
	Column  int
	Message string
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Message)
	case e.File != "":
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	default:
		return e.Message
	}
}

// Load reads the document at path. Files ending in .cue are CUE, anything
// else is YAML (JSON included).
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read query document: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		return ParseCUE(path, data)
	}
	doc, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) && le.File == "" {
			le.File = path
		}
		return nil, err
	}
	return doc, nil
}

// Parse decodes a YAML document.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &LoadError{Message: fmt.Sprintf("failed to parse YAML: %v", err)}
	}
	if root.Kind == 0 || resolve(&root) == nil {
		return nil, &LoadError{Message: "empty document"}
	}
	return FromNode(&root, true), nil
}

// ParseCUE decodes a CUE document. The CUE value must be concrete; it is
// exported to JSON and decoded by the same rules as YAML, so numeric text
// such as 1.50 keeps its exact value.
func ParseCUE(filename string, src []byte) (*Document, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, cueLoadError(filename, err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(filename, err)
	}
	data, err := v.MarshalJSON()
	if err != nil {
		return nil, cueLoadError(filename, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &LoadError{File: filename, Message: fmt.Sprintf("exported CUE is not decodable: %v", err)}
	}
	if n := resolve(&root); n == nil || (n.Kind == yaml.MappingNode && len(n.Content) == 0) {
		return nil, &LoadError{File: filename, Message: "empty document"}
	}
	return FromNode(&root, false), nil
}

// FromNode decodes an already parsed YAML node, for callers that embed
// query documents in larger files. When lines is true construction errors
// mention the source line of the offending node.
func FromNode(n *yaml.Node, lines bool) *Document {
	b := &builder{unit: &ast.Unit{}, lines: lines}
	doc := &Document{Unit: b.unit}

	o := b.object("", n)
	if o == nil {
		return doc
	}
	doc.Name = o.str("name")
	doc.Description = o.str("description")
	b.unit.Stmt = b.statement(o)
	o.finish()
	return doc
}

// cueLoadError keeps the first CUE error with its position.
func cueLoadError(filename string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{File: filename, Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{File: filename, Message: first.Error()}
	if pos := cueerrors.Positions(first); len(pos) > 0 && pos[0].IsValid() {
		le.File = pos[0].Filename()
		le.Line = pos[0].Line()
		le.Column = pos[0].Column()
	}
	return le
}

// Value decodes a bound value written as in {param: v}: a scalar with the
// exact numeric rules of query documents, or {hex: "..."} for bytes.
func Value(n *yaml.Node) (ir.Value, error) {
	b := &builder{unit: &ast.Unit{}, lines: true}
	p, _ := b.param("value", n).(*ast.Param)
	if len(b.unit.Errors) > 0 {
		return nil, errors.Join(b.unit.Errors...)
	}
	if p == nil {
		return nil, fmt.Errorf("value: not a value")
	}
	return p.Value, nil
}
