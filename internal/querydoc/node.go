package querydoc

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sqlopt/internal/ast"
)

// builder accumulates construction errors on unit while decoding.
type builder struct {
	unit  *ast.Unit
	lines bool
}

func (b *builder) errorf(path string, n *yaml.Node, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if b.lines && n != nil && n.Line > 0 {
		msg += fmt.Sprintf(" (line %d)", n.Line)
	}
	if path == "" {
		path = "document"
	}
	b.unit.Errors = append(b.unit.Errors, &ast.ConstructionError{Field: path, Message: msg})
}

// resolve skips document wrappers and follows aliases.
func resolve(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch n.Kind {
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		case yaml.AliasNode:
			n = n.Alias
		default:
			return n
		}
	}
	return nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func index(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}

// obj is a mapping node whose keys are consumed as they are read, so that
// finish can report the ones nobody asked for.
type obj struct {
	b     *builder
	path  string
	node  *yaml.Node
	keys  []string
	vals  map[string]*yaml.Node
	taken map[string]bool
}

func (b *builder) object(path string, n *yaml.Node) *obj {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode {
		b.errorf(path, n, "expected a mapping, got %s", kindName(n))
		return nil
	}
	o := &obj{
		b:     b,
		path:  path,
		node:  n,
		vals:  make(map[string]*yaml.Node, len(n.Content)/2),
		taken: make(map[string]bool, len(n.Content)/2),
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := resolve(n.Content[i])
		if k == nil || k.Kind != yaml.ScalarNode {
			b.errorf(path, n.Content[i], "mapping keys must be strings")
			continue
		}
		if _, dup := o.vals[k.Value]; dup {
			b.errorf(join(path, k.Value), k, "duplicate key")
			continue
		}
		o.keys = append(o.keys, k.Value)
		o.vals[k.Value] = n.Content[i+1]
	}
	return o
}

func (o *obj) has(key string) bool {
	_, ok := o.vals[key]
	return ok
}

func (o *obj) get(key string) *yaml.Node {
	n, ok := o.vals[key]
	if !ok {
		return nil
	}
	o.taken[key] = true
	return n
}

func (o *obj) sub(key string) string {
	return join(o.path, key)
}

// str returns a scalar string value, or "" when key is absent.
func (o *obj) str(key string) string {
	n := resolve(o.get(key))
	if n == nil {
		return ""
	}
	if n.Kind != yaml.ScalarNode || n.ShortTag() == "!!null" {
		o.b.errorf(o.sub(key), n, "expected a string, got %s", kindName(n))
		return ""
	}
	return n.Value
}

func (o *obj) boolean(key string) bool {
	n := resolve(o.get(key))
	if n == nil {
		return false
	}
	var v bool
	if n.Kind != yaml.ScalarNode || n.Decode(&v) != nil {
		o.b.errorf(o.sub(key), n, "expected true or false, got %s", kindName(n))
		return false
	}
	return v
}

func (o *obj) strings(key string) []string {
	n := resolve(o.get(key))
	if n == nil {
		return nil
	}
	if n.Kind == yaml.ScalarNode {
		return []string{n.Value}
	}
	if n.Kind != yaml.SequenceNode {
		o.b.errorf(o.sub(key), n, "expected a list of names, got %s", kindName(n))
		return nil
	}
	out := make([]string, 0, len(n.Content))
	for i, c := range n.Content {
		c = resolve(c)
		if c == nil || c.Kind != yaml.ScalarNode {
			o.b.errorf(index(o.sub(key), i), c, "expected a name, got %s", kindName(c))
			continue
		}
		out = append(out, c.Value)
	}
	return out
}

// finish reports every key that was never read.
func (o *obj) finish() {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		if !o.taken[k] {
			o.b.errorf(o.sub(k), o.vals[k], "unknown key %q", k)
		}
	}
}

// list returns the items of a sequence node. A single non-sequence node
// is an error unless one is true, in which case it is a one-item list.
func (b *builder) list(path string, n *yaml.Node, one bool) []*yaml.Node {
	n = resolve(n)
	if n == nil {
		return nil
	}
	if n.Kind == yaml.SequenceNode {
		return n.Content
	}
	if one {
		return []*yaml.Node{n}
	}
	b.errorf(path, n, "expected a list, got %s", kindName(n))
	return nil
}

func kindName(n *yaml.Node) string {
	if n == nil {
		return "nothing"
	}
	switch n.Kind {
	case yaml.MappingNode:
		return "a mapping"
	case yaml.SequenceNode:
		return "a list"
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			return "null"
		}
		return strconv.Quote(n.Value)
	default:
		return "an unsupported node"
	}
}
