// Package optimize holds the syntactic rewrite passes applied to a
// statement between construction and rendering.
//
// Every pass is a total function over an owned tree: it mutates the tree in
// place and reports whether it changed anything, and a pass whose
// precondition does not hold leaves that subtree alone. Passes are
// independent; Pipeline runs any subset in a caller-chosen order.
//
// Placeholders carry their values, so a pass that moves or duplicates a
// predicate moves or duplicates its bound values with it. The renderer
// collects values in emission order.
//
// Derived tables whose body is a set operation are never flattened,
// pushed into or pulled up.
package optimize
