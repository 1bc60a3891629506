// Package queryir provides the dialect-neutral render tree that sits between
// the relational AST and the SQL text renderer.
//
// ARCHITECTURE:
//
//	[ast] → [mapper] → [queryir] → CheckFeatures → [querysql]
//
// The render tree is smaller than the AST: BETWEEN is already flattened,
// IS [NOT] NULL is a plain binary, GROUP BY modifiers are one explicit tag,
// and LIMIT/OFFSET are two optional expressions. The renderer therefore
// never has to know how the builder happened to express a construct.
//
// SEALED INTERFACES:
//
// Statement, Body, TableSource and Expr are sealed interfaces using the
// marker method pattern. Only types in this package implement them, so
// type switches in the validator and renderer are exhaustive.
//
//	switch s := stmt.(type) {
//	case *Query:
//	case *Insert:
//	case *Update:
//	case *Delete:
//	}
//
// FEATURE VALIDATION:
//
// CheckFeatures walks a tree for one target dialect. Under the Strict
// policy it returns the first construct the dialect cannot express, in a
// fixed category order (DISTINCT ON, ILIKE, NULLS ordering, GROUP BY
// modifiers, CTE materialization, BY NAME). Under Lenient it returns nil and
// the renderer degrades instead.
//
// BOUND VALUES:
//
// A *Param carries its ir.Value. The tree never holds a separate parameter
// list, so the renderer's emission order is the parameter order by
// construction.
package queryir
