// Package ast defines the relational AST: the builder-shaped tree that a
// statement is described in before optimization.
//
// ARCHITECTURE:
//
//	[builder / querydoc] → ast.Unit → [optimize] → [mapper] → queryir → [querysql]
//
// The AST is produced once per statement, mutated in place by zero or more
// optimizer passes, and then mapped into the smaller queryir render tree.
//
// OWNERSHIP:
//
// Every subtree is exclusively owned by its parent. There are no shared or
// back references: a subquery that refers to an outer column does so by
// name (an Ident path), never by pointer. The tree is therefore acyclic by
// construction and a depth-first recursion (see package walk) reaches every
// node exactly once.
//
// SEALED INTERFACES:
//
// Statement, SetExpr, TableFactor and Expr are sealed with marker methods so
// that type switches in walk, optimize and mapper are exhaustive.
//
// BOUND VALUES:
//
// A placeholder (*Param) carries its own ir.Value. The ordered parameter
// list of a statement is therefore always the list of Params in reading
// order, and a pass that relocates or duplicates a predicate relocates or
// duplicates its values with it.
package ast
