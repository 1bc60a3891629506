// Package ir provides the bound-value types shared by every stage of the
// sqlopt pipeline.
//
// A Value is what a placeholder stands for (a bound parameter) or what a
// literal spells out inline. Values travel with the AST node that owns them,
// so a pass that moves or duplicates a predicate moves or duplicates its
// values with it; the renderer collects them in emission order.
//
// This package imports nothing internal. All other internal packages may
// import ir; ir is the foundational layer.
//
// Key design constraints:
//   - NO float types - exact numerics use Decimal (shopspring/decimal)
//   - Key() is the exact normalized identity used for literal deduplication
//   - MarshalCanonical is the ONLY serialization used for fingerprints
package ir
