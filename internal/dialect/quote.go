package dialect

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// QuoteMode decides when identifiers are delimited.
type QuoteMode int

const (
	// QuoteAlways delimits every identifier.
	QuoteAlways QuoteMode = iota
	// QuoteSmart leaves simple, non-reserved identifiers bare.
	QuoteSmart
)

// ParseQuoteMode resolves "always" or "smart".
func ParseQuoteMode(name string) (QuoteMode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "always":
		return QuoteAlways, nil
	case "smart":
		return QuoteSmart, nil
	default:
		return 0, fmt.Errorf("unknown quoting mode %q (want always or smart)", name)
	}
}

// CaseFold forces identifiers into one case before quoting.
type CaseFold int

const (
	FoldNone CaseFold = iota
	FoldLower
	FoldUpper
)

// ParseCaseFold resolves "none", "lower" or "upper".
func ParseCaseFold(name string) (CaseFold, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return FoldNone, nil
	case "lower":
		return FoldLower, nil
	case "upper":
		return FoldUpper, nil
	default:
		return 0, fmt.Errorf("unknown case fold %q (want none, lower or upper)", name)
	}
}

// Folder applies a CaseFold. A Folder is not safe for concurrent use;
// create one per render.
type Folder struct {
	caser *cases.Caser
}

// NewFolder returns a Folder for f.
func NewFolder(f CaseFold) *Folder {
	var c cases.Caser
	switch f {
	case FoldLower:
		c = cases.Lower(language.Und)
	case FoldUpper:
		c = cases.Upper(language.Und)
	default:
		return &Folder{}
	}
	return &Folder{caser: &c}
}

// Fold returns ident in the configured case.
func (f *Folder) Fold(ident string) string {
	if f == nil || f.caser == nil {
		return ident
	}
	return f.caser.String(ident)
}

// Quote delimits ident for d.
//
// Under QuoteSmart an identifier matching [A-Za-z_][A-Za-z0-9_]* that is
// not a reserved keyword is left bare, unless preserveCase is set.
func Quote(ident string, d Dialect, mode QuoteMode, preserveCase bool) string {
	if mode == QuoteSmart && !preserveCase && isSimple(ident) && !IsReserved(ident) {
		return ident
	}
	q := d.Caps().QuoteChar
	var b strings.Builder
	b.Grow(len(ident) + 2)
	b.WriteByte(q)
	for i := 0; i < len(ident); i++ {
		if ident[i] == q {
			b.WriteByte(q)
		}
		b.WriteByte(ident[i])
	}
	b.WriteByte(q)
	return b.String()
}

func isSimple(ident string) bool {
	if ident == "" {
		return false
	}
	for i := 0; i < len(ident); i++ {
		c := ident[i]
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
