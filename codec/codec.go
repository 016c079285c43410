// Package codec encodes compiled grammars into a compact binary form and decodes them back.
//
// An encoded table is the magic bytes followed by a snappy-compressed body. The body starts with the format
// version and walks a compiled grammar in a fixed order: the name, the lexical specification, the symbols,
// the productions, and the transition table compressed by row displacement.
package codec

import (
	"bytes"
	"io"

	"github.com/golang/snappy"
	"github.com/hashicorp/go-version"
	jsoniter "github.com/json-iterator/go"
	mlspec "github.com/nihei9/maleeni/spec"
	"github.com/npillmayer/schuko/tracing"
	"github.com/pingcap/errors"

	"github.com/nihei9/gramc/compressor"
	"github.com/nihei9/gramc/grammar/symbol"
	gspec "github.com/nihei9/gramc/spec/grammar"
)

func tracer() tracing.Trace {
	return tracing.Select("gramc.codec")
}

const (
	magic = "GRMC"

	// FormatVersion is the version of the layout Transfer walks. Decoders accept any version with the same
	// major number.
	FormatVersion = "1.0.0"

	// maxTransitionSize is the largest number of cells a decoded transition table may have.
	maxTransitionSize = 1 << 24
)

var currentFormat = version.Must(version.NewVersion(FormatVersion))

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Transfer walks a compiled grammar. An encoding stream reads the grammar, and a decoding stream fills it.
func Transfer(s *Stream, g *gspec.CompiledGrammar) error {
	ver := FormatVersion
	s.String(&ver)
	if s.err == nil && !s.encoding {
		checkVersion(s, ver)
	}

	s.String(&g.Name)
	if g.Lexical == nil {
		g.Lexical = &gspec.LexicalSpec{}
	}
	if g.Syntactic == nil {
		g.Syntactic = &gspec.SyntacticSpec{}
	}
	transferLexical(s, g.Lexical)
	transferSyntactic(s, g.Syntactic)
	s.end()

	return s.Err()
}

func checkVersion(s *Stream, ver string) {
	v, err := version.NewVersion(ver)
	if err != nil {
		s.err = &SerializationError{
			Cause: errors.Annotatef(errVersionMismatch, "%v", err),
		}
		return
	}
	if v.Segments()[0] != currentFormat.Segments()[0] || v.GreaterThan(currentFormat) {
		s.err = &SerializationError{
			Cause: errors.Annotatef(errVersionMismatch, "%v (supported: %v)", v, currentFormat),
		}
	}
}

func transferLexical(s *Stream, lex *gspec.LexicalSpec) {
	n := len(lex.Entries)
	s.count(&n)
	if s.err != nil {
		return
	}
	if !s.encoding {
		lex.Entries = make([]*gspec.LexEntry, n)
	}
	for i := 0; i < n; i++ {
		if !s.encoding {
			lex.Entries[i] = &gspec.LexEntry{}
		}
		e := lex.Entries[i]
		s.String(&e.Kind)
		s.String(&e.Pattern)
		s.Bool(&e.Literal)
		s.Bool(&e.Fragment)
		s.Bool(&e.Skip)
	}
	s.Ints(&lex.KindToTerminal)

	hasDFA := lex.DFA != nil
	s.Bool(&hasDFA)
	if !hasDFA || s.err != nil {
		return
	}
	var blob []byte
	if s.encoding {
		b, err := json.Marshal(lex.DFA)
		if err != nil {
			s.err = errors.Annotate(err, "failed to marshal a DFA")
			return
		}
		blob = b
	}
	s.Bytes(&blob)
	if s.err != nil || s.encoding {
		return
	}
	dfa := &mlspec.CompiledLexSpec{}
	if err := json.Unmarshal(blob, dfa); err != nil {
		s.fail("malformed DFA: %v", err)
		return
	}
	lex.DFA = dfa
}

func transferSyntactic(s *Stream, syn *gspec.SyntacticSpec) {
	s.String(&syn.Class)
	s.Int(&syn.StartProduction)
	s.Int(&syn.EOFSymbol)
	s.Int(&syn.InitialState)
	s.Int(&syn.StateCount)
	s.Int(&syn.SymbolCount)

	transferSymbols(s, syn)
	transferProductions(s, syn)
	transferTransition(s, syn)
}

func transferSymbols(s *Stream, syn *gspec.SyntacticSpec) {
	n := len(syn.Symbols)
	s.count(&n)
	if s.err != nil {
		return
	}
	if !s.encoding {
		syn.Symbols = make([]*gspec.Symbol, n)
	}
	for i := 0; i < n; i++ {
		present := syn.Symbols[i] != nil
		s.Bool(&present)
		if !present {
			continue
		}
		if !s.encoding {
			syn.Symbols[i] = &gspec.Symbol{}
		}
		sym := syn.Symbols[i]
		s.String(&sym.Name)
		s.Int(&sym.ID)
		s.String(&sym.Kind)
		s.Int(&sym.Precedence)
		s.String(&sym.Associativity)
		s.String(&sym.Initializer)
		s.String(&sym.Alias)
		if s.err == nil && sym.ID != i {
			s.fail("symbol %v is at index %v", sym.ID, i)
		}
	}
}

func transferProductions(s *Stream, syn *gspec.SyntacticSpec) {
	n := len(syn.Productions)
	s.count(&n)
	if s.err != nil {
		return
	}
	if !s.encoding {
		syn.Productions = make([]*gspec.Production, n)
	}
	for i := 0; i < n; i++ {
		if !s.encoding {
			syn.Productions[i] = &gspec.Production{}
		}
		p := syn.Productions[i]
		s.Int(&p.Number)
		s.Int(&p.LHS)
		s.Ints(&p.RHS)
		s.String(&p.Action)
		s.Bool(&p.OldAction)
	}
}

func transferTransition(s *Stream, syn *gspec.SyntacticSpec) {
	if s.err != nil {
		return
	}
	tab := compressor.NewPackedTable(gspec.ActionEmpty)
	if s.encoding {
		orig, err := compressor.NewTable(syn.Transition, syn.SymbolCount)
		if err != nil {
			s.err = errors.Annotate(err, "invalid transition table")
			return
		}
		if err := tab.Compress(orig); err != nil {
			s.err = errors.Annotate(err, "failed to compress a transition table")
			return
		}
		tracer().Debugf("transition table: %v entries, %v after compression", len(syn.Transition), len(tab.Displaced.Entries))
	}

	s.Ints(&tab.RowNums)
	s.Int(&tab.OriginalRowCount)
	d := tab.Displaced
	s.Int(&d.OriginalRowCount)
	s.Int(&d.OriginalColCount)
	s.Int(&d.EmptyValue)
	s.Ints(&d.Entries)
	s.Ints(&d.Bounds)
	s.Ints(&d.RowDisplacement)
	if s.err != nil || s.encoding {
		return
	}

	if syn.SymbolCount != len(syn.Symbols) {
		s.fail("symbol count is %v, but %v symbols are listed", syn.SymbolCount, len(syn.Symbols))
		return
	}
	if tab.OriginalRowCount != syn.StateCount || d.OriginalColCount != syn.SymbolCount {
		s.fail("transition table is %vx%v; want: %vx%v", tab.OriginalRowCount, d.OriginalColCount, syn.StateCount, syn.SymbolCount)
		return
	}
	if d.OriginalRowCount < 0 || d.OriginalRowCount > tab.OriginalRowCount {
		s.fail("transition table has %v unique rows out of %v", d.OriginalRowCount, tab.OriginalRowCount)
		return
	}
	// Both dimensions are bounded by the input length by now, but their product isn't.
	if syn.StateCount > 0 && syn.SymbolCount > maxTransitionSize/syn.StateCount {
		s.fail("transition table is too large: %vx%v", syn.StateCount, syn.SymbolCount)
		return
	}
	trans, err := tab.Decompress()
	if err != nil {
		s.fail("malformed transition table: %v", err)
		return
	}
	syn.Transition = trans
}

// IsTable reports whether b starts like an encoded table.
func IsTable(b []byte) bool {
	return bytes.HasPrefix(b, []byte(magic))
}

// Marshal encodes a compiled grammar.
func Marshal(g *gspec.CompiledGrammar) ([]byte, error) {
	s := newEncodeStream()
	if err := Transfer(s, g); err != nil {
		return nil, errors.Trace(err)
	}
	var b bytes.Buffer
	b.WriteString(magic)
	b.Write(snappy.Encode(nil, s.bytes()))
	return b.Bytes(), nil
}

// Unmarshal decodes a compiled grammar and rebuilds the symbol table the grammar was compiled with. Every
// failure to read the input is a *SerializationError.
func Unmarshal(b []byte) (*gspec.CompiledGrammar, *symbol.Table, error) {
	if !IsTable(b) {
		return nil, nil, &SerializationError{
			Cause: errBadMagic,
		}
	}
	body, err := snappy.Decode(nil, b[len(magic):])
	if err != nil {
		return nil, nil, &SerializationError{
			Cause: errors.Annotate(err, "failed to decompress"),
		}
	}

	g := &gspec.CompiledGrammar{}
	if err := Transfer(newDecodeStream(body), g); err != nil {
		return nil, nil, err
	}
	symTab, err := restoreSymbolTable(g.Syntactic)
	if err != nil {
		return nil, nil, &SerializationError{
			Cause: err,
		}
	}
	return g, symTab, nil
}

func Encode(w io.Writer, g *gspec.CompiledGrammar) error {
	b, err := Marshal(g)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return errors.Trace(err)
}

func Decode(r io.Reader) (*gspec.CompiledGrammar, *symbol.Table, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, errors.Trace(err)
	}
	return Unmarshal(b)
}

// restoreSymbolTable registers the symbols in the order they were written, so every symbol takes the id it
// had when the grammar was compiled.
func restoreSymbolTable(syn *gspec.SyntacticSpec) (*symbol.Table, error) {
	symTab := symbol.NewTable()
	for _, s := range syn.Symbols {
		if s == nil {
			continue
		}
		kind, ok := symbol.ParseKind(s.Kind)
		if !ok {
			return nil, errors.Errorf("unknown symbol kind: %v", s.Kind)
		}
		sym, err := symTab.Restore(s.Name, symbol.ID(s.ID), kind)
		if err != nil {
			return nil, errors.Trace(err)
		}
		sym.Initializer = s.Initializer
		if s.Precedence > 0 {
			assoc, ok := symbol.ParseAssoc(s.Associativity)
			if !ok {
				return nil, errors.Errorf("unknown associativity: %v", s.Associativity)
			}
			sym.Prec = &symbol.Precedence{
				Assoc: assoc,
				Level: s.Precedence,
			}
		}
	}
	for _, p := range syn.Productions {
		lhs, ok := symTab.Get(symbol.ID(p.LHS))
		if !ok {
			return nil, errors.Errorf("production %v has an unknown left-hand side: %v", p.Number, p.LHS)
		}
		for _, e := range p.RHS {
			if _, ok := symTab.Get(symbol.ID(e)); !ok {
				return nil, errors.Errorf("production %v has an unknown symbol: %v", p.Number, e)
			}
		}
		lhs.Prods = append(lhs.Prods, p.Number)
	}
	return symTab, nil
}
