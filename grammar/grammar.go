package grammar

import (
	"fmt"
	"strings"

	"github.com/emirpasic/gods/stacks/arraystack"
	mlspec "github.com/nihei9/maleeni/spec"
	"github.com/npillmayer/schuko/tracing"

	verr "github.com/nihei9/gramc/error"
	"github.com/nihei9/gramc/grammar/lexical"
	"github.com/nihei9/gramc/grammar/symbol"
	"github.com/nihei9/gramc/spec"
	gspec "github.com/nihei9/gramc/spec/grammar"
)

func tracer() tracing.Trace {
	return tracing.Select("gramc.grammar")
}

// Class is the kind of LR automaton a grammar compiles into.
type Class string

const (
	ClassLALR = Class("lalr")
	ClassSLR  = Class("slr")
)

// anonymousTerminalPrefix is the prefix of the names of terminals written directly in productions. The names
// must be valid kind names of a lexical specification.
const anonymousTerminalPrefix = "x_"

// midRuleActionPrefix is the prefix of the names of mid-rule action symbols. A grammar source can't contain
// the character, so the names never clash with user-defined ones.
const midRuleActionPrefix = "$@"

// Grammar is a grammar whose symbols and productions are checked and numbered. Compile turns it into tables.
type Grammar struct {
	name           string
	symTab         *symbol.Table
	prods          *productionSet
	augmentedStart symbol.ID
	lexSpec        *lexical.LexSpec

	// aliases holds the literal texts of terminals written as strings.
	aliases map[symbol.ID]string

	// anonymous is the set of terminals written directly in productions.
	anonymous map[symbol.ID]struct{}

	patterns map[symbol.ID]string
}

func (g *Grammar) Name() string {
	return g.name
}

type GrammarBuilder struct {
	AST *spec.RootNode

	errs verr.SpecErrors
}

func (b *GrammarBuilder) Build() (*Grammar, error) {
	var specName string
	{
		errOccurred := false
		for _, dir := range b.AST.Directives {
			if dir.Name != "name" {
				continue
			}

			if len(dir.Parameters) != 1 || dir.Parameters[0].ID == "" {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrDirInvalidParam,
					Detail: "'name' takes just one ID parameter",
					Row:    dir.Pos.Row,
					Col:    dir.Pos.Col,
				})

				errOccurred = true
				break
			}

			specName = dir.Parameters[0].ID
			break
		}

		if specName == "" && !errOccurred {
			b.errs = append(b.errs, &verr.SpecError{
				Cause: semErrNoGrammarName,
			})
		}
	}

	b.checkTopLevelDirectives(b.AST)
	b.checkSpellingInconsistenciesOfUserDefinedIDs(b.AST)
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	symTabAndLexSpec, err := b.genSymbolTableAndLexSpec(b.AST)
	if err != nil {
		return nil, err
	}
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	b.genTerminalPrecedences(b.AST, symTabAndLexSpec)
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	prods, augStart, err := b.genProductions(b.AST, symTabAndLexSpec)
	if err != nil {
		return nil, err
	}
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	b.markNodeSymbols(b.AST, symTabAndLexSpec.symTab)
	b.checkUnusedSymbols(b.AST, symTabAndLexSpec, prods, augStart)
	for _, sym := range symTabAndLexSpec.symTab.NonTerminals() {
		if len(sym.Prods) > 0 {
			continue
		}
		b.errs = append(b.errs, &verr.SpecError{
			Cause:  semErrNonTermNoProduction,
			Detail: sym.Name,
		})
	}
	if len(b.errs) > 0 {
		return nil, b.errs
	}

	symTabAndLexSpec.lexSpec.Name = specName

	tracer().Debugf("grammar %v: %v symbols, %v productions", specName, symTabAndLexSpec.symTab.Len(), prods.len())

	return &Grammar{
		name:           specName,
		symTab:         symTabAndLexSpec.symTab,
		prods:          prods,
		augmentedStart: augStart,
		lexSpec:        symTabAndLexSpec.lexSpec,
		aliases:        symTabAndLexSpec.aliases,
		anonymous:      symTabAndLexSpec.anonymous,
		patterns:       symTabAndLexSpec.patterns,
	}, nil
}

func (b *GrammarBuilder) checkTopLevelDirectives(root *spec.RootNode) {
	consumed := map[string]struct{}{}
	for _, dir := range root.Directives {
		switch dir.Name {
		case "name", "prec":
			if _, ok := consumed[dir.Name]; ok {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrDuplicateDir,
					Detail: dir.Name,
					Row:    dir.Pos.Row,
					Col:    dir.Pos.Col,
				})
			}
			consumed[dir.Name] = struct{}{}
		case "node":
		default:
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDirInvalidName,
				Detail: dir.Name,
				Row:    dir.Pos.Row,
				Col:    dir.Pos.Col,
			})
		}
	}
}

func (b *GrammarBuilder) checkSpellingInconsistenciesOfUserDefinedIDs(root *spec.RootNode) {
	var ids []string
	for _, prod := range root.Productions {
		ids = append(ids, prod.LHS)
	}
	for _, prod := range root.LexProductions {
		ids = append(ids, prod.LHS)
	}
	for _, f := range root.Fragments {
		ids = append(ids, f.LHS)
	}

	duplicated := lexical.FindSpellingInconsistencies(ids)
	if len(duplicated) == 0 {
		return
	}

	for _, dup := range duplicated {
		b.errs = append(b.errs, &verr.SpecError{
			Cause:  semErrSpellingInconsistency,
			Detail: strings.Join(dup, ", "),
		})
	}
}

// anonymousPattern is the key of a terminal written in a production. A literal and a pattern with the same
// text are different terminals.
type anonymousPattern struct {
	pattern string
	literal bool
}

type symbolTableAndLexSpec struct {
	symTab      *symbol.Table
	anonPat2Sym map[anonymousPattern]symbol.ID
	lexSpec     *lexical.LexSpec
	skipSyms    map[symbol.ID]struct{}
	aliases     map[symbol.ID]string
	anonymous   map[symbol.ID]struct{}
	patterns    map[symbol.ID]string
	fragments   map[string]struct{}
}

// genSymbolTableAndLexSpec registers terminals and non-terminals. EOF comes first so it takes its reserved
// id. Terminals written in productions are registered before named ones, so their lexical entries win ties
// against named patterns. A terminal written in productions whose pattern equals that of a named terminal is
// the named terminal.
func (b *GrammarBuilder) genSymbolTableAndLexSpec(root *spec.RootNode) (*symbolTableAndLexSpec, error) {
	symTab := symbol.NewTable()
	if _, err := symTab.Declare(symbol.NameEOF, symbol.KindEOF); err != nil {
		return nil, err
	}

	var entries []*lexical.LexEntry
	anonPat2Sym := map[anonymousPattern]symbol.ID{}
	aliases := map[symbol.ID]string{}
	anonymous := map[symbol.ID]struct{}{}
	patterns := map[symbol.ID]string{}

	named := map[anonymousPattern]string{}
	for _, prod := range root.LexProductions {
		elem := prod.RHS[0].Elements[0]
		k := anonymousPattern{
			pattern: elem.Pattern,
			literal: elem.Literally,
		}
		if _, ok := named[k]; !ok {
			named[k] = prod.LHS
		}
	}

	var namedRefs []anonymousPattern
	{
		knownPats := map[anonymousPattern]struct{}{}
		var anonPats []anonymousPattern
		for _, prod := range root.Productions {
			for _, alt := range prod.RHS {
				for _, elem := range alt.Elements {
					if elem.Pattern == "" {
						continue
					}

					k := anonymousPattern{
						pattern: elem.Pattern,
						literal: elem.Literally,
					}
					if _, ok := knownPats[k]; ok {
						continue
					}
					knownPats[k] = struct{}{}

					if _, ok := named[k]; ok {
						namedRefs = append(namedRefs, k)
						continue
					}
					anonPats = append(anonPats, k)
				}
			}
		}

		for i, p := range anonPats {
			kind := fmt.Sprintf("%v%v", anonymousTerminalPrefix, i+1)

			sym, err := symTab.Declare(kind, symbol.KindTerminal)
			if err != nil {
				return nil, err
			}

			anonPat2Sym[p] = sym.ID
			anonymous[sym.ID] = struct{}{}
			patterns[sym.ID] = p.pattern
			if p.literal {
				aliases[sym.ID] = p.pattern
			}

			entries = append(entries, &lexical.LexEntry{
				Kind:    lexical.LexKindName(kind),
				Pattern: p.pattern,
				Literal: p.literal,
			})
		}
	}

	skipSyms := map[symbol.ID]struct{}{}
	for _, prod := range root.LexProductions {
		if _, exist := symTab.Lookup(prod.LHS); exist {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDuplicateTerminal,
				Detail: prod.LHS,
				Row:    prod.Pos.Row,
				Col:    prod.Pos.Col,
			})
			continue
		}

		entry, skip, init, specErr := genLexEntry(prod)
		if specErr != nil {
			b.errs = append(b.errs, specErr)
			continue
		}

		lhsSym, err := symTab.Declare(prod.LHS, symbol.KindTerminal)
		if err != nil {
			return nil, err
		}
		lhsSym.Initializer = init
		patterns[lhsSym.ID] = entry.Pattern
		if entry.Literal {
			aliases[lhsSym.ID] = entry.Pattern
		}
		if skip {
			skipSyms[lhsSym.ID] = struct{}{}
		}
		entries = append(entries, entry)
	}

	for _, k := range namedRefs {
		sym, ok := symTab.Lookup(named[k])
		if !ok {
			continue
		}
		anonPat2Sym[k] = sym.ID
	}

	fragments := map[string]struct{}{}
	for _, fragment := range root.Fragments {
		if _, exist := fragments[fragment.LHS]; exist {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDuplicateFragment,
				Detail: fragment.LHS,
				Row:    fragment.Pos.Row,
				Col:    fragment.Pos.Col,
			})
			continue
		}
		fragments[fragment.LHS] = struct{}{}

		entries = append(entries, &lexical.LexEntry{
			Fragment: true,
			Kind:     lexical.LexKindName(fragment.LHS),
			Pattern:  fragment.RHS,
		})
	}

	for _, prod := range root.Productions {
		if sym, exist := symTab.Lookup(prod.LHS); exist {
			cause := semErrDuplicateProduction
			if sym.IsTerminal() {
				cause = semErrDuplicateName
			}
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  cause,
				Detail: prod.LHS,
				Row:    prod.Pos.Row,
				Col:    prod.Pos.Col,
			})
			continue
		}
		if _, err := symTab.Declare(prod.LHS, symbol.KindNonTerminal); err != nil {
			return nil, err
		}
	}

	return &symbolTableAndLexSpec{
		symTab:      symTab,
		anonPat2Sym: anonPat2Sym,
		lexSpec: &lexical.LexSpec{
			Entries: entries,
		},
		skipSyms:  skipSyms,
		aliases:   aliases,
		anonymous: anonymous,
		patterns:  patterns,
		fragments: fragments,
	}, nil
}

func genLexEntry(prod *spec.ProductionNode) (*lexical.LexEntry, bool, string, *verr.SpecError) {
	alt := prod.RHS[0]
	elem := alt.Elements[0]

	var skip bool
	var init string
	dirConsumed := map[string]struct{}{}
	for _, dir := range alt.Directives {
		if _, consumed := dirConsumed[dir.Name]; consumed {
			return nil, false, "", &verr.SpecError{
				Cause:  semErrDuplicateDir,
				Detail: dir.Name,
				Row:    dir.Pos.Row,
				Col:    dir.Pos.Col,
			}
		}
		dirConsumed[dir.Name] = struct{}{}

		switch dir.Name {
		case "skip":
			if len(dir.Parameters) > 0 {
				return nil, false, "", &verr.SpecError{
					Cause:  semErrDirInvalidParam,
					Detail: "'skip' directive needs no parameter",
					Row:    dir.Pos.Row,
					Col:    dir.Pos.Col,
				}
			}
			skip = true
		case "init":
			text, ok := initializerText(dir)
			if !ok {
				return nil, false, "", &verr.SpecError{
					Cause:  semErrDirInvalidParam,
					Detail: "'init' directive needs a string parameter",
					Row:    dir.Pos.Row,
					Col:    dir.Pos.Col,
				}
			}
			init = text
		default:
			return nil, false, "", &verr.SpecError{
				Cause:  semErrDirInvalidName,
				Detail: dir.Name,
				Row:    dir.Pos.Row,
				Col:    dir.Pos.Col,
			}
		}
	}

	return &lexical.LexEntry{
		Kind:    lexical.LexKindName(prod.LHS),
		Pattern: elem.Pattern,
		Literal: elem.Literally,
		Skip:    skip,
	}, skip, init, nil
}

func initializerText(dir *spec.DirectiveNode) (string, bool) {
	if len(dir.Parameters) != 1 {
		return "", false
	}
	p := dir.Parameters[0]
	switch {
	case p.String != "":
		return p.String, true
	case p.Pattern != "":
		return p.Pattern, true
	}
	return "", false
}

// findTerminal returns the terminal a directive parameter refers to by its name or by its text.
func (st *symbolTableAndLexSpec) findTerminal(param *spec.ParameterNode) (*symbol.Symbol, bool) {
	var id symbol.ID
	switch {
	case param.ID != "":
		sym, ok := st.symTab.Lookup(param.ID)
		if !ok {
			return nil, false
		}
		return sym, true
	case param.String != "":
		var ok bool
		id, ok = st.anonPat2Sym[anonymousPattern{pattern: param.String, literal: true}]
		if !ok {
			return nil, false
		}
	case param.Pattern != "":
		var ok bool
		id, ok = st.anonPat2Sym[anonymousPattern{pattern: param.Pattern}]
		if !ok {
			return nil, false
		}
	default:
		return nil, false
	}
	return st.symTab.Get(id)
}

func paramText(param *spec.ParameterNode) string {
	switch {
	case param.ID != "":
		return param.ID
	case param.String != "":
		return fmt.Sprintf("'%v'", param.String)
	case param.Pattern != "":
		return fmt.Sprintf(`"%v"`, param.Pattern)
	}
	return ""
}

// genTerminalPrecedences assigns precedence levels to terminals. Earlier groups of the #prec directive bind
// less tightly, and the first group takes level 1.
func (b *GrammarBuilder) genTerminalPrecedences(root *spec.RootNode, st *symbolTableAndLexSpec) {
	var precGroup []*spec.DirectiveNode
	for _, dir := range root.Directives {
		if dir.Name != "prec" {
			continue
		}
		if len(dir.Parameters) != 1 || dir.Parameters[0].Group == nil {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDirInvalidParam,
				Detail: "'prec' needs just one directive group",
				Row:    dir.Pos.Row,
				Col:    dir.Pos.Col,
			})
			return
		}
		precGroup = dir.Parameters[0].Group
	}

	level := 1
	for _, dir := range precGroup {
		var assoc symbol.Assoc
		switch dir.Name {
		case "left":
			assoc = symbol.AssocLeft
		case "right":
			assoc = symbol.AssocRight
		case "nonassoc":
			assoc = symbol.AssocNonAssoc
		case "assign":
			assoc = symbol.AssocNil
		default:
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDirInvalidName,
				Detail: dir.Name,
				Row:    dir.Pos.Row,
				Col:    dir.Pos.Col,
			})
			return
		}

		if len(dir.Parameters) == 0 {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDirInvalidParam,
				Detail: "associativity needs at least one symbol",
				Row:    dir.Pos.Row,
				Col:    dir.Pos.Col,
			})
			return
		}

		for _, p := range dir.Parameters {
			sym, ok := st.findTerminal(p)
			if !ok {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrUndefinedSym,
					Detail: paramText(p),
					Row:    p.Pos.Row,
					Col:    p.Pos.Col,
				})
				continue
			}
			if !sym.IsTerminal() {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrDirInvalidParam,
					Detail: fmt.Sprintf("associativity can take only terminal symbol ('%v' is a non-terminal)", sym.Name),
					Row:    p.Pos.Row,
					Col:    p.Pos.Col,
				})
				continue
			}
			if sym.Prec != nil {
				detail := fmt.Sprintf("'%v' already has different associativity and precedence", paramText(p))
				switch {
				case sym.Prec.Level == level:
					detail = fmt.Sprintf("'%v' already has the same associativity and precedence", paramText(p))
				case sym.Prec.Assoc == assoc:
					detail = fmt.Sprintf("'%v' already has different precedence", paramText(p))
				}
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrDuplicateAssoc,
					Detail: detail,
					Row:    p.Pos.Row,
					Col:    p.Pos.Col,
				})
				continue
			}

			sym.Prec = &symbol.Precedence{
				Assoc: assoc,
				Level: level,
			}
		}

		level++
	}
}

// genProductions numbers the productions in the order of the source. The augmented start production takes
// number 1. A mid-rule action becomes a symbol owning one empty production that carries the action.
func (b *GrammarBuilder) genProductions(root *spec.RootNode, st *symbolTableAndLexSpec) (*productionSet, symbol.ID, error) {
	symTab := st.symTab
	prods := newProductionSet()

	startProd := root.Productions[0]
	startSym, ok := symTab.Lookup(startProd.LHS)
	if !ok {
		return nil, symbol.IDNil, fmt.Errorf("start symbol not found: %v", startProd.LHS)
	}
	augStartSym, err := symTab.Declare(fmt.Sprintf("%s'", startProd.LHS), symbol.KindNonTerminal)
	if err != nil {
		return nil, symbol.IDNil, err
	}
	{
		p, err := newProduction(augStartSym.ID, []symbol.ID{startSym.ID})
		if err != nil {
			return nil, symbol.IDNil, err
		}
		if _, err := prods.append(augStartSym, p, true); err != nil {
			return nil, symbol.IDNil, err
		}
	}

	actNum := 0
	for _, prod := range root.Productions {
		lhsSym, ok := symTab.Lookup(prod.LHS)
		if !ok || lhsSym.IsTerminal() {
			continue
		}

	ALTERNATIVE_LOOP:
		for _, alt := range prod.RHS {
			elems := alt.Elements
			act := alt.Action()
			if act != nil {
				elems = elems[:len(elems)-1]
			}

			rhs := make([]symbol.ID, 0, len(elems))
			for _, elem := range elems {
				switch {
				case elem.Action != nil:
					actNum++
					kind := symbol.KindSimpleAction
					if elem.Action.Old {
						kind = symbol.KindOldAction
					}
					actSym, err := symTab.Declare(fmt.Sprintf("%v%v", midRuleActionPrefix, actNum), kind)
					if err != nil {
						return nil, symbol.IDNil, err
					}
					p, err := newProduction(actSym.ID, nil)
					if err != nil {
						return nil, symbol.IDNil, err
					}
					p.action = elem.Action.Text
					p.oldAction = elem.Action.Old
					if _, err := prods.append(actSym, p, false); err != nil {
						return nil, symbol.IDNil, err
					}
					rhs = append(rhs, actSym.ID)
				case elem.ID != "":
					sym, ok := symTab.Lookup(elem.ID)
					if !ok {
						if _, isFragment := st.fragments[elem.ID]; isFragment {
							b.errs = append(b.errs, &verr.SpecError{
								Cause:  semErrMalformedRHS,
								Detail: fmt.Sprintf("a fragment cannot be used in productions: %v", elem.ID),
								Row:    elem.Pos.Row,
								Col:    elem.Pos.Col,
							})
						} else {
							b.errs = append(b.errs, &verr.SpecError{
								Cause:  semErrUndefinedSym,
								Detail: elem.ID,
								Row:    elem.Pos.Row,
								Col:    elem.Pos.Col,
							})
						}
						continue ALTERNATIVE_LOOP
					}
					rhs = append(rhs, sym.ID)
				case elem.Pattern != "":
					id, ok := st.anonPat2Sym[anonymousPattern{
						pattern: elem.Pattern,
						literal: elem.Literally,
					}]
					if !ok {
						return nil, symbol.IDNil, fmt.Errorf("terminal not found: %v", elem.Pattern)
					}
					rhs = append(rhs, id)
				default:
					b.errs = append(b.errs, &verr.SpecError{
						Cause: semErrMalformedRHS,
						Row:   elem.Pos.Row,
						Col:   elem.Pos.Col,
					})
					continue ALTERNATIVE_LOOP
				}
			}

			p, err := newProduction(lhsSym.ID, rhs)
			if err != nil {
				return nil, symbol.IDNil, err
			}
			if act != nil {
				p.action = act.Text
				p.oldAction = act.Old
			}

			if !b.applyAlternativeDirectives(alt, lhsSym, p, st) {
				continue
			}

			added, err := prods.append(lhsSym, p, false)
			if err != nil {
				return nil, symbol.IDNil, err
			}
			if !added {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrDuplicateProduction,
					Detail: prod.LHS,
					Row:    alt.Pos.Row,
					Col:    alt.Pos.Col,
				})
			}
		}
	}

	return prods, augStartSym.ID, nil
}

func (b *GrammarBuilder) applyAlternativeDirectives(alt *spec.AlternativeNode, lhs *symbol.Symbol, p *production, st *symbolTableAndLexSpec) bool {
	dirConsumed := map[string]struct{}{}
	for _, dir := range alt.Directives {
		if _, consumed := dirConsumed[dir.Name]; consumed {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDuplicateDir,
				Detail: dir.Name,
				Row:    dir.Pos.Row,
				Col:    dir.Pos.Col,
			})
			return false
		}
		dirConsumed[dir.Name] = struct{}{}

		switch dir.Name {
		case "prec":
			if len(dir.Parameters) != 1 || dir.Parameters[0].Group != nil {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrDirInvalidParam,
					Detail: "'prec' directive needs just one terminal",
					Row:    dir.Pos.Row,
					Col:    dir.Pos.Col,
				})
				return false
			}
			param := dir.Parameters[0]
			sym, ok := st.findTerminal(param)
			if !ok {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrUndefinedSym,
					Detail: paramText(param),
					Row:    param.Pos.Row,
					Col:    param.Pos.Col,
				})
				return false
			}
			if sym.Prec == nil {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrUndefinedPrec,
					Detail: paramText(param),
					Row:    param.Pos.Row,
					Col:    param.Pos.Col,
				})
				return false
			}
			p.prec = sym.Prec
		case "init":
			text, ok := initializerText(dir)
			if !ok {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrDirInvalidParam,
					Detail: "'init' directive needs a string parameter",
					Row:    dir.Pos.Row,
					Col:    dir.Pos.Col,
				})
				return false
			}
			if lhs.Initializer != "" && lhs.Initializer != text {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrDuplicateDir,
					Detail: fmt.Sprintf("'%v' already has an initializer", lhs.Name),
					Row:    dir.Pos.Row,
					Col:    dir.Pos.Col,
				})
				return false
			}
			lhs.Initializer = text
		default:
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDirInvalidName,
				Detail: dir.Name,
				Row:    dir.Pos.Row,
				Col:    dir.Pos.Col,
			})
			return false
		}
	}
	return true
}

// markNodeSymbols applies the #node directives. A node symbol keeps its own node in a syntax tree.
func (b *GrammarBuilder) markNodeSymbols(root *spec.RootNode, symTab *symbol.Table) {
	for _, dir := range root.Directives {
		if dir.Name != "node" {
			continue
		}
		if len(dir.Parameters) == 0 {
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrDirInvalidParam,
				Detail: "'node' needs at least one non-terminal",
				Row:    dir.Pos.Row,
				Col:    dir.Pos.Col,
			})
			continue
		}
		for _, p := range dir.Parameters {
			if p.ID == "" {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrDirInvalidParam,
					Detail: "'node' takes only IDs",
					Row:    p.Pos.Row,
					Col:    p.Pos.Col,
				})
				continue
			}
			sym, ok := symTab.Lookup(p.ID)
			if !ok {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrUndefinedSym,
					Detail: p.ID,
					Row:    p.Pos.Row,
					Col:    p.Pos.Col,
				})
				continue
			}
			if sym.Kind != symbol.KindNonTerminal && sym.Kind != symbol.KindNode {
				b.errs = append(b.errs, &verr.SpecError{
					Cause:  semErrDirInvalidParam,
					Detail: fmt.Sprintf("'node' can take only non-terminals ('%v' is a %v)", p.ID, sym.Kind),
					Row:    p.Pos.Row,
					Col:    p.Pos.Col,
				})
				continue
			}
			sym.Kind = symbol.KindNode
		}
	}
}

// checkUnusedSymbols walks the productions from the start symbol. Non-terminals and terminals the walk
// doesn't reach are errors unless the terminals are skipped, and skipped terminals must not be reached.
func (b *GrammarBuilder) checkUnusedSymbols(root *spec.RootNode, st *symbolTableAndLexSpec, prods *productionSet, augStart symbol.ID) {
	used := map[symbol.ID]struct{}{
		augStart: {},
	}
	stack := arraystack.New()
	stack.Push(augStart)
	for !stack.Empty() {
		v, _ := stack.Pop()
		ps, _ := prods.findByLHS(v.(symbol.ID))
		for _, p := range ps {
			for _, e := range p.rhs {
				if _, ok := used[e]; ok {
					continue
				}
				used[e] = struct{}{}
				stack.Push(e)
			}
		}
	}

	for _, prod := range root.Productions {
		sym, ok := st.symTab.Lookup(prod.LHS)
		if !ok {
			continue
		}
		if _, ok := used[sym.ID]; ok {
			continue
		}
		b.errs = append(b.errs, &verr.SpecError{
			Cause:  semErrUnusedProduction,
			Detail: prod.LHS,
			Row:    prod.Pos.Row,
			Col:    prod.Pos.Col,
		})
	}

	for _, prod := range root.LexProductions {
		sym, ok := st.symTab.Lookup(prod.LHS)
		if !ok {
			continue
		}
		_, isUsed := used[sym.ID]
		_, isSkipped := st.skipSyms[sym.ID]
		switch {
		case isUsed && isSkipped:
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrTermCannotBeSkipped,
				Detail: prod.LHS,
				Row:    prod.Pos.Row,
				Col:    prod.Pos.Col,
			})
		case !isUsed && !isSkipped:
			b.errs = append(b.errs, &verr.SpecError{
				Cause:  semErrUnusedTerminal,
				Detail: prod.LHS,
				Row:    prod.Pos.Row,
				Col:    prod.Pos.Col,
			})
		}
	}
}

type compileConfig struct {
	isReportingEnabled bool
	isDFAExportEnabled bool
	class              Class
	sink               DiagnosticSink
}

type CompileOption func(config *compileConfig)

func EnableReporting() CompileOption {
	return func(config *compileConfig) {
		config.isReportingEnabled = true
	}
}

// EnableDFAExport makes Compile attach a maleeni DFA of the lexical specification to the output.
func EnableDFAExport() CompileOption {
	return func(config *compileConfig) {
		config.isDFAExportEnabled = true
	}
}

func SpecifyClass(class Class) CompileOption {
	return func(config *compileConfig) {
		config.class = class
	}
}

// WithDiagnosticSink passes conflict diagnostics to a sink while the table is built.
func WithDiagnosticSink(sink DiagnosticSink) CompileOption {
	return func(config *compileConfig) {
		config.sink = sink
	}
}

func Compile(gram *Grammar, opts ...CompileOption) (*gspec.CompiledGrammar, *gspec.Report, error) {
	config := &compileConfig{
		class: ClassLALR,
	}
	for _, opt := range opts {
		opt(config)
	}

	lexer, err, cErrs := lexical.Compile(gram.lexSpec)
	if err != nil {
		if len(cErrs) > 0 {
			var b strings.Builder
			fmt.Fprintf(&b, "%v", cErrs[0])
			for _, cerr := range cErrs[1:] {
				fmt.Fprintf(&b, "\n%v", cerr)
			}
			return nil, nil, &verr.SpecError{
				Cause:  semErrLexicalSpec,
				Detail: b.String(),
			}
		}
		return nil, nil, err
	}

	var dfa *mlspec.CompiledLexSpec
	if config.isDFAExportEnabled {
		dfa, err, _ = lexical.ExportDFA(gram.lexSpec)
		if err != nil {
			return nil, nil, err
		}
	}

	kindNames := lexer.KindNames()
	kind2Term := make([]int, len(kindNames))
	for i, k := range kindNames {
		if i == lexical.LexKindIDNil.Int() {
			kind2Term[i] = symbol.IDNil.Int()
			continue
		}
		sym, ok := gram.symTab.Lookup(k.String())
		if !ok {
			return nil, nil, fmt.Errorf("terminal symbol '%v' was not found in a symbol table", k)
		}
		kind2Term[i] = sym.ID.Int()
	}

	a := newAnalyzer(gram.symTab, gram.prods)
	for _, sym := range gram.symTab.NonTerminals() {
		a.isNullable(sym.ID)
	}
	a.computeFirst()
	err = a.computeFollow(gram.augmentedStart)
	if err != nil {
		return nil, nil, err
	}

	lr0, err := genLR0Automaton(gram.prods, gram.symTab)
	if err != nil {
		return nil, nil, err
	}

	switch config.class {
	case ClassSLR:
		_, err = genSLR1Automaton(lr0, gram.prods, gram.symTab)
	case ClassLALR:
		_, err = genLALR1Automaton(lr0, gram.prods, gram.symTab, a)
	default:
		err = fmt.Errorf("unsupported class: %v", config.class)
	}
	if err != nil {
		return nil, nil, err
	}

	b := &lrTableBuilder{
		automaton: lr0,
		prods:     gram.prods,
		symTab:    gram.symTab,
		resolver:  newResolver(gram, config.sink),
	}
	tab, err := b.build()
	if err != nil {
		return nil, nil, err
	}
	tracer().Infof("compiled %v: %v states, %v conflicts", gram.name, tab.stateCount, len(b.diagnostics))

	var report *gspec.Report
	if config.isReportingEnabled {
		report, err = b.genReport(tab, gram, config.class)
		if err != nil {
			return nil, nil, err
		}
	}

	entries := make([]*gspec.LexEntry, len(gram.lexSpec.Entries))
	for i, e := range gram.lexSpec.Entries {
		entries[i] = &gspec.LexEntry{
			Kind:     e.Kind.String(),
			Pattern:  e.Pattern,
			Literal:  e.Literal,
			Fragment: e.Fragment,
			Skip:     e.Skip,
		}
	}

	syms := make([]*gspec.Symbol, gram.symTab.IDLimit())
	for _, sym := range gram.symTab.Symbols() {
		s := &gspec.Symbol{
			Name:        sym.Name,
			ID:          sym.ID.Int(),
			Kind:        sym.Kind.String(),
			Initializer: sym.Initializer,
			Alias:       gram.aliases[sym.ID],
		}
		if sym.Prec != nil {
			s.Precedence = sym.Prec.Level
			s.Associativity = sym.Prec.Assoc.String()
		}
		syms[sym.ID] = s
	}

	var prods []*gspec.Production
	for _, p := range gram.prods.getAllProductions() {
		prods = append(prods, &gspec.Production{
			Number:    p.num.Int(),
			LHS:       p.lhs.Int(),
			RHS:       idsToInts(p.rhs),
			Action:    p.action,
			OldAction: p.oldAction,
		})
	}

	trans := make([]int, len(tab.entries))
	for i, e := range tab.entries {
		trans[i] = int(e)
	}

	return &gspec.CompiledGrammar{
		Name: gram.name,
		Lexical: &gspec.LexicalSpec{
			Entries:        entries,
			KindToTerminal: kind2Term,
			DFA:            dfa,
		},
		Syntactic: &gspec.SyntacticSpec{
			Class:           string(config.class),
			Symbols:         syms,
			Productions:     prods,
			StartProduction: productionNumStart.Int(),
			EOFSymbol:       symbol.IDEOF.Int(),
			InitialState:    tab.InitialState.Int(),
			StateCount:      tab.stateCount,
			SymbolCount:     tab.symbolCount,
			Transition:      trans,
		},
	}, report, nil
}
