package symbol

import "fmt"

// Table interns symbol names. A name maps to exactly one record, and records are indexed by their ids.
type Table struct {
	name2ID map[string]ID
	syms    []*Symbol
	nextID  ID
}

func NewTable() *Table {
	return &Table{
		name2ID: map[string]ID{},
	}
}

// Reset discards every symbol so that the table can serve another build.
func (t *Table) Reset() {
	t.name2ID = map[string]ID{}
	t.syms = nil
	t.nextID = 0
}

// Resolve returns the record of name, registering a new one when the name is unknown.
func (t *Table) Resolve(name string) *Symbol {
	if id, ok := t.name2ID[name]; ok {
		return t.syms[id]
	}

	var id ID
	if name == NameEOF {
		id = IDEOF
	} else {
		if t.nextID == IDEOF {
			t.nextID++
		}
		id = t.nextID
		t.nextID++
	}

	sym := newSymbol(name, id)
	if name == NameEOF {
		sym.Kind = KindEOF
	}
	t.put(sym)
	return sym
}

// Declare resolves name and fixes its kind. Declaring a symbol again with the same kind is allowed.
func (t *Table) Declare(name string, kind Kind) (*Symbol, error) {
	sym := t.Resolve(name)
	if sym.Kind == kind {
		return sym, nil
	}
	if sym.Kind != KindUnknown {
		return nil, fmt.Errorf("%v is already declared as %v; cannot redeclare it as %v", name, sym.Kind, kind)
	}
	sym.Kind = kind
	return sym, nil
}

// Restore registers a symbol with a known id. Decoders use it to rebuild a table in the order it was
// written.
func (t *Table) Restore(name string, id ID, kind Kind) (*Symbol, error) {
	if id < 0 {
		return nil, fmt.Errorf("invalid symbol id: %v", id)
	}
	if _, ok := t.name2ID[name]; ok {
		return nil, fmt.Errorf("duplicate symbol name: %v", name)
	}
	if s, ok := t.Get(id); ok {
		return nil, fmt.Errorf("symbol id %v is already used by %v", id, s.Name)
	}
	if (name == NameEOF) != (id == IDEOF) {
		return nil, fmt.Errorf("%v must take id %v; got: %v (%v)", NameEOF, IDEOF, name, id)
	}

	sym := newSymbol(name, id)
	sym.Kind = kind
	t.put(sym)
	if id >= t.nextID {
		t.nextID = id + 1
	}
	return sym, nil
}

func (t *Table) put(sym *Symbol) {
	for ID(len(t.syms)) <= sym.ID {
		t.syms = append(t.syms, nil)
	}
	t.syms[sym.ID] = sym
	t.name2ID[sym.Name] = sym.ID
}

func (t *Table) Lookup(name string) (*Symbol, bool) {
	id, ok := t.name2ID[name]
	if !ok {
		return nil, false
	}
	return t.syms[id], true
}

func (t *Table) Get(id ID) (*Symbol, bool) {
	if id < 0 || int(id) >= len(t.syms) || t.syms[id] == nil {
		return nil, false
	}
	return t.syms[id], true
}

// Len returns the number of registered symbols.
func (t *Table) Len() int {
	return len(t.name2ID)
}

// IDLimit returns a value greater than every registered id. Tables indexed by id use it as their width.
func (t *Table) IDLimit() int {
	return len(t.syms)
}

// Symbols returns every symbol in id order.
func (t *Table) Symbols() []*Symbol {
	syms := make([]*Symbol, 0, len(t.name2ID))
	for _, s := range t.syms {
		if s == nil {
			continue
		}
		syms = append(syms, s)
	}
	return syms
}

func (t *Table) Terminals() []*Symbol {
	var syms []*Symbol
	for _, s := range t.syms {
		if s == nil || !s.IsTerminal() {
			continue
		}
		syms = append(syms, s)
	}
	return syms
}

func (t *Table) NonTerminals() []*Symbol {
	var syms []*Symbol
	for _, s := range t.syms {
		if s == nil || !s.Kind.HasProductions() {
			continue
		}
		syms = append(syms, s)
	}
	return syms
}

func (t *Table) Iterator() *Iterator {
	return &Iterator{
		tab: t,
		pos: -1,
	}
}

// Iterator walks a table in id order. It doesn't own the symbols, and Reset restarts it.
type Iterator struct {
	tab *Table
	pos int
}

func (it *Iterator) Next() bool {
	for it.pos+1 < len(it.tab.syms) {
		it.pos++
		if it.tab.syms[it.pos] != nil {
			return true
		}
	}
	it.pos = len(it.tab.syms)
	return false
}

func (it *Iterator) Symbol() *Symbol {
	if it.pos < 0 || it.pos >= len(it.tab.syms) {
		return nil
	}
	return it.tab.syms[it.pos]
}

func (it *Iterator) Reset() {
	it.pos = -1
}
