package grammar

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/cnf/structhash"
	"github.com/emirpasic/gods/utils"

	"github.com/nihei9/gramc/grammar/symbol"
)

// lrItemID identifies an item. Two items are the same item when both their productions and their dots match.
type lrItemID struct {
	prod productionNum
	dot  int
}

func (id lrItemID) String() string {
	return fmt.Sprintf("%v.%v", id.prod, id.dot)
}

func compareItemIDs(a, b lrItemID) int {
	if c := utils.IntComparator(a.prod.Int(), b.prod.Int()); c != 0 {
		return c
	}
	return utils.IntComparator(a.dot, b.dot)
}

// itemComparator orders items in a gods container by their productions and then by their dots.
func itemComparator(a, b interface{}) int {
	return compareItemIDs(a.(*lrItem).id, b.(*lrItem).id)
}

type lookAhead struct {
	symbols *symbol.Set

	// When propagation is true, an item propagates look-ahead symbols to other items.
	propagation bool
}

func (la *lookAhead) add(syms *symbol.Set) bool {
	if la.symbols == nil {
		la.symbols = symbol.NewSet()
	}
	return la.symbols.Merge(syms)
}

type lrItem struct {
	id   lrItemID
	prod productionNum

	// E → E + T
	//
	// Dot | Dotted Symbol | Item
	// ----+---------------+------------
	// 0   | E             | E →・E + T
	// 1   | +             | E → E・+ T
	// 2   | T             | E → E +・T
	// 3   | Nil           | E → E + T・
	dot          int
	dottedSymbol symbol.ID

	// When initial is true, the LHS of the production is the augmented start symbol and dot is 0.
	// It looks like S' →・S.
	initial bool

	// When reducible is true, the item looks like E → E + T・.
	reducible bool

	// When kernel is true, the item is kernel item.
	kernel bool

	// lookAhead stores look-ahead symbols, and they are terminal symbols.
	// The item is reducible only when the look-ahead symbols appear as the next input symbol.
	lookAhead lookAhead
}

func newLR0Item(prod *production, dot int) (*lrItem, error) {
	if prod == nil {
		return nil, fmt.Errorf("production must be non-nil")
	}

	if dot < 0 || dot > len(prod.rhs) {
		return nil, fmt.Errorf("dot must be between 0 and %v", len(prod.rhs))
	}

	dottedSymbol := symbol.IDNil
	if dot < len(prod.rhs) {
		dottedSymbol = prod.rhs[dot]
	}

	initial := prod.num == productionNumStart && dot == 0

	return &lrItem{
		id: lrItemID{
			prod: prod.num,
			dot:  dot,
		},
		prod:         prod.num,
		dot:          dot,
		dottedSymbol: dottedSymbol,
		initial:      initial,
		reducible:    dot == len(prod.rhs),
		kernel:       initial || dot > 0,
	}, nil
}

func (item *lrItem) String() string {
	return item.id.String()
}

// kernelID is a digest of the sorted items of a kernel. Item sets having the same kernel are one state.
type kernelID string

type kernel struct {
	id    kernelID
	items []*lrItem
}

// kernelDigest is the form structhash digests. It only has exported fields.
type kernelDigest struct {
	Items [][2]int
}

func newKernel(items []*lrItem) (*kernel, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("a kernel need at least one item")
	}

	// Remove duplicates from items.
	var sortedItems []*lrItem
	{
		m := map[lrItemID]*lrItem{}
		for _, item := range items {
			if !item.kernel {
				return nil, fmt.Errorf("not a kernel item: %v", item)
			}
			m[item.id] = item
		}
		sortedItems = make([]*lrItem, 0, len(m))
		for _, item := range m {
			sortedItems = append(sortedItems, item)
		}
		sort.Slice(sortedItems, func(i, j int) bool {
			return compareItemIDs(sortedItems[i].id, sortedItems[j].id) < 0
		})
	}

	d := &kernelDigest{
		Items: make([][2]int, len(sortedItems)),
	}
	for i, item := range sortedItems {
		d.Items[i] = [2]int{item.prod.Int(), item.dot}
	}
	h, err := structhash.Hash(d, 1)
	if err != nil {
		return nil, fmt.Errorf("failed to digest a kernel: %w", err)
	}

	return &kernel{
		id:    kernelID(h),
		items: sortedItems,
	}, nil
}

func (k *kernel) findItem(id lrItemID) (*lrItem, bool) {
	for _, item := range k.items {
		if item.id == id {
			return item, true
		}
	}
	return nil, false
}

type stateNum int

const stateNumInitial = stateNum(0)

func (n stateNum) Int() int {
	return int(n)
}

func (n stateNum) String() string {
	return strconv.Itoa(int(n))
}

func (n stateNum) next() stateNum {
	return stateNum(n + 1)
}

type lrState struct {
	*kernel
	num       stateNum
	next      map[symbol.ID]kernelID
	reducible map[productionNum]struct{}

	// emptyProdItems stores items that have an empty production like `p → ε` and is reducible.
	// Thus the items emptyProdItems stores are like `p → ・ε`. emptyProdItems is needed to store
	// look-ahead symbols because the kernel items don't include these items.
	//
	// For instance, we have the following productions, and A is a terminal symbol.
	//
	// s' → s
	// s → A | ε
	//
	// CLOSURE({s' → ・s}) generates the following closure, but the kernel of this closure doesn't
	// include `s → ・ε`.
	//
	// s' → ・s
	// s → ・A
	// s → ・ε
	emptyProdItems []*lrItem
}

// findReducibleItem returns the item carrying the look-ahead symbols of a reducible production.
func (s *lrState) findReducibleItem(prod productionNum) (*lrItem, bool) {
	for _, item := range s.items {
		if item.prod == prod && item.reducible {
			return item, true
		}
	}
	for _, item := range s.emptyProdItems {
		if item.prod == prod {
			return item, true
		}
	}
	return nil, false
}

// nextSymbols returns the symbols the state has transitions on in ascending order.
func (s *lrState) nextSymbols() []symbol.ID {
	syms := make([]symbol.ID, 0, len(s.next))
	for sym := range s.next {
		syms = append(syms, sym)
	}
	sort.Slice(syms, func(i, j int) bool {
		return syms[i] < syms[j]
	})
	return syms
}
