// Package compressor shrinks the transition tables of compiled grammars. Most rows of a table are sparse,
// and many states share the same row, so the rows are first deduplicated and the unique rows are then
// overlaid by row displacement.
package compressor

import (
	"fmt"
	"math"
	"sort"

	"github.com/cnf/structhash"
)

// Table is a dense row-major table to compress.
type Table struct {
	entries  []int
	rowCount int
	colCount int
}

func NewTable(entries []int, colCount int) (*Table, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("entries is empty")
	}
	if colCount <= 0 {
		return nil, fmt.Errorf("colCount must be >=1")
	}
	if len(entries)%colCount != 0 {
		return nil, fmt.Errorf("entries length or column count are incorrect; entries length: %v, column count: %v", len(entries), colCount)
	}

	return &Table{
		entries:  entries,
		rowCount: len(entries) / colCount,
		colCount: colCount,
	}, nil
}

type Compressor interface {
	Compress(orig *Table) error
	Lookup(row, col int) (int, error)
	OriginalTableSize() (int, int)

	// Decompress rebuilds the dense entries of the original table.
	Decompress() ([]int, error)
}

var (
	_ Compressor = &UniqueEntriesTable{}
	_ Compressor = &RowDisplacementTable{}
	_ Compressor = &PackedTable{}
)

// UniqueEntriesTable keeps one copy of every distinct row. RowNums maps a row of the original table to its
// copy.
type UniqueEntriesTable struct {
	UniqueEntries    []int
	RowNums          []int
	OriginalRowCount int
	OriginalColCount int
}

func NewUniqueEntriesTable() *UniqueEntriesTable {
	return &UniqueEntriesTable{}
}

func (tab *UniqueEntriesTable) Lookup(row, col int) (int, error) {
	if row < 0 || row >= tab.OriginalRowCount || col < 0 || col >= tab.OriginalColCount {
		return 0, fmt.Errorf("indexes are out of range: [%v, %v]", row, col)
	}
	return tab.UniqueEntries[tab.RowNums[row]*tab.OriginalColCount+col], nil
}

func (tab *UniqueEntriesTable) OriginalTableSize() (int, int) {
	return tab.OriginalRowCount, tab.OriginalColCount
}

// UniqueRowCount returns the number of distinct rows.
func (tab *UniqueEntriesTable) UniqueRowCount() int {
	if tab.OriginalColCount == 0 {
		return 0
	}
	return len(tab.UniqueEntries) / tab.OriginalColCount
}

func (tab *UniqueEntriesTable) Compress(orig *Table) error {
	var uniqueEntries []int
	rowNums := make([]int, orig.rowCount)
	hash2RowNum := map[string]int{}
	nextRowNum := 0
	for row := 0; row < orig.rowCount; row++ {
		start := row * orig.colCount
		entry := orig.entries[start : start+orig.colCount]
		rowHash, err := structhash.Hash(entry, 1)
		if err != nil {
			return err
		}
		rowNum, ok := hash2RowNum[rowHash]
		if !ok {
			rowNum = nextRowNum
			nextRowNum++
			hash2RowNum[rowHash] = rowNum
			uniqueEntries = append(uniqueEntries, entry...)
		}
		rowNums[row] = rowNum
	}

	tab.UniqueEntries = uniqueEntries
	tab.RowNums = rowNums
	tab.OriginalRowCount = orig.rowCount
	tab.OriginalColCount = orig.colCount

	return nil
}

func (tab *UniqueEntriesTable) Decompress() ([]int, error) {
	if len(tab.RowNums) != tab.OriginalRowCount {
		return nil, fmt.Errorf("row count is mismatched; want: %v, got: %v", tab.OriginalRowCount, len(tab.RowNums))
	}
	uniqueRows := tab.UniqueRowCount()
	entries := make([]int, 0, tab.OriginalRowCount*tab.OriginalColCount)
	for row, n := range tab.RowNums {
		if n < 0 || n >= uniqueRows {
			return nil, fmt.Errorf("row %v refers to an unknown unique row: %v", row, n)
		}
		start := n * tab.OriginalColCount
		entries = append(entries, tab.UniqueEntries[start:start+tab.OriginalColCount]...)
	}
	return entries, nil
}

// ForbiddenValue marks the slots of Bounds no row owns.
const ForbiddenValue = -1

// RowDisplacementTable overlays rows at offsets where their non-empty entries don't collide. Bounds records
// the row owning each slot, so a lookup of an empty entry never reads another row's value.
type RowDisplacementTable struct {
	OriginalRowCount int
	OriginalColCount int
	EmptyValue       int
	Entries          []int
	Bounds           []int
	RowDisplacement  []int
}

func NewRowDisplacementTable(emptyValue int) *RowDisplacementTable {
	return &RowDisplacementTable{
		EmptyValue: emptyValue,
	}
}

func (tab *RowDisplacementTable) Lookup(row int, col int) (int, error) {
	if row < 0 || row >= tab.OriginalRowCount || col < 0 || col >= tab.OriginalColCount {
		return tab.EmptyValue, fmt.Errorf("indexes are out of range: [%v, %v]", row, col)
	}
	d := tab.RowDisplacement[row]
	if d+col >= len(tab.Bounds) || tab.Bounds[d+col] != row {
		return tab.EmptyValue, nil
	}
	return tab.Entries[d+col], nil
}

func (tab *RowDisplacementTable) OriginalTableSize() (int, int) {
	return tab.OriginalRowCount, tab.OriginalColCount
}

type rowInfo struct {
	rowNum        int
	nonEmptyCount int
	nonEmptyCol   []int
}

// Compress places the densest rows first. Each row takes the smallest displacement where its non-empty
// entries land on free slots.
func (tab *RowDisplacementTable) Compress(orig *Table) error {
	rows := make([]rowInfo, orig.rowCount)
	for row := 0; row < orig.rowCount; row++ {
		rows[row].rowNum = row
		for col := 0; col < orig.colCount; col++ {
			if orig.entries[row*orig.colCount+col] == tab.EmptyValue {
				continue
			}
			rows[row].nonEmptyCount++
			rows[row].nonEmptyCol = append(rows[row].nonEmptyCol, col)
		}
	}
	sort.SliceStable(rows, func(i int, j int) bool {
		return rows[i].nonEmptyCount > rows[j].nonEmptyCount
	})

	// The displacements are less than the entry count, so the slots never run out.
	size := len(orig.entries) + orig.colCount
	entries := make([]int, size)
	bounds := make([]int, size)
	for i := 0; i < size; i++ {
		entries[i] = tab.EmptyValue
		bounds[i] = ForbiddenValue
	}

	resultBottom := orig.colCount
	rowDisplacement := make([]int, orig.rowCount)
	nextRowDisplacement := 0
	for _, r := range rows {
		if r.nonEmptyCount <= 0 {
			continue
		}

		d := nextRowDisplacement
	DISPLACEMENT_LOOP:
		for {
			for _, col := range r.nonEmptyCol {
				if bounds[d+col] != ForbiddenValue {
					d++
					continue DISPLACEMENT_LOOP
				}
			}
			break
		}

		rowDisplacement[r.rowNum] = d
		for _, col := range r.nonEmptyCol {
			entries[d+col] = orig.entries[r.rowNum*orig.colCount+col]
			bounds[d+col] = r.rowNum
		}
		if d+orig.colCount > resultBottom {
			resultBottom = d + orig.colCount
		}
		nextRowDisplacement = d + 1
	}

	tab.OriginalRowCount = orig.rowCount
	tab.OriginalColCount = orig.colCount
	tab.Entries = entries[:resultBottom]
	tab.Bounds = bounds[:resultBottom]
	tab.RowDisplacement = rowDisplacement

	return nil
}

func (tab *RowDisplacementTable) Decompress() ([]int, error) {
	if len(tab.RowDisplacement) != tab.OriginalRowCount {
		return nil, fmt.Errorf("row count is mismatched; want: %v, got: %v", tab.OriginalRowCount, len(tab.RowDisplacement))
	}
	if tab.OriginalRowCount < 0 || tab.OriginalColCount < 0 {
		return nil, fmt.Errorf("invalid table size: %vx%v", tab.OriginalRowCount, tab.OriginalColCount)
	}
	if tab.OriginalColCount > 0 && tab.OriginalRowCount > math.MaxInt/tab.OriginalColCount {
		return nil, fmt.Errorf("table size overflows: %vx%v", tab.OriginalRowCount, tab.OriginalColCount)
	}
	if len(tab.Entries) != len(tab.Bounds) {
		return nil, fmt.Errorf("entries and bounds have different lengths: %v, %v", len(tab.Entries), len(tab.Bounds))
	}
	entries := make([]int, tab.OriginalRowCount*tab.OriginalColCount)
	for row := 0; row < tab.OriginalRowCount; row++ {
		if tab.RowDisplacement[row] < 0 {
			return nil, fmt.Errorf("row %v has a negative displacement", row)
		}
		for col := 0; col < tab.OriginalColCount; col++ {
			v, err := tab.Lookup(row, col)
			if err != nil {
				return nil, err
			}
			entries[row*tab.OriginalColCount+col] = v
		}
	}
	return entries, nil
}

// PackedTable applies row deduplication and then row displacement to the unique rows.
type PackedTable struct {
	RowNums          []int
	OriginalRowCount int
	Displaced        *RowDisplacementTable
}

func NewPackedTable(emptyValue int) *PackedTable {
	return &PackedTable{
		Displaced: NewRowDisplacementTable(emptyValue),
	}
}

func (tab *PackedTable) Compress(orig *Table) error {
	ue := NewUniqueEntriesTable()
	err := ue.Compress(orig)
	if err != nil {
		return err
	}
	unique, err := NewTable(ue.UniqueEntries, ue.OriginalColCount)
	if err != nil {
		return err
	}
	err = tab.Displaced.Compress(unique)
	if err != nil {
		return err
	}
	tab.RowNums = ue.RowNums
	tab.OriginalRowCount = orig.rowCount
	return nil
}

func (tab *PackedTable) Lookup(row, col int) (int, error) {
	if row < 0 || row >= tab.OriginalRowCount {
		return tab.Displaced.EmptyValue, fmt.Errorf("indexes are out of range: [%v, %v]", row, col)
	}
	return tab.Displaced.Lookup(tab.RowNums[row], col)
}

func (tab *PackedTable) OriginalTableSize() (int, int) {
	return tab.OriginalRowCount, tab.Displaced.OriginalColCount
}

func (tab *PackedTable) Decompress() ([]int, error) {
	if len(tab.RowNums) != tab.OriginalRowCount {
		return nil, fmt.Errorf("row count is mismatched; want: %v, got: %v", tab.OriginalRowCount, len(tab.RowNums))
	}
	unique, err := tab.Displaced.Decompress()
	if err != nil {
		return nil, err
	}
	ue := &UniqueEntriesTable{
		UniqueEntries:    unique,
		RowNums:          tab.RowNums,
		OriginalRowCount: tab.OriginalRowCount,
		OriginalColCount: tab.Displaced.OriginalColCount,
	}
	return ue.Decompress()
}
