package eligibility

import "sort"

// Table is an immutable lookup keyed by a small integer (household size,
// number of children). Keys past the last defined entry extrapolate by adding
// Step for every extra unit; keys below the first entry use the first entry.
type Table struct {
	values map[int]float64
	minKey int
	maxKey int
	step   float64
}

// NewTable copies values into a Table. The keys must be contiguous.
func NewTable(values map[int]float64, step float64) Table {
	t := Table{values: make(map[int]float64, len(values)), step: step}
	keys := make([]int, 0, len(values))
	for k, v := range values {
		t.values[k] = v
		keys = append(keys, k)
	}
	if len(keys) > 0 {
		sort.Ints(keys)
		t.minKey, t.maxKey = keys[0], keys[len(keys)-1]
	}
	return t
}

// Lookup returns the value for key, extrapolating beyond the defined range.
func (t Table) Lookup(key int) float64 {
	if len(t.values) == 0 {
		return 0
	}
	if key < t.minKey {
		key = t.minKey
	}
	if key <= t.maxKey {
		return t.values[key]
	}
	return t.values[t.maxKey] + t.step*float64(key-t.maxKey)
}

// Len reports the number of explicitly defined entries.
func (t Table) Len() int { return len(t.values) }

// 2024 HHS poverty guidelines, 48 contiguous states.
var defaultPovertyTable = NewTable(map[int]float64{
	1: 15060,
	2: 20440,
	3: 25820,
	4: 31200,
	5: 36580,
	6: 41960,
	7: 47340,
	8: 52720,
}, 5380)

// FY2024 SNAP maximum monthly allotments.
var snapMaxBenefitTable = NewTable(map[int]float64{
	1: 291,
	2: 535,
	3: 766,
	4: 973,
	5: 1155,
	6: 1386,
	7: 1532,
	8: 1751,
}, 219)

// Maximum annual EITC by number of qualifying children; three or more share a row.
var eitcMaxCreditTable = NewTable(map[int]float64{
	0: 632,
	1: 4213,
	2: 6960,
	3: 7830,
}, 0)

// DefaultPovertyTable returns the built-in poverty guidelines.
func DefaultPovertyTable() Table { return defaultPovertyTable }
