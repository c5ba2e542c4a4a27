// Package listops provides the in-memory ordering and lookup-dispatch
// facility used over entity collections, cached or freshly queried.
package listops

import (
	"strings"

	"github.com/hospitalworks/go-clinic-core/model"
)

// Direction selects sort order. Descending negates the comparator rather
// than reversing the output, so ties keep partition order semantics.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// Sort orders items in place with a partition-exchange sort: last-element
// pivot, Lomuto partitioning, recursive. Average O(n log n), worst O(n²);
// not stable.
func Sort[T any](items []T, cmp func(a, b T) int, dir Direction) {
	if dir == Descending {
		asc := cmp
		cmp = func(a, b T) int { return -asc(a, b) }
	}
	quicksort(items, 0, len(items)-1, cmp)
}

func quicksort[T any](items []T, lo, hi int, cmp func(a, b T) int) {
	if lo >= hi {
		return
	}
	p := partition(items, lo, hi, cmp)
	quicksort(items, lo, p-1, cmp)
	quicksort(items, p+1, hi, cmp)
}

func partition[T any](items []T, lo, hi int, cmp func(a, b T) int) int {
	pivot := items[hi]
	i := lo
	for j := lo; j < hi; j++ {
		if cmp(items[j], pivot) < 0 {
			items[i], items[j] = items[j], items[i]
			i++
		}
	}
	items[i], items[hi] = items[hi], items[i]
	return i
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareFold(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// PatientKey enumerates the supported patient sort keys.
type PatientKey int

const (
	// PatientByName orders by the composite "first last" name, case-insensitive.
	PatientByName PatientKey = iota
	// PatientByID orders by the numeric primary key.
	PatientByID
)

// PatientComparator maps a sort key to its comparator.
func PatientComparator(key PatientKey) func(a, b model.Patient) int {
	switch key {
	case PatientByID:
		return func(a, b model.Patient) int { return compareInt64(a.ID, b.ID) }
	default:
		return func(a, b model.Patient) int { return compareFold(a.FullName(), b.FullName()) }
	}
}

// DoctorKey enumerates the supported doctor sort keys.
type DoctorKey int

const (
	DoctorByName DoctorKey = iota
	DoctorByID
)

func DoctorComparator(key DoctorKey) func(a, b model.Doctor) int {
	switch key {
	case DoctorByID:
		return func(a, b model.Doctor) int { return compareInt64(a.ID, b.ID) }
	default:
		return func(a, b model.Doctor) int { return compareFold(a.FullName(), b.FullName()) }
	}
}

// InventoryKey enumerates the supported inventory sort keys.
type InventoryKey int

const (
	InventoryByItemName InventoryKey = iota
	InventoryByQuantity
)

func InventoryComparator(key InventoryKey) func(a, b model.MedicalInventory) int {
	switch key {
	case InventoryByQuantity:
		return func(a, b model.MedicalInventory) int { return int(a.Quantity) - int(b.Quantity) }
	default:
		return func(a, b model.MedicalInventory) int { return compareFold(a.ItemName, b.ItemName) }
	}
}
