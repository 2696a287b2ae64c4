// Package dataset trzyma surowe rekordy tak, jak przychodzą ze źródeł
// (SQL, Mongo, CSV) – nazwy pól zgodne z systemem źródłowym.
package dataset

import (
	"sort"
)

// Row to pojedynczy rekord: nazwa pola -> wartość.
type Row map[string]any

// Table to uporządkowana kolekcja rekordów.
type Table []Row

// Has mówi, czy pole występuje w rekordzie (nawet z wartością nil).
func (r Row) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// Clone zwraca płytką kopię rekordu.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (t Table) Empty() bool { return len(t) == 0 }

// HasColumn: kolumna "istnieje", jeśli ma ją przynajmniej jeden rekord
// (tak jak kolumna DataFrame po json_normalize).
func (t Table) HasColumn(field string) bool {
	for _, r := range t {
		if r.Has(field) {
			return true
		}
	}
	return false
}

// Columns zwraca posortowaną sumę nazw pól ze wszystkich rekordów.
func (t Table) Columns() []string {
	seen := map[string]struct{}{}
	for _, r := range t {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
