package transform

import "time"

// Tabular – wspólny widok na wyniki etapów (raport jakości, eksport CSV).
type Tabular interface {
	Len() int
	Columns() []string
	// Values zwraca wiersze w kolejności Columns(); brak wartości = nil.
	Values() [][]any
}

func strOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func floatOrNil(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func timeOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
