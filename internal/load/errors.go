package load

import (
	"errors"
	"fmt"
)

var ErrLoad = errors.New("load error")

// LoadError – który cel (tabela/kolekcja) się nie załadował.
type LoadError struct {
	Table string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Table, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

func (e *LoadError) Is(target error) bool { return target == ErrLoad }
