package transform

import (
	"errors"
	"fmt"
)

var (
	// ErrCleaning – nienaprawialny błąd konwersji pola wymaganego w ventas.
	ErrCleaning = errors.New("cleaning error")
	// ErrTransform – każdy inny błąd etapu (np. zły timestamp w logach).
	ErrTransform = errors.New("transform error")
	// ErrEmptyInput nie jest awarią: etap pominięty, bo brak danych wejściowych.
	ErrEmptyInput = errors.New("empty input, stage skipped")
)

// StageError mówi, który etap i na jakim zbiorze się wywalił.
type StageError struct {
	Stage   string
	Dataset string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("transform stage %s (dataset %s): %v", e.Stage, e.Dataset, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
