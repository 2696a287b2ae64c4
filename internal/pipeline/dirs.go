package pipeline

import (
	"fmt"
	"os"
)

func prepareDirs(dirs ...string) error {
	for _, d := range dirs {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("katalog %s: %w", d, err)
		}
	}
	return nil
}
