package tabular

import (
	"fmt"
	"os"
	"strings"
)

// WriteLines writes diagnostic dump lines to a temp file and atomically
// renames it into place, so a crashed run never leaves a torn dump.
func WriteLines(path string, lines []string) error {
	tmp := path + ".tmp"
	data := strings.Join(lines, "\n")
	if len(lines) > 0 {
		data += "\n"
	}
	if err := os.WriteFile(tmp, []byte(data), 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
