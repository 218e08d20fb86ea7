package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// timestampLayout is the {ts} expansion format: YYYYMMDD_HHMMSS, local time.
const timestampLayout = "20060102_150405"

// ExpandPathTemplate expands the {ts} token to the current local timestamp
// and a leading ~ to the user's home directory.
func ExpandPathTemplate(template string) (string, error) {
	expanded := strings.ReplaceAll(template, "{ts}", time.Now().Format(timestampLayout))
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		expanded = filepath.Join(home, strings.TrimPrefix(expanded, "~"))
	}
	return expanded, nil
}
