package scan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReportPath returns the report file written next to a slide: same base name
// with a .txt extension.
func ReportPath(slidePath string) string {
	ext := filepath.Ext(slidePath)
	return strings.TrimSuffix(slidePath, ext) + ".txt"
}

// WriteReport persists the summary next to the source slide. specimenID and
// stats are optional; when present they are included as extra report lines.
func WriteReport(slidePath string, result Result, stats *TileStats, specimenID string) error {
	var b strings.Builder
	if specimenID != "" {
		fmt.Fprintf(&b, "specimen: %s\n", specimenID)
	}
	b.WriteString(result.String())
	b.WriteString("\n")
	if stats != nil {
		b.WriteString(stats.String())
		b.WriteString("\n")
	}

	path := ReportPath(slidePath)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
