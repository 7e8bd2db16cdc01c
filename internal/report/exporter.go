package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Exporter struct {
	OutputDir string
}

func NewExporter(outputDir string) *Exporter {
	return &Exporter{OutputDir: outputDir}
}

// ExportJSON dumps the raw collected report data, mainly for feeding
// other tooling or diffing runs.
func (e *Exporter) ExportJSON(data any, filename string) error {
	if err := os.MkdirAll(e.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	encoded, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(e.OutputDir, filename), encoded, 0644)
}
