package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type CSVExporter struct {
	OutputDir string
}

func NewCSVExporter(outputDir string) *CSVExporter {
	return &CSVExporter{OutputDir: outputDir}
}

// Export writes the surviving tasks of an upcoming-tasks run as a CSV
// task list, in report order.
func (e *CSVExporter) Export(tasks *UpcomingTasks) error {
	if err := os.MkdirAll(e.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(e.OutputDir, fmt.Sprintf("upcoming_tasks_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"#",
		"Task",
		"Name",
		"Project",
		"URL",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for i, task := range tasks.Tasks {
		row := []string{
			fmt.Sprintf("%d", i+1),
			task.DisplayID(),
			task.Name,
			tasks.ProjectName,
			task.URL,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return nil
}
