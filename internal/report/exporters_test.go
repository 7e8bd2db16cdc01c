package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func collectedStatus() *RevisionStatus {
	accepted := makeRevision(1, 100)
	accepted.MeetsAcceptanceCriteria = true
	accepted.AcceptorPHIDs = []string{"PHID-USER-bob"}
	todo := makeRevision(2, 200)
	todo.BlockerPHIDs = []string{"PHID-USER-carol"}

	return &RevisionStatus{
		Accepted: []Revision{accepted},
		Todo:     []Revision{todo},
		Users:    testUsers(),
		Repos:    testRepos(),
	}
}

func findExport(t *testing.T, dir, prefix, ext string) string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), prefix) && strings.HasSuffix(entry.Name(), ext) {
			return filepath.Join(dir, entry.Name())
		}
	}
	t.Fatalf("no %s%s export found in %s", prefix, ext, dir)
	return ""
}

func TestExcelExporter(t *testing.T) {
	dir := t.TempDir()

	err := NewExcelExporter(dir).Export(collectedStatus())
	require.NoError(t, err)

	path := findExport(t, dir, "revision_status_", ".xlsx")
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"Summary", "Accepted", "Needs Review"}, f.GetSheetList())

	id, err := f.GetCellValue("Accepted", "B2")
	require.NoError(t, err)
	assert.Equal(t, "D1", id)

	author, err := f.GetCellValue("Accepted", "D2")
	require.NoError(t, err)
	assert.Equal(t, "alice", author)

	blockers, err := f.GetCellValue("Needs Review", "H2")
	require.NoError(t, err)
	assert.Equal(t, "carol", blockers)
}

func TestCSVExporter(t *testing.T) {
	dir := t.TempDir()

	tasks := &UpcomingTasks{
		ProjectName: "Platform",
		ColumnNames: []string{"Up Next"},
		Tasks: []Task{
			{ID: 10, Name: "Ship the exporter", URL: "https://phab.example.com/T10"},
		},
	}

	err := NewCSVExporter(dir).Export(tasks)
	require.NoError(t, err)

	path := findExport(t, dir, "upcoming_tasks_", ".csv")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "#,Task,Name,Project,URL", lines[0])
	assert.Equal(t, "1,T10,Ship the exporter,Platform,https://phab.example.com/T10", lines[1])
}

func TestExporterJSON(t *testing.T) {
	dir := t.TempDir()

	status := collectedStatus()
	err := NewExporter(dir).ExportJSON(status, "status.json")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "status.json"))
	require.NoError(t, err)

	var decoded RevisionStatus
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Accepted, 1)
	assert.Equal(t, 1, decoded.Accepted[0].ID)
	assert.Equal(t, time.Unix(100, 0).Unix(), decoded.Accepted[0].ModifiedAt.Unix())
}
