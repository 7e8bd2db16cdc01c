package report

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type ExcelExporter struct {
	OutputDir string
}

func NewExcelExporter(outputDir string) *ExcelExporter {
	return &ExcelExporter{OutputDir: outputDir}
}

// Export writes one workbook per run: a Summary sheet with section
// counts plus one sheet per revision bucket.
func (e *ExcelExporter) Export(status *RevisionStatus) error {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(e.OutputDir, fmt.Sprintf("revision_status_%s.xlsx", timestamp))

	f := excelize.NewFile()
	defer f.Close()

	if err := e.createSummarySheet(f, "Summary", status); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}

	sections := []struct {
		name      string
		revisions []Revision
	}{
		{"Accepted", status.Accepted},
		{"Needs Review", status.Todo},
	}
	for _, section := range sections {
		if err := e.createRevisionSheet(f, sanitizeSheetName(section.name), section.revisions, status); err != nil {
			return fmt.Errorf("failed to create sheet for %s: %w", section.name, err)
		}
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		//NOTE:
	}

	if err := f.SaveAs(filename); err != nil {
		return fmt.Errorf("failed to save excel file: %w", err)
	}

	return nil
}

func (e *ExcelExporter) createSummarySheet(f *excelize.File, sheetName string, status *RevisionStatus) error {
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "#000000", Style: 1},
			{Type: "right", Color: "#000000", Style: 1},
			{Type: "top", Color: "#000000", Style: 1},
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})

	f.SetCellValue(sheetName, "A1", "Generated:")
	f.SetCellValue(sheetName, "B1", time.Now().Format("02-01-06"))

	titleCase := cases.Title(language.English)

	counts := []struct {
		section string
		count   int
	}{
		{"accepted", len(status.Accepted)},
		{"needs review", len(status.Todo)},
	}

	row := 3
	f.SetCellValue(sheetName, cellName(1, row), "Section")
	f.SetCellStyle(sheetName, cellName(1, row), cellName(1, row), headerStyle)
	f.SetCellValue(sheetName, cellName(2, row), "Revisions")
	f.SetCellStyle(sheetName, cellName(2, row), cellName(2, row), headerStyle)
	row++

	total := 0
	for _, c := range counts {
		f.SetCellValue(sheetName, cellName(1, row), titleCase.String(c.section))
		f.SetCellValue(sheetName, cellName(2, row), c.count)
		total += c.count
		row++
	}

	f.SetCellValue(sheetName, cellName(1, row), "Total")
	f.SetCellValue(sheetName, cellName(2, row), total)

	f.SetColWidth(sheetName, "A", "A", 20)
	f.SetColWidth(sheetName, "B", "B", 12)

	return nil
}

func (e *ExcelExporter) createRevisionSheet(f *excelize.File, sheetName string, revisions []Revision, status *RevisionStatus) error {
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border: []excelize.Border{
			{Type: "left", Color: "#000000", Style: 1},
			{Type: "right", Color: "#000000", Style: 1},
			{Type: "top", Color: "#000000", Style: 1},
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})

	headers := []string{
		"#",
		"ID",
		"Title",
		"Author",
		"Repository",
		"Modified",
		"Accepted By",
		"Blocked By",
		"URL",
	}

	for col, header := range headers {
		cell := cellName(col+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, rev := range revisions {
		row := i + 2

		f.SetCellValue(sheetName, cellName(1, row), i+1)
		f.SetCellValue(sheetName, cellName(2, row), rev.DisplayID())
		f.SetCellValue(sheetName, cellName(3, row), rev.Title)
		f.SetCellValue(sheetName, cellName(4, row), status.Users[rev.AuthorPHID].Name)
		f.SetCellValue(sheetName, cellName(5, row), status.Repos[rev.RepoPHID].ReadableName)
		f.SetCellValue(sheetName, cellName(6, row), rev.ModifiedAt.Format("2006-01-02 15:04"))
		f.SetCellValue(sheetName, cellName(7, row), joinUserNames(rev.AcceptorPHIDs, status.Users))
		f.SetCellValue(sheetName, cellName(8, row), joinUserNames(rev.BlockerPHIDs, status.Users))
		f.SetCellValue(sheetName, cellName(9, row), rev.URL)
	}

	f.SetColWidth(sheetName, "A", "A", 5)
	f.SetColWidth(sheetName, "B", "B", 10)
	f.SetColWidth(sheetName, "C", "C", 50)
	f.SetColWidth(sheetName, "D", "E", 20)
	f.SetColWidth(sheetName, "F", "F", 18)
	f.SetColWidth(sheetName, "G", "H", 25)
	f.SetColWidth(sheetName, "I", "I", 40)

	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	return nil
}

// joinUserNames is a lenient variant of userNames for spreadsheet
// cells: unresolved PHIDs have already failed rendering by the time an
// export runs, so a bare map read is fine here.
func joinUserNames(phids []string, users map[string]User) string {
	names := make([]string, 0, len(phids))
	for _, phid := range phids {
		names = append(names, users[phid].Name)
	}
	return strings.Join(names, ", ")
}

func cellName(col, row int) string {
	return fmt.Sprintf("%s%d", columnLetter(col), row)
}

func columnLetter(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

func sanitizeSheetName(name string) string {
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	name = strings.ReplaceAll(name, "?", "")
	name = strings.ReplaceAll(name, "*", "")
	name = strings.ReplaceAll(name, "[", "(")
	name = strings.ReplaceAll(name, "]", ")")

	if len(name) > 31 {
		name = name[:31]
	}

	return name
}
