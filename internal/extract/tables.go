package extract

import (
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/filingscope/filingscope/pkg/models"
)

// Markup phrases that identify a financial statement table even when its
// cell text alone is inconclusive.
var financialMarkupKeywords = []string{
	"balance sheet",
	"income statement",
	"cash flow",
	"operations",
}

// headerRowScanDepth is how many leading rows the acceptance check inspects
// for currency symbols or statement captions.
const headerRowScanDepth = 2

// CandidateDocument picks the rendered filing document most likely to
// contain the financial statements: an .htm file that is neither the index
// page nor a cover form, preferring the shortest file name since primary
// documents tend to be named tersely (aapl-20230930.htm).
func CandidateDocument(links []models.DocumentLink) (models.DocumentLink, bool) {
	var best models.DocumentLink
	found := false
	for _, link := range links {
		name := strings.ToLower(link.FileName)
		if !strings.HasSuffix(name, ".htm") && !strings.HasSuffix(name, ".html") {
			continue
		}
		if strings.HasSuffix(name, "-index.htm") || strings.Contains(name, "form") {
			continue
		}
		if !found || len(link.FileName) < len(best.FileName) {
			best = link
			found = true
		}
	}
	return best, found
}

// ParseTables scans a rendered filing document for tables that look like
// financial statements. Accepted tables are concatenated row-wise; the
// header comes from the first accepted table whose leading row is
// header-shaped. When no table qualifies the result is an empty table
// rather than an error: the HTML fallback degrades, it never aborts the
// filing.
func ParseTables(r io.Reader, log *zap.Logger) (*models.FactTable, error) {
	if log == nil {
		log = zap.NewNop()
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	out := &models.FactTable{Source: models.SourceHTML}
	doc.Find("table").Each(func(i int, table *goquery.Selection) {
		grid := buildGrid(table)
		grid = trimGrid(grid)
		if len(grid) == 0 {
			return
		}
		if !financialTable(grid, table) {
			return
		}
		header, rows := promoteHeader(grid)
		if len(out.Header) == 0 {
			out.Header = header
		}
		out.Rows = append(out.Rows, rows...)
		log.Debug("financial table accepted",
			zap.Int("table", i),
			zap.Int("rows", len(rows)),
			zap.Int("cols", gridWidth(grid)))
	})
	return out, nil
}

// buildGrid flattens a table into a rectangular cell grid, expanding
// colspan and rowspan so columns stay aligned.
func buildGrid(table *goquery.Selection) [][]string {
	rows := table.Find("tr")
	rowCount := rows.Length()
	if rowCount == 0 {
		return nil
	}

	maxCols := 0
	rows.Each(func(_ int, tr *goquery.Selection) {
		cols := 0
		tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cols += spanAttr(cell, "colspan")
		})
		if cols > maxCols {
			maxCols = cols
		}
	})
	if maxCols == 0 {
		return nil
	}

	grid := make([][]string, rowCount)
	taken := make([][]bool, rowCount)
	for i := range grid {
		grid[i] = make([]string, maxCols)
		taken[i] = make([]bool, maxCols)
	}

	rowIdx := 0
	rows.Each(func(_ int, tr *goquery.Selection) {
		colIdx := 0
		tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			for colIdx < maxCols && taken[rowIdx][colIdx] {
				colIdx++
			}
			colspan := spanAttr(cell, "colspan")
			rowspan := spanAttr(cell, "rowspan")
			text := cellText(cell)

			for r := 0; r < rowspan; r++ {
				for c := 0; c < colspan; c++ {
					rr, cc := rowIdx+r, colIdx+c
					if rr < rowCount && cc < maxCols {
						taken[rr][cc] = true
						if r == 0 && c == 0 {
							grid[rr][cc] = text
						}
					}
				}
			}
			colIdx += colspan
		})
		rowIdx++
	})
	return grid
}

func spanAttr(cell *goquery.Selection, name string) int {
	n, err := strconv.Atoi(cell.AttrOr(name, "1"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func cellText(cell *goquery.Selection) string {
	return strings.Join(strings.Fields(cell.Text()), " ")
}

// trimGrid removes rows and columns that carry no text at all, common in
// EDGAR tables that use empty cells for visual spacing.
func trimGrid(grid [][]string) [][]string {
	var rows [][]string
	for _, row := range grid {
		if !rowEmpty(row) {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	width := len(rows[0])
	keep := make([]bool, width)
	for _, row := range rows {
		for i, cell := range row {
			if strings.TrimSpace(cell) != "" {
				keep[i] = true
			}
		}
	}

	var out [][]string
	for _, row := range rows {
		var cells []string
		for i, cell := range row {
			if keep[i] {
				cells = append(cells, cell)
			}
		}
		out = append(out, cells)
	}
	return out
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func gridWidth(grid [][]string) int {
	if len(grid) == 0 {
		return 0
	}
	return len(grid[0])
}

// financialTable decides whether a trimmed grid is worth keeping: either
// its leading rows carry currency markers or consolidated-statement
// captions, or the table's own markup mentions a statement by name.
func financialTable(grid [][]string, table *goquery.Selection) bool {
	depth := headerRowScanDepth
	if depth > len(grid) {
		depth = len(grid)
	}
	for _, row := range grid[:depth] {
		for _, cell := range row {
			if strings.Contains(cell, "$") ||
				strings.Contains(strings.ToLower(cell), "consolidated") {
				return true
			}
		}
	}

	markup, err := table.Html()
	if err != nil {
		return false
	}
	markup = strings.ToLower(markup)
	for _, kw := range financialMarkupKeywords {
		if strings.Contains(markup, kw) {
			return true
		}
	}
	return false
}

// promoteHeader splits off the first row as column headers when it reads
// like labels rather than data: most cells are words (long or uppercase)
// and they are mostly distinct.
func promoteHeader(grid [][]string) ([]string, [][]string) {
	if len(grid) < 2 {
		return nil, grid
	}
	first := grid[0]

	labels := 0
	seen := make(map[string]bool)
	distinct := 0
	for _, cell := range first {
		cell = strings.TrimSpace(cell)
		if len(cell) > 2 || (hasLetter(cell) && cell == strings.ToUpper(cell)) {
			labels++
		}
		if cell != "" && !seen[cell] {
			seen[cell] = true
			distinct++
		}
	}

	if labels*2 > len(first) && distinct*2 > len(first) {
		return first, grid[1:]
	}
	return nil, grid
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}
