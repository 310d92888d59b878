package extract

import (
	"strings"
	"testing"

	"github.com/filingscope/filingscope/pkg/models"
)

// ── CandidateDocument ──

func TestCandidateDocument(t *testing.T) {
	links := []models.DocumentLink{
		{FileName: "0000320193-23-000106-index.htm"},
		{FileName: "form10-k.htm"},
		{FileName: "a10-kexhibit311.htm"},
		{FileName: "aapl-2023.htm"},
		{FileName: "aapl-20230930_htm.xml"},
	}
	got, ok := CandidateDocument(links)
	if !ok {
		t.Fatal("CandidateDocument: no candidate found")
	}
	if got.FileName != "aapl-2023.htm" {
		t.Errorf("candidate: got %q, want aapl-2023.htm (shortest eligible)", got.FileName)
	}
}

func TestCandidateDocumentNone(t *testing.T) {
	links := []models.DocumentLink{
		{FileName: "instance_htm.xml"},
		{FileName: "form10-k.htm"},
	}
	if _, ok := CandidateDocument(links); ok {
		t.Error("CandidateDocument: expected no candidate")
	}
}

// ── ParseTables acceptance ──

const financialDoc = `<html><body>
<table>
<tr><td>Navigation</td><td>Links</td></tr>
<tr><td>Home</td><td>Next</td></tr>
</table>
<p>CONSOLIDATED BALANCE SHEETS</p>
<table>
<tr><th>Line Item</th><th>2023</th><th>2022</th></tr>
<tr><td>Total net sales</td><td>$ 383,285</td><td>$ 394,328</td></tr>
<tr><td>Total assets</td><td>352,583</td><td>352,755</td></tr>
<tr><td></td><td></td><td></td></tr>
</table>
</body></html>`

func TestParseTablesAcceptsFinancialTable(t *testing.T) {
	table, err := ParseTables(strings.NewReader(financialDoc), nil)
	if err != nil {
		t.Fatalf("ParseTables error: %v", err)
	}
	if table.Source != models.SourceHTML {
		t.Errorf("Source: got %q, want %q", table.Source, models.SourceHTML)
	}
	if table.Empty() {
		t.Fatal("expected a table, got empty result")
	}

	wantHeader := []string{"Line Item", "2023", "2022"}
	if len(table.Header) != len(wantHeader) {
		t.Fatalf("header: got %v, want %v", table.Header, wantHeader)
	}
	for i, h := range wantHeader {
		if table.Header[i] != h {
			t.Errorf("header[%d]: got %q, want %q", i, table.Header[i], h)
		}
	}

	// The all-empty spacer row is dropped.
	if len(table.Rows) != 2 {
		t.Fatalf("rows: got %d (%v), want 2", len(table.Rows), table.Rows)
	}
	if table.Rows[0][1] != "$ 383,285" {
		t.Errorf("cell: got %q", table.Rows[0][1])
	}
}

func TestParseTablesSkipsNavigationTables(t *testing.T) {
	doc := `<html><body>
<table>
<tr><td>Home</td><td>About</td></tr>
<tr><td>Contact</td><td>Careers</td></tr>
</table>
</body></html>`
	table, err := ParseTables(strings.NewReader(doc), nil)
	if err != nil {
		t.Fatalf("ParseTables error: %v", err)
	}
	if !table.Empty() {
		t.Errorf("navigation table accepted: %v", table.Rows)
	}
}

func TestParseTablesMarkupKeywordAcceptance(t *testing.T) {
	// No $ or Consolidated in cells, but the caption inside the table
	// names a statement.
	doc := `<html><body>
<table>
<tr><td colspan="3">Statements of Operations</td></tr>
<tr><td>Item</td><td>2023</td><td>2022</td></tr>
<tr><td>Revenue</td><td>100</td><td>90</td></tr>
</table>
</body></html>`
	table, err := ParseTables(strings.NewReader(doc), nil)
	if err != nil {
		t.Fatalf("ParseTables error: %v", err)
	}
	if table.Empty() {
		t.Error("table with statement caption rejected")
	}
}

func TestParseTablesColspanAlignment(t *testing.T) {
	doc := `<html><body>
<table>
<tr><td>Label</td><td colspan="2">Consolidated</td></tr>
<tr><td>Assets</td><td>$ 10</td><td>$ 20</td></tr>
</table>
</body></html>`
	table, err := ParseTables(strings.NewReader(doc), nil)
	if err != nil {
		t.Fatalf("ParseTables error: %v", err)
	}
	if table.Empty() {
		t.Fatal("colspan table rejected")
	}
	for _, row := range table.Rows {
		if len(row) != 3 {
			t.Errorf("row width: got %d (%v), want 3", len(row), row)
		}
	}
}

func TestParseTablesNoHeaderPromotionForDataRows(t *testing.T) {
	// First row is numeric data, not labels; it must stay a data row.
	doc := `<html><body>
<table>
<tr><td>$ 1</td><td>2</td><td>3</td></tr>
<tr><td>$ 4</td><td>5</td><td>6</td></tr>
</table>
</body></html>`
	table, err := ParseTables(strings.NewReader(doc), nil)
	if err != nil {
		t.Fatalf("ParseTables error: %v", err)
	}
	if table.Empty() {
		t.Fatal("table rejected")
	}
	if len(table.Header) != 0 {
		t.Errorf("header promoted from data row: %v", table.Header)
	}
	if len(table.Rows) != 2 {
		t.Errorf("rows: got %d, want 2", len(table.Rows))
	}
}

func TestParseTablesEmptyDocument(t *testing.T) {
	table, err := ParseTables(strings.NewReader("<html><body><p>no tables</p></body></html>"), nil)
	if err != nil {
		t.Fatalf("ParseTables error: %v", err)
	}
	if !table.Empty() {
		t.Error("expected empty result")
	}
}
