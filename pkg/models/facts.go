package models

// Context is a reporting-period definition from an XBRL instance document.
// A context may carry a duration (start/end), a point in time (instant),
// or neither; dimensional-only contexts are legal and stay referenceable.
type Context struct {
	ID        string
	StartDate string
	EndDate   string
	Instant   string
}

// Fact is one numeric disclosure tied to a context by reference. Value is
// nil when the source carried no parseable number ("-" or non-numeric text).
type Fact struct {
	Name      string   `csv:"name"`
	Value     *float64 `csv:"value"`
	Unit      string   `csv:"unit"`
	Decimals  string   `csv:"decimals"`
	StartDate string   `csv:"startDate"`
	EndDate   string   `csv:"endDate"`
	Instant   string   `csv:"instant"`
}

// Extraction sources.
const (
	SourceXBRL = "xbrl"
	SourceHTML = "html"
)

// FactTable is the terminal artifact of extraction for one filing document.
// The structured path fills Facts; the heuristic path fills Header and Rows
// with the concatenated financial-looking tables it accepted.
type FactTable struct {
	Source string
	Facts  []Fact
	Header []string
	Rows   [][]string
}

// Empty reports whether extraction produced no usable data.
func (t *FactTable) Empty() bool {
	if t == nil {
		return true
	}
	return len(t.Facts) == 0 && len(t.Rows) == 0
}
