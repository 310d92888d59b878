package edgar

// --- Registry wire types ---

// tickerEntry is one record of the ticker->CIK mapping snapshot. The
// snapshot arrives as {"0": {...}, "1": {...}, ...} keyed by row index.
type tickerEntry struct {
	CIK    int    `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// submissionsResponse is the per-filer submission history document.
type submissionsResponse struct {
	CIK     string         `json:"cik"`
	Name    string         `json:"name"`
	Filings filingsSection `json:"filings"`
}

type filingsSection struct {
	Recent recentFilings `json:"recent"`
}

// recentFilings holds the registry's parallel arrays of filing attributes.
// The arrays are zipped into FilingRecords only after their lengths have
// been validated against each other.
type recentFilings struct {
	AccessionNumber []string `json:"accessionNumber"`
	Form            []string `json:"form"`
	ReportDate      []string `json:"reportDate"`
}
