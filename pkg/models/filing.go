// Package models defines the shared data model for the filing acquisition
// and extraction pipeline: filing records, discovered document links, and
// the fact tables produced by extraction.
package models

import (
	"strings"
	"time"
)

// FilingRecord is one row of a company's filing history as reported by the
// registry's submissions endpoint. Records are read-only after creation.
type FilingRecord struct {
	// AccessionNumber is the canonical dashed form, e.g. "0000320193-23-000106".
	AccessionNumber string    `json:"accession_number"`
	Form            string    `json:"form"`
	ReportDate      time.Time `json:"report_date"`
}

// AccessionClean returns the accession number with dashes stripped,
// the form used in archive document URLs.
func (f FilingRecord) AccessionClean() string {
	return strings.ReplaceAll(f.AccessionNumber, "-", "")
}

// ReportYear returns the 4-digit year of the report date, or 0 when the
// registry supplied no date for this filing.
func (f FilingRecord) ReportYear() int {
	if f.ReportDate.IsZero() {
		return 0
	}
	return f.ReportDate.Year()
}

// CompanyFilings bundles the filing history with the filer identity it
// belongs to.
type CompanyFilings struct {
	CIK     string         `json:"cik"`
	Name    string         `json:"name"`
	Records []FilingRecord `json:"records"`
}

// DocumentLink is one constituent document discovered on a filing's index
// page, unique by URL within a filing.
type DocumentLink struct {
	FileName string `csv:"File Name" json:"file_name"`
	URL      string `csv:"File URL"  json:"file_url"`
}
