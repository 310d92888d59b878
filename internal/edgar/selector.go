package edgar

import "github.com/filingscope/filingscope/pkg/models"

// Form10K is the annual-report form type this pipeline selects for.
const Form10K = "10-K"

// DefaultNumFilings caps selection when the caller does not say otherwise.
const DefaultNumFilings = 4

// SelectFilings filters a filing history down to the 10-Ks of interest.
// It is a bounded linear scan over the input in its original order: the
// registry returns most-recent-first and downstream consumers rely on
// that, so the selector never reorders. The scan stops as soon as
// numFilings matches are collected. An empty year set means no year
// constraint. No network or disk access.
func SelectFilings(records []models.FilingRecord, years []int, numFilings int) ([]models.FilingRecord, error) {
	if numFilings < 1 {
		return nil, ErrInvalidFilingCount
	}

	yearSet := make(map[int]bool, len(years))
	for _, y := range years {
		yearSet[y] = true
	}

	var selected []models.FilingRecord
	for _, rec := range records {
		if len(selected) >= numFilings {
			break
		}
		if rec.Form != Form10K {
			continue
		}
		if len(yearSet) > 0 && !yearSet[rec.ReportYear()] {
			continue
		}
		selected = append(selected, rec)
	}
	return selected, nil
}
