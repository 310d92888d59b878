package edgar

import "fmt"

// --- Sentinel errors ---

// ErrTickerNotFound is returned when the ticker snapshot has no exact match.
// An unknown ticker is a normal negative result, not a fetch failure.
var ErrTickerNotFound = fmt.Errorf("ticker not found in registry mapping")

// ErrNoFilings is returned when the filing history contains no filing that
// matches the selection criteria.
var ErrNoFilings = fmt.Errorf("no matching filings")

// ErrInvalidCIK is returned before any network access when the caller
// supplies an identifier that is not a 10-digit number.
var ErrInvalidCIK = fmt.Errorf("CIK must be a 10-digit number")

// ErrInvalidFilingCount is returned when the requested filing count is not
// a positive integer.
var ErrInvalidFilingCount = fmt.Errorf("filing count must be >= 1")
