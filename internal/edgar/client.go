// Package edgar implements the SEC EDGAR registry client: ticker
// resolution, submission history, index-page discovery, and polite
// idempotent document downloads.
//
// No API key required. Every request carries an identifying User-Agent per
// SEC policy, and all outbound calls share one token-bucket rate limiter.
// Docs: https://www.sec.gov/edgar/sec-api-documentation
package edgar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/filingscope/filingscope/internal/config"
	"github.com/filingscope/filingscope/internal/infra"
	"github.com/filingscope/filingscope/pkg/models"
)

const tickerMapCacheKey = "ticker_map"

// Client talks to the filings registry. All methods are safe for
// concurrent use; the embedded limiter is the single throttling point
// for every outbound request.
type Client struct {
	registry config.RegistryConfig
	fetcher  config.FetcherConfig
	httpc    *http.Client
	limiter  *rate.Limiter
	retry    infra.RetryPolicy
	cache    *infra.Cache
	locks    *keyLocks
	log      *zap.Logger
}

// NewClient creates a registry client from configuration.
func NewClient(cfg *config.Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		registry: cfg.Registry,
		fetcher:  cfg.Fetcher,
		httpc:    infra.NewHTTPClient(time.Duration(cfg.Fetcher.TimeoutSec) * time.Second),
		limiter:  rate.NewLimiter(rate.Limit(cfg.Fetcher.RatePerSecond), cfg.Fetcher.RateBurst),
		retry: infra.RetryPolicy{
			MaxAttempts: cfg.Fetcher.MaxRetries,
			BaseDelay:   time.Duration(cfg.Fetcher.RetryDelayMS) * time.Millisecond,
		},
		cache: infra.NewCache(time.Duration(cfg.Fetcher.SnapshotTTLSec) * time.Second),
		locks: newKeyLocks(),
		log:   log,
	}
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"User-Agent": c.registry.UserAgent,
	}
}

// getBytes performs a rate-limited, retried GET and returns the full body.
// Each attempt consumes its own limiter token.
func (c *Client) getBytes(ctx context.Context, url string) ([]byte, error) {
	var out []byte
	err := c.retry.Do(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		body, _, err := infra.DoGet(ctx, c.httpc, url, c.headers())
		if err != nil {
			return err
		}
		defer body.Close()
		data, err := io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("read %s: %w", url, err)
		}
		out = data
		return nil
	})
	return out, err
}

func (c *Client) getJSON(ctx context.Context, url string, dest any) error {
	data, err := c.getBytes(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parse %s: %w", url, err)
	}
	return nil
}

// --- Identifier resolution ---

// ResolveTicker maps a ticker symbol to its 10-digit zero-padded CIK via
// the registry's ticker snapshot. Matching is a case-insensitive exact
// comparison; an unmatched ticker returns ErrTickerNotFound.
func (c *Client) ResolveTicker(ctx context.Context, ticker string) (string, error) {
	var entries map[string]tickerEntry

	if cached, ok := c.cache.Get(tickerMapCacheKey); ok {
		entries = cached.(map[string]tickerEntry)
	} else {
		if err := c.getJSON(ctx, c.registry.TickerMapURL, &entries); err != nil {
			return "", fmt.Errorf("fetch ticker mapping: %w", err)
		}
		c.cache.Set(tickerMapCacheKey, entries)
	}

	want := strings.TrimSpace(ticker)
	for _, entry := range entries {
		if strings.EqualFold(entry.Ticker, want) {
			return PadCIK(strconv.Itoa(entry.CIK)), nil
		}
	}
	return "", ErrTickerNotFound
}

// --- Submission history ---

// Submissions fetches the filer's submission history and zips the
// registry's parallel arrays into FilingRecords, preserving source order
// (most recent first). Structural violations in the response (missing
// keys, inconsistent array lengths) degrade to an empty record list
// rather than an error: a malformed history reads as "no filings found".
func (c *Client) Submissions(ctx context.Context, cik string) (*models.CompanyFilings, error) {
	if !ValidCIK(cik) {
		return nil, ErrInvalidCIK
	}

	url := fmt.Sprintf(c.registry.SubmissionsURL, cik)
	var resp submissionsResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("fetch submissions for CIK %s: %w", cik, err)
	}

	out := &models.CompanyFilings{CIK: cik, Name: resp.Name}

	recent := resp.Filings.Recent
	n := len(recent.AccessionNumber)
	if len(recent.Form) != n || len(recent.ReportDate) != n {
		c.log.Warn("submissions arrays have inconsistent lengths, treating as empty",
			zap.String("cik", cik),
			zap.Int("accessions", n),
			zap.Int("forms", len(recent.Form)),
			zap.Int("dates", len(recent.ReportDate)))
		return out, nil
	}

	for i := 0; i < n; i++ {
		reportDate, _ := time.Parse("2006-01-02", recent.ReportDate[i])
		out.Records = append(out.Records, models.FilingRecord{
			AccessionNumber: recent.AccessionNumber[i],
			Form:            recent.Form[i],
			ReportDate:      reportDate,
		})
	}
	return out, nil
}

// --- CIK helpers ---

// PadCIK pads a CIK number to 10 digits with leading zeros.
func PadCIK(cik string) string {
	for len(cik) < 10 {
		cik = "0" + cik
	}
	return cik
}

// ValidCIK reports whether cik is exactly 10 digits.
func ValidCIK(cik string) bool {
	if len(cik) != 10 {
		return false
	}
	for _, r := range cik {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
