// Package pipeline wires resolution, selection, download, and extraction
// into one run. A filing is the unit of failure: anything that goes wrong
// inside one filing is logged and absorbed, and the run moves on to the
// next.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/filingscope/filingscope/internal/config"
	"github.com/filingscope/filingscope/internal/edgar"
	"github.com/filingscope/filingscope/internal/extract"
	"github.com/filingscope/filingscope/pkg/models"
	"github.com/filingscope/filingscope/pkg/utils"
)

// Request identifies what to acquire. Exactly one of Ticker or CIK must
// be set; CIK wins when both are.
type Request struct {
	Ticker     string
	CIK        string
	Years      []int // empty means all years
	NumFilings int   // 0 means the configured default
	FetchOnly  bool  // download documents but skip extraction
}

// Pipeline runs the acquisition and extraction flow end to end.
type Pipeline struct {
	cfg    *config.Config
	client *edgar.Client
	log    *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		cfg:    cfg,
		client: edgar.NewClient(cfg, log),
		log:    log,
	}
}

// Run resolves the request to a filer, selects its annual reports, and
// processes each in turn. It returns an error only when nothing at all
// can proceed: a bad identifier, an unreachable registry, or no matching
// filings.
func (p *Pipeline) Run(ctx context.Context, req Request) error {
	cik, err := p.resolve(ctx, req)
	if err != nil {
		return err
	}

	company, err := p.client.Submissions(ctx, cik)
	if err != nil {
		return err
	}
	if company.Name == "" {
		company.Name = cik
	}

	numFilings := req.NumFilings
	if numFilings == 0 {
		numFilings = p.cfg.Fetcher.NumFilings
	}
	selected, err := edgar.SelectFilings(company.Records, req.Years, numFilings)
	if err != nil {
		return err
	}
	if len(selected) == 0 {
		return fmt.Errorf("cik %s: %w", cik, edgar.ErrNoFilings)
	}

	p.log.Info("filings selected",
		zap.String("company", company.Name),
		zap.String("cik", cik),
		zap.Int("count", len(selected)))

	for _, filing := range selected {
		if ctx.Err() != nil {
			break
		}
		if err := p.processFiling(ctx, cik, company.Name, filing, req.FetchOnly); err != nil {
			if ctx.Err() != nil {
				break
			}
			p.log.Warn("filing skipped",
				zap.String("accession", filing.AccessionNumber),
				zap.Error(err))
		}
	}
	// Cancellation mid-run surfaces even when per-document failures were
	// absorbed along the way.
	return ctx.Err()
}

func (p *Pipeline) resolve(ctx context.Context, req Request) (string, error) {
	if req.CIK != "" {
		cik := edgar.PadCIK(strings.TrimSpace(req.CIK))
		if !edgar.ValidCIK(cik) {
			return "", edgar.ErrInvalidCIK
		}
		return cik, nil
	}
	if req.Ticker == "" {
		return "", fmt.Errorf("either a ticker or a CIK is required")
	}
	return p.client.ResolveTicker(ctx, req.Ticker)
}

// processFiling discovers, downloads, and extracts one filing. Document
// downloads run concurrently under the configured worker limit; a failed
// document is logged and dropped without sinking the filing.
func (p *Pipeline) processFiling(ctx context.Context, cik, company string, filing models.FilingRecord, fetchOnly bool) error {
	indexURL := p.client.IndexURL(cik, filing)
	links, err := p.client.FilingIndex(ctx, cik, filing)
	if err != nil {
		return fmt.Errorf("fetch index: %w", err)
	}

	dir := p.filingDir(company, filing)
	if err := extract.WriteManifest(filepath.Join(dir, extract.ManifestName), indexURL, links); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	downloaded := p.downloadAll(ctx, dir, links)
	p.log.Info("filing downloaded",
		zap.String("accession", filing.AccessionNumber),
		zap.Int("documents", len(downloaded)))

	if fetchOnly {
		return nil
	}
	return p.extractFiling(company, filing, dir)
}

// downloadAll fetches every document for a filing, bounded by the worker
// limit. Failures are absorbed per document; the returned links are the
// ones that landed on disk.
func (p *Pipeline) downloadAll(ctx context.Context, dir string, links []models.DocumentLink) []models.DocumentLink {
	workers := p.cfg.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	results := make([]bool, len(links))
	for i, link := range links {
		i, link := i, link
		g.Go(func() error {
			dest := filepath.Join(dir, utils.SanitizeFilename(link.FileName))
			if _, err := p.client.Download(gctx, link, dest); err != nil {
				p.log.Warn("document failed",
					zap.String("file", link.FileName),
					zap.Error(err))
				return nil
			}
			results[i] = true
			return nil
		})
	}
	g.Wait()

	var downloaded []models.DocumentLink
	for i, ok := range results {
		if ok {
			downloaded = append(downloaded, links[i])
		}
	}
	return downloaded
}

// extractFiling prefers the XBRL instance document and falls back to
// scraping the primary HTML document. An empty result is not an error;
// it just means this filing produced no structured output.
func (p *Pipeline) extractFiling(company string, filing models.FilingRecord, dir string) error {
	table, err := extract.FromDir(dir, p.log)
	if err != nil {
		return err
	}
	if table == nil || table.Empty() {
		p.log.Warn("no structured data extracted",
			zap.String("accession", filing.AccessionNumber))
		return nil
	}

	out := filepath.Join(p.cfg.Extractor.OutputDir,
		utils.SanitizeFilename(company),
		filing.AccessionNumber+".csv")
	if err := extract.WriteFactTable(out, table); err != nil {
		return fmt.Errorf("write facts: %w", err)
	}
	p.log.Info("facts written",
		zap.String("source", table.Source),
		zap.String("path", out))
	return nil
}

func (p *Pipeline) filingDir(company string, filing models.FilingRecord) string {
	return filepath.Join(p.cfg.Fetcher.FilingsDir,
		utils.SanitizeFilename(company),
		filing.AccessionNumber)
}
