// Package feed polls the registry's per-company Atom feed for newly
// accepted filings.
package feed

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/filingscope/filingscope/internal/config"
)

// Entry is one feed item: a filing the registry has accepted.
type Entry struct {
	Title   string
	Link    string
	Updated time.Time
}

// Watcher polls a filer's Atom feed and reports entries it has not seen
// before. Not safe for concurrent use; run one watcher per goroutine.
type Watcher struct {
	feedURL string
	parser  *gofeed.Parser
	seen    map[string]bool
	log     *zap.Logger
}

// NewWatcher builds a watcher for the given filer and form type. formType
// may be empty to watch every submission.
func NewWatcher(cfg config.RegistryConfig, cik, formType string, log *zap.Logger) *Watcher {
	if log == nil {
		log = zap.NewNop()
	}
	q := url.Values{}
	q.Set("action", "getcompany")
	q.Set("CIK", cik)
	if formType != "" {
		q.Set("type", formType)
	}
	q.Set("output", "atom")

	parser := gofeed.NewParser()
	parser.UserAgent = cfg.UserAgent

	return &Watcher{
		feedURL: cfg.FeedURL + "?" + q.Encode(),
		parser:  parser,
		seen:    make(map[string]bool),
		log:     log,
	}
}

// Poll fetches the feed once and returns entries not seen by this watcher
// before, oldest first. The first poll primes the seen set, so callers
// observe only filings accepted after watching began.
func (w *Watcher) Poll(ctx context.Context) ([]Entry, error) {
	feed, err := w.parser.ParseURLWithContext(w.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("poll feed: %w", err)
	}

	var fresh []Entry
	for i := len(feed.Items) - 1; i >= 0; i-- {
		item := feed.Items[i]
		key := item.GUID
		if key == "" {
			key = item.Link
		}
		if w.seen[key] {
			continue
		}
		w.seen[key] = true

		entry := Entry{Title: item.Title, Link: item.Link}
		if item.UpdatedParsed != nil {
			entry.Updated = *item.UpdatedParsed
		} else if item.PublishedParsed != nil {
			entry.Updated = *item.PublishedParsed
		}
		fresh = append(fresh, entry)
	}
	w.log.Debug("feed polled",
		zap.Int("items", len(feed.Items)),
		zap.Int("new", len(fresh)))
	return fresh, nil
}

// Watch polls on the given interval until the context is canceled,
// invoking fn for each new entry. The priming poll's entries are
// swallowed.
func (w *Watcher) Watch(ctx context.Context, interval time.Duration, fn func(Entry)) error {
	if _, err := w.Poll(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			entries, err := w.Poll(ctx)
			if err != nil {
				w.log.Warn("feed poll failed", zap.Error(err))
				continue
			}
			for _, e := range entries {
				fn(e)
			}
		}
	}
}
