package edgar

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/filingscope/filingscope/pkg/models"
	"github.com/filingscope/filingscope/pkg/utils"
)

// FilingBaseURL builds the archive directory URL for one filing:
// {archive}/{cik-without-leading-zeros}/{accession-clean}.
func (c *Client) FilingBaseURL(cik string, rec models.FilingRecord) string {
	base := strings.TrimSuffix(c.registry.ArchiveBaseURL, "/")
	return fmt.Sprintf("%s/%s/%s", base, strings.TrimLeft(cik, "0"), rec.AccessionClean())
}

// IndexURL builds the filing's index-page URL.
func (c *Client) IndexURL(cik string, rec models.FilingRecord) string {
	return fmt.Sprintf("%s/%s-index.htm", c.FilingBaseURL(cik, rec), rec.AccessionNumber)
}

// FilingIndex fetches a filing's index page and returns the de-duplicated
// document links it enumerates. Links are classified and filtered: viewer
// redirects are unwrapped, relative hrefs are resolved against the index
// page or the registry host, and anything without a supported extension or
// carrying an ignored keyword is dropped.
func (c *Client) FilingIndex(ctx context.Context, cik string, rec models.FilingRecord) ([]models.DocumentLink, error) {
	indexURL := c.IndexURL(cik, rec)

	data, err := c.getBytes(ctx, indexURL)
	if err != nil {
		return nil, fmt.Errorf("fetch index page %s: %w", indexURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse index page %s: %w", indexURL, err)
	}

	var links []models.DocumentLink
	seen := make(map[string]bool)

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		link, ok := c.resolveLink(indexURL, href, sel.Text())
		if !ok {
			return
		}
		if seen[link.URL] {
			return
		}
		seen[link.URL] = true
		links = append(links, link)
	})

	c.log.Debug("index page resolved",
		zap.String("accession", rec.AccessionNumber),
		zap.Int("links", len(links)))
	return links, nil
}

// resolveLink classifies one index-page hyperlink. It returns false for
// links that should be rejected: unsupported extension, ignored keyword,
// or no derivable file name.
func (c *Client) resolveLink(indexURL, href, linkText string) (models.DocumentLink, bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return models.DocumentLink{}, false
	}

	// Inline-viewer redirect: /ix?doc=/Archives/... points at the real
	// document path via its query parameter.
	if parsed, err := url.Parse(href); err == nil {
		if doc := parsed.Query().Get("doc"); doc != "" {
			href = doc
		}
	} else {
		return models.DocumentLink{}, false
	}

	var absolute string
	switch {
	case strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://"):
		absolute = href
	case strings.HasPrefix(href, "/"):
		absolute = strings.TrimSuffix(c.registry.SiteURL, "/") + href
	default:
		// Relative to the index page's own directory.
		base := indexURL[:strings.LastIndex(indexURL, "/")]
		absolute = base + "/" + href
	}

	fileName := ""
	if parsed, err := url.Parse(absolute); err == nil {
		fileName = path.Base(parsed.Path)
		if fileName == "." || fileName == "/" {
			fileName = ""
		}
	}
	if fileName == "" {
		// Fall back to the link's visible text, accepted only if it
		// already names a supported file.
		candidate := utils.SanitizeFilename(linkText)
		if candidate == "" || !c.supportedExtension(candidate) {
			return models.DocumentLink{}, false
		}
		fileName = candidate
	}

	if !c.supportedExtension(fileName) {
		return models.DocumentLink{}, false
	}
	if c.ignoredKeyword(fileName) || c.ignoredKeyword(absolute) {
		return models.DocumentLink{}, false
	}

	return models.DocumentLink{FileName: fileName, URL: absolute}, true
}

func (c *Client) supportedExtension(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range c.fetcher.SupportedExtensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

func (c *Client) ignoredKeyword(s string) bool {
	lower := strings.ToLower(s)
	for _, kw := range c.fetcher.IgnoredKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
