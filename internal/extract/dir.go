package extract

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/filingscope/filingscope/pkg/models"
)

// FromDir applies the instance-first, HTML-fallback extraction policy to
// whatever documents are present in one downloaded filing directory. A
// directory with no extractable document yields a nil table, not an
// error.
func FromDir(dir string, log *zap.Logger) (*models.FactTable, error) {
	if log == nil {
		log = zap.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var links []models.DocumentLink
	for _, e := range entries {
		if e.IsDir() || e.Name() == ManifestName {
			continue
		}
		links = append(links, models.DocumentLink{FileName: e.Name()})
	}

	for _, link := range links {
		if !IsInstanceDocument(link.FileName) {
			continue
		}
		f, err := os.Open(filepath.Join(dir, link.FileName))
		if err != nil {
			return nil, err
		}
		table, err := ParseInstance(f, log)
		f.Close()
		if err == nil {
			return table, nil
		}
		log.Warn("instance document unreadable, falling back to html",
			zap.String("file", link.FileName),
			zap.Error(err))
		break
	}

	candidate, ok := CandidateDocument(links)
	if !ok {
		return nil, nil
	}
	f, err := os.Open(filepath.Join(dir, candidate.FileName))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseTables(f, log)
}

// IsFilingDir reports whether dir is one downloaded filing: the manifest
// written at download time marks it.
func IsFilingDir(dir string) bool {
	fi, err := os.Stat(filepath.Join(dir, ManifestName))
	return err == nil && !fi.IsDir()
}
