package extract

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"

	"github.com/filingscope/filingscope/pkg/models"
)

// ManifestName is the audit manifest written alongside each filing's
// documents.
const ManifestName = "index.csv"

// WriteManifest records every discovered document for a filing, with the
// index page itself as the first data row so the manifest is
// self-describing.
func WriteManifest(path, indexURL string, links []models.DocumentLink) error {
	rows := make([]models.DocumentLink, 0, len(links)+1)
	rows = append(rows, models.DocumentLink{FileName: "Index URL", URL: indexURL})
	rows = append(rows, links...)

	data, err := csvutil.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return writeFile(path, data)
}

// WriteFactTable serializes an extraction result. XBRL output is a typed
// fact listing; the HTML fallback is a raw grid whose shape varies per
// filing, so it goes through the plain csv writer.
func WriteFactTable(path string, table *models.FactTable) error {
	if table.Source == models.SourceXBRL {
		data, err := csvutil.Marshal(table.Facts)
		if err != nil {
			return fmt.Errorf("marshal facts: %w", err)
		}
		return writeFile(path, data)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if len(table.Header) > 0 {
		if err := w.Write(table.Header); err != nil {
			f.Close()
			return err
		}
	}
	for _, row := range table.Rows {
		if err := w.Write(row); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
