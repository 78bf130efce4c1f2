// Package ingest brings provider and bank CSV exports into the record
// store. Files are dropped into <workspace>/import/ named
// <provider>-<kind>-<anything>.csv and moved to import/processed/ once
// loaded.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/concilia-dev/concilia/internal/model"
)

// Kind identifies which record source a file feeds.
type Kind string

const (
	KindLedger      Kind = "ledger"
	KindSales       Kind = "sales"
	KindReceivables Kind = "receivables"
	KindBank        Kind = "bank"
)

// FileInfo describes one recognized CSV file in the import directory.
type FileInfo struct {
	Name     string
	Path     string
	Size     int64
	Provider model.Provider
	Kind     Kind
}

const (
	importDir    = "import"
	processedDir = "import/processed"
)

// Scan returns the recognizable CSV files in <workspace>/import/. Files
// whose names do not follow the <provider>-<kind>-*.csv convention are
// skipped silently so unrelated drops never break a run.
func Scan(workspace string) ([]FileInfo, error) {
	dir := filepath.Join(workspace, importDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p, kind, ok := classify(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name:     e.Name(),
			Path:     filepath.Join(dir, e.Name()),
			Size:     info.Size(),
			Provider: p,
			Kind:     kind,
		})
	}
	return files, nil
}

// MarkProcessed moves a file from import/ to import/processed/.
func MarkProcessed(workspace, fileName string) error {
	src := filepath.Join(workspace, importDir, fileName)
	dstDir := filepath.Join(workspace, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	if err := os.Rename(src, filepath.Join(dstDir, fileName)); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

func classify(name string) (model.Provider, Kind, bool) {
	lower := strings.ToLower(name)
	if !strings.HasSuffix(lower, ".csv") {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimSuffix(lower, ".csv"), "-", 3)
	if len(parts) < 2 {
		return "", "", false
	}

	kind := Kind(parts[1])
	switch kind {
	case KindLedger, KindSales, KindReceivables, KindBank:
	default:
		return "", "", false
	}
	return model.Provider(strings.ToUpper(parts[0])), kind, true
}
