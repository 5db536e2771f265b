// Package export writes stored scrape results to CSV or JSON files
// and records each export in the store's history.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/scrape-scheduler/internal/model"
	"github.com/t77yq/scrape-scheduler/internal/storage"
)

const (
	FormatCSV  = "csv"
	FormatJSON = "json"

	// maxExportRecords bounds one export file.
	maxExportRecords = 10000
)

var csvHeader = []string{"id", "url", "title", "content", "metadata", "source", "status", "scraped_at"}

// Exporter reads results through the store only; it has no knowledge
// of the storage engine.
type Exporter struct {
	logger *zap.Logger
	store  storage.ResultStore
	dir    string
}

// New creates an exporter writing into dir.
func New(store storage.ResultStore, dir string, logger *zap.Logger) *Exporter {
	return &Exporter{
		logger: logger.Named("export"),
		store:  store,
		dir:    dir,
	}
}

// Export writes results in the given format. An empty filename picks a
// timestamped default. It returns the written path.
func (e *Exporter) Export(ctx context.Context, format, filename string) (string, error) {
	switch format {
	case FormatCSV, FormatJSON:
	default:
		return "", fmt.Errorf("unsupported export format: %s", format)
	}

	results, err := e.store.ListResults(ctx, maxExportRecords, 0)
	if err != nil {
		return "", fmt.Errorf("failed to load results: %w", err)
	}

	if filename == "" {
		filename = fmt.Sprintf("scraped_data_%s.%s", time.Now().Format("20060102_150405"), format)
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	path := filepath.Join(e.dir, filename)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	switch format {
	case FormatCSV:
		err = writeCSV(file, results)
	case FormatJSON:
		enc := json.NewEncoder(file)
		enc.SetIndent("", "  ")
		err = enc.Encode(results)
	}
	if err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}

	if err := e.store.RecordExport(ctx, format, len(results), path); err != nil {
		e.logger.Error("Failed to record export", zap.Error(err))
	}

	e.logger.Info("Exported results",
		zap.String("format", format),
		zap.Int("records", len(results)),
		zap.String("path", path))

	return path, nil
}

func writeCSV(file *os.File, results []*model.ScrapeResult) error {
	w := csv.NewWriter(file)
	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range results {
		metadata, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for %s: %w", r.Target, err)
		}
		row := []string{
			strconv.FormatInt(r.ID, 10),
			r.Target,
			r.Title,
			r.Content,
			string(metadata),
			string(r.Source),
			r.Status,
			r.ScrapedAt.Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
