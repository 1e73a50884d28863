// Package export writes datafile payloads to disk.
package export

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jchantrell/twmap/internal/datafile"
	"github.com/spf13/afero"
)

// Source is the part of a datafile.Reader the exporter needs
type Source interface {
	NumData() int
	DataIter() *datafile.DataIter
}

// Exporter writes every data entry of a datafile into a directory
type Exporter struct {
	fs        afero.Fs
	outputDir string
}

// NewExporter creates an exporter that writes below outputDir on the OS filesystem
func NewExporter(outputDir string) *Exporter {
	return NewExporterFs(afero.NewOsFs(), outputDir)
}

// NewExporterFs creates an exporter on an arbitrary filesystem
func NewExporterFs(fs afero.Fs, outputDir string) *Exporter {
	return &Exporter{
		fs:        fs,
		outputDir: outputDir,
	}
}

// ProgressCallback is called to report export progress
type ProgressCallback func(current int, total int, description string)

// Result describes one exported entry
type Result struct {
	Index int
	Path  string
	Size  int
}

// FileName returns the name used for data entry index
func FileName(index int) string {
	return fmt.Sprintf("data_%04d.bin", index)
}

// ExportData writes each data entry to outputDir/data_NNNN.bin. Extraction stops
// at the first entry that cannot be read or written; entries written before it
// are returned.
func (e *Exporter) ExportData(src Source, progressCallback ProgressCallback) ([]Result, error) {
	total := src.NumData()
	if total == 0 {
		return nil, nil
	}

	if err := e.fs.MkdirAll(e.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	results := make([]Result, 0, total)
	it := src.DataIter()
	for it.Next() {
		data, err := it.Data()
		if err != nil {
			return results, fmt.Errorf("reading data entry %d: %w", it.Index(), err)
		}

		name := FileName(it.Index())
		outputPath := filepath.Join(e.outputDir, name)
		if err := afero.WriteFile(e.fs, outputPath, data, 0644); err != nil {
			return results, fmt.Errorf("writing file %s: %w", outputPath, err)
		}

		results = append(results, Result{Index: it.Index(), Path: outputPath, Size: len(data)})
		slog.Debug("Exported data entry", "index", it.Index(), "size", len(data), "output", outputPath)

		if progressCallback != nil {
			progressCallback(len(results), total, name)
		}
	}

	return results, nil
}
