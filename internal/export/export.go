package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/geolocate-mvp/zipgallery/internal/gallery"
	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// Format selects the export encoding.
type Format string

const (
	FormatXLSX    Format = "xlsx"
	FormatParquet Format = "parquet"
	FormatYAML    Format = "yaml"
)

const sheetName = "Images"

// Row is one image of the archive index.
type Row struct {
	Ordinal   int    `parquet:"ordinal" yaml:"ordinal"`
	Name      string `parquet:"name" yaml:"name"`
	Path      string `parquet:"path" yaml:"path"`
	SizeBytes int64  `parquet:"size_bytes" yaml:"sizebytes"`
	SizeLabel string `parquet:"size_label" yaml:"sizelabel"`
	Page      int    `parquet:"page" yaml:"page"`
}

// Report is the YAML document written for an archive.
type Report struct {
	Archive     string `yaml:"archive"`
	GeneratedAt string `yaml:"generatedat"`
	Total       int    `yaml:"total"`
	PageSize    int    `yaml:"pagesize"`
	Images      []Row  `yaml:"images"`
}

// ParseFormat accepts a format name or a file name with a known extension.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if ext := filepath.Ext(s); ext != "" {
		s = ext[1:]
	}
	switch s {
	case "xlsx":
		return FormatXLSX, nil
	case "parquet":
		return FormatParquet, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported export format: %q (supported: xlsx, parquet, yaml)", s)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "application/yaml"
	}
}

// Rows builds index rows from entries in display order.
func Rows(entries []gallery.EntryRef) []Row {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = Row{
			Ordinal:   e.Ordinal,
			Name:      e.Name,
			Path:      e.Path,
			SizeBytes: e.SizeBytes,
			SizeLabel: gallery.SizeLabel(e.SizeBytes),
			Page:      i/gallery.PageSize + 1,
		}
	}
	return rows
}

// Write encodes rows to w in the given format.
func Write(w io.Writer, format Format, archiveName string, rows []Row) error {
	switch format {
	case FormatXLSX:
		return writeXLSX(w, rows)
	case FormatParquet:
		if err := parquet.Write(w, rows); err != nil {
			return fmt.Errorf("failed to write parquet: %w", err)
		}
		return nil
	case FormatYAML:
		return writeYAML(w, archiveName, rows)
	default:
		return fmt.Errorf("unsupported export format: %q", format)
	}
}

// WriteFile writes rows to path, choosing the format from its extension.
func WriteFile(path, archiveName string, rows []Row) error {
	format, err := ParseFormat(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	if err := Write(f, format, archiveName, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	header := []any{"Ordinal", "Name", "Path", "Size (bytes)", "Size", "Page"}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{r.Ordinal, r.Name, r.Path, r.SizeBytes, r.SizeLabel, r.Page}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, archiveName string, rows []Row) error {
	report := Report{
		Archive:     archiveName,
		GeneratedAt: time.Now().Format("2006-01-02_15-04-05"),
		Total:       len(rows),
		PageSize:    gallery.PageSize,
		Images:      rows,
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}
