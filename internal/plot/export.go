package plot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

const pointsSheet = "Curves"

var pointNames = [3]string{"A", "B", "C"}

// Export renders the surface to path in the format its extension names.
// The file is written to a temporary sibling and renamed into place, so a
// failed export never leaves a partial file behind.
func (s *Surface) Export(path string, opts RenderOptions) error {
	format := FormatFromPath(path)
	err := writeAtomic(path, func(w io.Writer) error {
		return s.Render(w, format, opts)
	})
	if err != nil {
		return fmt.Errorf("export %s: %w", filepath.Base(path), err)
	}
	log.Info().Str("path", path).Str("format", string(format)).Int("curves", s.Len()).Msg("Plot exported")
	return nil
}

// ExportPoints writes every curve's three points to an xlsx workbook
func (s *Surface) ExportPoints(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", pointsSheet); err != nil {
		return fmt.Errorf("prepare workbook: %w", err)
	}

	header := []interface{}{"Plot", "Colour", "Point", XLabel, YLabel}
	if err := f.SetSheetRow(pointsSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := 2
	for _, c := range s.Curves() {
		for i, p := range c.Points {
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return err
			}
			values := []interface{}{c.Label, c.Color.Name, pointNames[i], p.Rotation, p.Moment}
			if err := f.SetSheetRow(pointsSheet, cell, &values); err != nil {
				return fmt.Errorf("write row %d: %w", row, err)
			}
			row++
		}
	}

	err := writeAtomic(path, func(w io.Writer) error {
		return f.Write(w)
	})
	if err != nil {
		return fmt.Errorf("export %s: %w", filepath.Base(path), err)
	}
	log.Info().Str("path", path).Int("curves", s.Len()).Msg("Curve points exported")
	return nil
}

// writeAtomic streams into a temp file in the target directory and renames
// it over path once complete
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
