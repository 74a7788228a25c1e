// File: pkg/report/csv.go
package report

import (
	"encoding/csv"
	"errors"
	"fmt"

	"github.com/spf13/afero"
)

// Writes header and rows to path as CSV, replacing any existing file
func WriteCSV(fs afero.Fs, path string, header []string, rows [][]string) (err error) {
	if len(header) == 0 {
		return errors.New("csv header cannot be empty")
	}

	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header to %s: %w", path, err)
	}
	for i, row := range rows {
		if len(row) != len(header) {
			return fmt.Errorf("row %d has %d fields, header has %d", i+1, len(row), len(header))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d to %s: %w", i+1, path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}

// Reads a CSV file back into its header and rows
func ReadCSV(fs afero.Fs, path string) ([]string, [][]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s is empty", path)
	}
	return records[0], records[1:], nil
}
