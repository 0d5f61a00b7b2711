// Package dataset defines the row model consumed by the evaluation
// pipeline and loads rows from CSV sources.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/giridharan-1129/LLM-Evaluation-app/log"
)

// Row is one unit of evaluation input: a mapping from column name to value
// with the column order of the source preserved. Rows are immutable once
// read.
type Row struct {
	// Columns preserves the source column order.
	Columns []string `json:"columns,omitempty"`
	// Values maps column name to cell value.
	Values map[string]string `json:"values"`
}

// Get returns the value of the named column and whether it exists.
func (r Row) Get(column string) (string, bool) {
	value, ok := r.Values[column]
	return value, ok
}

// LoadCSV reads rows from CSV data. The first record is the header; every
// following record becomes one Row. Records shorter than the header are
// padded with empty values, longer ones are an error from the csv reader.
func LoadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("dataset is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset header: %w", err)
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("dataset header has no columns")
	}

	// Short records are tolerated so trailing empty cells can be omitted.
	reader.FieldsPerRecord = -1

	var rows []Row
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read dataset row %d: %w", len(rows)+1, err)
		}
		values := make(map[string]string, len(header))
		for i, column := range header {
			if i < len(record) {
				values[column] = record[i]
			} else {
				values[column] = ""
			}
		}
		rows = append(rows, Row{Columns: header, Values: values})
	}

	log.Debugf("loaded %d dataset rows with columns %v", len(rows), header)
	return rows, nil
}

// LoadCSVFile reads rows from a CSV file on disk.
func LoadCSVFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset file: %w", err)
	}
	defer f.Close()

	rows, err := LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse dataset file %s: %w", path, err)
	}
	return rows, nil
}
