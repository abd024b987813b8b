package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// ReadCSV parses a header row followed by data rows.
func ReadCSV(r io.Reader) (*Frame, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("csv: empty input")
		}
		return nil, fmt.Errorf("csv header: %w", err)
	}
	columns := make([]string, len(header))
	copy(columns, header)
	reader.FieldsPerRecord = len(columns)

	var rows [][]Value
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", len(rows)+1, err)
		}
		row := make([]Value, len(record))
		for i, cell := range record {
			row[i] = ParseValue(cell)
		}
		rows = append(rows, row)
	}
	return &Frame{Columns: columns, Rows: rows}, nil
}

// WriteCSV writes the frame with a header row. Output is a pure function of
// the frame contents.
func WriteCSV(w io.Writer, f *Frame) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(f.Columns); err != nil {
		return err
	}
	record := make([]string, len(f.Columns))
	for _, row := range f.Rows {
		for i, v := range row {
			record[i] = v.String()
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
